package http

import (
	"errors"
	"net/http"

	"backoffice/internal/domain"

	"github.com/gin-gonic/gin"
)

func writeOK(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func writeError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": message})
}

// writeDomainError maps domain sentinels onto the HTTP surface. Invalid and
// revoked credentials both answer 401; only a live session with the wrong
// role answers 403. Unmapped errors answer 500 with a generic body so
// internal detail never leaks.
func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrSessionRevoked),
		errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrInvalidCredentials):
		writeError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrAccountSuspended):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrTenantNotFound):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrEmailTaken):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrTwoFactorInvalid):
		writeError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		writeError(c, http.StatusTooManyRequests, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
