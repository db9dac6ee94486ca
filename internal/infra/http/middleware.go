package http

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"backoffice/internal/domain"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ctxBrokerID   = "broker_id"
	ctxBrokerSlug = "broker_slug"
	ctxPrincipal  = "principal"

	headerBrokerSlug = "X-Broker-Slug"
)

// hostCandidate extracts the tenant lookup key from a request host. The
// left-most dotted label is the candidate; bare hosts (localhost, IP
// literals, single labels) yield "" so the caller falls back to the default
// broker.
func hostCandidate(host string) string {
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "localhost" || net.ParseIP(host) != nil {
		return ""
	}
	label, rest, found := strings.Cut(host, ".")
	if !found || rest == "" {
		return ""
	}
	return strings.ToLower(label)
}

// resolveTenant attempts to bind the request to one active broker before any
// handler runs. An explicit X-Broker-Slug request header overrides host
// parsing, which keeps the API usable behind proxies that rewrite Host.
// An unresolvable tenant is recorded as an empty broker id, not rejected
// here: cross-tenant routes stay reachable from any host, and tenant-scoped
// route groups enforce presence through requireTenant.
func (s *Server) resolveTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		candidate := c.GetHeader(headerBrokerSlug)
		if candidate == "" {
			candidate = hostCandidate(c.Request.Host)
		}
		if candidate == "" {
			candidate = s.defaultBrokerSlug
		}

		broker, ok := s.brokerCache.Get(candidate)
		if !ok {
			var err error
			broker, err = s.brokers.FindActiveByHostCandidate(c.Request.Context(), candidate)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					c.Set(ctxBrokerID, "")
					c.Next()
					return
				}
				s.logger.Error("tenant lookup failed", zap.String("candidate", candidate), zap.Error(err))
				writeError(c, http.StatusInternalServerError, "internal error")
				return
			}
			s.brokerCache.Put(candidate, *broker)
		}

		c.Set(ctxBrokerID, broker.ID)
		c.Set(ctxBrokerSlug, broker.Slug)
		c.Header(headerBrokerSlug, broker.Slug)
		c.Next()
	}
}

// requireTenant rejects requests that reached a tenant-scoped route group
// without a resolved broker.
func (s *Server) requireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		if brokerIDFrom(c) == "" {
			writeDomainError(c, domain.ErrTenantNotFound)
			return
		}
		c.Next()
	}
}

// requireAuth runs the authorization gate over the bearer token. A missing
// or malformed Authorization header fails exactly like an invalid token.
func (s *Server) requireAuth(allowed ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := s.gate.Authorize(c.Request.Context(), bearerToken(c), allowed...)
		if err != nil {
			writeDomainError(c, err)
			return
		}
		c.Set(ctxPrincipal, principal)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return ""
	}
	return strings.TrimSpace(token)
}

func principalFrom(c *gin.Context) domain.Principal {
	value, _ := c.Get(ctxPrincipal)
	principal, _ := value.(domain.Principal)
	return principal
}

func brokerIDFrom(c *gin.Context) string {
	return c.GetString(ctxBrokerID)
}
