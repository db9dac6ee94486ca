package secrets

import (
	"context"
	"errors"

	"backoffice/internal/config"
)

// Resolve returns the token signing secret from the configured source.
func Resolve(ctx context.Context, cfg *config.Config) (string, error) {
	switch cfg.Secrets.Source {
	case "", "env":
		if cfg.TokenSecret == "" {
			return "", errors.New("TOKEN_SECRET is required with the env secrets source")
		}
		return cfg.TokenSecret, nil
	case "vault":
		source := NewVaultSource(cfg.Secrets.VaultAddr, cfg.Secrets.VaultToken, cfg.Secrets.VaultPath, cfg.Secrets.VaultField)
		return source.Fetch(ctx)
	case "awssm":
		source := NewAWSSource(
			cfg.Secrets.AWSEndpoint,
			cfg.Secrets.AWSRegion,
			cfg.Secrets.AWSAccessKeyID,
			cfg.Secrets.AWSSecretAccessKey,
			cfg.Secrets.AWSSessionToken,
			cfg.Secrets.AWSSecretID,
		)
		return source.Fetch(ctx)
	default:
		return "", errors.New("unknown secrets source " + cfg.Secrets.Source)
	}
}
