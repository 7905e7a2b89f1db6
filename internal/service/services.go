package service

import (
	"github.com/mealmate/server/internal/config"
	"github.com/mealmate/server/internal/repository"
)

type Services struct {
	Auth     *AuthService
	Sessions *SessionIssuer
}

func NewServices(repos *repository.Repositories, provider ProviderClient, cfg *config.Config) (*Services, error) {
	issuer, err := NewSessionIssuer(cfg.JWTSecret, cfg.JWTExpiration)
	if err != nil {
		return nil, err
	}

	return &Services{
		Auth:     NewAuthService(provider, NewUserDirectory(), issuer, repos, cfg.DBTimeout),
		Sessions: issuer,
	}, nil
}
