package service

import (
	"context"

	"github.com/yndnr/pagegate-go/internal/core/domain"
)

// AdminAuthService handles operator login and logout.
type AdminAuthService struct {
	secret   *AdminSecret
	sessions *Realm[*domain.AdminSession]
}

// NewAdminAuthService creates a new AdminAuthService.
func NewAdminAuthService(secret *AdminSecret, sessions *Realm[*domain.AdminSession]) *AdminAuthService {
	return &AdminAuthService{
		secret:   secret,
		sessions: sessions,
	}
}

// AdminLoginRequest contains admin login parameters.
type AdminLoginRequest struct {
	Password string
	ClientIP string
}

// AdminLoginResponse is the result of a successful admin login.
type AdminLoginResponse struct {
	SessionID string
	Session   *domain.AdminSession
}

// Login checks the password and opens an admin session that lives for the
// realm TTL unless refreshed.
func (s *AdminAuthService) Login(ctx context.Context, req *AdminLoginRequest) (*AdminLoginResponse, error) {
	if req.Password == "" {
		return nil, domain.ErrPasswordRequired
	}
	if !s.secret.Configured() {
		return nil, domain.ErrAdminNotConfigured
	}
	if !s.secret.Verify(req.Password) {
		return nil, domain.ErrInvalidSecret
	}

	sess := domain.NewAdminSession(req.ClientIP, s.sessions.Now())
	sid, err := s.sessions.Create(ctx, sess)
	if err != nil {
		return nil, err
	}
	return &AdminLoginResponse{SessionID: sid, Session: sess}, nil
}

// Logout ends the admin session sid. Unknown or empty ids are ignored.
func (s *AdminAuthService) Logout(ctx context.Context, sid string) error {
	return s.sessions.Delete(ctx, sid)
}
