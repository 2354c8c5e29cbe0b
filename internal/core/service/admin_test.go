package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yndnr/pagegate-go/internal/core/domain"
)

func TestAdminAuthService_Login(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()
	svc := NewAdminAuthService(NewAdminSecret("s3cret"), f.admins)

	resp, err := svc.Login(ctx, &AdminLoginRequest{Password: "s3cret", ClientIP: "203.0.113.9"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if resp.Session.IP != "203.0.113.9" {
		t.Errorf("IP = %q", resp.Session.IP)
	}
	if _, err := f.sessions.Get(ctx, "admin:"+resp.SessionID); err != nil {
		t.Errorf("admin session not stored: %v", err)
	}

	anon, err := svc.Login(ctx, &AdminLoginRequest{Password: "s3cret"})
	if err != nil {
		t.Fatal(err)
	}
	if anon.Session.IP != "unknown" {
		t.Errorf("IP = %q, want unknown", anon.Session.IP)
	}

	if err := svc.Logout(ctx, resp.SessionID); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := f.admins.Lookup(ctx, resp.SessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("session survived logout: %v", err)
	}
	if err := svc.Logout(ctx, ""); err != nil {
		t.Errorf("Logout(\"\") error = %v", err)
	}
}

func TestAdminAuthService_LoginRejects(t *testing.T) {
	f := newFixture(t, fixtureOptions{})

	tests := []struct {
		name     string
		secret   string
		password string
		want     *domain.DomainError
	}{
		{"missing password", "s3cret", "", domain.ErrPasswordRequired},
		{"password checked before config", "", "", domain.ErrPasswordRequired},
		{"not configured", "", "anything", domain.ErrAdminNotConfigured},
		{"wrong secret", "s3cret", "S3CRET", domain.ErrInvalidSecret},
		{"prefix of secret", "s3cret", "s3cre", domain.ErrInvalidSecret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewAdminAuthService(NewAdminSecret(tt.secret), f.admins)
			_, err := svc.Login(context.Background(), &AdminLoginRequest{Password: tt.password})
			if !errors.Is(err, tt.want) {
				t.Errorf("Login() error = %v, want %v", err, tt.want)
			}
		})
	}
	if f.sessions.Len() != 0 {
		t.Errorf("failed logins stored %d sessions", f.sessions.Len())
	}
}

func TestAdminSecret_Hashed(t *testing.T) {
	encoded, err := HashSecret("correct horse")
	if err != nil {
		t.Fatalf("HashSecret() error = %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=16384,t=2,p=2$") {
		t.Errorf("HashSecret() = %q", encoded)
	}

	secret := NewAdminSecret(encoded)
	if !secret.Configured() || !secret.Hashed() {
		t.Fatal("hashed secret not recognized")
	}
	if !secret.Verify("correct horse") {
		t.Error("Verify() rejected the right password")
	}
	if secret.Verify("correct horse ") || secret.Verify("") {
		t.Error("Verify() accepted a wrong password")
	}

	again, err := HashSecret("correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if again == encoded {
		t.Error("HashSecret() reused a salt")
	}
}

func TestAdminSecret_MalformedHash(t *testing.T) {
	tests := []string{
		"$argon2id$v=19$m=16384,t=2,p=2$onlysalt",
		"$argon2id$v=18$m=16384,t=2,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=0,t=2,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=16384,t=2,p=2$!!!$aGFzaA",
		"$argon2id$v=19$bogus$c2FsdA$aGFzaA",
	}
	for _, encoded := range tests {
		t.Run(encoded, func(t *testing.T) {
			if NewAdminSecret(encoded).Verify("anything") {
				t.Error("Verify() accepted against a malformed hash")
			}
		})
	}

	var nilSecret *AdminSecret
	if nilSecret.Configured() || nilSecret.Verify("x") {
		t.Error("nil secret should be unconfigured")
	}
}
