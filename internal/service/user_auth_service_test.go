package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/labcheck-cloud/internal/config"
	"github.com/labcheck-cloud/internal/models"
	"github.com/labcheck-cloud/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupUserAuthServiceTest(t *testing.T) (*UserAuthService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:user_auth_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	cfg := &config.Config{
		UserJWT: config.JWTConfig{
			SecretKey:   "user-auth-test-secret",
			ExpireHours: 24,
		},
	}
	return NewUserAuthService(cfg, repository.NewUserRepository(db)), db
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := setupUserAuthServiceTest(t)

	user, err := svc.Register("13900001111", "secret123", "小王")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.ID == 0 {
		t.Fatalf("expected user id assigned")
	}
	if user.PasswordHash == "secret123" {
		t.Fatalf("password stored in plaintext")
	}

	logged, token, expiresAt, err := svc.Login("13900001111", "secret123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if logged.ID != user.ID {
		t.Fatalf("expected user %d, got %d", user.ID, logged.ID)
	}
	if token == "" {
		t.Fatalf("expected token")
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("expected future expiry, got %v", expiresAt)
	}
	if logged.LastLoginAt == nil {
		t.Fatalf("expected last login time recorded")
	}

	claims, err := svc.ParseJWT(token)
	if err != nil {
		t.Fatalf("parse jwt failed: %v", err)
	}
	if claims.UserID != user.ID || claims.Phone != "13900001111" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestRegisterDuplicatePhone(t *testing.T) {
	svc, _ := setupUserAuthServiceTest(t)

	if _, err := svc.Register("13900002222", "secret123", ""); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, err := svc.Register("13900002222", "another456", ""); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := setupUserAuthServiceTest(t)

	if _, err := svc.Register("13900003333", "secret123", ""); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, _, _, err := svc.Login("13900003333", "wrongpass"); !errors.Is(err, ErrPasswordInvalid) {
		t.Fatalf("expected ErrPasswordInvalid, got %v", err)
	}
	if _, _, _, err := svc.Login("13900009999", "secret123"); !errors.Is(err, ErrPasswordInvalid) {
		t.Fatalf("expected ErrPasswordInvalid for unknown phone, got %v", err)
	}
}

func TestParseJWTRejectsTampered(t *testing.T) {
	svc, _ := setupUserAuthServiceTest(t)

	user, err := svc.Register("13900004444", "secret123", "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	token, _, err := svc.GenerateJWT(user)
	if err != nil {
		t.Fatalf("generate jwt failed: %v", err)
	}
	if _, err := svc.ParseJWT(token + "x"); err == nil {
		t.Fatalf("expected tampered token to be rejected")
	}

	other := NewUserAuthService(&config.Config{
		UserJWT: config.JWTConfig{
			SecretKey:   "different-secret",
			ExpireHours: 24,
		},
	}, nil)
	if _, err := other.ParseJWT(token); err == nil {
		t.Fatalf("expected token signed with other key to be rejected")
	}
}
