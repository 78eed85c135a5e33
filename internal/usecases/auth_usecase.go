package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"buyerwatch/internal/interfaces"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	settingAdminUser = "admin_username"
	settingAdminHash = "admin_password_hash"

	RoleAdmin = "admin"
	tokenTTL  = 24 * time.Hour
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthUsecase guards the admin endpoints with a single stored admin account
type AuthUsecase struct {
	settings  interfaces.SettingsStore
	jwtSecret []byte
	now       func() time.Time
}

func NewAuthUsecase(settings interfaces.SettingsStore, secret string) *AuthUsecase {
	return &AuthUsecase{
		settings:  settings,
		jwtSecret: []byte(secret),
		now:       time.Now,
	}
}

func (uc *AuthUsecase) Login(ctx context.Context, username, password string) (string, error) {
	storedUser, err := uc.settings.GetSetting(ctx, settingAdminUser)
	if err != nil {
		return "", err
	}
	hash, err := uc.settings.GetSetting(ctx, settingAdminHash)
	if err != nil {
		return "", err
	}
	if storedUser == "" || hash == "" || storedUser != username {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  username,
		"role": RoleAdmin,
		"exp":  uc.now().Add(tokenTTL).Unix(),
	})

	tokenString, err := token.SignedString(uc.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// EnsureAdmin creates the admin account if none exists (called on startup)
func (uc *AuthUsecase) EnsureAdmin(ctx context.Context, username, password string) error {
	existing, err := uc.settings.GetSetting(ctx, settingAdminHash)
	if err != nil {
		return err
	}
	if existing != "" {
		return nil
	}
	if username == "" || password == "" {
		return errors.New("admin username and password are required")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := uc.settings.SetSetting(ctx, settingAdminUser, username); err != nil {
		return err
	}
	return uc.settings.SetSetting(ctx, settingAdminHash, string(hashed))
}

// ParseToken validates a signed token and returns its claims
func (uc *AuthUsecase) ParseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return uc.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
