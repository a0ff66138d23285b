package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/minebank/bank-service/internal/models"
	"github.com/minebank/bank-service/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// Login authenticates a user and returns a signed token plus the user's
// role. Wrong credentials yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, login, password string) (string, string, error) {
	var user *models.User
	err := s.store.View(ctx, func(tx repository.Tx) error {
		var err error
		user, err = tx.UserByLogin(login)
		return err
	})
	if errors.Is(err, repository.ErrNotFound) {
		return "", "", ErrInvalidCredentials
	}
	if err != nil {
		return "", "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", "", ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.Login,
		"role": user.Role,
		"exp":  jwt.NewNumericDate(s.now().Add(24 * time.Hour)),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("User logged in: %s", user.Login)
	return tokenString, user.Role, nil
}

// EnsureAdmin creates the bootstrap admin user from configuration if it
// does not exist yet.
func (s *Service) EnsureAdmin(ctx context.Context) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(s.config.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	err = s.store.Update(ctx, func(tx repository.Tx) error {
		if _, err := tx.UserByLogin(s.config.AdminLogin); err == nil {
			return nil
		}
		return tx.CreateUser(&models.User{
			Login:        s.config.AdminLogin,
			PasswordHash: string(hash),
			Role:         models.RoleAdmin,
		})
	})
	if err != nil {
		return err
	}
	return nil
}
