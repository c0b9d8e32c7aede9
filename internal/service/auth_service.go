// Package service implements the application logic between the REST
// handlers and the repositories.
package service

import (
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wavelens/gradient/internal/dto"
	"github.com/wavelens/gradient/internal/model"
	"github.com/wavelens/gradient/internal/pkg/config"
	"github.com/wavelens/gradient/internal/pkg/crypto"
	"github.com/wavelens/gradient/internal/pkg/jwt"
	applog "github.com/wavelens/gradient/internal/pkg/logger"
	"github.com/wavelens/gradient/internal/repository"
	"github.com/wavelens/gradient/pkg/constants"
	"github.com/wavelens/gradient/pkg/responses"
	"github.com/wavelens/gradient/pkg/utils"
)

// AuthService handles registration, login and token verification.
type AuthService struct {
	users   repository.UserRepository
	apiKeys repository.APIKeyRepository
}

func NewAuthService(users repository.UserRepository, apiKeys repository.APIKeyRepository) *AuthService {
	return &AuthService{users: users, apiKeys: apiKeys}
}

// Register creates a user account.
func (s *AuthService) Register(req *dto.RegisterRequest) (*model.User, error) {
	if config.GlobalConfig.Auth.DisableRegistration {
		return nil, responses.New(responses.CodeForbidden, "registration is disabled")
	}
	if err := utils.CheckSlug(req.Username); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByUsername(req.Username); err == nil {
		return nil, responses.NewConflict("username already taken")
	} else if !responses.IsNotFound(err) {
		return nil, err
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		return nil, responses.NewCrypto("hash password", err)
	}

	user := &model.User{
		ID:       uuid.NewString(),
		Username: req.Username,
		Name:     req.Name,
		Email:    req.Email,
		Password: hash,
	}
	if err := s.users.Create(user); err != nil {
		return nil, err
	}

	applog.Info("user registered", zap.String("username", user.Username))
	return user, nil
}

// Login verifies credentials and issues a session token.
func (s *AuthService) Login(req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.users.FindByUsername(req.Username)
	if err != nil {
		if responses.IsNotFound(err) {
			return nil, responses.ErrInvalidCredentials
		}
		return nil, err
	}

	if !crypto.CheckPassword(req.Password, user.Password) {
		return nil, responses.ErrInvalidCredentials
	}

	token, err := jwt.GenerateSessionToken(user.ID, user.Username)
	if err != nil {
		return nil, responses.NewCrypto("sign token", err)
	}

	applog.Info("user logged in", zap.String("username", user.Username))
	return &dto.LoginResponse{Token: token, User: user}, nil
}

// VerifyToken resolves a bearer credential, session token or API key, to
// its user.
func (s *AuthService) VerifyToken(token string) (*model.User, string, error) {
	if strings.HasPrefix(token, constants.APIKeyPrefix) {
		key, err := s.apiKeys.FindByHash(crypto.HashAPIKey(token))
		if err != nil {
			if responses.IsNotFound(err) {
				return nil, "", responses.ErrInvalidToken
			}
			return nil, "", err
		}
		user, err := s.users.FindByID(key.UserID)
		if err != nil {
			return nil, "", responses.ErrInvalidToken
		}
		if err := s.apiKeys.TouchLastUsed(key.ID); err != nil {
			applog.Warn("touch api key", zap.Error(err))
		}
		return user, constants.TokenTypeAPIKey, nil
	}

	claims, err := jwt.ValidateToken(token)
	if err != nil {
		return nil, "", err
	}
	user, err := s.users.FindByID(claims.UserID)
	if err != nil {
		return nil, "", responses.ErrInvalidToken
	}
	return user, constants.TokenTypeSession, nil
}
