package service

import (
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/wavelens/gradient/internal/dto"
	"github.com/wavelens/gradient/internal/model"
	"github.com/wavelens/gradient/internal/pkg/crypto"
	applog "github.com/wavelens/gradient/internal/pkg/logger"
	"github.com/wavelens/gradient/internal/repository"
	"github.com/wavelens/gradient/pkg/responses"
	"github.com/wavelens/gradient/pkg/utils"
)

// UserService manages a user's API keys.
type UserService struct {
	apiKeys repository.APIKeyRepository
}

func NewUserService(apiKeys repository.APIKeyRepository) *UserService {
	return &UserService{apiKeys: apiKeys}
}

// CreateAPIKey issues a named key. The plaintext is returned once and
// never stored.
func (s *UserService) CreateAPIKey(userID string, req *dto.CreateAPIKeyRequest) (*dto.CreateAPIKeyResponse, error) {
	if err := utils.CheckSlug(req.Name); err != nil {
		return nil, err
	}

	existing, err := s.apiKeys.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	if lo.SomeBy(existing, func(k *model.APIKey) bool { return k.Name == req.Name }) {
		return nil, responses.NewConflict("api key name already in use")
	}

	plaintext, hash, err := crypto.GenerateAPIKey()
	if err != nil {
		return nil, responses.NewCrypto("generate api key", err)
	}

	key := &model.APIKey{
		ID:     uuid.NewString(),
		UserID: userID,
		Name:   req.Name,
		Hash:   hash,
	}
	if err := s.apiKeys.Create(key); err != nil {
		return nil, err
	}

	applog.Info("api key created",
		zap.String("user_id", userID), zap.String("name", req.Name))

	return &dto.CreateAPIKeyResponse{
		Name:      key.Name,
		Key:       plaintext,
		CreatedAt: key.CreatedAt,
	}, nil
}

// ListAPIKeys lists the user's keys without secrets.
func (s *UserService) ListAPIKeys(userID string) ([]dto.APIKeyInfo, error) {
	keys, err := s.apiKeys.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	return lo.Map(keys, func(k *model.APIKey, _ int) dto.APIKeyInfo {
		return dto.NewAPIKeyInfo(k)
	}), nil
}

// DeleteAPIKey revokes a key by name.
func (s *UserService) DeleteAPIKey(userID, name string) error {
	if err := s.apiKeys.DeleteByName(userID, name); err != nil {
		return err
	}
	applog.Info("api key deleted",
		zap.String("user_id", userID), zap.String("name", name))
	return nil
}
