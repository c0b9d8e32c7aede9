package service

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wavelens/gradient/internal/dto"
	"github.com/wavelens/gradient/internal/model"
	"github.com/wavelens/gradient/internal/pkg/config"
	"github.com/wavelens/gradient/internal/pkg/crypto"
	applog "github.com/wavelens/gradient/internal/pkg/logger"
	"github.com/wavelens/gradient/internal/repository"
	"github.com/wavelens/gradient/pkg/responses"
	"github.com/wavelens/gradient/pkg/utils"
)

// OrganizationService manages organizations and their SSH keypairs.
type OrganizationService struct {
	orgs repository.OrganizationRepository
}

func NewOrganizationService(orgs repository.OrganizationRepository) *OrganizationService {
	return &OrganizationService{orgs: orgs}
}

// Create creates an organization owned by the user.
func (s *OrganizationService) Create(userID string, req *dto.CreateOrganizationRequest) (*model.Organization, error) {
	if err := utils.CheckSlug(req.Name); err != nil {
		return nil, err
	}

	if _, err := s.orgs.FindByName(req.Name); err == nil {
		return nil, responses.NewConflict("organization name already taken")
	} else if !responses.IsNotFound(err) {
		return nil, err
	}

	org := &model.Organization{
		ID:          uuid.NewString(),
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		CreatedBy:   userID,
	}
	if err := s.orgs.Create(org); err != nil {
		return nil, err
	}

	applog.Info("organization created", zap.String("name", org.Name))
	return org, nil
}

// Get resolves an organization by name.
func (s *OrganizationService) Get(name string) (*model.Organization, error) {
	return s.orgs.FindByName(name)
}

// List returns the organizations the user created.
func (s *OrganizationService) List(userID string) ([]*model.Organization, error) {
	return s.orgs.ListByUser(userID)
}

// Update patches mutable fields.
func (s *OrganizationService) Update(name string, req *dto.UpdateOrganizationRequest) (*model.Organization, error) {
	org, err := s.orgs.FindByName(name)
	if err != nil {
		return nil, err
	}
	if req.DisplayName != nil {
		org.DisplayName = *req.DisplayName
	}
	if req.Description != nil {
		org.Description = *req.Description
	}
	if err := s.orgs.Update(org); err != nil {
		return nil, err
	}
	return org, nil
}

// Delete removes the organization and everything it owns.
func (s *OrganizationService) Delete(name string) error {
	org, err := s.orgs.FindByName(name)
	if err != nil {
		return err
	}
	if err := s.orgs.Delete(org.ID); err != nil {
		return err
	}
	applog.Info("organization deleted", zap.String("name", name))
	return nil
}

// GetOrCreateSSHKey returns the organization's public key, generating a
// keypair on first call. Repeated calls return the same key.
func (s *OrganizationService) GetOrCreateSSHKey(name string) (*dto.SSHKeyResponse, error) {
	org, err := s.orgs.FindByName(name)
	if err != nil {
		return nil, err
	}
	if org.HasSSHKey() {
		return &dto.SSHKeyResponse{PublicKey: org.PublicKey}, nil
	}
	return s.rotateKey(org)
}

// RotateSSHKey replaces the keypair unconditionally. Both halves change
// in one update so no mixed state can persist.
func (s *OrganizationService) RotateSSHKey(name string) (*dto.SSHKeyResponse, error) {
	org, err := s.orgs.FindByName(name)
	if err != nil {
		return nil, err
	}
	return s.rotateKey(org)
}

func (s *OrganizationService) rotateKey(org *model.Organization) (*dto.SSHKeyResponse, error) {
	publicKey, privateKey, err := crypto.GenerateSSHKeyPair("gradient-" + org.Name)
	if err != nil {
		return nil, responses.NewCrypto("generate keypair", err)
	}

	encrypted, err := crypto.Encrypt(config.GlobalConfig.Crypto.AESKey, privateKey)
	if err != nil {
		return nil, responses.NewCrypto("encrypt private key", err)
	}

	if err := s.orgs.UpdateKeyPair(org.ID, publicKey, encrypted); err != nil {
		return nil, err
	}

	applog.Info("organization keypair rotated", zap.String("name", org.Name))
	return &dto.SSHKeyResponse{PublicKey: publicKey}, nil
}

// RemoveSSHKey deletes the keypair. Servers stop being reachable until a
// new key is generated and installed.
func (s *OrganizationService) RemoveSSHKey(name string) error {
	org, err := s.orgs.FindByName(name)
	if err != nil {
		return err
	}
	if !org.HasSSHKey() {
		return responses.ErrRecordNotFound
	}
	if err := s.orgs.UpdateKeyPair(org.ID, "", ""); err != nil {
		return err
	}
	applog.Info("organization keypair removed", zap.String("name", name))
	return nil
}
