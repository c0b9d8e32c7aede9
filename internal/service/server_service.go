package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wavelens/gradient/internal/adapter/remote"
	"github.com/wavelens/gradient/internal/dto"
	"github.com/wavelens/gradient/internal/model"
	"github.com/wavelens/gradient/internal/pkg/config"
	"github.com/wavelens/gradient/internal/pkg/crypto"
	applog "github.com/wavelens/gradient/internal/pkg/logger"
	"github.com/wavelens/gradient/internal/repository"
	"github.com/wavelens/gradient/pkg/responses"
	"github.com/wavelens/gradient/pkg/utils"
)

// ServerService manages build servers.
type ServerService struct {
	servers  repository.ServerRepository
	orgs     repository.OrganizationRepository
	builds   repository.BuildRepository
	executor remote.Executor
}

func NewServerService(
	servers repository.ServerRepository,
	orgs repository.OrganizationRepository,
	builds repository.BuildRepository,
	executor remote.Executor,
) *ServerService {
	return &ServerService{
		servers:  servers,
		orgs:     orgs,
		builds:   builds,
		executor: executor,
	}
}

func validateServerRequest(req *dto.CreateServerRequest) error {
	if err := utils.CheckSlug(req.Name); err != nil {
		return err
	}
	if err := utils.CheckHost(req.Host); err != nil {
		return err
	}
	if err := utils.CheckPort(req.Port); err != nil {
		return err
	}
	if err := utils.CheckArchitectures(req.Architectures); err != nil {
		return err
	}
	return utils.CheckFeatures(req.Features)
}

// Register adds a build server to the organization.
func (s *ServerService) Register(userID, orgName string, req *dto.CreateServerRequest) (*model.Server, error) {
	org, err := s.orgs.FindByName(orgName)
	if err != nil {
		return nil, err
	}
	if err := validateServerRequest(req); err != nil {
		return nil, err
	}

	if _, err := s.servers.FindByName(org.ID, req.Name); err == nil {
		return nil, responses.NewConflict("server name already taken")
	} else if !responses.IsNotFound(err) {
		return nil, err
	}

	server := &model.Server{
		ID:             uuid.NewString(),
		OrganizationID: org.ID,
		Name:           req.Name,
		DisplayName:    req.DisplayName,
		Host:           req.Host,
		Port:           req.Port,
		SSHUsername:    req.SSHUsername,
		Architectures:  req.Architectures,
		Features:       req.Features,
		Active:         true,
		CreatedBy:      userID,
	}
	if err := s.servers.Create(server); err != nil {
		return nil, err
	}

	applog.Info("server registered",
		zap.String("organization", orgName),
		zap.String("name", server.Name),
		zap.String("host", fmt.Sprintf("%s:%d", server.Host, server.Port)))
	return server, nil
}

// Get resolves a server by organization and name.
func (s *ServerService) Get(orgName, name string) (*model.Server, error) {
	org, err := s.orgs.FindByName(orgName)
	if err != nil {
		return nil, err
	}
	return s.servers.FindByName(org.ID, name)
}

// List returns the organization's servers.
func (s *ServerService) List(orgName string) ([]*model.Server, error) {
	org, err := s.orgs.FindByName(orgName)
	if err != nil {
		return nil, err
	}
	return s.servers.ListByOrganization(org.ID)
}

// Update patches mutable fields, re-validating whatever changes.
func (s *ServerService) Update(orgName, name string, req *dto.UpdateServerRequest) (*model.Server, error) {
	server, err := s.Get(orgName, name)
	if err != nil {
		return nil, err
	}

	if req.Host != nil {
		if err := utils.CheckHost(*req.Host); err != nil {
			return nil, err
		}
		server.Host = *req.Host
	}
	if req.Port != nil {
		if err := utils.CheckPort(*req.Port); err != nil {
			return nil, err
		}
		server.Port = *req.Port
	}
	if req.Architectures != nil {
		if err := utils.CheckArchitectures(*req.Architectures); err != nil {
			return nil, err
		}
		server.Architectures = *req.Architectures
	}
	if req.Features != nil {
		if err := utils.CheckFeatures(*req.Features); err != nil {
			return nil, err
		}
		server.Features = *req.Features
	}
	if req.DisplayName != nil {
		server.DisplayName = *req.DisplayName
	}
	if req.SSHUsername != nil {
		server.SSHUsername = *req.SSHUsername
	}
	if req.Active != nil {
		server.Active = *req.Active
	}

	if err := s.servers.Update(server); err != nil {
		return nil, err
	}
	return server, nil
}

// Delete removes a server. Refused while the server still has assigned
// or running builds.
func (s *ServerService) Delete(orgName, name string) error {
	server, err := s.Get(orgName, name)
	if err != nil {
		return err
	}

	active, err := s.builds.CountActiveByServer(server.ID)
	if err != nil {
		return err
	}
	if active > 0 {
		return responses.NewConflict("server has builds in flight")
	}

	if err := s.servers.Delete(server.ID); err != nil {
		return err
	}
	applog.Info("server deleted",
		zap.String("organization", orgName), zap.String("name", name))
	return nil
}

// CheckConnection probes the server over SSH with the organization's key
// and records the result.
func (s *ServerService) CheckConnection(ctx context.Context, orgName, name string) error {
	org, err := s.orgs.FindByName(orgName)
	if err != nil {
		return err
	}
	server, err := s.servers.FindByName(org.ID, name)
	if err != nil {
		return err
	}

	if !org.HasSSHKey() {
		return responses.NewValidation("organization has no ssh key")
	}
	privateKey, err := crypto.Decrypt(config.GlobalConfig.Crypto.AESKey, org.PrivateKey)
	if err != nil {
		return responses.NewCrypto("decrypt organization key", err)
	}

	if err := s.executor.Check(ctx, server, privateKey); err != nil {
		return err
	}
	return s.servers.TouchHealthCheck(server.ID)
}
