// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/wavelens/gradient/internal/adapter/remote"
	"github.com/wavelens/gradient/internal/model"
	"github.com/wavelens/gradient/internal/pkg/crypto"
	applog "github.com/wavelens/gradient/internal/pkg/logger"
	"github.com/wavelens/gradient/internal/repository"
)

const checkTimeout = 30 * time.Second

// Scheduler runs the periodic server health check.
type Scheduler struct {
	cron     *cron.Cron
	servers  repository.ServerRepository
	orgs     repository.OrganizationRepository
	executor remote.Executor
	aesKey   string
}

func New(
	servers repository.ServerRepository,
	orgs repository.OrganizationRepository,
	executor remote.Executor,
	aesKey string,
) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		servers:  servers,
		orgs:     orgs,
		executor: executor,
		aesKey:   aesKey,
	}
}

// Start registers the health check at the given cron spec and starts the
// scheduler.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.checkServers); err != nil {
		return err
	}
	s.cron.Start()
	applog.Info("scheduler started", zap.String("health_cron", spec))
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	applog.Info("scheduler stopped")
}

// checkServers probes every active server and records the time of the
// last successful contact.
func (s *Scheduler) checkServers() {
	servers, err := s.servers.ListActive()
	if err != nil {
		applog.Error("list servers for health check", zap.Error(err))
		return
	}

	// Organizations repeat across servers; decrypt each key once.
	keys := make(map[string]string)

	for _, server := range servers {
		key, ok := keys[server.OrganizationID]
		if !ok {
			key = s.organizationKey(server)
			keys[server.OrganizationID] = key
		}
		if key == "" {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		err := s.executor.Check(ctx, server, key)
		cancel()

		if err != nil {
			applog.Warn("server health check failed",
				zap.String("server", server.Name),
				zap.String("host", server.Host),
				zap.Error(err))
			continue
		}
		if err := s.servers.TouchHealthCheck(server.ID); err != nil {
			applog.Error("record health check", zap.String("server", server.Name), zap.Error(err))
		}
	}
}

// organizationKey returns the decrypted key for the server's
// organization, or "" when none is usable.
func (s *Scheduler) organizationKey(server *model.Server) string {
	org, err := s.orgs.FindByID(server.OrganizationID)
	if err != nil {
		applog.Error("load organization for health check",
			zap.String("server", server.Name), zap.Error(err))
		return ""
	}
	if !org.HasSSHKey() {
		return ""
	}
	key, err := crypto.Decrypt(s.aesKey, org.PrivateKey)
	if err != nil {
		applog.Error("decrypt organization key",
			zap.String("organization", org.Name), zap.Error(err))
		return ""
	}
	return key
}
