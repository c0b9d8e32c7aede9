package service

import (
	"io"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/wavelens/gradient/internal/cachestore"
	"github.com/wavelens/gradient/internal/dto"
	"github.com/wavelens/gradient/internal/model"
	applog "github.com/wavelens/gradient/internal/pkg/logger"
	"github.com/wavelens/gradient/internal/repository"
	"github.com/wavelens/gradient/pkg/responses"
	"github.com/wavelens/gradient/pkg/utils"
)

// CacheService manages shared binary caches, organization subscriptions
// and the content-addressed blob store behind them.
type CacheService struct {
	caches repository.CacheRepository
	orgs   repository.OrganizationRepository
	store  *cachestore.Store
}

func NewCacheService(caches repository.CacheRepository, orgs repository.OrganizationRepository, store *cachestore.Store) *CacheService {
	return &CacheService{caches: caches, orgs: orgs, store: store}
}

// Create creates a cache. Caches are global; no organization owns them.
func (s *CacheService) Create(req *dto.CreateCacheRequest) (*model.Cache, error) {
	if err := utils.CheckSlug(req.Name); err != nil {
		return nil, err
	}

	if _, err := s.caches.FindByName(req.Name); err == nil {
		return nil, responses.NewConflict("cache name already taken")
	} else if !responses.IsNotFound(err) {
		return nil, err
	}

	cache := &model.Cache{
		ID:          uuid.NewString(),
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Priority:    req.Priority,
		Active:      true,
	}
	if err := s.caches.Create(cache); err != nil {
		return nil, err
	}

	applog.Info("cache created", zap.String("name", cache.Name))
	return cache, nil
}

// Get resolves a cache by name.
func (s *CacheService) Get(name string) (*model.Cache, error) {
	return s.caches.FindByName(name)
}

// List returns all caches, highest priority first.
func (s *CacheService) List() ([]*model.Cache, error) {
	return s.caches.List()
}

// Update patches mutable fields.
func (s *CacheService) Update(name string, req *dto.UpdateCacheRequest) (*model.Cache, error) {
	cache, err := s.caches.FindByName(name)
	if err != nil {
		return nil, err
	}
	if req.DisplayName != nil {
		cache.DisplayName = *req.DisplayName
	}
	if req.Description != nil {
		cache.Description = *req.Description
	}
	if req.Priority != nil {
		cache.Priority = *req.Priority
	}
	if req.Active != nil {
		cache.Active = *req.Active
	}
	if err := s.caches.Update(cache); err != nil {
		return nil, err
	}
	return cache, nil
}

// Delete removes the cache and all subscriptions to it.
func (s *CacheService) Delete(name string) error {
	cache, err := s.caches.FindByName(name)
	if err != nil {
		return err
	}
	if err := s.caches.Delete(cache.ID); err != nil {
		return err
	}
	applog.Info("cache deleted", zap.String("name", name))
	return nil
}

// Subscribe attaches the organization to a cache.
func (s *CacheService) Subscribe(orgName, cacheName string) error {
	org, err := s.orgs.FindByName(orgName)
	if err != nil {
		return err
	}
	cache, err := s.caches.FindByName(cacheName)
	if err != nil {
		return err
	}

	subscribed, err := s.caches.ListSubscribed(org.ID)
	if err != nil {
		return err
	}
	if lo.SomeBy(subscribed, func(c *model.Cache) bool { return c.ID == cache.ID }) {
		return responses.NewConflict("organization already subscribed")
	}

	sub := &model.OrganizationCache{
		ID:             uuid.NewString(),
		OrganizationID: org.ID,
		CacheID:        cache.ID,
	}
	if err := s.caches.Subscribe(sub); err != nil {
		return err
	}

	applog.Info("cache subscribed",
		zap.String("organization", orgName), zap.String("cache", cacheName))
	return nil
}

// Unsubscribe detaches the organization from a cache.
func (s *CacheService) Unsubscribe(orgName, cacheName string) error {
	org, err := s.orgs.FindByName(orgName)
	if err != nil {
		return err
	}
	cache, err := s.caches.FindByName(cacheName)
	if err != nil {
		return err
	}
	return s.caches.Unsubscribe(org.ID, cache.ID)
}

// UploadBlob stores a blob and records it as a member of the cache.
// Uploading the same content twice returns the same hash.
func (s *CacheService) UploadBlob(cacheName string, data io.Reader) (string, error) {
	cache, err := s.caches.FindByName(cacheName)
	if err != nil {
		return "", err
	}
	if !cache.Active {
		return "", responses.NewConflict("cache is inactive")
	}

	hash, err := s.store.Put(data)
	if err != nil {
		return "", err
	}
	err = s.caches.AddBlob(&model.CacheBlob{
		ID:      uuid.NewString(),
		CacheID: cache.ID,
		Hash:    hash,
	})
	if err != nil {
		return "", err
	}
	return hash, nil
}

// GetBlob opens a blob from the cache. The blob must be a member of that
// cache; the caller closes the reader.
func (s *CacheService) GetBlob(cacheName, hash string) (io.ReadCloser, error) {
	cache, err := s.caches.FindByName(cacheName)
	if err != nil {
		return nil, err
	}
	member, err := s.caches.HasBlob(cache.ID, hash)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, responses.ErrRecordNotFound
	}
	return s.store.Get(hash)
}

// Lookup resolves a blob through the organization's subscribed caches in
// priority order and returns the first hit. A miss across every cache is
// a normal outcome, reported as not found.
func (s *CacheService) Lookup(orgName, hash string) (io.ReadCloser, *model.Cache, error) {
	org, err := s.orgs.FindByName(orgName)
	if err != nil {
		return nil, nil, err
	}
	subscribed, err := s.caches.ListSubscribed(org.ID)
	if err != nil {
		return nil, nil, err
	}

	for _, cache := range subscribed {
		member, err := s.caches.HasBlob(cache.ID, hash)
		if err != nil {
			return nil, nil, err
		}
		if !member {
			continue
		}
		blob, err := s.store.Get(hash)
		if err != nil {
			return nil, nil, err
		}
		return blob, cache, nil
	}
	return nil, nil, responses.ErrRecordNotFound
}

// ListForOrganization returns the organization's active caches, highest
// priority first. Build output lookups probe them in this order.
func (s *CacheService) ListForOrganization(orgName string) ([]*model.Cache, error) {
	org, err := s.orgs.FindByName(orgName)
	if err != nil {
		return nil, err
	}
	return s.caches.ListSubscribed(org.ID)
}
