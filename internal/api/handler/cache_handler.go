package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wavelens/gradient/internal/dto"
	"github.com/wavelens/gradient/internal/service"
	"github.com/wavelens/gradient/pkg/responses"
)

type CacheHandler struct {
	caches *service.CacheService
}

func NewCacheHandler(caches *service.CacheService) *CacheHandler {
	return &CacheHandler{caches: caches}
}

func (h *CacheHandler) Create(c *gin.Context) {
	var req dto.CreateCacheRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Error(c, responses.NewValidation(err.Error()))
		return
	}

	cache, err := h.caches.Create(&req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, cache)
}

func (h *CacheHandler) List(c *gin.Context) {
	caches, err := h.caches.List()
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, caches)
}

func (h *CacheHandler) Get(c *gin.Context) {
	cache, err := h.caches.Get(c.Param("cache"))
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, cache)
}

func (h *CacheHandler) Update(c *gin.Context) {
	var req dto.UpdateCacheRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Error(c, responses.NewValidation(err.Error()))
		return
	}

	cache, err := h.caches.Update(c.Param("cache"), &req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, cache)
}

func (h *CacheHandler) Delete(c *gin.Context) {
	if err := h.caches.Delete(c.Param("cache")); err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, "deleted")
}

func (h *CacheHandler) Subscribe(c *gin.Context) {
	if err := h.caches.Subscribe(c.Param("org"), c.Param("cache")); err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, "subscribed")
}

func (h *CacheHandler) Unsubscribe(c *gin.Context) {
	if err := h.caches.Unsubscribe(c.Param("org"), c.Param("cache")); err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, "unsubscribed")
}

// UploadBlob streams the request body into the cache store.
func (h *CacheHandler) UploadBlob(c *gin.Context) {
	hash, err := h.caches.UploadBlob(c.Param("cache"), c.Request.Body)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, gin.H{"hash": hash})
}

// GetBlob streams a blob back as raw bytes, outside the JSON envelope.
func (h *CacheHandler) GetBlob(c *gin.Context) {
	blob, err := h.caches.GetBlob(c.Param("cache"), c.Param("hash"))
	if err != nil {
		responses.Error(c, err)
		return
	}
	defer blob.Close()

	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, blob); err != nil {
		_ = c.Error(err)
	}
}

// LookupBlob resolves a blob through the organization's subscribed
// caches, highest priority first, and streams the first hit. The winning
// cache is named in the X-Gradient-Cache header.
func (h *CacheHandler) LookupBlob(c *gin.Context) {
	blob, cache, err := h.caches.Lookup(c.Param("org"), c.Param("hash"))
	if err != nil {
		responses.Error(c, err)
		return
	}
	defer blob.Close()

	c.Header("X-Gradient-Cache", cache.Name)
	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, blob); err != nil {
		_ = c.Error(err)
	}
}

func (h *CacheHandler) ListForOrganization(c *gin.Context) {
	caches, err := h.caches.ListForOrganization(c.Param("org"))
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, caches)
}
