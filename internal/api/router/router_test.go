package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"gorm.io/datatypes"

	"github.com/wavelens/gradient/internal/adapter/remote"
	"github.com/wavelens/gradient/internal/adapter/vcs"
	"github.com/wavelens/gradient/internal/api/handler"
	"github.com/wavelens/gradient/internal/cachestore"
	"github.com/wavelens/gradient/internal/model"
	"github.com/wavelens/gradient/internal/pkg/config"
	applog "github.com/wavelens/gradient/internal/pkg/logger"
	"github.com/wavelens/gradient/internal/repository"
	"github.com/wavelens/gradient/internal/service"
	"github.com/wavelens/gradient/pkg/constants"
)

const testAESKey = "0123456789abcdef0123456789abcdef"

type apiEnv struct {
	router  *gin.Engine
	fetcher *vcs.MockFetcher
	db      *gorm.DB
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	config.GlobalConfig = &config.Config{
		Auth: config.AuthConfig{
			JWT: config.JWTConfig{Secret: "test-secret", AccessTokenExpire: 3600},
		},
		Crypto: config.CryptoConfig{AESKey: testAESKey},
	}
	require.NoError(t, applog.Init(&config.LogConfig{Level: "error", Format: "console", Output: "stdout"}))

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, model.AutoMigrate(db))

	store, err := cachestore.New(t.TempDir())
	require.NoError(t, err)

	users := repository.NewUserRepository(db)
	apiKeys := repository.NewAPIKeyRepository(db)
	orgs := repository.NewOrganizationRepository(db)
	projects := repository.NewProjectRepository(db)
	evals := repository.NewEvaluationRepository(db)
	builds := repository.NewBuildRepository(db)
	commits := repository.NewCommitRepository(db)
	servers := repository.NewServerRepository(db)
	caches := repository.NewCacheRepository(db)

	fetcher := vcs.NewMockFetcher()
	executor := remote.NewMockExecutor()

	authService := service.NewAuthService(users, apiKeys)
	h := Handlers{
		Auth:         handler.NewAuthHandler(authService),
		User:         handler.NewUserHandler(service.NewUserService(apiKeys)),
		Organization: handler.NewOrganizationHandler(service.NewOrganizationService(orgs)),
		Project:      handler.NewProjectHandler(service.NewProjectService(projects, orgs, evals, commits, fetcher)),
		Evaluation:   handler.NewEvaluationHandler(service.NewEvaluationService(evals, builds, commits, nil)),
		Build:        handler.NewBuildHandler(service.NewBuildService(builds)),
		Server:       handler.NewServerHandler(service.NewServerService(servers, orgs, builds, executor)),
		Cache:        handler.NewCacheHandler(service.NewCacheService(caches, orgs, store)),
	}

	return &apiEnv{
		router:  Setup(gin.TestMode, authService, h),
		fetcher: fetcher,
		db:      db,
	}
}

type envelope struct {
	Error   bool            `json:"error"`
	Message json.RawMessage `json:"message"`
}

func (env *apiEnv) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	var resp envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func (env *apiEnv) login(t *testing.T) string {
	t.Helper()

	rec, resp := env.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "alice",
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.False(t, resp.Error)

	rec, resp = env.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"username": "alice",
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(resp.Message, &login))
	require.NotEmpty(t, login.Token)
	return login.Token
}

func TestHealthEndpoint(t *testing.T) {
	env := newAPIEnv(t)

	rec, resp := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, resp.Error)
}

func TestAuthRequired(t *testing.T) {
	env := newAPIEnv(t)

	rec, resp := env.do(t, http.MethodGet, "/api/v1/user", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.True(t, resp.Error)

	rec, resp = env.do(t, http.MethodGet, "/api/v1/user", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.True(t, resp.Error)
}

func TestRegisterValidationEnvelope(t *testing.T) {
	env := newAPIEnv(t)

	rec, resp := env.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "Not A Slug",
		"password": "pw",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, resp.Error)
}

func TestEvaluateFlow(t *testing.T) {
	env := newAPIEnv(t)
	token := env.login(t)

	rec, _ := env.do(t, http.MethodPost, "/api/v1/orgs", token, gin.H{
		"name": "acme", "display_name": "Acme Corp",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = env.do(t, http.MethodPost, "/api/v1/orgs/acme/projects", token, gin.H{
		"name":                "website",
		"display_name":        "Website",
		"repository":          "https://example.com/acme/website.git",
		"evaluation_wildcard": "*",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = env.do(t, http.MethodPost, "/api/v1/orgs/acme/servers", token, gin.H{
		"name":          "builder-1",
		"host":          "203.0.113.10",
		"port":          22,
		"ssh_username":  "builder",
		"architectures": []string{"x86_64-linux"},
		"features":      []string{"kvm"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env.fetcher.SetCommit("https://example.com/acme/website.git", &vcs.CommitInfo{
		Hash:    "0123456789abcdef0123456789abcdef01234567",
		Author:  "alice",
		Message: "initial commit",
	})

	rec, resp := env.do(t, http.MethodPost, "/api/v1/orgs/acme/projects/website/evaluate", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.False(t, resp.Error)

	var eval struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Message, &eval))
	require.NotEmpty(t, eval.ID)

	// A second evaluate while the first is in flight conflicts.
	rec, resp = env.do(t, http.MethodPost, "/api/v1/orgs/acme/projects/website/evaluate", token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.True(t, resp.Error)

	// The queued evaluation is visible with its builds (none yet).
	rec, resp = env.do(t, http.MethodGet, "/api/v1/evaluations/"+eval.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, resp.Error)

	rec, _ = env.do(t, http.MethodGet, "/api/v1/evaluations/"+eval.ID+"/builds", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Aborting it frees the project for the next run.
	rec, _ = env.do(t, http.MethodPost, "/api/v1/evaluations/"+eval.ID+"/abort", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = env.do(t, http.MethodPost, "/api/v1/orgs/acme/projects/website/evaluate", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestSSHKeyEndpoints(t *testing.T) {
	env := newAPIEnv(t)
	token := env.login(t)

	rec, _ := env.do(t, http.MethodPost, "/api/v1/orgs", token, gin.H{
		"name": "acme", "display_name": "Acme Corp",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var key struct {
		PublicKey string `json:"public_key"`
	}

	rec, resp := env.do(t, http.MethodGet, "/api/v1/orgs/acme/ssh", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(resp.Message, &key))
	first := key.PublicKey
	assert.True(t, strings.HasPrefix(first, "ssh-ed25519 "))

	// Fetching again returns the same key; rotation replaces it.
	rec, resp = env.do(t, http.MethodGet, "/api/v1/orgs/acme/ssh", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(resp.Message, &key))
	assert.Equal(t, first, key.PublicKey)

	rec, resp = env.do(t, http.MethodPost, "/api/v1/orgs/acme/ssh", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(resp.Message, &key))
	assert.NotEqual(t, first, key.PublicKey)

	rec, _ = env.do(t, http.MethodDelete, "/api/v1/orgs/acme/ssh", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(t, http.MethodDelete, "/api/v1/orgs/acme/ssh", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCacheBlobEndpoints(t *testing.T) {
	env := newAPIEnv(t)
	token := env.login(t)

	rec, _ := env.do(t, http.MethodPost, "/api/v1/caches", token, gin.H{
		"name":     "community",
		"priority": 10,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Upload a raw blob body.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/caches/community/blobs",
		strings.NewReader("nar contents"))
	req.Header.Set("Authorization", "Bearer "+token)
	upload := httptest.NewRecorder()
	env.router.ServeHTTP(upload, req)
	require.Equal(t, http.StatusOK, upload.Code, upload.Body.String())

	var resp envelope
	require.NoError(t, json.Unmarshal(upload.Body.Bytes(), &resp))
	var blob struct {
		Hash string `json:"hash"`
	}
	require.NoError(t, json.Unmarshal(resp.Message, &blob))
	require.Len(t, blob.Hash, 64)

	// Download returns the raw bytes outside the envelope.
	rec, _ = env.do(t, http.MethodGet, "/api/v1/caches/community/blobs/"+blob.Hash, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "nar contents", rec.Body.String())

	rec, _ = env.do(t, http.MethodGet,
		"/api/v1/caches/community/blobs/"+strings.Repeat("0", 64), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBasicAuthRouteAliases(t *testing.T) {
	env := newAPIEnv(t)

	rec, _ := env.do(t, http.MethodPost, "/api/v1/auth/basic/register", "", gin.H{
		"username": "bob",
		"name":     "Bob",
		"email":    "bob@example.com",
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, resp := env.do(t, http.MethodPost, "/api/v1/auth/basic/login", "", gin.H{
		"username": "bob",
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(resp.Message, &login))
	assert.NotEmpty(t, login.Token)
}

func TestPutCreateAndFlatRoutes(t *testing.T) {
	env := newAPIEnv(t)
	token := env.login(t)

	rec, _ := env.do(t, http.MethodPut, "/api/v1/orgs", token, gin.H{
		"name": "acme", "display_name": "Acme Corp",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = env.do(t, http.MethodPut, "/api/v1/projects/acme", token, gin.H{
		"name":                "website",
		"display_name":        "Website",
		"repository":          "https://example.com/acme/website.git",
		"evaluation_wildcard": "*",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = env.do(t, http.MethodGet, "/api/v1/projects/acme/website", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = env.do(t, http.MethodPut, "/api/v1/servers/acme", token, gin.H{
		"name":          "builder-1",
		"host":          "203.0.113.10",
		"port":          22,
		"ssh_username":  "builder",
		"architectures": []string{"x86_64-linux"},
		"features":      []string{"kvm"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = env.do(t, http.MethodGet, "/api/v1/servers/acme/builder-1", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = env.do(t, http.MethodPut, "/api/v1/caches", token, gin.H{
		"name": "community", "priority": 10,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env.fetcher.SetCommit("https://example.com/acme/website.git", &vcs.CommitInfo{
		Hash:    "0123456789abcdef0123456789abcdef01234567",
		Author:  "alice",
		Message: "initial commit",
	})

	rec, _ = env.do(t, http.MethodPost, "/api/v1/projects/acme/website/evaluate", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestServerActiveRoutes(t *testing.T) {
	env := newAPIEnv(t)
	token := env.login(t)

	rec, _ := env.do(t, http.MethodPost, "/api/v1/orgs", token, gin.H{
		"name": "acme", "display_name": "Acme Corp",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = env.do(t, http.MethodPost, "/api/v1/orgs/acme/servers", token, gin.H{
		"name":          "builder-1",
		"host":          "203.0.113.10",
		"port":          22,
		"ssh_username":  "builder",
		"architectures": []string{"x86_64-linux"},
		"features":      []string{"kvm"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var srv struct {
		Active bool `json:"active"`
	}

	rec, resp := env.do(t, http.MethodDelete, "/api/v1/servers/acme/builder-1/active", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(resp.Message, &srv))
	assert.False(t, srv.Active)

	rec, resp = env.do(t, http.MethodGet, "/api/v1/orgs/acme/servers/builder-1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(resp.Message, &srv))
	assert.False(t, srv.Active)

	rec, resp = env.do(t, http.MethodPost, "/api/v1/servers/acme/builder-1/active", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(resp.Message, &srv))
	assert.True(t, srv.Active)
}

func TestEvaluationActionAbort(t *testing.T) {
	env := newAPIEnv(t)
	token := env.login(t)

	rec, _ := env.do(t, http.MethodPost, "/api/v1/orgs", token, gin.H{
		"name": "acme", "display_name": "Acme Corp",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = env.do(t, http.MethodPost, "/api/v1/orgs/acme/projects", token, gin.H{
		"name":                "website",
		"display_name":        "Website",
		"repository":          "https://example.com/acme/website.git",
		"evaluation_wildcard": "*",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env.fetcher.SetCommit("https://example.com/acme/website.git", &vcs.CommitInfo{
		Hash:    "0123456789abcdef0123456789abcdef01234567",
		Author:  "alice",
		Message: "initial commit",
	})

	rec, resp := env.do(t, http.MethodPost, "/api/v1/orgs/acme/projects/website/evaluate", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var eval struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Message, &eval))

	rec, resp = env.do(t, http.MethodPost, "/api/v1/evaluations/"+eval.ID, token, gin.H{
		"method": "rewind",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, resp.Error)

	rec, _ = env.do(t, http.MethodPost, "/api/v1/evaluations/"+eval.ID, token, gin.H{
		"method": "abort",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Aborting through the action body frees the project like /abort does.
	rec, _ = env.do(t, http.MethodPost, "/api/v1/orgs/acme/projects/website/evaluate", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestBuildDetailCarriesLog(t *testing.T) {
	env := newAPIEnv(t)
	token := env.login(t)

	eval := &model.Evaluation{
		ID:        uuid.NewString(),
		ProjectID: uuid.NewString(),
		CommitID:  uuid.NewString(),
		Wildcard:  "*",
		Status:    constants.EvaluationStatusBuilding,
	}
	require.NoError(t, env.db.Create(eval).Error)

	build := &model.Build{
		ID:           uuid.NewString(),
		EvaluationID: eval.ID,
		Seq:          1,
		Derivation:   "/nix/store/abc123-website.drv",
		Architecture: "x86_64-linux",
		Features:     datatypes.JSONSlice[string]{"kvm"},
		Status:       constants.BuildStatusCompleted,
		Log:          "unpacking sources\nbuild done\n",
	}
	require.NoError(t, env.db.Create(build).Error)

	rec, resp := env.do(t, http.MethodGet, "/api/v1/builds/"+build.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var info struct {
		Status string `json:"status"`
		Log    string `json:"log"`
	}
	require.NoError(t, json.Unmarshal(resp.Message, &info))
	assert.Equal(t, "Completed", info.Status)
	assert.Equal(t, "unpacking sources\nbuild done\n", info.Log)
}

func TestSubscribeCacheAndBlobLookup(t *testing.T) {
	env := newAPIEnv(t)
	token := env.login(t)

	rec, _ := env.do(t, http.MethodPost, "/api/v1/orgs", token, gin.H{
		"name": "acme", "display_name": "Acme Corp",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = env.do(t, http.MethodPost, "/api/v1/caches", token, gin.H{
		"name": "upstream", "priority": 5,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec, _ = env.do(t, http.MethodPost, "/api/v1/caches", token, gin.H{
		"name": "mirror", "priority": 50,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = env.do(t, http.MethodPost, "/api/v1/orgs/acme/subscribe-cache/upstream", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec, _ = env.do(t, http.MethodPost, "/api/v1/orgs/acme/subscribe-cache/mirror", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/caches/upstream/blobs",
		strings.NewReader("nar contents"))
	req.Header.Set("Authorization", "Bearer "+token)
	upload := httptest.NewRecorder()
	env.router.ServeHTTP(upload, req)
	require.Equal(t, http.StatusOK, upload.Code, upload.Body.String())

	var resp envelope
	require.NoError(t, json.Unmarshal(upload.Body.Bytes(), &resp))
	var blob struct {
		Hash string `json:"hash"`
	}
	require.NoError(t, json.Unmarshal(resp.Message, &blob))

	// The higher-priority mirror misses; the walk continues to upstream.
	rec, _ = env.do(t, http.MethodGet, "/api/v1/orgs/acme/blobs/"+blob.Hash, token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "upstream", rec.Header().Get("X-Gradient-Cache"))
	assert.Equal(t, "nar contents", rec.Body.String())

	rec, _ = env.do(t, http.MethodGet,
		"/api/v1/orgs/acme/blobs/"+strings.Repeat("0", 64), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Unsubscribing the only holder makes the blob unreachable.
	rec, _ = env.do(t, http.MethodDelete, "/api/v1/orgs/acme/subscribe-cache/upstream", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = env.do(t, http.MethodGet, "/api/v1/orgs/acme/blobs/"+blob.Hash, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
