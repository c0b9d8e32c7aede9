package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wavelens/gradient/internal/adapter/remote"
	"github.com/wavelens/gradient/internal/model"
	"github.com/wavelens/gradient/internal/pkg/config"
	"github.com/wavelens/gradient/internal/pkg/crypto"
	applog "github.com/wavelens/gradient/internal/pkg/logger"
	"github.com/wavelens/gradient/internal/repository"
	"github.com/wavelens/gradient/pkg/constants"
	"github.com/wavelens/gradient/pkg/responses"
)

const testAESKey = "0123456789abcdef0123456789abcdef"

type testEnv struct {
	db       *gorm.DB
	builds   repository.BuildRepository
	evals    repository.EvaluationRepository
	projects repository.ProjectRepository
	orgs     repository.OrganizationRepository
	servers  repository.ServerRepository
	executor *remote.MockExecutor

	org     *model.Organization
	project *model.Project
	eval    *model.Evaluation
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

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

	env := &testEnv{
		db:       db,
		builds:   repository.NewBuildRepository(db),
		evals:    repository.NewEvaluationRepository(db),
		projects: repository.NewProjectRepository(db),
		orgs:     repository.NewOrganizationRepository(db),
		servers:  repository.NewServerRepository(db),
		executor: remote.NewMockExecutor(),
	}

	publicKey, privateKey, err := crypto.GenerateSSHKeyPair("test")
	require.NoError(t, err)
	encrypted, err := crypto.Encrypt(testAESKey, privateKey)
	require.NoError(t, err)

	env.org = &model.Organization{
		ID:         uuid.NewString(),
		Name:       "acme",
		PublicKey:  publicKey,
		PrivateKey: encrypted,
		CreatedBy:  uuid.NewString(),
	}
	require.NoError(t, env.orgs.Create(env.org))

	env.project = &model.Project{
		ID:                 uuid.NewString(),
		OrganizationID:     env.org.ID,
		Name:               "website",
		Repository:         "https://example.com/acme/website.git",
		EvaluationWildcard: "*",
		CreatedBy:          uuid.NewString(),
	}
	require.NoError(t, env.projects.Create(env.project))

	env.eval = &model.Evaluation{
		ID:        uuid.NewString(),
		ProjectID: env.project.ID,
		CommitID:  uuid.NewString(),
		Wildcard:  "*",
		Status:    constants.EvaluationStatusBuilding,
	}
	require.NoError(t, env.evals.Create(env.eval))

	return env
}

func (env *testEnv) addServer(t *testing.T, name string) *model.Server {
	t.Helper()
	server := &model.Server{
		ID:             uuid.NewString(),
		OrganizationID: env.org.ID,
		Name:           name,
		Host:           "203.0.113.10",
		Port:           22,
		SSHUsername:    "builder",
		Architectures:  []string{"x86_64-linux"},
		Features:       []string{"kvm", "big-parallel"},
		Active:         true,
		CreatedBy:      uuid.NewString(),
	}
	require.NoError(t, env.servers.Create(server))
	return server
}

func (env *testEnv) addBuild(t *testing.T, seq int, derivation string) *model.Build {
	t.Helper()
	b := &model.Build{
		ID:           uuid.NewString(),
		EvaluationID: env.eval.ID,
		Seq:          seq,
		Derivation:   derivation,
		Architecture: "x86_64-linux",
		Features:     []string{"kvm"},
		Status:       constants.BuildStatusQueued,
	}
	require.NoError(t, env.builds.CreateBatch([]*model.Build{b}))
	return b
}

func (env *testEnv) newDispatcher(opts Options) *Dispatcher {
	if opts.AESKey == "" {
		opts.AESKey = testAESKey
	}
	if opts.MaxConcurrentBuilds == 0 {
		opts.MaxConcurrentBuilds = 4
	}
	if opts.Backoff == 0 {
		opts.Backoff = time.Millisecond
	}
	return NewDispatcher(env.builds, env.evals, env.projects, env.orgs, env.servers, env.executor, opts)
}

// buildStatus reads the status directly; safe inside Eventually closures.
func (env *testEnv) buildStatus(id string) int8 {
	var b model.Build
	if err := env.db.First(&b, "id = ?", id).Error; err != nil {
		return -1
	}
	return b.Status
}

func TestDispatchRunsBuildToCompletion(t *testing.T) {
	env := newTestEnv(t)
	server := env.addServer(t, "builder-1")
	b := env.addBuild(t, 0, "/nix/store/abc-hello.drv")

	env.executor.SetResult(b.Derivation, remote.MockResult{
		Log:        "building hello\n",
		OutputHash: "deadbeef",
	})

	d := env.newDispatcher(Options{ServerCapacity: 1})
	d.Tick(context.Background())
	d.Wait()

	got, err := env.builds.FindByID(b.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.BuildStatusCompleted, got.Status)
	require.NotNil(t, got.ServerID)
	assert.Equal(t, server.ID, *got.ServerID)
	assert.Equal(t, "deadbeef", got.OutputHash)
	assert.Contains(t, got.Log, "building hello")

	// The only build completed, so the evaluation settles.
	eval, err := env.evals.FindByID(env.eval.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.EvaluationStatusCompleted, eval.Status)

	// And the capacity slot is free again.
	assert.Equal(t, 0, d.Slots().Used(server.ID))
}

func TestDispatchSkipsIneligibleServer(t *testing.T) {
	env := newTestEnv(t)
	server := env.addServer(t, "builder-1")
	server.Architectures = []string{"aarch64-darwin"}
	require.NoError(t, env.servers.Update(server))

	b := env.addBuild(t, 0, "/nix/store/abc-hello.drv")

	d := env.newDispatcher(Options{ServerCapacity: 1})
	d.Tick(context.Background())
	d.Wait()

	// No eligible server: the build stays queued for a later tick.
	assert.Equal(t, constants.BuildStatusQueued, env.buildStatus(b.ID))
	assert.Empty(t, env.executor.Calls())
}

func TestDispatchRespectsServerCapacity(t *testing.T) {
	env := newTestEnv(t)
	env.addServer(t, "builder-1")
	first := env.addBuild(t, 0, "/nix/store/one.drv")
	second := env.addBuild(t, 1, "/nix/store/two.drv")

	block := make(chan struct{})
	env.executor.SetResult(first.Derivation, remote.MockResult{Block: block, OutputHash: "aaaa"})
	env.executor.SetResult(second.Derivation, remote.MockResult{OutputHash: "bbbb"})

	d := env.newDispatcher(Options{ServerCapacity: 1})
	d.Tick(context.Background())

	require.Eventually(t, func() bool {
		return env.buildStatus(first.ID) == constants.BuildStatusRunning
	}, 5*time.Second, 10*time.Millisecond)

	// The single slot is held by the first build.
	d.Tick(context.Background())
	assert.Equal(t, constants.BuildStatusQueued, env.buildStatus(second.ID))

	close(block)
	d.Wait()
	assert.Equal(t, constants.BuildStatusCompleted, env.buildStatus(first.ID))

	d.Tick(context.Background())
	d.Wait()
	assert.Equal(t, constants.BuildStatusCompleted, env.buildStatus(second.ID))
}

func TestDispatchRetriesExhaustedFailsBuild(t *testing.T) {
	env := newTestEnv(t)
	server := env.addServer(t, "builder-1")
	b := env.addBuild(t, 0, "/nix/store/abc-hello.drv")

	env.executor.SetCheckErr(fmt.Errorf("connection refused"))

	d := env.newDispatcher(Options{ServerCapacity: 1, Retries: 2})
	d.Tick(context.Background())
	d.Wait()

	got, err := env.builds.FindByID(b.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.BuildStatusFailed, got.Status)
	assert.Contains(t, got.Error, "dispatch retries exhausted")

	// Every build failed, so the evaluation fails.
	eval, err := env.evals.FindByID(env.eval.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.EvaluationStatusFailed, eval.Status)

	assert.Equal(t, 0, d.Slots().Used(server.ID))
}

func TestDispatchPrefersDifferentServerOnRetry(t *testing.T) {
	env := newTestEnv(t)
	env.addServer(t, "builder-1")
	env.addServer(t, "builder-2")
	b := env.addBuild(t, 0, "/nix/store/abc-hello.drv")

	// The probe fails once, then succeeds on the retried server.
	env.executor.SetCheckFailures(1, fmt.Errorf("connection refused"))
	env.executor.SetResult(b.Derivation, remote.MockResult{OutputHash: "cafe"})

	d := env.newDispatcher(Options{ServerCapacity: 1, Retries: 3})
	d.Tick(context.Background())
	d.Wait()

	got, err := env.builds.FindByID(b.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.BuildStatusCompleted, got.Status)
}

func TestAbortWinsOverCompletion(t *testing.T) {
	env := newTestEnv(t)
	env.addServer(t, "builder-1")
	b := env.addBuild(t, 0, "/nix/store/abc-hello.drv")

	block := make(chan struct{})
	env.executor.SetResult(b.Derivation, remote.MockResult{Block: block, OutputHash: "aaaa"})

	d := env.newDispatcher(Options{ServerCapacity: 1})
	d.Tick(context.Background())

	require.Eventually(t, func() bool {
		return env.buildStatus(b.ID) == constants.BuildStatusRunning
	}, 5*time.Second, 10*time.Millisecond)

	// Abort while the remote command is in flight.
	aborted, err := env.builds.Abort(b.ID)
	require.NoError(t, err)
	require.True(t, aborted)
	d.CancelBuild(b.ID)

	d.Wait()

	got, err := env.builds.FindByID(b.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.BuildStatusAborted, got.Status)
	assert.Nil(t, got.ServerID)
}

func TestSettleEvaluationPartialFailureCompletes(t *testing.T) {
	env := newTestEnv(t)
	env.addServer(t, "builder-1")
	good := env.addBuild(t, 0, "/nix/store/good.drv")
	bad := env.addBuild(t, 1, "/nix/store/bad.drv")

	env.executor.SetResult(good.Derivation, remote.MockResult{OutputHash: "aaaa"})
	env.executor.SetResult(bad.Derivation, remote.MockResult{
		Err: responses.NewEvaluator("build failed", fmt.Errorf("exit 1")),
	})

	d := env.newDispatcher(Options{ServerCapacity: 2})
	d.Tick(context.Background())
	d.Wait()

	assert.Equal(t, constants.BuildStatusCompleted, env.buildStatus(good.ID))
	assert.Equal(t, constants.BuildStatusFailed, env.buildStatus(bad.ID))

	// One build made it, so the evaluation counts as completed.
	eval, err := env.evals.FindByID(env.eval.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.EvaluationStatusCompleted, eval.Status)
}
