// Package scheduler assigns queued builds to eligible build servers and
// runs them.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/wavelens/gradient/internal/adapter/remote"
	"github.com/wavelens/gradient/internal/core/build"
	"github.com/wavelens/gradient/internal/core/evaluation"
	"github.com/wavelens/gradient/internal/model"
	"github.com/wavelens/gradient/internal/pkg/crypto"
	applog "github.com/wavelens/gradient/internal/pkg/logger"
	"github.com/wavelens/gradient/internal/repository"
	"github.com/wavelens/gradient/pkg/constants"
	"github.com/wavelens/gradient/pkg/responses"
)

// Options tunes dispatch behavior.
type Options struct {
	// Retries is the number of additional dispatch attempts after the
	// first connection failure.
	Retries int
	// Backoff is the wait before the first retry; it doubles per attempt.
	Backoff time.Duration
	// MaxConcurrentBuilds bounds in-flight build workers.
	MaxConcurrentBuilds int
	// ServerCapacity is the number of concurrent builds per server.
	ServerCapacity int
	// AESKey decrypts organization private keys.
	AESKey string
}

// Dispatcher matches queued builds to servers, claims capacity slots and
// drives each build through its lifecycle on a worker goroutine.
type Dispatcher struct {
	builds   repository.BuildRepository
	evals    repository.EvaluationRepository
	projects repository.ProjectRepository
	orgs     repository.OrganizationRepository
	servers  repository.ServerRepository

	buildSM  *build.StateMachine
	evalSM   *evaluation.StateMachine
	executor remote.Executor
	slots    *SlotTable
	opts     Options

	sem chan struct{}
	wg  sync.WaitGroup

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewDispatcher(
	builds repository.BuildRepository,
	evals repository.EvaluationRepository,
	projects repository.ProjectRepository,
	orgs repository.OrganizationRepository,
	servers repository.ServerRepository,
	executor remote.Executor,
	opts Options,
) *Dispatcher {
	if opts.MaxConcurrentBuilds < 1 {
		opts.MaxConcurrentBuilds = 1
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 2 * time.Second
	}
	return &Dispatcher{
		builds:   builds,
		evals:    evals,
		projects: projects,
		orgs:     orgs,
		servers:  servers,
		buildSM:  build.NewStateMachine(builds),
		evalSM:   evaluation.NewStateMachine(evals),
		executor: executor,
		slots:    NewSlotTable(opts.ServerCapacity),
		opts:     opts,
		sem:      make(chan struct{}, opts.MaxConcurrentBuilds),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Slots exposes the capacity table, mainly for tests.
func (d *Dispatcher) Slots() *SlotTable {
	return d.slots
}

// CancelBuild interrupts a running build's remote command, if any. The
// status change itself happens through the abort path in the repository.
func (d *Dispatcher) CancelBuild(buildID string) {
	d.mu.Lock()
	cancel, ok := d.cancels[buildID]
	d.mu.Unlock()
	if ok {
		cancel()
	}
}

// Wait blocks until all in-flight build workers have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Tick scans the queue once and dispatches what fits. Builds that no
// server can take right now stay queued for the next tick.
func (d *Dispatcher) Tick(ctx context.Context) {
	queued, err := d.builds.ListQueued(d.opts.MaxConcurrentBuilds)
	if err != nil {
		applog.Error("scan build queue", zap.Error(err))
		return
	}
	for _, b := range queued {
		if ctx.Err() != nil {
			return
		}
		d.dispatch(ctx, b)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, b *model.Build) {
	org, err := d.organizationFor(b)
	if err != nil {
		applog.Error("resolve build organization",
			zap.String("build_id", b.ID), zap.Error(err))
		return
	}

	server := d.pickServer(org.ID, b, "")
	if server == nil {
		// No eligible server with free capacity; try again next tick.
		return
	}

	ok, err := d.buildSM.Assign(b.ID, server.ID)
	if err != nil {
		d.slots.Release(server.ID)
		applog.Error("assign build", zap.String("build_id", b.ID), zap.Error(err))
		return
	}
	if !ok {
		// Aborted (or taken) between the scan and the claim.
		d.slots.Release(server.ID)
		return
	}

	applog.Info("build assigned",
		zap.String("build_id", b.ID),
		zap.String("server", server.Name),
		zap.String("derivation", b.Derivation))

	select {
	case d.sem <- struct{}{}:
	case <-ctx.Done():
		d.slots.Release(server.ID)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() { <-d.sem }()
		d.run(ctx, b, server, org)
	}()
}

// organizationFor walks build -> evaluation -> project -> organization.
func (d *Dispatcher) organizationFor(b *model.Build) (*model.Organization, error) {
	eval, err := d.evals.FindByID(b.EvaluationID)
	if err != nil {
		return nil, err
	}
	project, err := d.projects.FindByID(eval.ProjectID)
	if err != nil {
		return nil, err
	}
	return d.orgs.FindByID(project.OrganizationID)
}

// pickServer returns an eligible server with a claimed slot, preferring
// servers other than avoid. Returns nil when none has capacity; the
// caller must release the slot.
func (d *Dispatcher) pickServer(orgID string, b *model.Build, avoid string) *model.Server {
	servers, err := d.servers.ListActiveByOrganization(orgID)
	if err != nil {
		applog.Error("list build servers", zap.Error(err))
		return nil
	}

	eligible := lo.Filter(servers, func(s *model.Server, _ int) bool {
		return s.SupportsArchitecture(b.Architecture) && s.SupportsFeatures(b.Features)
	})
	if len(eligible) == 0 {
		return nil
	}

	// Two passes: anything but avoid first, then avoid as a last resort.
	for _, s := range eligible {
		if s.ID != avoid && d.slots.Claim(s.ID) {
			return s
		}
	}
	if avoid != "" {
		for _, s := range eligible {
			if s.ID == avoid && d.slots.Claim(s.ID) {
				return s
			}
		}
	}
	return nil
}

// run drives one assigned build to a terminal state.
func (d *Dispatcher) run(ctx context.Context, b *model.Build, server *model.Server, org *model.Organization) {
	defer func() {
		if server != nil {
			d.slots.Release(server.ID)
		}
	}()

	if !org.HasSSHKey() {
		d.failAssigned(b, "organization has no ssh key")
		return
	}
	privateKey, err := crypto.Decrypt(d.opts.AESKey, org.PrivateKey)
	if err != nil {
		d.failAssigned(b, "decrypt organization key: "+err.Error())
		return
	}

	// Dispatch phase: probe the server while the build is still Assigned,
	// retrying on a different server with exponential backoff.
	for attempt := 0; ; attempt++ {
		err := d.executor.Check(ctx, server, privateKey)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return
		}
		applog.Warn("build server unreachable",
			zap.String("build_id", b.ID),
			zap.String("server", server.Name),
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if attempt >= d.opts.Retries {
			d.failAssigned(b, "dispatch retries exhausted: "+err.Error())
			return
		}

		failed := server.ID
		d.slots.Release(server.ID)
		server = nil

		select {
		case <-time.After(d.opts.Backoff << attempt):
		case <-ctx.Done():
			return
		}

		next := d.pickServer(org.ID, b, failed)
		if next == nil {
			// Nothing has capacity; give the slot back to the queue.
			if _, err := d.buildSM.Requeue(b.ID); err != nil {
				applog.Error("requeue build", zap.String("build_id", b.ID), zap.Error(err))
			}
			return
		}
		if next.ID != failed {
			ok, err := d.builds.Reassign(b.ID, next.ID)
			if err != nil || !ok {
				d.slots.Release(next.ID)
				return
			}
		}
		server = next
	}

	ok, err := d.buildSM.Transition(b.ID, constants.BuildStatusAssigned, constants.BuildStatusRunning)
	if err != nil {
		applog.Error("start build", zap.String("build_id", b.ID), zap.Error(err))
		return
	}
	if !ok {
		// Aborted while assigned; the abort already cleared the server.
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.cancels[b.ID] = cancel
	d.mu.Unlock()
	defer func() {
		cancel()
		d.mu.Lock()
		delete(d.cancels, b.ID)
		d.mu.Unlock()
	}()

	applog.Info("build running",
		zap.String("build_id", b.ID), zap.String("server", server.Name))

	logs := &logWriter{builds: d.builds, buildID: b.ID}
	outputHash, execErr := d.executor.Execute(runCtx, server, privateKey, b.Derivation, logs)

	if execErr != nil {
		if setErr := d.builds.SetError(b.ID, execErr.Error()); setErr != nil {
			applog.Error("record build error", zap.String("build_id", b.ID), zap.Error(setErr))
		}
		// Loses to a concurrent abort, which is the desired outcome.
		if _, err := d.buildSM.Transition(b.ID, constants.BuildStatusRunning, constants.BuildStatusFailed); err != nil {
			applog.Error("fail build", zap.String("build_id", b.ID), zap.Error(err))
		}
		d.settleEvaluation(b.EvaluationID)
		return
	}

	if outputHash != "" {
		if err := d.builds.SetOutput(b.ID, outputHash); err != nil {
			applog.Error("record build output", zap.String("build_id", b.ID), zap.Error(err))
		}
	}
	if _, err := d.buildSM.Transition(b.ID, constants.BuildStatusRunning, constants.BuildStatusCompleted); err != nil {
		applog.Error("complete build", zap.String("build_id", b.ID), zap.Error(err))
	}

	applog.Info("build completed",
		zap.String("build_id", b.ID), zap.String("output", outputHash))

	d.settleEvaluation(b.EvaluationID)
}

// failAssigned marks an assigned build Failed with the given reason.
func (d *Dispatcher) failAssigned(b *model.Build, reason string) {
	if err := d.builds.SetError(b.ID, reason); err != nil {
		applog.Error("record build error", zap.String("build_id", b.ID), zap.Error(err))
	}
	ok, err := d.buildSM.Transition(b.ID, constants.BuildStatusAssigned, constants.BuildStatusFailed)
	if err != nil {
		applog.Error("fail build", zap.String("build_id", b.ID), zap.Error(err))
		return
	}
	if ok {
		d.settleEvaluation(b.EvaluationID)
	}
}

// Settle re-evaluates a Building evaluation against its builds. Exposed
// for startup recovery, where builds may have finished under a previous
// process.
func (d *Dispatcher) Settle(evaluationID string) {
	d.settleEvaluation(evaluationID)
}

// settleEvaluation moves a Building evaluation to its terminal state once
// every build has finished. An evaluation with at least one completed
// build completes; one where every build failed fails.
func (d *Dispatcher) settleEvaluation(evaluationID string) {
	pending, err := d.builds.ListNonTerminalByEvaluation(evaluationID)
	if err != nil {
		applog.Error("list evaluation builds", zap.String("evaluation_id", evaluationID), zap.Error(err))
		return
	}
	if len(pending) > 0 {
		return
	}

	all, err := d.builds.ListByEvaluation(evaluationID)
	if err != nil {
		applog.Error("list evaluation builds", zap.String("evaluation_id", evaluationID), zap.Error(err))
		return
	}

	completed := lo.CountBy(all, func(b *model.Build) bool {
		return b.Status == constants.BuildStatusCompleted
	})

	target := constants.EvaluationStatusCompleted
	if completed == 0 {
		target = constants.EvaluationStatusFailed
	}

	// CAS from Building; a concurrent abort wins and this becomes a no-op.
	ok, err := d.evalSM.Transition(evaluationID, constants.EvaluationStatusBuilding, target)
	if err != nil {
		applog.Error("settle evaluation", zap.String("evaluation_id", evaluationID), zap.Error(err))
		return
	}
	if ok {
		applog.Info("evaluation settled",
			zap.String("evaluation_id", evaluationID),
			zap.String("status", constants.EvaluationStatusToString(target)))
	}
}

// logWriter appends executor output to the build's log column as it
// arrives, so logs are readable while the build runs.
type logWriter struct {
	builds  repository.BuildRepository
	buildID string
}

func (w *logWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := w.builds.AppendLog(w.buildID, string(p)); err != nil {
		return 0, responses.Wrap(responses.CodeDatabaseError, "append log", err)
	}
	return len(p), nil
}
