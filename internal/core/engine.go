// Package core runs the orchestration engine: a scanner that expands
// queued evaluations into builds and a dispatcher that places queued
// builds on servers.
package core

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wavelens/gradient/internal/adapter/evaluator"
	"github.com/wavelens/gradient/internal/core/evaluation"
	"github.com/wavelens/gradient/internal/core/scheduler"
	"github.com/wavelens/gradient/internal/model"
	applog "github.com/wavelens/gradient/internal/pkg/logger"
	"github.com/wavelens/gradient/internal/repository"
	"github.com/wavelens/gradient/pkg/constants"
)

// Engine owns the two background loops. Both tick at the same interval;
// each tick drains what it can and leaves the rest for the next one.
type Engine struct {
	evals    repository.EvaluationRepository
	builds   repository.BuildRepository
	projects repository.ProjectRepository
	commits  repository.CommitRepository

	evalSM     *evaluation.StateMachine
	evaluator  evaluator.Evaluator
	dispatcher *scheduler.Dispatcher

	interval time.Duration
	evalSem  chan struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewEngine(
	evals repository.EvaluationRepository,
	builds repository.BuildRepository,
	projects repository.ProjectRepository,
	commits repository.CommitRepository,
	ev evaluator.Evaluator,
	dispatcher *scheduler.Dispatcher,
	interval time.Duration,
	maxConcurrentEvaluations int,
) *Engine {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if maxConcurrentEvaluations < 1 {
		maxConcurrentEvaluations = 1
	}
	return &Engine{
		evals:      evals,
		builds:     builds,
		projects:   projects,
		commits:    commits,
		evalSM:     evaluation.NewStateMachine(evals),
		evaluator:  ev,
		dispatcher: dispatcher,
		interval:   interval,
		evalSem:    make(chan struct{}, maxConcurrentEvaluations),
	}
}

// Dispatcher exposes the build dispatcher so the API layer can cancel
// running builds.
func (e *Engine) Dispatcher() *scheduler.Dispatcher {
	return e.dispatcher
}

// Recover requeues work left in flight by a previous process: Evaluating
// evaluations go back to Queued, Assigned/Running builds lose their server
// and go back to Queued, and Building evaluations whose builds had all
// finished before the crash are settled. Called once before Start.
func (e *Engine) Recover() error {
	requeuedBuilds, err := e.builds.RequeueInFlight()
	if err != nil {
		return err
	}
	requeuedEvals, err := e.evals.RequeueEvaluating()
	if err != nil {
		return err
	}

	building, err := e.evals.ListBuilding()
	if err != nil {
		return err
	}
	for _, eval := range building {
		e.dispatcher.Settle(eval.ID)
	}

	if requeuedBuilds > 0 || requeuedEvals > 0 {
		applog.Info("recovered interrupted work",
			zap.Int64("builds", requeuedBuilds),
			zap.Int64("evaluations", requeuedEvals))
	}
	return nil
}

// Start launches the background loops.
func (e *Engine) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	e.wg.Add(2)
	go e.loop(ctx, e.evaluationTick)
	go e.loop(ctx, e.dispatcher.Tick)

	applog.Info("core engine started", zap.Duration("interval", e.interval))
}

// Stop cancels the loops and waits for in-flight workers.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
	e.dispatcher.Wait()
	applog.Info("core engine stopped")
}

func (e *Engine) loop(ctx context.Context, tick func(context.Context)) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick(ctx)
		}
	}
}

// evaluationTick claims queued evaluations and expands them on worker
// goroutines, bounded by the evaluation semaphore.
func (e *Engine) evaluationTick(ctx context.Context) {
	queued, err := e.evals.ListQueued(cap(e.evalSem))
	if err != nil {
		applog.Error("scan evaluation queue", zap.Error(err))
		return
	}

	for _, eval := range queued {
		if ctx.Err() != nil {
			return
		}

		ok, err := e.evalSM.Transition(eval.ID,
			constants.EvaluationStatusQueued, constants.EvaluationStatusEvaluating)
		if err != nil {
			applog.Error("claim evaluation", zap.String("evaluation_id", eval.ID), zap.Error(err))
			continue
		}
		if !ok {
			// Aborted or claimed by another replica between scan and CAS.
			continue
		}

		select {
		case e.evalSem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		e.wg.Add(1)
		go func(eval *model.Evaluation) {
			defer e.wg.Done()
			defer func() { <-e.evalSem }()
			e.evaluate(ctx, eval)
		}(eval)
	}
}

// evaluate expands one evaluation into its builds.
func (e *Engine) evaluate(ctx context.Context, eval *model.Evaluation) {
	project, err := e.projects.FindByID(eval.ProjectID)
	if err != nil {
		e.failEvaluation(eval.ID, "load project: "+err.Error())
		return
	}
	commit, err := e.commits.FindByID(eval.CommitID)
	if err != nil {
		e.failEvaluation(eval.ID, "load commit: "+err.Error())
		return
	}

	applog.Info("evaluation started",
		zap.String("evaluation_id", eval.ID),
		zap.String("project", project.Name),
		zap.String("commit", commit.Hash))

	targets, err := e.evaluator.Evaluate(ctx, project.Repository, commit.Hash)
	if err != nil {
		e.failEvaluation(eval.ID, err.Error())
		return
	}

	targets = evaluator.FilterTargets(targets, eval.Wildcard)
	if len(targets) == 0 {
		// Nothing matched the wildcard; the evaluation completes empty.
		if _, err := e.evalSM.Transition(eval.ID,
			constants.EvaluationStatusEvaluating, constants.EvaluationStatusCompleted); err != nil {
			applog.Error("complete evaluation", zap.String("evaluation_id", eval.ID), zap.Error(err))
		}
		return
	}

	builds := make([]*model.Build, 0, len(targets))
	for i, t := range targets {
		builds = append(builds, &model.Build{
			ID:           uuid.NewString(),
			EvaluationID: eval.ID,
			Seq:          i,
			Derivation:   t.Derivation,
			Architecture: t.Architecture,
			Features:     t.Features,
			Status:       constants.BuildStatusQueued,
		})
	}
	if err := e.builds.CreateBatch(builds); err != nil {
		e.failEvaluation(eval.ID, "create builds: "+err.Error())
		return
	}

	ok, err := e.evalSM.Transition(eval.ID,
		constants.EvaluationStatusEvaluating, constants.EvaluationStatusBuilding)
	if err != nil {
		applog.Error("advance evaluation", zap.String("evaluation_id", eval.ID), zap.Error(err))
		return
	}
	if !ok {
		// Aborted during evaluation; take the fresh builds with it.
		for _, b := range builds {
			if _, err := e.builds.Abort(b.ID); err != nil {
				applog.Error("abort build", zap.String("build_id", b.ID), zap.Error(err))
			}
		}
		return
	}

	applog.Info("evaluation expanded",
		zap.String("evaluation_id", eval.ID), zap.Int("builds", len(builds)))
}

func (e *Engine) failEvaluation(id, reason string) {
	if err := e.evals.SetError(id, reason); err != nil {
		applog.Error("record evaluation error", zap.String("evaluation_id", id), zap.Error(err))
	}
	if _, err := e.evalSM.Transition(id,
		constants.EvaluationStatusEvaluating, constants.EvaluationStatusFailed); err != nil {
		applog.Error("fail evaluation", zap.String("evaluation_id", id), zap.Error(err))
	}
	applog.Warn("evaluation failed", zap.String("evaluation_id", id), zap.String("reason", reason))
}
