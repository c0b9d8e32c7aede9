package service

import (
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/wavelens/gradient/internal/core/evaluation"
	"github.com/wavelens/gradient/internal/dto"
	"github.com/wavelens/gradient/internal/model"
	applog "github.com/wavelens/gradient/internal/pkg/logger"
	"github.com/wavelens/gradient/internal/repository"
	"github.com/wavelens/gradient/pkg/responses"
)

// BuildCanceler interrupts a running build's remote command. Implemented
// by the core dispatcher.
type BuildCanceler interface {
	CancelBuild(buildID string)
}

// EvaluationService reads evaluations and handles aborts.
type EvaluationService struct {
	evals    repository.EvaluationRepository
	builds   repository.BuildRepository
	commits  repository.CommitRepository
	evalSM   *evaluation.StateMachine
	canceler BuildCanceler
}

func NewEvaluationService(
	evals repository.EvaluationRepository,
	builds repository.BuildRepository,
	commits repository.CommitRepository,
	canceler BuildCanceler,
) *EvaluationService {
	return &EvaluationService{
		evals:    evals,
		builds:   builds,
		commits:  commits,
		evalSM:   evaluation.NewStateMachine(evals),
		canceler: canceler,
	}
}

// Get returns the evaluation with its commit hash resolved.
func (s *EvaluationService) Get(id string) (*dto.EvaluationInfo, error) {
	eval, err := s.evals.FindByID(id)
	if err != nil {
		return nil, err
	}

	hash := ""
	if commit, err := s.commits.FindByID(eval.CommitID); err == nil {
		hash = commit.Hash
	}

	info := dto.NewEvaluationInfo(eval, hash)
	return &info, nil
}

// ListBuilds returns the evaluation's builds in creation order.
func (s *EvaluationService) ListBuilds(id string) ([]dto.BuildInfo, error) {
	if _, err := s.evals.FindByID(id); err != nil {
		return nil, err
	}
	builds, err := s.builds.ListByEvaluation(id)
	if err != nil {
		return nil, err
	}
	return lo.Map(builds, func(b *model.Build, _ int) dto.BuildInfo {
		return dto.NewBuildInfo(b)
	}), nil
}

// Abort cancels the evaluation and every build that has not finished.
// Aborting an already-terminal evaluation is a conflict.
func (s *EvaluationService) Abort(id string) error {
	if _, err := s.evals.FindByID(id); err != nil {
		return err
	}

	ok, err := s.evalSM.Abort(id)
	if err != nil {
		return err
	}
	if !ok {
		return responses.NewConflict("evaluation already finished")
	}

	builds, err := s.builds.ListNonTerminalByEvaluation(id)
	if err != nil {
		return err
	}
	for _, b := range builds {
		aborted, err := s.builds.Abort(b.ID)
		if err != nil {
			return err
		}
		if aborted && s.canceler != nil {
			s.canceler.CancelBuild(b.ID)
		}
	}

	applog.Info("evaluation aborted",
		zap.String("evaluation_id", id), zap.Int("builds", len(builds)))
	return nil
}
