package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wavelens/gradient/internal/adapter/vcs"
	"github.com/wavelens/gradient/internal/dto"
	"github.com/wavelens/gradient/internal/model"
	applog "github.com/wavelens/gradient/internal/pkg/logger"
	"github.com/wavelens/gradient/internal/repository"
	"github.com/wavelens/gradient/pkg/constants"
	"github.com/wavelens/gradient/pkg/responses"
	"github.com/wavelens/gradient/pkg/utils"
)

// ProjectService manages projects and starts evaluations.
type ProjectService struct {
	projects repository.ProjectRepository
	orgs     repository.OrganizationRepository
	evals    repository.EvaluationRepository
	commits  repository.CommitRepository
	fetcher  vcs.Fetcher
}

func NewProjectService(
	projects repository.ProjectRepository,
	orgs repository.OrganizationRepository,
	evals repository.EvaluationRepository,
	commits repository.CommitRepository,
	fetcher vcs.Fetcher,
) *ProjectService {
	return &ProjectService{
		projects: projects,
		orgs:     orgs,
		evals:    evals,
		commits:  commits,
		fetcher:  fetcher,
	}
}

// Create creates a project inside the organization.
func (s *ProjectService) Create(userID, orgName string, req *dto.CreateProjectRequest) (*model.Project, error) {
	org, err := s.orgs.FindByName(orgName)
	if err != nil {
		return nil, err
	}
	if err := utils.CheckSlug(req.Name); err != nil {
		return nil, err
	}

	if _, err := s.projects.FindByName(org.ID, req.Name); err == nil {
		return nil, responses.NewConflict("project name already taken")
	} else if !responses.IsNotFound(err) {
		return nil, err
	}

	project := &model.Project{
		ID:                 uuid.NewString(),
		OrganizationID:     org.ID,
		Name:               req.Name,
		DisplayName:        req.DisplayName,
		Description:        req.Description,
		Repository:         req.Repository,
		EvaluationWildcard: req.EvaluationWildcard,
		CreatedBy:          userID,
	}
	if err := s.projects.Create(project); err != nil {
		return nil, err
	}

	applog.Info("project created",
		zap.String("organization", orgName), zap.String("name", project.Name))
	return project, nil
}

// Get resolves a project by organization and name.
func (s *ProjectService) Get(orgName, name string) (*model.Project, error) {
	org, err := s.orgs.FindByName(orgName)
	if err != nil {
		return nil, err
	}
	return s.projects.FindByName(org.ID, name)
}

// List returns the organization's projects.
func (s *ProjectService) List(orgName string) ([]*model.Project, error) {
	org, err := s.orgs.FindByName(orgName)
	if err != nil {
		return nil, err
	}
	return s.projects.ListByOrganization(org.ID)
}

// Update patches mutable fields.
func (s *ProjectService) Update(orgName, name string, req *dto.UpdateProjectRequest) (*model.Project, error) {
	project, err := s.Get(orgName, name)
	if err != nil {
		return nil, err
	}
	if req.DisplayName != nil {
		project.DisplayName = *req.DisplayName
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.Repository != nil {
		project.Repository = *req.Repository
	}
	if req.EvaluationWildcard != nil {
		project.EvaluationWildcard = *req.EvaluationWildcard
	}
	if err := s.projects.Update(project); err != nil {
		return nil, err
	}
	return project, nil
}

// Delete removes the project and its evaluation history.
func (s *ProjectService) Delete(orgName, name string) error {
	project, err := s.Get(orgName, name)
	if err != nil {
		return err
	}
	if err := s.projects.Delete(project.ID); err != nil {
		return err
	}
	applog.Info("project deleted",
		zap.String("organization", orgName), zap.String("name", name))
	return nil
}

// Evaluate resolves the repository head and queues a new evaluation. A
// project can have at most one evaluation in flight.
func (s *ProjectService) Evaluate(ctx context.Context, orgName, name string) (*model.Evaluation, error) {
	project, err := s.Get(orgName, name)
	if err != nil {
		return nil, err
	}

	if _, err := s.evals.FindActiveByProject(project.ID); err == nil {
		return nil, responses.NewConflict("project already has an evaluation in flight")
	} else if !responses.IsNotFound(err) {
		return nil, err
	}

	head, err := s.fetcher.FetchHead(ctx, project.Repository)
	if err != nil {
		return nil, err
	}

	commit, err := s.commits.GetOrCreate(&model.Commit{
		ID:      uuid.NewString(),
		Hash:    head.Hash,
		Author:  head.Author,
		Message: head.Message,
	})
	if err != nil {
		return nil, err
	}

	eval := &model.Evaluation{
		ID:        uuid.NewString(),
		ProjectID: project.ID,
		CommitID:  commit.ID,
		Wildcard:  project.EvaluationWildcard,
		Status:    constants.EvaluationStatusQueued,
	}
	// The insert re-checks the single-active invariant atomically; the
	// lookup above only short-circuits the common case before fetching.
	created, err := s.evals.CreateIfNoActive(eval)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, responses.NewConflict("project already has an evaluation in flight")
	}
	if err := s.projects.SetLastEvaluation(project.ID, eval.ID); err != nil {
		return nil, err
	}

	applog.Info("evaluation queued",
		zap.String("project", project.Name),
		zap.String("evaluation_id", eval.ID),
		zap.String("commit", head.Hash))
	return eval, nil
}
