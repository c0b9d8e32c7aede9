package service

import (
	"github.com/wavelens/gradient/internal/dto"
	"github.com/wavelens/gradient/internal/repository"
)

// BuildService reads builds and their logs.
type BuildService struct {
	builds repository.BuildRepository
}

func NewBuildService(builds repository.BuildRepository) *BuildService {
	return &BuildService{builds: builds}
}

// Get returns the build's external view including its log. Listings skip
// the log; the detail view carries it.
func (s *BuildService) Get(id string) (*dto.BuildInfo, error) {
	build, err := s.builds.FindByID(id)
	if err != nil {
		return nil, err
	}
	info := dto.NewBuildInfo(build)
	info.Log = build.Log
	return &info, nil
}

// GetLog returns the build log accumulated so far. Readable while the
// build is still running.
func (s *BuildService) GetLog(id string) (string, error) {
	build, err := s.builds.FindByID(id)
	if err != nil {
		return "", err
	}
	return build.Log, nil
}
