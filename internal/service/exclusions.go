package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"crashgate/internal/models"
	"crashgate/internal/repository"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Validation and lookup errors for exclusions.
var (
	ErrInvalidKind        = errors.New("kind must be one of exception_type, message, logger")
	ErrEmptyPattern       = errors.New("pattern is empty")
	ErrExclusionNotFound  = errors.New("exclusion not found")
	ErrDuplicateExclusion = errors.New("an exclusion with this kind and pattern already exists")

	// ErrNotApplied accompanies a successful write whose classifier refresh failed.
	// The change is stored and takes effect on the next successful refresh.
	ErrNotApplied = errors.New("exclusion stored but not applied")
)

// ExclusionInput is the operator-editable part of an exclusion.
type ExclusionInput struct {
	Kind    string `json:"kind" binding:"required"`
	Pattern string `json:"pattern" binding:"required"`
	Comment string `json:"comment"`
}

// ExclusionSink receives the full exclusion set after every change.
type ExclusionSink interface {
	SetExclusions(list []models.Exclusion)
}

// ExclusionService manages exclusions and keeps the classifier in sync with storage.
type ExclusionService struct {
	repo repository.Exclusions
	sink ExclusionSink
}

func NewExclusionService(repo repository.Exclusions, sink ExclusionSink) *ExclusionService {
	return &ExclusionService{repo: repo, sink: sink}
}

func (in ExclusionInput) normalize() (ExclusionInput, error) {
	in.Kind = strings.ToLower(strings.TrimSpace(in.Kind))
	in.Pattern = strings.TrimSpace(in.Pattern)
	in.Comment = strings.TrimSpace(in.Comment)

	switch in.Kind {
	case models.ExclusionExceptionType, models.ExclusionMessage, models.ExclusionLogger:
	default:
		return in, ErrInvalidKind
	}
	if in.Pattern == "" {
		return in, ErrEmptyPattern
	}
	return in, nil
}

func (s *ExclusionService) Create(ctx context.Context, in ExclusionInput) (models.Exclusion, error) {
	in, err := in.normalize()
	if err != nil {
		return models.Exclusion{}, err
	}
	created, err := s.repo.Create(ctx, models.Exclusion{Kind: in.Kind, Pattern: in.Pattern, Comment: in.Comment})
	if err != nil {
		return models.Exclusion{}, mapConstraint(err)
	}
	return created, s.refresh(ctx)
}

func (s *ExclusionService) Get(ctx context.Context, id string) (models.Exclusion, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return models.Exclusion{}, err
	}
	if e == nil {
		return models.Exclusion{}, ErrExclusionNotFound
	}
	return *e, nil
}

func (s *ExclusionService) List(ctx context.Context) ([]models.Exclusion, error) {
	return s.repo.List(ctx)
}

func (s *ExclusionService) Update(ctx context.Context, id string, in ExclusionInput) (models.Exclusion, error) {
	in, err := in.normalize()
	if err != nil {
		return models.Exclusion{}, err
	}
	found, err := s.repo.Update(ctx, models.Exclusion{ID: id, Kind: in.Kind, Pattern: in.Pattern, Comment: in.Comment})
	if err != nil {
		return models.Exclusion{}, mapConstraint(err)
	}
	if !found {
		return models.Exclusion{}, ErrExclusionNotFound
	}
	updated, err := s.Get(ctx, id)
	if err != nil {
		return models.Exclusion{}, err
	}
	return updated, s.refresh(ctx)
}

func (s *ExclusionService) Delete(ctx context.Context, id string) error {
	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return ErrExclusionNotFound
	}
	return s.refresh(ctx)
}

// refresh reloads the sink after a stored change. A failure is reported as
// ErrNotApplied so callers can tell it apart from a failed write.
func (s *ExclusionService) refresh(ctx context.Context) error {
	if err := s.Load(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrNotApplied, err)
	}
	return nil
}

// Load pushes the stored exclusions to the sink. Called at startup and after every change.
func (s *ExclusionService) Load(ctx context.Context) error {
	if s.sink == nil {
		return nil
	}
	list, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("refresh exclusions: %w", err)
	}
	s.sink.SetExclusions(list)
	return nil
}

// mapConstraint turns a unique-index violation into ErrDuplicateExclusion.
func mapConstraint(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return fmt.Errorf("%w: %v", ErrDuplicateExclusion, err)
	}
	return err
}
