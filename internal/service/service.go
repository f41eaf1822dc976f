package service

import (
	"context"

	"crashgate/internal/models"
	"crashgate/internal/repository"
)

type Authorization interface {
	EnsureOperator(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Exclusions manages operator exclusion rules.
type Exclusions interface {
	Create(ctx context.Context, in ExclusionInput) (models.Exclusion, error)
	Get(ctx context.Context, id string) (models.Exclusion, error)
	List(ctx context.Context) ([]models.Exclusion, error)
	Update(ctx context.Context, id string, in ExclusionInput) (models.Exclusion, error)
	Delete(ctx context.Context, id string) error
	Load(ctx context.Context) error
}

// Pipeline exposes ingest and the forwarder's state.
type Pipeline interface {
	Ingest(ctx context.Context, ev models.LogEvent) error
	Status() (models.PipelineStatus, error)
	Reset() error
}

// Service aggregates all sub-services.
type Service struct {
	Authorization Authorization
	Exclusions    Exclusions
	Pipeline      Pipeline
}

// Deps are the non-repository collaborators. Forwarder may be nil when telemetry is off.
type Deps struct {
	Auth      AuthConfig
	Forwarder Forwarder
	Sink      ExclusionSink
}

func NewService(repos *repository.Repository, deps Deps) *Service {
	return &Service{
		Authorization: NewAuthService(repos.Operators, deps.Auth),
		Exclusions:    NewExclusionService(repos.Exclusions, deps.Sink),
		Pipeline:      NewPipelineService(deps.Forwarder),
	}
}
