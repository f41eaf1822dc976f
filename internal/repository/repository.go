package repository

import (
	"context"
	"database/sql"

	"crashgate/internal/models"
)

type Operators interface {
	Create(ctx context.Context, username, passwordHash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.Operator, error)
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
}

type Exclusions interface {
	Create(ctx context.Context, e models.Exclusion) (models.Exclusion, error)
	Get(ctx context.Context, id string) (*models.Exclusion, error)
	List(ctx context.Context) ([]models.Exclusion, error)
	Update(ctx context.Context, e models.Exclusion) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type Repository struct {
	Operators  Operators
	Exclusions Exclusions
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Operators:  NewOperatorRepository(db),
		Exclusions: NewExclusionSQLite(db),
	}
}
