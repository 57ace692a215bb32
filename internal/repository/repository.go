package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/meanin2/ac-automation/internal/models"
)

// UserRepo stores operator accounts for the control API.
type UserRepo interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

// EventRepo is the append-only control journal.
type EventRepo interface {
	Append(ctx context.Context, e models.ControlEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.ControlEvent, error)
}

// Repository aggregates all storage backends.
type Repository struct {
	Events EventRepo
	Users  UserRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Events: NewEventSQLite(db),
		Users:  NewUserRepository(db),
	}
}
