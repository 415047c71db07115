package users

import (
	"context"

	"github.com/dmitrijs2005/moments/internal/remote/models"
)

type Repository interface {
	Create(ctx context.Context, email string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
