package repository

import (
	"context"
	"errors"

	"github.com/insport-app/auth-service/internal/models"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("user with this email or phone number already exists")
)

// UserRepository is the durable side of the signup flow. CreateWithProfile is
// the only write the state machine performs and it must be atomic: either both
// documents commit or neither does.
type UserRepository interface {
	CreateWithProfile(ctx context.Context, u *models.User, p *models.UserProfile) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
}
