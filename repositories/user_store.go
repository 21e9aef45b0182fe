package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"giftbox/models"
)

// UserStore covers account lookup and provisioning.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// MarkAdminByEmail flags an existing account as admin. Returns the
	// number of rows touched so callers can log a missing account.
	MarkAdminByEmail(ctx context.Context, email string) (int64, error)
}

type userStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) UserStore {
	return &userStore{db: db}
}

func (s *userStore) Create(ctx context.Context, user *models.User) error {
	return translate(s.db.WithContext(ctx).Create(user).Error)
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	result := s.db.WithContext(ctx).Where("email = ?", email).First(&user)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	return &user, nil
}

func (s *userStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	result := s.db.WithContext(ctx).Where("id = ?", id).First(&user)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	return &user, nil
}

func (s *userStore) MarkAdminByEmail(ctx context.Context, email string) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Update("is_admin", true)
	if result.Error != nil {
		return 0, translate(result.Error)
	}
	return result.RowsAffected, nil
}
