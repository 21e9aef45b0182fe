// Package repositories is the persistence boundary. Handlers and the
// submission pipeline depend on the interfaces here, never on gorm
// directly, so stores can be swapped for fakes in tests.
package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"giftbox/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// translate maps gorm errors onto the package sentinels. Relies on
// gorm's TranslateError being enabled on the connection.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

// GiftStore covers the Gift lifecycle the API needs.
type GiftStore interface {
	Create(ctx context.Context, gift *models.Gift) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Gift, error)
	ListAll(ctx context.Context) ([]models.Gift, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Gift, error)
	Update(ctx context.Context, gift *models.Gift) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type giftStore struct {
	db *gorm.DB
}

func NewGiftStore(db *gorm.DB) GiftStore {
	return &giftStore{db: db}
}

func (s *giftStore) Create(ctx context.Context, gift *models.Gift) error {
	return translate(s.db.WithContext(ctx).Create(gift).Error)
}

func (s *giftStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Gift, error) {
	var gift models.Gift
	result := s.db.WithContext(ctx).Preload("User").Where("id = ?", id).First(&gift)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	return &gift, nil
}

func (s *giftStore) ListAll(ctx context.Context) ([]models.Gift, error) {
	var gifts []models.Gift
	result := s.db.WithContext(ctx).
		Preload("User").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true}).
		Find(&gifts)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	return gifts, nil
}

func (s *giftStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Gift, error) {
	var gifts []models.Gift
	result := s.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", ownerID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true}).
		Find(&gifts)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	return gifts, nil
}

func (s *giftStore) Update(ctx context.Context, gift *models.Gift) error {
	return translate(s.db.WithContext(ctx).Save(gift).Error)
}

func (s *giftStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Gift{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
