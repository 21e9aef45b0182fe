package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"giftbox/models"
)

// GiftOwner is the public projection of a gift's author.
type GiftOwner struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// GiftFeedEntry is one feed row as seen by a specific viewer. Message
// is nil whenever the viewer is not entitled to read it.
type GiftFeedEntry struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Message     *string   `json:"message"`
	ImageURL    string    `json:"imageUrl"`
	BlurDataURL *string   `json:"blurDataUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	User        GiftOwner `json:"user"`
}

// FilterGiftsForViewer redacts private messages per viewer: admins read
// everything, everyone else reads only their own. Row order is
// preserved.
func FilterGiftsForViewer(gifts []models.Gift, viewerID uuid.UUID, isAdmin bool) []GiftFeedEntry {
	return lo.Map(gifts, func(gift models.Gift, _ int) GiftFeedEntry {
		var message *string
		if isAdmin || gift.UserID == viewerID {
			message = lo.ToPtr(gift.Message)
		}
		return GiftFeedEntry{
			ID:          gift.ID,
			Title:       gift.Title,
			Message:     message,
			ImageURL:    gift.ImageURL,
			BlurDataURL: gift.BlurDataURL,
			CreatedAt:   gift.CreatedAt,
			User: GiftOwner{
				ID:    gift.User.ID,
				Name:  gift.User.Name,
				Email: gift.User.Email,
			},
		}
	})
}
