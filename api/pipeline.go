package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	internalS3 "giftbox/adapters/s3"
	"giftbox/models"
	"giftbox/repositories"
)

const (
	minTitleChars   = 3
	maxMessageChars = 500

	giftListCacheKey = "feed"
)

// UploadedImage is a multipart image already read within the size
// bound.
type UploadedImage struct {
	Name    string
	Content []byte
}

// createGift runs the submission pipeline: validate, upload, derive the
// blur preview (best-effort), persist. A failed persist triggers the
// compensating delete of the just-uploaded object so no blob outlives a
// commit that never happened.
func (impl *ServerImpl) createGift(ctx context.Context, principal Principal, title, message string, image *UploadedImage) (*models.Gift, error) {
	const op = "createGift"
	title, message, verr := impl.validateGiftFields(title, message, image == nil)
	if verr != nil {
		return nil, verr
	}

	mimeType := http.DetectContentType(image.Content)
	secure, ext := internalS3.CheckSecureImageAndGetExtension(mimeType)
	if !secure {
		return nil, E(KindValidationFailed, fmt.Sprintf("Invalid image type: %s", mimeType))
	}

	url, err := impl.objectStore.Upload(ctx, objectName(image.Name, ext), mimeType, image.Content)
	if err != nil {
		return nil, Wrap(KindStorageFailure, "Fail to store image", err)
	}

	gift := &models.Gift{
		UserID:      principal.ID,
		Title:       title,
		Message:     message,
		ImageURL:    url,
		BlurDataURL: impl.generateBlur(ctx, url),
	}
	if err := impl.gifts.Create(ctx, gift); err != nil {
		// compensating action: the object must not outlive the failed
		// commit; its own failure is logged, never surfaced
		if delErr := impl.objectStore.Delete(ctx, url); delErr != nil {
			slog.Error("Fail to clean up uploaded object", slog.String("op", op), slog.String("url", url), slog.Any("error", delErr))
		}
		return nil, Wrap(KindPersistenceFailure, "Fail to save gift", err)
	}
	return gift, nil
}

// updateGift replaces title/message and, when a new image is supplied,
// the stored object and its preview. Without a new image the previous
// imageUrl/blurDataUrl are kept untouched.
func (impl *ServerImpl) updateGift(ctx context.Context, principal Principal, giftID uuid.UUID, title, message string, image *UploadedImage) (*models.Gift, error) {
	existing, err := impl.findOwnedGift(ctx, principal, giftID)
	if err != nil {
		return nil, err
	}

	title, message, verr := impl.validateGiftFields(title, message, false)
	if verr != nil {
		return nil, verr
	}

	if image != nil {
		mimeType := http.DetectContentType(image.Content)
		secure, ext := internalS3.CheckSecureImageAndGetExtension(mimeType)
		if !secure {
			return nil, E(KindValidationFailed, fmt.Sprintf("Invalid image type: %s", mimeType))
		}
		// upload failure aborts the whole update, the row stays as is
		url, err := impl.objectStore.Upload(ctx, objectName(image.Name, ext), mimeType, image.Content)
		if err != nil {
			return nil, Wrap(KindStorageFailure, "Fail to store image", err)
		}
		existing.ImageURL = url
		existing.BlurDataURL = impl.generateBlur(ctx, url)
	}

	existing.Title = title
	existing.Message = message
	if err := impl.gifts.Update(ctx, existing); err != nil {
		return nil, Wrap(KindPersistenceFailure, "Fail to save gift", err)
	}
	return existing, nil
}

// deleteGift removes the row, then reaps the stored image best-effort.
func (impl *ServerImpl) deleteGift(ctx context.Context, principal Principal, giftID uuid.UUID) error {
	const op = "deleteGift"
	existing, err := impl.findOwnedGift(ctx, principal, giftID)
	if err != nil {
		return err
	}
	if err := impl.gifts.Delete(ctx, giftID); err != nil {
		if err == repositories.ErrNotFound {
			return E(KindNotFound, "Gift not found")
		}
		return Wrap(KindPersistenceFailure, "Fail to delete gift", err)
	}
	if delErr := impl.objectStore.Delete(ctx, existing.ImageURL); delErr != nil {
		slog.Warn("Fail to reap image of deleted gift", slog.String("op", op), slog.String("url", existing.ImageURL), slog.Any("error", delErr))
	}
	return nil
}

// findOwnedGift fetches a gift and enforces ownership. Non-owners get
// 403, not 404, so an existing id is not mistaken for a missing one.
func (impl *ServerImpl) findOwnedGift(ctx context.Context, principal Principal, giftID uuid.UUID) (*models.Gift, error) {
	existing, err := impl.gifts.FindByID(ctx, giftID)
	if err != nil {
		if err == repositories.ErrNotFound {
			return nil, E(KindNotFound, "Gift not found")
		}
		return nil, Wrap(KindPersistenceFailure, "Fail to load gift", err)
	}
	if existing.UserID != principal.ID {
		return nil, E(KindForbidden, "You can only manage your own gifts")
	}
	return existing, nil
}

// listGifts reads the feed through the cache. Cache trouble degrades to
// a direct database read.
func (impl *ServerImpl) listGifts(ctx context.Context) ([]models.Gift, error) {
	const op = "listGifts"
	cached, ok, err := impl.giftCache.Get(ctx, giftListCacheKey)
	if err != nil {
		slog.Warn("Fail to read gift list cache", slog.String("op", op), slog.Any("error", err))
	}
	if ok {
		return cached, nil
	}
	gifts, err := impl.gifts.ListAll(ctx)
	if err != nil {
		return nil, Wrap(KindPersistenceFailure, "Fail to list gifts", err)
	}
	if err := impl.giftCache.Set(ctx, giftListCacheKey, gifts, impl.config.Cache.GiftListTTL); err != nil {
		slog.Warn("Fail to fill gift list cache", slog.String("op", op), slog.Any("error", err))
	}
	return gifts, nil
}

func (impl *ServerImpl) invalidateGiftCache(ctx context.Context) {
	const op = "invalidateGiftCache"
	if err := impl.giftCache.Invalidate(ctx, giftListCacheKey); err != nil {
		slog.Warn("Fail to invalidate gift list cache", slog.String("op", op), slog.Any("error", err))
	}
}

// generateBlur wraps the blur collaborator so its failure is
// structurally unable to abort the pipeline: the only failure signal is
// a nil preview plus a warn log.
func (impl *ServerImpl) generateBlur(ctx context.Context, imageURL string) *string {
	const op = "generateBlur"
	preview, err := impl.blur.Generate(ctx, imageURL)
	if err != nil {
		slog.Warn("Fail to generate blur placeholder", slog.String("op", op), slog.String("url", imageURL), slog.Any("error", err))
		return nil
	}
	return &preview
}

// validateGiftFields checks the submission policy and returns the
// trimmed, sanitized field values.
func (impl *ServerImpl) validateGiftFields(title, message string, missingImage bool) (string, string, *Error) {
	title = strings.TrimSpace(title)
	message = strings.TrimSpace(message)

	var missing []string
	if title == "" {
		missing = append(missing, "title")
	}
	if message == "" {
		missing = append(missing, "message")
	}
	if missingImage {
		missing = append(missing, "image")
	}
	if len(missing) > 0 {
		return "", "", E(KindValidationFailed, fmt.Sprintf("Missing required fields: %s", strings.Join(missing, ", ")))
	}
	if utf8.RuneCountInString(title) < minTitleChars {
		return "", "", E(KindValidationFailed, fmt.Sprintf("Title must be at least %d characters", minTitleChars))
	}
	if utf8.RuneCountInString(message) > maxMessageChars {
		return "", "", E(KindValidationFailed, fmt.Sprintf("Message must be %d characters or less", maxMessageChars))
	}
	return impl.htmlChecker.Sanitize(title), impl.htmlChecker.Sanitize(message), nil
}

// objectName derives a collision-free object key from the original
// filename.
func objectName(original, ext string) string {
	base := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, filepath.Base(original))
	if base == "" || base == "." || base == ".." {
		return uuid.NewString() + "." + ext
	}
	return uuid.NewString() + "-" + base
}
