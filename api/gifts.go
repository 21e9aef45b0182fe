package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	internalS3 "giftbox/adapters/s3"
	"giftbox/models"
)

// GiftDetail is the owner-facing projection of a single gift, message
// included.
type GiftDetail struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	ImageURL    string    `json:"imageUrl"`
	BlurDataURL *string   `json:"blurDataUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toGiftDetail(gift *models.Gift) GiftDetail {
	return GiftDetail{
		ID:          gift.ID,
		Title:       gift.Title,
		Message:     gift.Message,
		ImageURL:    gift.ImageURL,
		BlurDataURL: gift.BlurDataURL,
		CreatedAt:   gift.CreatedAt,
		UpdatedAt:   gift.UpdatedAt,
	}
}

// PostGift accepts a multipart submission and runs it through the
// creation pipeline.
func (impl *ServerImpl) PostGift(c *gin.Context) {
	principal, ok := CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authenticated"})
		return
	}
	image, err := impl.readImageForm(c)
	if err != nil {
		respondError(c, err)
		return
	}
	gift, err := impl.createGift(c.Request.Context(), principal, c.PostForm("title"), c.PostForm("message"), image)
	if err != nil {
		respondError(c, err)
		return
	}
	impl.invalidateGiftCache(c.Request.Context())
	c.JSON(http.StatusCreated, gin.H{
		"message": "Gift created successfully",
		"gift":    toGiftDetail(gift),
	})
}

// GetGifts returns the whole feed, redacted for the caller.
func (impl *ServerImpl) GetGifts(c *gin.Context) {
	principal, ok := CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authenticated"})
		return
	}
	gifts, err := impl.listGifts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"gifts": FilterGiftsForViewer(gifts, principal.ID, principal.IsAdmin),
	})
}

// GetGift returns one gift to its owner.
func (impl *ServerImpl) GetGift(c *gin.Context) {
	principal, ok := CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authenticated"})
		return
	}
	giftID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Gift not found"})
		return
	}
	gift, gerr := impl.findOwnedGift(c.Request.Context(), principal, giftID)
	if gerr != nil {
		respondError(c, gerr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gift": toGiftDetail(gift)})
}

// PutGift updates an owned gift; the image part is optional.
func (impl *ServerImpl) PutGift(c *gin.Context) {
	principal, ok := CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authenticated"})
		return
	}
	giftID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Gift not found"})
		return
	}
	image, ierr := impl.readImageForm(c)
	if ierr != nil {
		respondError(c, ierr)
		return
	}
	gift, uerr := impl.updateGift(c.Request.Context(), principal, giftID, c.PostForm("title"), c.PostForm("message"), image)
	if uerr != nil {
		respondError(c, uerr)
		return
	}
	impl.invalidateGiftCache(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"message": "Gift updated successfully",
		"gift":    toGiftDetail(gift),
	})
}

// DeleteGift removes an owned gift.
func (impl *ServerImpl) DeleteGift(c *gin.Context) {
	principal, ok := CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authenticated"})
		return
	}
	giftID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Gift not found"})
		return
	}
	if derr := impl.deleteGift(c.Request.Context(), principal, giftID); derr != nil {
		respondError(c, derr)
		return
	}
	impl.invalidateGiftCache(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"message": "Gift deleted successfully"})
}

// readImageForm pulls the image part out of the multipart form,
// enforcing the configured size bound while reading. A missing part is
// not an error here, each pipeline decides whether it is required.
func (impl *ServerImpl) readImageForm(c *gin.Context) (*UploadedImage, error) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, E(KindValidationFailed, "Invalid multipart form")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, Wrap(KindValidationFailed, "Fail to open uploaded image", err)
	}
	defer file.Close()

	content, err := io.ReadAll(internalS3.NewMaxSizeReader(file, impl.config.Upload.MaxImageBytes))
	if err != nil {
		if errors.As(err, &internalS3.ErrReachLimitType) {
			return nil, E(KindValidationFailed, fmt.Sprintf("Image exceeds the %s limit", internalS3.FormatBytes(impl.config.Upload.MaxImageBytes)))
		}
		return nil, Wrap(KindValidationFailed, "Fail to read uploaded image", err)
	}
	return &UploadedImage{Name: fileHeader.Filename, Content: content}, nil
}
