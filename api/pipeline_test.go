package api

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giftbox/models"
	"giftbox/repositories"
)

// pngBytes carries the PNG signature so DetectContentType sniffs it as
// image/png.
var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}

type fakeObjectStore struct {
	uploadedURLs []string
	uploadErr    error
	deletedURLs  []string
	deleteErr    error
}

func (f *fakeObjectStore) Upload(ctx context.Context, path, contentType string, fileContent []byte) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	url := "https://img.example.com/" + path
	f.uploadedURLs = append(f.uploadedURLs, url)
	return url, nil
}

func (f *fakeObjectStore) Delete(ctx context.Context, publicURL string) error {
	f.deletedURLs = append(f.deletedURLs, publicURL)
	return f.deleteErr
}

type fakeBlur struct {
	result string
	err    error
}

func (f *fakeBlur) Generate(ctx context.Context, imageURL string) (string, error) {
	return f.result, f.err
}

type fakeGiftStore struct {
	byID      map[uuid.UUID]*models.Gift
	all       []models.Gift
	created   []*models.Gift
	updated   []*models.Gift
	deleted   []uuid.UUID
	createErr error
	updateErr error
	listCalls int
}

func newFakeGiftStore() *fakeGiftStore {
	return &fakeGiftStore{byID: map[uuid.UUID]*models.Gift{}}
}

func (f *fakeGiftStore) Create(ctx context.Context, gift *models.Gift) error {
	if f.createErr != nil {
		return f.createErr
	}
	gift.ID = uuid.New()
	f.created = append(f.created, gift)
	f.byID[gift.ID] = gift
	return nil
}

func (f *fakeGiftStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Gift, error) {
	gift, ok := f.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := *gift
	return &clone, nil
}

func (f *fakeGiftStore) ListAll(ctx context.Context) ([]models.Gift, error) {
	f.listCalls++
	return f.all, nil
}

func (f *fakeGiftStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Gift, error) {
	var out []models.Gift
	for _, gift := range f.all {
		if gift.UserID == ownerID {
			out = append(out, gift)
		}
	}
	return out, nil
}

func (f *fakeGiftStore) Update(ctx context.Context, gift *models.Gift) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, gift)
	f.byID[gift.ID] = gift
	return nil
}

func (f *fakeGiftStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.byID[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeGiftCache struct {
	value       []models.Gift
	hasValue    bool
	getErr      error
	sets        int
	invalidates int
}

func (f *fakeGiftCache) Get(ctx context.Context, key string) ([]models.Gift, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	return f.value, f.hasValue, nil
}

func (f *fakeGiftCache) Set(ctx context.Context, key string, value []models.Gift, ttl time.Duration) error {
	f.value = value
	f.hasValue = true
	f.sets++
	return nil
}

func (f *fakeGiftCache) Invalidate(ctx context.Context, key string) error {
	f.value = nil
	f.hasValue = false
	f.invalidates++
	return nil
}

func newTestServer(gifts *fakeGiftStore, store *fakeObjectStore, blurGen *fakeBlur, giftCache *fakeGiftCache) *ServerImpl {
	if giftCache == nil {
		giftCache = &fakeGiftCache{}
	}
	return &ServerImpl{
		gifts:       gifts,
		objectStore: store,
		blur:        blurGen,
		giftCache:   giftCache,
		htmlChecker: bluemonday.StrictPolicy(),
		config: ServerConfig{
			Upload: UploadConfig{MaxImageBytes: 10 << 20},
			Cache:  CacheConfig{GiftListTTL: 30 * time.Second},
		},
	}
}

func testPrincipal() Principal {
	return Principal{ID: uuid.New(), Email: "alice@example.com", Name: "Alice"}
}

func TestCreateGift_TitleLength(t *testing.T) {
	testCases := []struct {
		name    string
		title   string
		wantErr bool
	}{
		{"two chars rejected", "Hi", true},
		{"three chars accepted", "Hi!", false},
		{"padded short title rejected", "  Hi  ", true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			impl := newTestServer(newFakeGiftStore(), &fakeObjectStore{}, &fakeBlur{result: "data:image/jpeg;base64,xxxx"}, nil)
			_, err := impl.createGift(context.Background(), testPrincipal(), tc.title, "for you", &UploadedImage{Name: "a.png", Content: pngBytes})
			if tc.wantErr {
				require.Error(t, err)
				assert.Equal(t, KindValidationFailed, KindOf(err))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestCreateGift_MessageLength(t *testing.T) {
	impl := newTestServer(newFakeGiftStore(), &fakeObjectStore{}, &fakeBlur{result: "blur"}, nil)

	_, err := impl.createGift(context.Background(), testPrincipal(), "A gift", strings.Repeat("x", 500), &UploadedImage{Name: "a.png", Content: pngBytes})
	require.NoError(t, err)

	_, err = impl.createGift(context.Background(), testPrincipal(), "A gift", strings.Repeat("x", 501), &UploadedImage{Name: "a.png", Content: pngBytes})
	require.Error(t, err)
	assert.Equal(t, KindValidationFailed, KindOf(err))
}

func TestCreateGift_MissingFields(t *testing.T) {
	impl := newTestServer(newFakeGiftStore(), &fakeObjectStore{}, &fakeBlur{}, nil)
	_, err := impl.createGift(context.Background(), testPrincipal(), "  ", "", nil)
	require.Error(t, err)
	assert.Equal(t, KindValidationFailed, KindOf(err))
	assert.Contains(t, err.Error(), "title")
	assert.Contains(t, err.Error(), "message")
	assert.Contains(t, err.Error(), "image")
}

func TestCreateGift_RejectsNonImageContent(t *testing.T) {
	store := &fakeObjectStore{}
	impl := newTestServer(newFakeGiftStore(), store, &fakeBlur{}, nil)
	_, err := impl.createGift(context.Background(), testPrincipal(), "A gift", "for you", &UploadedImage{Name: "a.txt", Content: []byte("plain text, not an image")})
	require.Error(t, err)
	assert.Equal(t, KindValidationFailed, KindOf(err))
	assert.Empty(t, store.uploadedURLs, "nothing may be uploaded for a rejected submission")
}

func TestCreateGift_FailedInsertCleansUpObject(t *testing.T) {
	gifts := newFakeGiftStore()
	gifts.createErr = errors.New("connection reset")
	store := &fakeObjectStore{}
	impl := newTestServer(gifts, store, &fakeBlur{result: "blur"}, nil)

	_, err := impl.createGift(context.Background(), testPrincipal(), "A gift", "for you", &UploadedImage{Name: "a.png", Content: pngBytes})
	require.Error(t, err)
	assert.Equal(t, KindPersistenceFailure, KindOf(err))
	require.Len(t, store.uploadedURLs, 1)
	require.Len(t, store.deletedURLs, 1, "exactly one compensating delete")
	assert.Equal(t, store.uploadedURLs[0], store.deletedURLs[0])
}

func TestCreateGift_BlurFailureIsNonFatal(t *testing.T) {
	gifts := newFakeGiftStore()
	impl := newTestServer(gifts, &fakeObjectStore{}, &fakeBlur{err: errors.New("decode failure")}, nil)

	gift, err := impl.createGift(context.Background(), testPrincipal(), "A gift", "for you", &UploadedImage{Name: "a.png", Content: pngBytes})
	require.NoError(t, err)
	assert.Nil(t, gift.BlurDataURL)
	require.Len(t, gifts.created, 1)
}

func TestCreateGift_UploadFailure(t *testing.T) {
	gifts := newFakeGiftStore()
	store := &fakeObjectStore{uploadErr: errors.New("bucket unavailable")}
	impl := newTestServer(gifts, store, &fakeBlur{}, nil)

	_, err := impl.createGift(context.Background(), testPrincipal(), "A gift", "for you", &UploadedImage{Name: "a.png", Content: pngBytes})
	require.Error(t, err)
	assert.Equal(t, KindStorageFailure, KindOf(err))
	assert.Empty(t, gifts.created)
}

func TestUpdateGift_WithoutImageKeepsStoredImage(t *testing.T) {
	principal := testPrincipal()
	gifts := newFakeGiftStore()
	blurValue := "data:image/jpeg;base64,old"
	existing := &models.Gift{
		ID:          uuid.New(),
		UserID:      principal.ID,
		Title:       "Old title",
		Message:     "old message",
		ImageURL:    "https://img.example.com/old.png",
		BlurDataURL: &blurValue,
	}
	gifts.byID[existing.ID] = existing
	store := &fakeObjectStore{}
	impl := newTestServer(gifts, store, &fakeBlur{result: "new blur"}, nil)

	updated, err := impl.updateGift(context.Background(), principal, existing.ID, "New title", "new message", nil)
	require.NoError(t, err)
	assert.Equal(t, "New title", updated.Title)
	assert.Equal(t, "https://img.example.com/old.png", updated.ImageURL)
	require.NotNil(t, updated.BlurDataURL)
	assert.Equal(t, blurValue, *updated.BlurDataURL)
	assert.Empty(t, store.uploadedURLs)
}

func TestUpdateGift_WithImageReplacesStoredImage(t *testing.T) {
	principal := testPrincipal()
	gifts := newFakeGiftStore()
	existing := &models.Gift{
		ID:       uuid.New(),
		UserID:   principal.ID,
		Title:    "Old title",
		Message:  "old message",
		ImageURL: "https://img.example.com/old.png",
	}
	gifts.byID[existing.ID] = existing
	store := &fakeObjectStore{}
	impl := newTestServer(gifts, store, &fakeBlur{result: "new blur"}, nil)

	updated, err := impl.updateGift(context.Background(), principal, existing.ID, "New title", "new message", &UploadedImage{Name: "b.png", Content: pngBytes})
	require.NoError(t, err)
	require.Len(t, store.uploadedURLs, 1)
	assert.Equal(t, store.uploadedURLs[0], updated.ImageURL)
	require.NotNil(t, updated.BlurDataURL)
	assert.Equal(t, "new blur", *updated.BlurDataURL)
}

func TestUpdateGift_UploadFailureLeavesRowUntouched(t *testing.T) {
	principal := testPrincipal()
	gifts := newFakeGiftStore()
	existing := &models.Gift{
		ID:       uuid.New(),
		UserID:   principal.ID,
		Title:    "Old title",
		Message:  "old message",
		ImageURL: "https://img.example.com/old.png",
	}
	gifts.byID[existing.ID] = existing
	impl := newTestServer(gifts, &fakeObjectStore{uploadErr: errors.New("bucket unavailable")}, &fakeBlur{}, nil)

	_, err := impl.updateGift(context.Background(), principal, existing.ID, "New title", "new message", &UploadedImage{Name: "b.png", Content: pngBytes})
	require.Error(t, err)
	assert.Equal(t, KindStorageFailure, KindOf(err))
	assert.Empty(t, gifts.updated)
	assert.Equal(t, "Old title", gifts.byID[existing.ID].Title)
}

func TestFindOwnedGift_NonOwnerGetsForbidden(t *testing.T) {
	owner := testPrincipal()
	stranger := testPrincipal()
	gifts := newFakeGiftStore()
	existing := &models.Gift{ID: uuid.New(), UserID: owner.ID}
	gifts.byID[existing.ID] = existing
	impl := newTestServer(gifts, &fakeObjectStore{}, &fakeBlur{}, nil)

	_, err := impl.findOwnedGift(context.Background(), stranger, existing.ID)
	require.Error(t, err)
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = impl.findOwnedGift(context.Background(), owner, uuid.New())
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestDeleteGift_ReapsStoredImage(t *testing.T) {
	principal := testPrincipal()
	gifts := newFakeGiftStore()
	existing := &models.Gift{ID: uuid.New(), UserID: principal.ID, ImageURL: "https://img.example.com/old.png"}
	gifts.byID[existing.ID] = existing
	store := &fakeObjectStore{}
	impl := newTestServer(gifts, store, &fakeBlur{}, nil)

	require.NoError(t, impl.deleteGift(context.Background(), principal, existing.ID))
	assert.Equal(t, []uuid.UUID{existing.ID}, gifts.deleted)
	assert.Equal(t, []string{"https://img.example.com/old.png"}, store.deletedURLs)
}

func TestDeleteGift_ObjectDeleteFailureIsNonFatal(t *testing.T) {
	principal := testPrincipal()
	gifts := newFakeGiftStore()
	existing := &models.Gift{ID: uuid.New(), UserID: principal.ID, ImageURL: "https://img.example.com/old.png"}
	gifts.byID[existing.ID] = existing
	store := &fakeObjectStore{deleteErr: errors.New("object locked")}
	impl := newTestServer(gifts, store, &fakeBlur{}, nil)

	require.NoError(t, impl.deleteGift(context.Background(), principal, existing.ID))
	assert.Equal(t, []uuid.UUID{existing.ID}, gifts.deleted)
}

func TestListGifts_CacheHitSkipsStore(t *testing.T) {
	gifts := newFakeGiftStore()
	cached := []models.Gift{{ID: uuid.New(), Title: "cached"}}
	giftCache := &fakeGiftCache{value: cached, hasValue: true}
	impl := newTestServer(gifts, &fakeObjectStore{}, &fakeBlur{}, giftCache)

	out, err := impl.listGifts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cached, out)
	assert.Zero(t, gifts.listCalls)
}

func TestListGifts_CacheMissPopulatesCache(t *testing.T) {
	gifts := newFakeGiftStore()
	gifts.all = []models.Gift{{ID: uuid.New(), Title: "fresh"}}
	giftCache := &fakeGiftCache{}
	impl := newTestServer(gifts, &fakeObjectStore{}, &fakeBlur{}, giftCache)

	out, err := impl.listGifts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, gifts.all, out)
	assert.Equal(t, 1, gifts.listCalls)
	assert.Equal(t, 1, giftCache.sets)
}

func TestListGifts_CacheErrorDegradesToStore(t *testing.T) {
	gifts := newFakeGiftStore()
	gifts.all = []models.Gift{{ID: uuid.New()}}
	giftCache := &fakeGiftCache{getErr: errors.New("redis down")}
	impl := newTestServer(gifts, &fakeObjectStore{}, &fakeBlur{}, giftCache)

	out, err := impl.listGifts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, gifts.all, out)
}

func TestValidateGiftFields_SanitizesMarkup(t *testing.T) {
	impl := newTestServer(newFakeGiftStore(), &fakeObjectStore{}, &fakeBlur{}, nil)
	title, message, verr := impl.validateGiftFields("<b>Surprise</b>", "no peeking <script>alert(1)</script>", false)
	require.Nil(t, verr)
	assert.Equal(t, "Surprise", title)
	assert.NotContains(t, message, "<script>")
}

func TestObjectName(t *testing.T) {
	name := objectName("my photo.png", "png")
	assert.True(t, strings.HasSuffix(name, "-my-photo.png"))

	fallback := objectName("..", "png")
	assert.True(t, strings.HasSuffix(fallback, ".png"))
}
