package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/chainboard/asset-service/entity"
)

const testPublicBase = "https://cdn.example.com/chainboard-assets"

type fakeObjectStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	puts     int
	copies   int
	removals int
	failPut  bool
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}}
}

func (f *fakeObjectStore) url(key string) string {
	return testPublicBase + "/" + key
}

func (f *fakeObjectStore) PutObject(_ context.Context, key string, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.failPut {
		return "", errors.New("storage offline")
	}
	f.objects[key] = data
	return f.url(key), nil
}

func (f *fakeObjectStore) CopyObject(_ context.Context, srcKey, destKey string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copies++
	data, ok := f.objects[srcKey]
	if !ok {
		return "", fmt.Errorf("source object %s not found", srcKey)
	}
	f.objects[destKey] = data
	return f.url(destKey), nil
}

func (f *fakeObjectStore) RemoveObject(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removals++
	delete(f.objects, key)
	return nil
}

func (f *fakeObjectStore) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for key := range f.objects {
		keys = append(keys, key)
	}
	return keys
}

type fakeImageStore struct {
	mu     sync.Mutex
	images map[uuid.UUID]*entity.Image
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{images: map[uuid.UUID]*entity.Image{}}
}

func cloneImage(image *entity.Image) *entity.Image {
	clone := *image
	clone.Variants = append([]byte(nil), image.Variants...)
	if image.ExpiresAt != nil {
		expiresAt := *image.ExpiresAt
		clone.ExpiresAt = &expiresAt
	}
	return &clone
}

func (f *fakeImageStore) Create(_ context.Context, image *entity.Image) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.images {
		if existing.Name == image.Name {
			return fmt.Errorf("%w: image name %q", ErrDuplicateName, image.Name)
		}
	}
	f.images[image.ID] = cloneImage(image)
	return nil
}

func (f *fakeImageStore) FindByID(_ context.Context, id uuid.UUID) (*entity.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	image, ok := f.images[id]
	if !ok {
		return nil, fmt.Errorf("%w: image %s", ErrNotFound, id)
	}
	return cloneImage(image), nil
}

func (f *fakeImageStore) FindByName(_ context.Context, name string) (*entity.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, image := range f.images {
		if image.Name == name {
			return cloneImage(image), nil
		}
	}
	return nil, fmt.Errorf("%w: image named %q", ErrNotFound, name)
}

func (f *fakeImageStore) UpdateVariants(_ context.Context, id uuid.UUID, variants []entity.ImageVariant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	image, ok := f.images[id]
	if !ok {
		return fmt.Errorf("%w: image %s", ErrNotFound, id)
	}
	data, err := entity.MarshalVariants(variants)
	if err != nil {
		return err
	}
	image.Variants = data
	return nil
}

func (f *fakeImageStore) UpdateNameAndVariants(_ context.Context, id uuid.UUID, name string, variants []entity.ImageVariant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	image, ok := f.images[id]
	if !ok {
		return fmt.Errorf("%w: image %s", ErrNotFound, id)
	}
	data, err := entity.MarshalVariants(variants)
	if err != nil {
		return err
	}
	image.Name = name
	image.Variants = data
	return nil
}

func (f *fakeImageStore) SetUsed(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	image, ok := f.images[id]
	if !ok {
		return fmt.Errorf("%w: image %s", ErrNotFound, id)
	}
	image.IsUsed = true
	image.ExpiresAt = nil
	return nil
}

func (f *fakeImageStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.images[id]; !ok {
		return fmt.Errorf("%w: image %s", ErrNotFound, id)
	}
	delete(f.images, id)
	return nil
}

func (f *fakeImageStore) FindExpired(_ context.Context, before time.Time, limit int) ([]entity.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	expired := make([]entity.Image, 0)
	for _, image := range f.images {
		if image.IsUsed || image.ExpiresAt == nil || !image.ExpiresAt.Before(before) {
			continue
		}
		expired = append(expired, *cloneImage(image))
		if len(expired) == limit {
			break
		}
	}
	return expired, nil
}

type fakeSweepNotifier struct {
	mu      sync.Mutex
	reasons []string
}

func (f *fakeSweepNotifier) PublishSweepRequest(_ context.Context, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reasons = append(f.reasons, reason)
	return nil
}

func newTestService(t *testing.T) (*ImageService, *fakeObjectStore, *fakeImageStore, *fakeSweepNotifier) {
	t.Helper()
	objects := newFakeObjectStore()
	records := newFakeImageStore()
	sweeps := &fakeSweepNotifier{}
	svc := NewImageService(objects, records, sweeps, nil, ImageServiceConfig{
		ProvisionalTTL: time.Hour,
		SweepLimit:     10,
	})
	return svc, objects, records, sweeps
}

func writeSourcePNG(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.png")
	require.NoError(t, os.WriteFile(path, encodeTestPNG(t, 400, 200), 0o644))
	return path
}

func intp(v int) *int {
	return &v
}

// seedImage places variant objects in storage and a matching record in the
// store, bypassing the render pipeline.
func seedImage(t *testing.T, records *fakeImageStore, objects *fakeObjectStore, name string, dims ...[2]*int) uuid.UUID {
	t.Helper()
	variants := make([]entity.ImageVariant, 0, len(dims))
	for _, d := range dims {
		key, err := GenerateImagePath(name, d[0], d[1])
		require.NoError(t, err)
		objects.objects[key] = []byte("blob")
		variants = append(variants, entity.ImageVariant{URL: objects.url(key), Width: d[0], Height: d[1]})
	}
	image := &entity.Image{ID: uuid.New(), Name: name}
	require.NoError(t, image.SetVariantList(variants))
	records.images[image.ID] = image
	return image.ID
}

func TestCreateStoresVariantsAndRecord(t *testing.T) {
	svc, objects, records, sweeps := newTestService(t)

	result, err := svc.Create(context.Background(), CreateImageParams{
		FilePath:    writeSourcePNG(t),
		DisplayName: "Team Logo",
		ResizeSpecs: []Dimensions{
			{Width: intp(100), Height: intp(100)},
			{Width: intp(800)},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "team-logo", result.Name)
	require.Len(t, result.Variants, 2)

	require.ElementsMatch(t, []string{"team-logo-100w-100h", "team-logo-800w-nullh"}, objects.keys())
	for _, variant := range result.Variants {
		require.True(t, strings.HasPrefix(variant.URL, testPublicBase+"/"))
	}

	record, err := records.FindByID(context.Background(), result.ID)
	require.NoError(t, err)
	require.Equal(t, "team-logo", record.Name)
	require.False(t, record.IsUsed)
	require.NotNil(t, record.ExpiresAt, "unused image must carry an expiration")
	require.Equal(t, []string{"create"}, sweeps.reasons)
}

func TestCreateRequiresResizeSpecs(t *testing.T) {
	svc, objects, records, _ := newTestService(t)

	_, err := svc.Create(context.Background(), CreateImageParams{
		FilePath:    writeSourcePNG(t),
		DisplayName: "empty",
	})
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.Zero(t, objects.puts, "no storage call may happen for an invalid request")
	require.Empty(t, records.images)
}

func TestCreateRejectsBadInput(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	source := writeSourcePNG(t)
	specs := []Dimensions{{Width: intp(100), Height: intp(100)}}

	_, err := svc.Create(ctx, CreateImageParams{DisplayName: "x", ResizeSpecs: specs})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.Create(ctx, CreateImageParams{FilePath: source, Fit: "stretch", ResizeSpecs: specs})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.Create(ctx, CreateImageParams{FilePath: source, ResizeSpecs: []Dimensions{{}}})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.Create(ctx, CreateImageParams{FilePath: source, ResizeSpecs: []Dimensions{{Width: intp(MaxImageDimension + 1)}}})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCreateGeneratesRandomName(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	result, err := svc.Create(context.Background(), CreateImageParams{
		FilePath:    writeSourcePNG(t),
		ResizeSpecs: []Dimensions{{Width: intp(100), Height: intp(100)}},
	})
	require.NoError(t, err)
	require.Len(t, result.Name, 32)
	require.NotContains(t, result.Name, "-")
}

func TestCreateFailsWhenStorageFails(t *testing.T) {
	svc, objects, records, _ := newTestService(t)
	objects.failPut = true

	_, err := svc.Create(context.Background(), CreateImageParams{
		FilePath:    writeSourcePNG(t),
		DisplayName: "logo",
		ResizeSpecs: []Dimensions{{Width: intp(100), Height: intp(100)}},
	})
	require.ErrorIs(t, err, ErrStorage)
	require.Empty(t, records.images, "no record may be created when an upload failed")
}

func TestCreateMergesIntoExistingName(t *testing.T) {
	svc, objects, records, _ := newTestService(t)
	ctx := context.Background()
	source := writeSourcePNG(t)

	first, err := svc.Create(ctx, CreateImageParams{
		FilePath:    source,
		DisplayName: "logo",
		ResizeSpecs: []Dimensions{{Width: intp(100), Height: intp(100)}},
	})
	require.NoError(t, err)

	second, err := svc.Create(ctx, CreateImageParams{
		FilePath:    source,
		DisplayName: "logo",
		ResizeSpecs: []Dimensions{{Width: intp(800)}},
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID, "merge must target the existing record")
	require.Len(t, second.Variants, 2, "non-overlapping creates accumulate the union")

	// Re-uploading existing dimensions replaces in place instead of duplicating.
	third, err := svc.Create(ctx, CreateImageParams{
		FilePath:    source,
		DisplayName: "logo",
		ResizeSpecs: []Dimensions{{Width: intp(100), Height: intp(100)}},
	})
	require.NoError(t, err)
	require.Len(t, third.Variants, 2)
	require.ElementsMatch(t, []string{"logo-100w-100h", "logo-800w-nullh"}, objects.keys())
	require.Len(t, records.images, 1)
}

func TestCreateMergeHonorsVariantLimit(t *testing.T) {
	objects := newFakeObjectStore()
	records := newFakeImageStore()
	svc := NewImageService(objects, records, nil, nil, ImageServiceConfig{MaxVariants: 2})
	ctx := context.Background()
	source := writeSourcePNG(t)

	for _, width := range []int{100, 200} {
		_, err := svc.Create(ctx, CreateImageParams{
			FilePath:    source,
			DisplayName: "logo",
			ResizeSpecs: []Dimensions{{Width: intp(width)}},
		})
		require.NoError(t, err)
	}

	// A third distinct size passes the per-call check but would grow the
	// record past the cap.
	_, err := svc.Create(ctx, CreateImageParams{
		FilePath:    source,
		DisplayName: "logo",
		ResizeSpecs: []Dimensions{{Width: intp(300)}},
	})
	require.ErrorIs(t, err, ErrInvalidArgument)

	record, err := records.FindByName(ctx, "logo")
	require.NoError(t, err)
	variants, err := record.VariantList()
	require.NoError(t, err)
	require.Len(t, variants, 2)
	require.ElementsMatch(t, []string{"logo-100w-nullh", "logo-200w-nullh"}, objects.keys(),
		"the rejected upload must not leave a stray object behind")

	// Re-uploading an existing size replaces in place and stays within the cap.
	result, err := svc.Create(ctx, CreateImageParams{
		FilePath:    source,
		DisplayName: "logo",
		ResizeSpecs: []Dimensions{{Width: intp(100)}},
	})
	require.NoError(t, err)
	require.Len(t, result.Variants, 2)
}

func TestCreateMergeMarksExistingUsed(t *testing.T) {
	svc, _, records, _ := newTestService(t)
	ctx := context.Background()
	source := writeSourcePNG(t)

	first, err := svc.Create(ctx, CreateImageParams{
		FilePath:    source,
		DisplayName: "logo",
		ResizeSpecs: []Dimensions{{Width: intp(100), Height: intp(100)}},
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateImageParams{
		FilePath:    source,
		DisplayName: "logo",
		IsUsed:      true,
		ResizeSpecs: []Dimensions{{Width: intp(200), Height: intp(200)}},
	})
	require.NoError(t, err)

	record, err := records.FindByID(ctx, first.ID)
	require.NoError(t, err)
	require.True(t, record.IsUsed)
	require.Nil(t, record.ExpiresAt)
}

func TestRenameMigratesObjects(t *testing.T) {
	svc, objects, records, _ := newTestService(t)
	ctx := context.Background()

	id := seedImage(t, records, objects, "old-logo",
		[2]*int{intp(100), intp(100)},
		[2]*int{intp(800), nil},
	)

	renamed, err := svc.Rename(ctx, id, "New Logo")
	require.NoError(t, err)
	require.Len(t, renamed, 2)

	require.ElementsMatch(t, []string{"new-logo-100w-100h", "new-logo-800w-nullh"}, objects.keys())
	for _, variant := range renamed {
		key, err := ImagePathFromURL(variant.URL)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(key, "new-logo-"))
	}

	record, err := records.FindByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "new-logo", record.Name)
}

func TestRenameSameNameIsNoOp(t *testing.T) {
	svc, objects, records, _ := newTestService(t)

	id := seedImage(t, records, objects, "logo", [2]*int{intp(100), intp(100)})

	variants, err := svc.Rename(context.Background(), id, "Logo")
	require.NoError(t, err)
	require.Len(t, variants, 1)
	require.Zero(t, objects.copies)
	require.Zero(t, objects.removals)
}

func TestRenameRejectsTakenName(t *testing.T) {
	svc, objects, records, _ := newTestService(t)

	id := seedImage(t, records, objects, "logo", [2]*int{intp(100), intp(100)})
	seedImage(t, records, objects, "banner", [2]*int{intp(100), intp(100)})

	_, err := svc.Rename(context.Background(), id, "Banner")
	require.ErrorIs(t, err, ErrDuplicateName)
	require.Zero(t, objects.copies, "a collision must be detected before any object is touched")
}

func TestRenameUnknownImage(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Rename(context.Background(), uuid.New(), "whatever")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSetUsedClearsExpiry(t *testing.T) {
	svc, objects, records, _ := newTestService(t)
	ctx := context.Background()

	id := seedImage(t, records, objects, "logo", [2]*int{intp(100), intp(100)})
	expiresAt := time.Now().Add(time.Hour)
	records.images[id].ExpiresAt = &expiresAt

	require.NoError(t, svc.SetUsed(ctx, id))

	record, err := records.FindByID(ctx, id)
	require.NoError(t, err)
	require.True(t, record.IsUsed)
	require.Nil(t, record.ExpiresAt, "a used image must never expire")

	// Idempotent.
	require.NoError(t, svc.SetUsed(ctx, id))

	require.ErrorIs(t, svc.SetUsed(ctx, uuid.New()), ErrNotFound)
}

func TestDeleteRemovesObjectsAndRecord(t *testing.T) {
	svc, objects, records, _ := newTestService(t)
	ctx := context.Background()

	id := seedImage(t, records, objects, "logo",
		[2]*int{intp(100), intp(100)},
		[2]*int{intp(800), nil},
		[2]*int{nil, intp(600)},
	)

	require.NoError(t, svc.Delete(ctx, id))
	require.Empty(t, objects.keys())
	require.Empty(t, records.images)

	require.ErrorIs(t, svc.Delete(ctx, id), ErrNotFound)
}

func TestSweepExpiredHonorsLimit(t *testing.T) {
	svc, objects, records, _ := newTestService(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	for i := 0; i < 15; i++ {
		id := seedImage(t, records, objects, fmt.Sprintf("expired-%d", i), [2]*int{intp(100), intp(100)})
		expiresAt := past
		records.images[id].ExpiresAt = &expiresAt
	}

	deleted, err := svc.SweepExpired(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 10, deleted)
	require.Len(t, records.images, 5)

	deleted, err = svc.SweepExpired(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 5, deleted)
	require.Empty(t, records.images)
	require.Empty(t, objects.keys())
}

func TestSweepExpiredSparesUsedAndUnexpired(t *testing.T) {
	svc, objects, records, _ := newTestService(t)
	ctx := context.Background()

	usedID := seedImage(t, records, objects, "used", [2]*int{intp(100), intp(100)})
	records.images[usedID].IsUsed = true

	freshID := seedImage(t, records, objects, "fresh", [2]*int{intp(100), intp(100)})
	future := time.Now().Add(time.Hour)
	records.images[freshID].ExpiresAt = &future

	expiredID := seedImage(t, records, objects, "stale", [2]*int{intp(100), intp(100)})
	past := time.Now().Add(-time.Minute)
	records.images[expiredID].ExpiresAt = &past

	deleted, err := svc.SweepExpired(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, 1, deleted)

	_, err = records.FindByID(ctx, usedID)
	require.NoError(t, err)
	_, err = records.FindByID(ctx, freshID)
	require.NoError(t, err)
	_, err = records.FindByID(ctx, expiredID)
	require.ErrorIs(t, err, ErrNotFound)
}
