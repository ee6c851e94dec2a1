package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chainboard/asset-service/entity"
	"github.com/chainboard/asset-service/utils"
)

// ObjectStore is the durable blob storage capability the manager reconciles
// against. RemoveObject must be idempotent: deleting a missing key is not an
// error.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) (string, error)
	CopyObject(ctx context.Context, srcKey, destKey string) (string, error)
	RemoveObject(ctx context.Context, key string) error
}

// ImageStore is the record collection keyed by logical name. Implementations
// translate their backend's failures into the sentinel kinds in errors.go.
type ImageStore interface {
	Create(ctx context.Context, image *entity.Image) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Image, error)
	FindByName(ctx context.Context, name string) (*entity.Image, error)
	UpdateVariants(ctx context.Context, id uuid.UUID, variants []entity.ImageVariant) error
	UpdateNameAndVariants(ctx context.Context, id uuid.UUID, name string, variants []entity.ImageVariant) error
	SetUsed(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindExpired(ctx context.Context, before time.Time, limit int) ([]entity.Image, error)
}

// SweepNotifier asks the sweep worker to run a cleanup pass. Publishing is
// best-effort; a failure never fails the operation that triggered it.
type SweepNotifier interface {
	PublishSweepRequest(ctx context.Context, reason string) error
}

type Logger interface {
	InfoWithContextf(ctx context.Context, format string, args ...interface{})
	WarningWithContextf(ctx context.Context, format string, args ...interface{})
	ErrorWithContextf(ctx context.Context, err error, format string, args ...interface{})
}

type ImageServiceConfig struct {
	ProvisionalTTL    time.Duration
	SweepLimit        int
	MaxVariants       int
	MaxImageDimension int
	StorageTimeout    time.Duration
}

// ImageService orchestrates the image asset lifecycle: render variants,
// place them in object storage, keep the record in sync, and reclaim storage
// for expired unused assets. All mutations to one record must be serialized
// by the caller; concurrent writers race on the read-modify-write of the
// variant list.
type ImageService struct {
	objects ObjectStore
	records ImageStore
	sweeps  SweepNotifier
	logger  Logger
	cfg     ImageServiceConfig
}

func NewImageService(objects ObjectStore, records ImageStore, sweeps SweepNotifier, logger Logger, cfg ImageServiceConfig) *ImageService {
	if cfg.ProvisionalTTL <= 0 {
		cfg.ProvisionalTTL = 24 * time.Hour
	}
	if cfg.SweepLimit <= 0 {
		cfg.SweepLimit = 10
	}
	if cfg.MaxVariants <= 0 {
		cfg.MaxVariants = 100
	}
	if cfg.MaxImageDimension <= 0 {
		cfg.MaxImageDimension = MaxImageDimension
	}
	if cfg.StorageTimeout <= 0 {
		cfg.StorageTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &ImageService{
		objects: objects,
		records: records,
		sweeps:  sweeps,
		logger:  logger,
		cfg:     cfg,
	}
}

// Dimensions is the caller-facing size descriptor of one variant. At least
// one axis must be present.
type Dimensions struct {
	Width  *int
	Height *int
}

type CreateImageParams struct {
	FilePath    string
	DisplayName string
	Fit         string
	IsUsed      bool
	ResizeSpecs []Dimensions
}

type CreateImageResult struct {
	ID       uuid.UUID
	Name     string
	Variants []entity.ImageVariant
}

// Create renders and uploads one variant per resize spec, then inserts the
// record, or merges the upload into an existing record with the same logical
// name. Deleting the source file afterwards is the caller's responsibility.
func (s *ImageService) Create(ctx context.Context, params CreateImageParams) (*CreateImageResult, error) {
	if strings.TrimSpace(params.FilePath) == "" || len(params.FilePath) > MaxNameLength {
		return nil, fmt.Errorf("%w: missing or oversized source file path", ErrInvalidArgument)
	}

	name, err := resolveImageName(params.DisplayName)
	if err != nil {
		return nil, err
	}

	fit := params.Fit
	if fit == "" {
		fit = DefaultFit
	}
	if !ValidFit(fit) {
		return nil, fmt.Errorf("%w: unknown fit mode %q", ErrInvalidArgument, params.Fit)
	}

	if len(params.ResizeSpecs) == 0 {
		return nil, fmt.Errorf("%w: at least one resize spec is required", ErrInvalidArgument)
	}
	if len(params.ResizeSpecs) > s.cfg.MaxVariants {
		return nil, fmt.Errorf("%w: at most %d resize specs are allowed", ErrInvalidArgument, s.cfg.MaxVariants)
	}
	for _, dims := range params.ResizeSpecs {
		if err := validateDimensions(dims.Width, dims.Height, s.cfg.MaxImageDimension); err != nil {
			return nil, err
		}
	}

	source, err := os.ReadFile(params.FilePath)
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable source file: %v", ErrInvalidArgument, err)
	}

	uploaded, err := s.uploadVariants(ctx, name, fit, source, params.ResizeSpecs)
	if err != nil {
		return nil, err
	}

	record := &entity.Image{
		ID:     uuid.New(),
		Name:   name,
		IsUsed: params.IsUsed,
	}
	if !params.IsUsed {
		expiresAt := time.Now().Add(s.cfg.ProvisionalTTL)
		record.ExpiresAt = &expiresAt
	}
	if err := record.SetVariantList(uploaded); err != nil {
		return nil, fmt.Errorf("encode variant list: %w", err)
	}

	result := &CreateImageResult{ID: record.ID, Name: name, Variants: uploaded}

	err = s.records.Create(ctx, record)
	switch {
	case err == nil:
	case errors.Is(err, ErrDuplicateName):
		result, err = s.mergeIntoExisting(ctx, name, uploaded, params.IsUsed)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	s.requestSweep(ctx, "create")
	return result, nil
}

// uploadVariants renders and uploads all variants concurrently. The keys are
// disjoint, so the fan-out is safe; the WaitGroup is the gather-all barrier
// before the record update is attempted.
func (s *ImageService) uploadVariants(ctx context.Context, name, fit string, source []byte, specs []Dimensions) ([]entity.ImageVariant, error) {
	variants := make([]entity.ImageVariant, len(specs))
	uploadErrs := make([]error, len(specs))

	var wg sync.WaitGroup
	for i, dims := range specs {
		wg.Add(1)
		go func(i int, dims Dimensions) {
			defer wg.Done()

			encoded, err := RenderVariant(source, ResizeSpec{Fit: fit, Width: dims.Width, Height: dims.Height})
			if err != nil {
				uploadErrs[i] = err
				return
			}

			key, err := GenerateImagePath(name, dims.Width, dims.Height)
			if err != nil {
				uploadErrs[i] = err
				return
			}

			putCtx, cancel := context.WithTimeout(ctx, s.cfg.StorageTimeout)
			defer cancel()

			url, err := s.objects.PutObject(putCtx, key, encoded, VariantContentType)
			if err != nil {
				uploadErrs[i] = fmt.Errorf("%w: put object %s: %v", ErrStorage, key, err)
				return
			}
			variants[i] = entity.ImageVariant{URL: url, Width: dims.Width, Height: dims.Height}
		}(i, dims)
	}
	wg.Wait()

	for _, err := range uploadErrs {
		if err != nil {
			return nil, err
		}
	}
	return variants, nil
}

// mergeIntoExisting reconciles a fresh upload with the record that already
// owns the logical name. Freshly uploaded keys replace matching existing
// entries; existing variants with other dimensions survive, so repeated
// creates accumulate the union of all uploaded (width, height) pairs.
func (s *ImageService) mergeIntoExisting(ctx context.Context, name string, uploaded []entity.ImageVariant, markUsed bool) (*CreateImageResult, error) {
	existing, err := s.records.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}

	existingVariants, err := existing.VariantList()
	if err != nil {
		return nil, fmt.Errorf("decode variant list of %s: %w", existing.ID, err)
	}

	uploadedKeys := make(map[string]bool, len(uploaded))
	for _, variant := range uploaded {
		key, err := ImagePathFromURL(variant.URL)
		if err != nil {
			return nil, err
		}
		uploadedKeys[key] = true
	}

	merged := append([]entity.ImageVariant{}, uploaded...)
	existingKeys := make(map[string]bool, len(existingVariants))
	for _, variant := range existingVariants {
		key, err := ImagePathFromURL(variant.URL)
		if err != nil {
			s.logger.WarningWithContextf(ctx, "[Image] dropping variant with unparseable url %q of image %s", variant.URL, existing.ID)
			continue
		}
		existingKeys[key] = true
		if uploadedKeys[key] {
			// Replaced by the fresh upload at the same key.
			continue
		}
		merged = append(merged, variant)
	}

	// The per-call spec count is capped before upload, but the merged record
	// must honor the same bound.
	if len(merged) > s.cfg.MaxVariants {
		s.removeStrayUploads(ctx, uploaded, existingKeys)
		return nil, fmt.Errorf("%w: image %q would hold %d variants, at most %d are allowed", ErrInvalidArgument, name, len(merged), s.cfg.MaxVariants)
	}

	if err := s.records.UpdateVariants(ctx, existing.ID, merged); err != nil {
		return nil, err
	}
	if markUsed && !existing.IsUsed {
		if err := s.records.SetUsed(ctx, existing.ID); err != nil {
			return nil, err
		}
	}

	return &CreateImageResult{ID: existing.ID, Name: name, Variants: merged}, nil
}

// removeStrayUploads deletes freshly uploaded objects that no record ends up
// referencing after a rejected merge. Uploads that landed on a key the
// existing record already owns stay: that object is still referenced.
func (s *ImageService) removeStrayUploads(ctx context.Context, uploaded []entity.ImageVariant, existingKeys map[string]bool) {
	for _, variant := range uploaded {
		key, err := ImagePathFromURL(variant.URL)
		if err != nil || existingKeys[key] {
			continue
		}

		removeCtx, cancel := context.WithTimeout(ctx, s.cfg.StorageTimeout)
		err = s.objects.RemoveObject(removeCtx, key)
		cancel()
		if err != nil {
			s.logger.WarningWithContextf(ctx, "[Image] failed to remove stray upload %s: %v", key, err)
		}
	}
}

// Rename moves every variant to a key derived from the new name: copy then
// delete per object, then swap name and variant list in one record update.
// A failure partway leaves old and new keys briefly coexisting; the whole
// operation must be retried (each copy is idempotent, so a naive retry is
// safe).
func (s *ImageService) Rename(ctx context.Context, id uuid.UUID, newDisplayName string) ([]entity.ImageVariant, error) {
	trimmed := strings.TrimSpace(newDisplayName)
	if trimmed == "" || len(trimmed) > MaxNameLength {
		return nil, fmt.Errorf("%w: new name must be 1-%d characters", ErrInvalidArgument, MaxNameLength)
	}

	record, err := s.records.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	newName := utils.ToURLString(trimmed)
	if newName == "" {
		return nil, fmt.Errorf("%w: name %q has no usable characters", ErrInvalidArgument, newDisplayName)
	}

	variants, err := record.VariantList()
	if err != nil {
		return nil, fmt.Errorf("decode variant list of %s: %w", id, err)
	}
	if newName == record.Name {
		return variants, nil
	}

	other, err := s.records.FindByName(ctx, newName)
	if err == nil && other.ID != record.ID {
		return nil, fmt.Errorf("%w: image name %q is taken", ErrDuplicateName, newName)
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	renamed := make([]entity.ImageVariant, 0, len(variants))
	for _, variant := range variants {
		oldKey, err := ImagePathFromURL(variant.URL)
		if err != nil {
			return nil, err
		}
		newKey, err := GenerateImagePath(newName, variant.Width, variant.Height)
		if err != nil {
			return nil, err
		}

		copyCtx, cancelCopy := context.WithTimeout(ctx, s.cfg.StorageTimeout)
		url, err := s.objects.CopyObject(copyCtx, oldKey, newKey)
		cancelCopy()
		if err != nil {
			return nil, fmt.Errorf("%w: copy object %s to %s: %v", ErrStorage, oldKey, newKey, err)
		}

		removeCtx, cancelRemove := context.WithTimeout(ctx, s.cfg.StorageTimeout)
		err = s.objects.RemoveObject(removeCtx, oldKey)
		cancelRemove()
		if err != nil {
			return nil, fmt.Errorf("%w: remove object %s: %v", ErrStorage, oldKey, err)
		}

		renamed = append(renamed, entity.ImageVariant{URL: url, Width: variant.Width, Height: variant.Height})
	}

	if err := s.records.UpdateNameAndVariants(ctx, id, newName, renamed); err != nil {
		return nil, err
	}
	return renamed, nil
}

// SetUsed exempts the image from expiration sweeps. Idempotent.
func (s *ImageService) SetUsed(ctx context.Context, id uuid.UUID) error {
	record, err := s.records.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if record.IsUsed {
		return nil
	}
	return s.records.SetUsed(ctx, id)
}

// Delete removes every storage object referenced by the record, then the
// record itself. The record is deleted last so it stays the source of truth
// for a retry if a storage delete fails.
func (s *ImageService) Delete(ctx context.Context, id uuid.UUID) error {
	record, err := s.records.FindByID(ctx, id)
	if err != nil {
		return err
	}

	variants, err := record.VariantList()
	if err != nil {
		return fmt.Errorf("decode variant list of %s: %w", id, err)
	}

	for _, variant := range variants {
		key, err := ImagePathFromURL(variant.URL)
		if err != nil {
			s.logger.WarningWithContextf(ctx, "[Image] skipping variant with unparseable url %q of image %s", variant.URL, id)
			continue
		}

		removeCtx, cancel := context.WithTimeout(ctx, s.cfg.StorageTimeout)
		err = s.objects.RemoveObject(removeCtx, key)
		cancel()
		if err != nil {
			return fmt.Errorf("%w: remove object %s: %v", ErrStorage, key, err)
		}
	}

	return s.records.Delete(ctx, id)
}

// SweepExpired deletes up to limit expired, unused images. It continues past
// per-record failures so one bad record does not block cleanup of the rest,
// and reports the count deleted along with the first error encountered.
func (s *ImageService) SweepExpired(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = s.cfg.SweepLimit
	}

	expired, err := s.records.FindExpired(ctx, time.Now(), limit)
	if err != nil {
		return 0, err
	}

	deleted := 0
	var firstErr error
	for _, image := range expired {
		if err := s.Delete(ctx, image.ID); err != nil {
			s.logger.ErrorWithContextf(ctx, err, "[ImageSweep] failed to delete expired image %s: %v", image.ID, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		deleted++
	}
	return deleted, firstErr
}

func (s *ImageService) requestSweep(ctx context.Context, reason string) {
	if s.sweeps == nil {
		return
	}
	if err := s.sweeps.PublishSweepRequest(ctx, reason); err != nil {
		s.logger.WarningWithContextf(ctx, "[Image] failed to publish sweep request: %v", err)
	}
}

func resolveImageName(displayName string) (string, error) {
	trimmed := strings.TrimSpace(displayName)
	if trimmed == "" {
		return randomImageName(), nil
	}
	if len(trimmed) > MaxNameLength {
		return "", fmt.Errorf("%w: display name exceeds %d characters", ErrInvalidArgument, MaxNameLength)
	}
	name := utils.ToURLString(trimmed)
	if name == "" {
		return "", fmt.Errorf("%w: display name %q has no usable characters", ErrInvalidArgument, displayName)
	}
	return name, nil
}

func randomImageName() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

type nopLogger struct{}

func (nopLogger) InfoWithContextf(context.Context, string, ...interface{})    {}
func (nopLogger) WarningWithContextf(context.Context, string, ...interface{}) {}
func (nopLogger) ErrorWithContextf(context.Context, error, string, ...interface{}) {
}
