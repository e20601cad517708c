package services

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fathima-sithara/newsroom-service/internal/metrics"
	"github.com/fathima-sithara/newsroom-service/internal/models"
	"github.com/fathima-sithara/newsroom-service/internal/storage"
)

const thumbnailWidth = 320

var allowedTypes = map[string]string{
	"image/png":       "image",
	"image/jpeg":      "image",
	"image/gif":       "image",
	"image/webp":      "image",
	"video/mp4":       "file",
	"application/pdf": "file",
}

type MediaService struct {
	repo       MediaRepo
	store      ObjectStore
	presignTTL time.Duration
	maxBytes   int64
	metrics    *metrics.Metrics
	log        *zap.Logger
}

func NewMediaService(repo MediaRepo, store ObjectStore, presignTTL time.Duration, maxBytes int64, m *metrics.Metrics, log *zap.Logger) *MediaService {
	return &MediaService{repo: repo, store: store, presignTTL: presignTTL, maxBytes: maxBytes, metrics: m, log: log}
}

// DetectType returns the content type to trust for data: the declared one
// when it is specific, otherwise a sniffed one.
func DetectType(declared string, data []byte) string {
	ct := strings.ToLower(strings.TrimSpace(strings.Split(declared, ";")[0]))
	if ct == "" || ct == "application/octet-stream" {
		ct = strings.Split(http.DetectContentType(data), ";")[0]
	}
	if ct == "image/jpg" {
		ct = "image/jpeg"
	}
	return ct
}

func (s *MediaService) Validate(contentType string, size int64) error {
	if size == 0 || size > s.maxBytes {
		return ErrFileTooLarge
	}
	if _, ok := allowedTypes[contentType]; !ok {
		return ErrUnsupportedMedia
	}
	return nil
}

// Upload stores data and, for images, a JPEG thumbnail. A thumbnail
// failure does not fail the upload.
func (s *MediaService) Upload(ctx context.Context, ownerID, filename, contentType string, data []byte) (*models.Media, error) {
	contentType = DetectType(contentType, data)
	if err := s.Validate(contentType, int64(len(data))); err != nil {
		return nil, err
	}
	kind := allowedTypes[contentType]

	id := uuid.NewString()
	key := ownerID + "/" + id + "_" + safeName(filename)
	url, err := s.store.Put(ctx, key, contentType, data)
	if err != nil {
		s.metrics.Upload(kind, false)
		if errors.Is(err, storage.ErrUnavailable) {
			return nil, ErrStorageUnavailable
		}
		return nil, err
	}

	m := &models.Media{
		ID:          id,
		OwnerID:     ownerID,
		Key:         key,
		URL:         url,
		Type:        kind,
		Size:        int64(len(data)),
		ContentType: contentType,
		CreatedAt:   time.Now().UTC(),
	}

	stored := []string{key}
	if kind == "image" {
		if thumb, err := generateThumbnail(data); err != nil {
			s.log.Debug("thumbnail skipped", zap.String("key", key), zap.Error(err))
		} else {
			thumbKey := key + "_thumb.jpg"
			thumbURL, err := s.store.Put(ctx, thumbKey, "image/jpeg", thumb)
			if err != nil {
				s.log.Warn("thumbnail upload failed", zap.String("key", thumbKey), zap.Error(err))
			} else {
				stored = append(stored, thumbKey)
				if thumbURL != "" {
					m.Thumbnail = thumbURL
				} else {
					m.Thumbnail = thumbKey
				}
			}
		}
	}

	if err := s.repo.Insert(ctx, m); err != nil {
		s.metrics.Upload(kind, false)
		s.removeObjects(ctx, stored)
		return nil, mapRepoErr(err)
	}
	s.metrics.Upload(kind, true)
	return m, nil
}

func (s *MediaService) Get(ctx context.Context, id string) (*models.Media, error) {
	m, err := s.repo.GetByID(ctx, id)
	return m, mapRepoErr(err)
}

// removeObjects drops objects left without a record. Failures are logged.
func (s *MediaService) removeObjects(ctx context.Context, keys []string) {
	for _, k := range keys {
		if err := s.store.Delete(ctx, k); err != nil {
			s.log.Error("failed to remove orphaned object", zap.String("key", k), zap.Error(err))
		}
	}
}

// URL returns the public URL when the object has one. Private objects get
// a presigned GET URL, issued only to the owner or an admin.
func (s *MediaService) URL(ctx context.Context, actor *models.Account, id string) (string, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if m.URL != "" {
		return m.URL, nil
	}
	if !canManage(actor, m) {
		return "", ErrForbidden
	}
	return s.store.PresignGet(ctx, m.Key, s.presignTTL)
}

func canManage(actor *models.Account, m *models.Media) bool {
	return actor != nil && (actor.Role == models.RoleAdmin || m.OwnerID == actor.ID.Hex())
}

func (s *MediaService) ListMine(ctx context.Context, ownerID string, page, limit int) (*models.Page[models.Media], error) {
	return s.repo.ListByOwner(ctx, ownerID, page, limit)
}

// Delete removes the object, its thumbnail and its record. Only the owner
// or an admin may delete.
func (s *MediaService) Delete(ctx context.Context, actor *models.Account, id string) error {
	m, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(actor, m) {
		return ErrForbidden
	}
	if err := s.store.Delete(ctx, m.Key); err != nil {
		if errors.Is(err, storage.ErrUnavailable) {
			return ErrStorageUnavailable
		}
		return err
	}
	if m.Thumbnail != "" {
		if err := s.store.Delete(ctx, m.Key+"_thumb.jpg"); err != nil {
			s.log.Warn("thumbnail delete failed", zap.String("key", m.Key), zap.Error(err))
		}
	}
	return mapRepoErr(s.repo.Delete(ctx, id))
}

func safeName(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	ext := path.Ext(name)
	base := Slugify(strings.TrimSuffix(name, ext))
	if base == "" {
		base = "file"
	}
	return base + strings.ToLower(ext)
}

func generateThumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	thumb := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
