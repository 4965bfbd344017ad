package service

import (
	"context"
	"fmt"
	"mime"
	"regexp"
	"strings"
	"time"

	"retailops/backend/internal/domain"
	"retailops/backend/internal/store"
	"retailops/backend/internal/xid"
)

var extPattern = regexp.MustCompile(`^[a-z0-9]{1,6}$`)

func (s *Service) imageStorage() (ImageStorage, error) {
	if s.images == nil {
		return nil, fmt.Errorf("%w: image storage is not configured", store.ErrUnavailable)
	}
	return s.images, nil
}

func (s *Service) urlTTL(expiresIn int) time.Duration {
	if expiresIn > 0 {
		return time.Duration(expiresIn) * time.Second
	}
	return s.imageTTL
}

// SignImageGet returns a short-lived download URL for key.
func (s *Service) SignImageGet(ctx context.Context, key string) (domain.ImageURL, error) {
	if err := requireStaff(ctx); err != nil {
		return domain.ImageURL{}, err
	}
	images, err := s.imageStorage()
	if err != nil {
		return domain.ImageURL{}, err
	}
	key = strings.TrimSpace(key)
	if !validImageKey(key) {
		return domain.ImageURL{}, invalid("key %q is not a valid image key", key)
	}
	signed, err := images.PresignGet(ctx, key, s.imageTTL)
	if err != nil {
		return domain.ImageURL{}, err
	}
	return domain.ImageURL{Key: key, SignedURL: signed, PublicURL: images.PublicURL(key)}, nil
}

// SignImageUpload returns a signed PUT URL. With generate set and no key in
// the request, a fresh images/<token>.<ext> key is chosen.
func (s *Service) SignImageUpload(ctx context.Context, req domain.ImageRequest, generate bool) (domain.ImageURL, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.ImageURL{}, err
	}
	if err := s.check(req); err != nil {
		return domain.ImageURL{}, err
	}
	images, err := s.imageStorage()
	if err != nil {
		return domain.ImageURL{}, err
	}

	key := strings.TrimSpace(req.Key)
	ext := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(req.Ext), "."))
	if key == "" {
		if !generate {
			return domain.ImageURL{}, invalid("key is required")
		}
		if ext == "" {
			ext = "jpg"
		}
		if !extPattern.MatchString(ext) {
			return domain.ImageURL{}, invalid("ext %q is not allowed", ext)
		}
		key = "images/" + xid.Token() + "." + ext
	}
	if !validImageKey(key) {
		return domain.ImageURL{}, invalid("key %q is not a valid image key", key)
	}

	contentType := strings.TrimSpace(req.ContentType)
	if contentType == "" {
		contentType = mime.TypeByExtension(key[strings.LastIndex(key, "."):])
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	signed, err := images.PresignPut(ctx, key, contentType, s.urlTTL(req.ExpiresIn))
	if err != nil {
		return domain.ImageURL{}, err
	}
	return domain.ImageURL{Key: key, SignedURL: signed, PublicURL: images.PublicURL(key)}, nil
}

func (s *Service) DeleteImage(ctx context.Context, key string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	images, err := s.imageStorage()
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if !validImageKey(key) {
		return invalid("key %q is not a valid image key", key)
	}
	return images.Delete(ctx, key)
}
