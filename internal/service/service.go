package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"retailops/backend/internal/cache"
	"retailops/backend/internal/domain"
	"retailops/backend/internal/logger"
	"retailops/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// SystemContext marks ctx as issued by the process itself, e.g. the daily job.
func SystemContext(ctx context.Context) context.Context {
	return WithActor(ctx, domain.Actor{Username: "system", Role: domain.RoleAdmin})
}

// ImageStorage signs object URLs for product images.
type ImageStorage interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	PresignPut(ctx context.Context, key string, contentType string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

type Options struct {
	Cache       cache.ListingCache
	CacheTTL    time.Duration
	Images      ImageStorage
	ImageURLTTL time.Duration
	Now         func() time.Time
}

type Service struct {
	repo     store.Repository
	cache    cache.ListingCache
	cacheTTL time.Duration
	images   ImageStorage
	imageTTL time.Duration
	now      func() time.Time
	validate *validator.Validate
}

func New(repo store.Repository, opts Options) *Service {
	if opts.Cache == nil {
		opts.Cache = cache.NoopListingCache{}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	if opts.ImageURLTTL <= 0 {
		opts.ImageURLTTL = time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	return &Service{
		repo:     repo,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		images:   opts.Images,
		imageTTL: opts.ImageURLTTL,
		now:      opts.Now,
		validate: v,
	}
}

func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func requireRole(ctx context.Context, roles ...string) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role == "" {
		return domain.Actor{}, fmt.Errorf("%w: authentication required", store.ErrUnauthorized)
	}
	for _, role := range roles {
		if actor.Role == role {
			return actor, nil
		}
	}
	return domain.Actor{}, fmt.Errorf("%w: %s role required", store.ErrForbidden, roles[len(roles)-1])
}

func requireAdmin(ctx context.Context) error {
	_, err := requireRole(ctx, domain.RoleAdmin)
	return err
}

func requireStaff(ctx context.Context) error {
	_, err := requireRole(ctx, domain.RoleWorker, domain.RoleAdmin)
	return err
}

// check runs the struct's validate tags and reports the first failure.
func (s *Service) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Param() != "" {
			return fmt.Errorf("%w: %s must satisfy %s=%s", store.ErrInvalidInput, fe.Field(), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("%w: %s is %s", store.ErrInvalidInput, fe.Field(), fe.Tag())
	}
	return fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{store.ErrInvalidInput}, args...)...)
}

// bump retires cached listing pages. A failure only costs staleness up to
// the cache TTL, so it is logged.
func (s *Service) bump(ctx context.Context, namespaces ...string) {
	for _, ns := range namespaces {
		if err := s.cache.Bump(ctx, ns); err != nil {
			logger.Warn(ctx, "listing cache bump failed", "namespace", ns, "error", err)
		}
	}
}

func truncate(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max])
}
