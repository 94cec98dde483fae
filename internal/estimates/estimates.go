// Package estimates persists estimate documents and serves priced reads.
package estimates

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Simplici0/smeta/internal/apperr"
	"github.com/Simplici0/smeta/internal/models"
	"github.com/Simplici0/smeta/internal/pricing"
	"github.com/Simplici0/smeta/internal/store"
)

const searchKeyPrefix = "estimates:search:"

// Store is the persistence the repository needs; *store.Collection satisfies it.
type Store interface {
	Insert(ctx context.Context, e models.Estimate) error
	Get(ctx context.Context, name string) (models.Estimate, error)
	Exists(ctx context.Context, name string) (bool, error)
	Replace(ctx context.Context, name string, e models.Estimate) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context, match func(models.Estimate) bool) ([]models.Estimate, error)
}

// MaterialLookup resolves catalog references of auxiliary lines.
type MaterialLookup interface {
	Get(ctx context.Context, name string) (models.Material, error)
}

// Cache holds priced search results between writes. Get reports the
// generation it looked in; Set fills that generation only.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (int64, bool, error)
	Set(ctx context.Context, gen int64, key string, v any) error
	Invalidate(ctx context.Context) error
}

// Option configures a Service.
type Option func(*Service)

// WithPricedCounter counts runs of the pricing engine. Searches answered
// from the cache do not price anything and are not counted.
func WithPricedCounter(c prometheus.Counter) Option {
	return func(s *Service) { s.priced = c }
}

// Service stores estimates and prices them on read.
type Service struct {
	store     Store
	materials MaterialLookup
	cache     Cache
	log       *zap.Logger
	priced    prometheus.Counter
	newID     func() string
}

// NewService returns a Service over s. materials resolves catalog references
// of auxiliary lines; cache may be cache.Nop.
func NewService(s Store, materials MaterialLookup, cache Cache, log *zap.Logger, opts ...Option) *Service {
	svc := &Service{
		store:     s,
		materials: materials,
		cache:     cache,
		log:       log,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Create stores a new estimate with its coefficients normalized.
func (s *Service) Create(ctx context.Context, e models.Estimate) (models.Estimate, error) {
	if err := e.Validate(); err != nil {
		return models.Estimate{}, err
	}

	exists, err := s.store.Exists(ctx, e.Name)
	if err != nil {
		s.log.Error("estimate create: find", zap.String("name", e.Name), zap.Error(err))
		return models.Estimate{}, apperr.StoreFailure(fmt.Sprintf("Не удалось сохранить смету: %s", e.Name), err)
	}
	if exists {
		return models.Estimate{}, apperr.Conflict("Такая смета уже есть")
	}

	e.Normalize()
	e.ID = s.newID()
	if err := s.store.Insert(ctx, e); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return models.Estimate{}, apperr.Conflict("Такая смета уже есть")
		}
		s.log.Error("estimate create: insert", zap.String("name", e.Name), zap.Error(err))
		return models.Estimate{}, apperr.StoreFailure(fmt.Sprintf("Не удалось сохранить смету: %s", e.Name), err)
	}
	s.invalidate(ctx)
	return e, nil
}

// Update merges patch into the estimate stored under name. Concurrent updates
// of the same estimate are last-write-wins.
func (s *Service) Update(ctx context.Context, name string, patch models.EstimatePatch) (models.Estimate, error) {
	if name == "" {
		return models.Estimate{}, apperr.InvalidInput("Отсутствует имя сметы")
	}

	current, err := s.store.Get(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return models.Estimate{}, apperr.NotFound(fmt.Sprintf("Смета не найдена: %s", name))
	}
	if err != nil {
		s.log.Error("estimate update: find", zap.String("name", name), zap.Error(err))
		return models.Estimate{}, apperr.StoreFailure(fmt.Sprintf("Не удалось изменить смету: %s", name), err)
	}

	merged := patch.Apply(current)
	if err := merged.Validate(); err != nil {
		return models.Estimate{}, err
	}
	merged.Normalize()
	merged.ID = current.ID

	if err := s.store.Replace(ctx, name, merged); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			return models.Estimate{}, apperr.Conflict(fmt.Sprintf("Смета с именем %s уже есть", merged.Name))
		case errors.Is(err, store.ErrNotFound):
			return models.Estimate{}, apperr.NotFound(fmt.Sprintf("Смета не найдена: %s", name))
		}
		s.log.Error("estimate update: save", zap.String("name", name), zap.Error(err))
		return models.Estimate{}, apperr.StoreFailure(fmt.Sprintf("Не удалось изменить смету: %s", name), err)
	}
	s.invalidate(ctx)
	return merged, nil
}

// Delete removes the estimate stored under name.
func (s *Service) Delete(ctx context.Context, name string) error {
	if name == "" {
		return apperr.InvalidInput("Отсутствует имя сметы")
	}
	err := s.store.Delete(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(fmt.Sprintf("Смета не найдена: %s", name))
	}
	if err != nil {
		s.log.Error("estimate delete", zap.String("name", name), zap.Error(err))
		return apperr.StoreFailure(fmt.Sprintf("Не удалось удалить смету: %s", name), err)
	}
	s.invalidate(ctx)
	return nil
}

// Get returns the priced estimate stored under name.
func (s *Service) Get(ctx context.Context, name string) (pricing.EstimateView, error) {
	e, err := s.store.Get(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return pricing.EstimateView{}, apperr.NotFound(fmt.Sprintf("Смета не найдена: %s", name))
	}
	if err != nil {
		s.log.Error("estimate get", zap.String("name", name), zap.Error(err))
		return pricing.EstimateView{}, apperr.StoreFailure(fmt.Sprintf("Не удалось получить смету: %s", name), err)
	}
	return s.price(ctx, e, newResolver(s.materials, s.log)), nil
}

// Search returns the priced estimates whose name matches pattern, ordered by
// name. pattern is a regular expression; one that does not compile is
// matched as a plain substring. An empty pattern matches everything.
func (s *Service) Search(ctx context.Context, pattern string) ([]pricing.EstimateView, error) {
	key := searchKeyPrefix + pattern

	var cached []pricing.EstimateView
	gen, hit, err := s.cache.Get(ctx, key, &cached)
	cacheOK := err == nil
	if !cacheOK {
		s.log.Warn("estimate search: cache read", zap.Error(err))
	} else if hit {
		return cached, nil
	}

	match := nameMatcher(pattern)
	raw, err := s.store.List(ctx, func(e models.Estimate) bool { return match(e.Name) })
	if err != nil {
		s.log.Error("estimate search", zap.String("search", pattern), zap.Error(err))
		return nil, apperr.StoreFailure("Не удалось получить список смет", err)
	}

	r := newResolver(s.materials, s.log)
	views := make([]pricing.EstimateView, 0, len(raw))
	for _, e := range raw {
		views = append(views, s.price(ctx, e, r))
	}

	if cacheOK {
		if err := s.cache.Set(ctx, gen, key, views); err != nil {
			s.log.Warn("estimate search: cache write", zap.Error(err))
		}
	}
	return views, nil
}

func (s *Service) price(ctx context.Context, e models.Estimate, r *resolver) pricing.EstimateView {
	if s.priced != nil {
		s.priced.Inc()
	}
	return pricing.PriceEstimate(r.resolve(ctx, e))
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("cache invalidation failed", zap.Error(err))
	}
}

func nameMatcher(pattern string) func(string) bool {
	if pattern == "" {
		return func(string) bool { return true }
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return func(name string) bool { return strings.Contains(name, pattern) }
	}
	return re.MatchString
}
