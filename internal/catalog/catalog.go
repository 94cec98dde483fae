// Package catalog manages the material catalog.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Simplici0/smeta/internal/apperr"
	"github.com/Simplici0/smeta/internal/models"
	"github.com/Simplici0/smeta/internal/store"
)

// Store is the persistence the catalog needs; *store.Collection satisfies it.
type Store interface {
	Insert(ctx context.Context, m models.Material) error
	Get(ctx context.Context, name string) (models.Material, error)
	Exists(ctx context.Context, name string) (bool, error)
	Replace(ctx context.Context, name string, m models.Material) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context, match func(models.Material) bool) ([]models.Material, error)
}

// Invalidator drops cached reads that may embed catalog values.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service manages the materials catalog.
type Service struct {
	store Store
	cache Invalidator
	log   *zap.Logger
	newID func() string
}

// NewService returns a Service over s. Every successful write calls
// cache.Invalidate.
func NewService(s Store, cache Invalidator, log *zap.Logger) *Service {
	return &Service{store: s, cache: cache, log: log, newID: uuid.NewString}
}

// Create adds a material. The name must be unused.
func (s *Service) Create(ctx context.Context, m models.Material) (models.Material, error) {
	if err := m.Validate(); err != nil {
		return models.Material{}, err
	}

	exists, err := s.store.Exists(ctx, m.Name)
	if err != nil {
		s.log.Error("catalog create: find", zap.String("name", m.Name), zap.Error(err))
		return models.Material{}, apperr.StoreFailure(fmt.Sprintf("Не удалось сохранить материал: %s", m.Name), err)
	}
	if exists {
		return models.Material{}, apperr.Conflict("Такой материал уже есть")
	}

	m.ID = s.newID()
	if err := s.store.Insert(ctx, m); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return models.Material{}, apperr.Conflict("Такой материал уже есть")
		}
		s.log.Error("catalog create: insert", zap.String("name", m.Name), zap.Error(err))
		return models.Material{}, apperr.StoreFailure(fmt.Sprintf("Не удалось сохранить материал: %s", m.Name), err)
	}
	s.invalidate(ctx)
	return m, nil
}

// Update replaces the material stored under name with m. The stored id is kept.
func (s *Service) Update(ctx context.Context, name string, m models.Material) (models.Material, error) {
	if name == "" {
		return models.Material{}, apperr.InvalidInput("Отсутствует имя материала")
	}

	current, err := s.store.Get(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return models.Material{}, apperr.NotFound(fmt.Sprintf("Материал не найден: %s", name))
	}
	if err != nil {
		s.log.Error("catalog update: find", zap.String("name", name), zap.Error(err))
		return models.Material{}, apperr.StoreFailure(fmt.Sprintf("Не удалось изменить материал: %s", name), err)
	}

	if err := m.Validate(); err != nil {
		return models.Material{}, err
	}
	m.ID = current.ID

	if err := s.store.Replace(ctx, name, m); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			return models.Material{}, apperr.Conflict("Такой материал уже есть")
		case errors.Is(err, store.ErrNotFound):
			return models.Material{}, apperr.NotFound(fmt.Sprintf("Материал не найден: %s", name))
		}
		s.log.Error("catalog update: save", zap.String("name", name), zap.Error(err))
		return models.Material{}, apperr.StoreFailure(fmt.Sprintf("Не удалось изменить материал: %s", name), err)
	}
	s.invalidate(ctx)
	return m, nil
}

// Delete removes the material stored under name.
func (s *Service) Delete(ctx context.Context, name string) error {
	if name == "" {
		return apperr.InvalidInput("Отсутствует имя материала")
	}
	err := s.store.Delete(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(fmt.Sprintf("Материал не найден: %s", name))
	}
	if err != nil {
		s.log.Error("catalog delete", zap.String("name", name), zap.Error(err))
		return apperr.StoreFailure(fmt.Sprintf("Не удалось удалить материал: %s", name), err)
	}
	s.invalidate(ctx)
	return nil
}

// Get returns the material stored under name.
func (s *Service) Get(ctx context.Context, name string) (models.Material, error) {
	m, err := s.store.Get(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return models.Material{}, apperr.NotFound(fmt.Sprintf("Материал не найден: %s", name))
	}
	if err != nil {
		s.log.Error("catalog get", zap.String("name", name), zap.Error(err))
		return models.Material{}, apperr.StoreFailure(fmt.Sprintf("Не удалось получить материал: %s", name), err)
	}
	return m, nil
}

// Search returns materials whose name contains pattern and, when purpose is
// set, whose purpose equals it.
func (s *Service) Search(ctx context.Context, pattern string, purpose models.Purpose) ([]models.Material, error) {
	out, err := s.store.List(ctx, func(m models.Material) bool {
		if purpose != "" && m.Purpose != purpose {
			return false
		}
		return strings.Contains(m.Name, pattern)
	})
	if err != nil {
		s.log.Error("catalog search", zap.String("search", pattern), zap.Error(err))
		return nil, apperr.StoreFailure("Не удалось получить список материалов", err)
	}
	return out, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("cache invalidation failed", zap.Error(err))
	}
}
