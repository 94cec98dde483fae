package estimates

import (
	"context"

	"go.uber.org/zap"

	"github.com/Simplici0/smeta/internal/apperr"
	"github.com/Simplici0/smeta/internal/models"
)

// resolver replaces auxiliary lines that reference a catalog material with a
// snapshot of that material. Lookups are memoized for one read.
type resolver struct {
	materials MaterialLookup
	log       *zap.Logger
	seen      map[string]*models.Material
}

func newResolver(materials MaterialLookup, log *zap.Logger) *resolver {
	return &resolver{materials: materials, log: log, seen: make(map[string]*models.Material)}
}

// resolve returns a copy of e with referenced auxiliary lines filled from the
// catalog. Unknown references keep their inline values.
func (r *resolver) resolve(ctx context.Context, e models.Estimate) models.Estimate {
	if r.materials == nil || !hasRefs(e) {
		return e
	}

	out := e
	out.Items = make([]models.Item, len(e.Items))
	for i, item := range e.Items {
		aux := make([]models.AuxiliaryLine, len(item.Auxiliary))
		for j, line := range item.Auxiliary {
			aux[j] = line
			if line.MaterialRef == "" {
				continue
			}
			if m := r.lookup(ctx, line.MaterialRef); m != nil {
				aux[j].Name = m.Name
				aux[j].Category = m.Category
				aux[j].Unit = m.Unit
				aux[j].PriceNet = m.PriceNet
			}
		}
		item.Auxiliary = aux
		out.Items[i] = item
	}
	return out
}

func (r *resolver) lookup(ctx context.Context, name string) *models.Material {
	if m, ok := r.seen[name]; ok {
		return m
	}
	m, err := r.materials.Get(ctx, name)
	switch {
	case err == nil:
		r.seen[name] = &m
		return &m
	case apperr.KindOf(err) == apperr.KindNotFound:
		r.log.Debug("auxiliary material reference not in catalog", zap.String("material", name))
	default:
		r.log.Warn("auxiliary material lookup failed", zap.String("material", name), zap.Error(err))
	}
	r.seen[name] = nil
	return nil
}

func hasRefs(e models.Estimate) bool {
	for _, item := range e.Items {
		for _, line := range item.Auxiliary {
			if line.MaterialRef != "" {
				return true
			}
		}
	}
	return false
}
