package seed

import (
	"context"
	"fmt"

	"github.com/Simplici0/smeta/internal/apperr"
	"github.com/Simplici0/smeta/internal/models"
)

// defaultMaterials are the catalog entries a fresh installation starts with.
var defaultMaterials = []models.Material{
	{Name: "Монтаж LED подсветки", Category: "Электрика", Unit: "м", PriceNet: 4000, Purpose: models.PurposeBasic},
	{Name: "Скрепки", Category: "Крепёж", Unit: "шт", PriceNet: 20, Purpose: models.PurposeAuxiliary},
}

// MaterialCreator is satisfied by *catalog.Service.
type MaterialCreator interface {
	Create(ctx context.Context, m models.Material) (models.Material, error)
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Skipped int
}

// Run adds the default catalog entries in an idempotent way: entries whose
// name is already taken are left as they are.
func Run(ctx context.Context, materials MaterialCreator) (Stats, error) {
	stats := Stats{}
	for _, m := range defaultMaterials {
		_, err := materials.Create(ctx, m)
		switch {
		case err == nil:
			stats.Inserts++
		case apperr.KindOf(err) == apperr.KindConflict:
			stats.Skipped++
		default:
			return stats, fmt.Errorf("seed material %q: %w", m.Name, err)
		}
	}
	return stats, nil
}
