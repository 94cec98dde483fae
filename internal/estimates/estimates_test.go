package estimates

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Simplici0/smeta/internal/apperr"
	"github.com/Simplici0/smeta/internal/cache"
	"github.com/Simplici0/smeta/internal/catalog"
	"github.com/Simplici0/smeta/internal/models"
	"github.com/Simplici0/smeta/internal/store"
	"github.com/Simplici0/smeta/internal/testdb"
)

type fixture struct {
	svc     *Service
	catalog *catalog.Service
	raw     *store.Collection[models.Estimate]
	priced  prometheus.Counter
}

func newFixture(t *testing.T, c Cache) fixture {
	t.Helper()
	database := testdb.Open(t)
	if c == nil {
		c = cache.Nop{}
	}
	cat := catalog.NewService(store.Materials(database), c, zap.NewNop())
	raw := store.Estimates(database)
	priced := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_priced_total"})
	return fixture{
		svc:     NewService(raw, cat, c, zap.NewNop(), WithPricedCounter(priced)),
		catalog: cat,
		raw:     raw,
		priced:  priced,
	}
}

func typical() models.Estimate {
	return models.Estimate{
		Name:        "Типовая смета",
		Date:        "2022-01-28",
		Customer:    "Конрад Карлович Михельсон",
		Residence:   "ЖК Алые Паруса",
		Layout:      "2x комнатная квартира",
		Style:       "Классический",
		CoeffCommon: models.Coeff(1.2),
		Items: []models.Item{{
			Name:            "Монтаж LED подсветки",
			Stage:           "Чистовая отделка",
			PriceNet:        4000,
			Amount:          10,
			CoeffIndividual: models.Coeff(1),
			Auxiliary:       []models.AuxiliaryLine{{Name: "Скрепки", Unit: "шт", PriceNet: 20, Amount: 10}},
		}},
	}
}

func TestCreateThenSearchRoundTrip(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, typical())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	found, err := f.svc.Search(ctx, "Типовая смета")
	require.NoError(t, err)
	require.Len(t, found, 1)

	v := found[0]
	assert.Equal(t, created.ID, v.ID)
	assert.Equal(t, "Конрад Карлович Михельсон", v.Customer)
	assert.InDelta(t, 4020, v.Items[0].PriceBrutto, 1e-9)
	assert.InDelta(t, 40200, v.Items[0].TotalBrutto, 1e-9)
	assert.InDelta(t, 48240, v.TotalEstimate, 1e-9)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.priced))
}

func TestCreateNormalizesCoefficientsAtWrite(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	in := models.Estimate{
		Name:  "Без коэффициентов",
		Items: []models.Item{{Name: "Плитка", PriceNet: 10, Amount: 2, CoeffIndividual: models.Coeff(0)}},
	}
	_, err := f.svc.Create(ctx, in)
	require.NoError(t, err)

	stored, err := f.raw.Get(ctx, "Без коэффициентов")
	require.NoError(t, err)
	require.NotNil(t, stored.CoeffCommon)
	assert.Equal(t, 1.0, *stored.CoeffCommon)
	assert.Equal(t, 1.0, *stored.Items[0].CoeffIndividual)
}

func TestCreateMissingNameWritesNothing(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, models.Estimate{Customer: "Клиент"})

	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
	all, err := f.raw.List(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateDuplicateLeavesExistingUnchanged(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	original, err := f.svc.Create(ctx, typical())
	require.NoError(t, err)

	dup := typical()
	dup.Customer = "Другой клиент"
	_, err = f.svc.Create(ctx, dup)

	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, "Такая смета уже есть", apperr.Message(err))
	stored, err := f.raw.Get(ctx, original.Name)
	require.NoError(t, err)
	assert.Equal(t, original, stored)
}

func TestUpdateMergesPatch(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, typical())
	require.NoError(t, err)

	style := "Лофт"
	updated, err := f.svc.Update(ctx, "Типовая смета", models.EstimatePatch{Style: &style, CoeffCommon: models.Coeff(0)})
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Лофт", updated.Style)
	assert.Equal(t, created.Customer, updated.Customer)
	assert.Equal(t, 1.0, *updated.CoeffCommon)
	assert.Len(t, updated.Items, 1)
}

func TestUpdateErrors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, typical())
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, models.Estimate{Name: "Вторая"})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, "Нет такой", models.EstimatePatch{})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "Смета не найдена: Нет такой", apperr.Message(err))

	empty := ""
	_, err = f.svc.Update(ctx, "Типовая смета", models.EstimatePatch{Name: &empty})
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	taken := "Вторая"
	_, err = f.svc.Update(ctx, "Типовая смета", models.EstimatePatch{Name: &taken})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = f.svc.Update(ctx, "", models.EstimatePatch{})
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestUpdateRename(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, typical())
	require.NoError(t, err)

	renamed := "Смета на ремонт"
	_, err = f.svc.Update(ctx, "Типовая смета", models.EstimatePatch{Name: &renamed})
	require.NoError(t, err)

	found, err := f.svc.Search(ctx, "")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Смета на ремонт", found[0].Name)
}

func TestDelete(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, typical())
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, "Типовая смета"))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(f.svc.Delete(ctx, "Типовая смета")))
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(f.svc.Delete(ctx, "")))
}

func TestSearchPatterns(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	for _, name := range []string{"Кухня", "Ванная (эконом)", "Ванная комната"} {
		_, err := f.svc.Create(ctx, models.Estimate{Name: name})
		require.NoError(t, err)
	}

	names := func(pattern string) []string {
		t.Helper()
		found, err := f.svc.Search(ctx, pattern)
		require.NoError(t, err)
		out := make([]string, 0, len(found))
		for _, v := range found {
			out = append(out, v.Name)
		}
		return out
	}

	assert.Equal(t, []string{"Ванная (эконом)", "Ванная комната", "Кухня"}, names(""))
	assert.Equal(t, []string{"Ванная (эконом)", "Ванная комната"}, names("Ванная"))
	assert.Equal(t, []string{"Кухня"}, names("^Кух"))
	assert.Equal(t, []string{"Ванная (эконом)"}, names("(эконом"))
	assert.Empty(t, names("Спальня"))
}

func TestGet(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, typical())
	require.NoError(t, err)

	v, err := f.svc.Get(ctx, "Типовая смета")
	require.NoError(t, err)
	assert.InDelta(t, 48240, v.TotalEstimate, 1e-9)

	_, err = f.svc.Get(ctx, "Нет такой")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestSearchResolvesCatalogReferences(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.catalog.Create(ctx, models.Material{Name: "Скрепки", Unit: "шт", PriceNet: 30, Purpose: models.PurposeAuxiliary})
	require.NoError(t, err)

	e := typical()
	e.Items[0].Auxiliary = []models.AuxiliaryLine{
		{MaterialRef: "Скрепки", Name: "Скрепки (старая цена)", PriceNet: 20, Amount: 10},
		{MaterialRef: "Нет в каталоге", Name: "Клей", PriceNet: 5, Amount: 2},
	}
	_, err = f.svc.Create(ctx, e)
	require.NoError(t, err)

	v, err := f.svc.Get(ctx, "Типовая смета")
	require.NoError(t, err)

	aux := v.Items[0].Auxiliary
	require.Len(t, aux, 2)
	assert.Equal(t, "Скрепки", aux[0].Name)
	assert.InDelta(t, 300, aux[0].TotalNet, 1e-9)
	assert.Equal(t, "Клей", aux[1].Name)
	assert.InDelta(t, 10, aux[1].TotalNet, 1e-9)
	// (300 + 10) / 10 = 31 per unit
	assert.InDelta(t, 4031, v.Items[0].PriceBrutto, 1e-9)

	stored, err := f.raw.Get(ctx, "Типовая смета")
	require.NoError(t, err)
	assert.Equal(t, 20.0, stored.Items[0].Auxiliary[0].PriceNet, "resolution must not touch the stored document")
}

func TestSearchUsesCacheUntilWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	f := newFixture(t, cache.New(rdb, "smeta:test:", time.Minute, zap.NewNop()))
	ctx := context.Background()

	_, err := f.svc.Create(ctx, typical())
	require.NoError(t, err)

	first, err := f.svc.Search(ctx, "")
	require.NoError(t, err)
	require.Len(t, first, 1)
	second, err := f.svc.Search(ctx, "")
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.InDelta(t, first[0].TotalEstimate, second[0].TotalEstimate, 1e-9)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.priced), "second search must be served from cache")

	_, err = f.svc.Create(ctx, models.Estimate{Name: "Вторая"})
	require.NoError(t, err)

	third, err := f.svc.Search(ctx, "")
	require.NoError(t, err)
	assert.Len(t, third, 2)
}

// listHook runs after once, after the first List has read its rows.
type listHook struct {
	Store
	after func()
}

func (l *listHook) List(ctx context.Context, match func(models.Estimate) bool) ([]models.Estimate, error) {
	rows, err := l.Store.List(ctx, match)
	if l.after != nil {
		after := l.after
		l.after = nil
		after()
	}
	return rows, err
}

func TestSearchDoesNotCacheResultOverlappedByWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	c := cache.New(rdb, "smeta:test:", time.Minute, zap.NewNop())
	database := testdb.Open(t)
	cat := catalog.NewService(store.Materials(database), c, zap.NewNop())
	hooked := &listHook{Store: store.Estimates(database)}
	svc := NewService(hooked, cat, c, zap.NewNop())
	ctx := context.Background()

	hooked.after = func() {
		_, err := svc.Create(ctx, models.Estimate{Name: "Новая"})
		require.NoError(t, err)
	}

	during, err := svc.Search(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, during)

	after, err := svc.Search(ctx, "")
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "Новая", after[0].Name)
}
