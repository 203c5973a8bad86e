package persist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"collection-mapper/core/equivalency"
	"collection-mapper/core/mapping"
	"collection-mapper/core/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type recordDTO struct {
	ID    uint
	Title string
}

type record struct {
	ID    uint `gorm:"primaryKey"`
	Title string
	Code  *string
}

func idRelation(t *testing.T) *equivalency.Relation[recordDTO, *record] {
	t.Helper()
	rel, err := equivalency.NewRelation[recordDTO, *record](equivalency.And(
		equivalency.Ne(equivalency.Src("ID"), equivalency.Lit(0)),
		equivalency.Eq(equivalency.Src("ID"), equivalency.Dst("ID")),
	))
	require.NoError(t, err)
	return rel
}

func recordCopier() mapping.Transformer[recordDTO, *record] {
	return mapping.MustFieldCopy[recordDTO, *record]()
}

// setupSQLite creates a private in-memory SQLite database with the records table.
func setupSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&record{}))
	return db
}

// stores returns the same seed data behind each Collection implementation.
func stores(t *testing.T, seed ...record) map[string]interface {
	Store[*record]
	SaveChanges(context.Context) (int, error)
	Tracker() *Tracker[record]
} {
	t.Helper()

	var items []*record
	for i := range seed {
		r := seed[i]
		items = append(items, &r)
	}
	mem := NewMemoryCollection(items...)

	db := setupSQLite(t)
	for i := range seed {
		r := seed[i]
		require.NoError(t, db.Create(&r).Error)
	}
	sql, err := NewGormCollection[record](db)
	require.NoError(t, err)

	return map[string]interface {
		Store[*record]
		SaveChanges(context.Context) (int, error)
		Tracker() *Tracker[record]
	}{
		"memory": mem,
		"gorm":   sql,
	}
}

// TestUpsert_Found covers merging onto a stored entity.
func TestUpsert_Found(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t, record{ID: 5, Title: "Old"}, record{ID: 6, Title: "Other"}) {
		t.Run(name, func(t *testing.T) {
			got, outcome, err := Upsert[recordDTO, *record](ctx, idRelation(t), recordDTO{ID: 5, Title: "Test"}, store, recordCopier())
			require.NoError(t, err)

			assert.Equal(t, Updated, outcome)
			assert.Equal(t, uint(5), got.ID)
			assert.Equal(t, "Test", got.Title)
			assert.Equal(t, Modified, store.Tracker().State(got))
			assert.Empty(t, store.Tracker().Pending(Added))

			all, err := store.All(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 2)

			n, err := store.SaveChanges(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			all, err = store.All(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "Test", all[0].Title)
			assert.Equal(t, "Other", all[1].Title)
		})
	}
}

// TestUpsert_NotFound covers staging a new entity.
func TestUpsert_NotFound(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t, record{ID: 5, Title: "Old"}) {
		t.Run(name, func(t *testing.T) {
			got, outcome, err := Upsert[recordDTO, *record](ctx, idRelation(t), recordDTO{ID: 9, Title: "New"}, store, recordCopier())
			require.NoError(t, err)

			assert.Equal(t, Created, outcome)
			assert.Equal(t, "New", got.Title)
			assert.Equal(t, []*record{got}, store.Tracker().Pending(Added))

			all, err := store.All(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 1, "pending additions are not visible before save")

			_, err = store.SaveChanges(ctx)
			require.NoError(t, err)

			all, err = store.All(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 2)
		})
	}
}

// TestUpsert_ZeroIDAlwaysCreates checks that the guard in the relation holds
// when the predicate is pushed down.
func TestUpsert_ZeroIDAlwaysCreates(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t, record{ID: 1, Title: "Old"}) {
		t.Run(name, func(t *testing.T) {
			_, outcome, err := Upsert[recordDTO, *record](ctx, idRelation(t), recordDTO{Title: "New"}, store, recordCopier())
			require.NoError(t, err)
			assert.Equal(t, Created, outcome)
		})
	}
}

// TestUpsertRegistered_NotRegistered checks that a missing relation leaves the collection untouched.
func TestUpsertRegistered_NotRegistered(t *testing.T) {
	ctx := context.Background()
	registry := equivalency.NewRegistry()
	existing := &record{ID: 1, Title: "Old"}
	mem := NewMemoryCollection(existing)

	_, _, err := UpsertRegistered(ctx, registry, recordDTO{ID: 1, Title: "New"}, Collection[*record](mem), recordCopier())
	require.Error(t, err)
	assert.True(t, equivalency.IsNotRegistered(err))

	assert.False(t, mem.Tracker().HasChanges())
	assert.Equal(t, "Old", existing.Title)
	assert.Equal(t, 1, mem.Len())

	require.NoError(t, equivalency.Register(registry, idRelation(t)))
	_, outcome, err := UpsertRegistered(ctx, registry, recordDTO{ID: 1, Title: "New"}, Collection[*record](mem), recordCopier())
	require.NoError(t, err)
	assert.Equal(t, Updated, outcome)
}

func TestUpsert_Errors(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryCollection[record]()

	t.Run("nil relation", func(t *testing.T) {
		_, _, err := Upsert[recordDTO, *record](ctx, nil, recordDTO{}, mem, recordCopier())
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("absent source", func(t *testing.T) {
		rel, err := equivalency.NewRelation[*recordDTO, *record](
			equivalency.Eq(equivalency.Src("ID"), equivalency.Dst("ID")))
		require.NoError(t, err)
		copier := mapping.MustFieldCopy[*recordDTO, *record]()

		_, _, err = Upsert[*recordDTO, *record](ctx, rel, nil, Collection[*record](mem), mapping.Transformer[*recordDTO, *record](copier))
		assert.ErrorIs(t, err, ErrInvalidArgument)
		assert.False(t, mem.Tracker().HasChanges())
	})

	t.Run("create failure stages nothing", func(t *testing.T) {
		failing := mapping.Funcs[recordDTO, *record]{
			CreateFunc: func(context.Context, recordDTO) (*record, error) { return nil, errors.New("boom") },
		}
		_, _, err := Upsert[recordDTO, *record](ctx, idRelation(t), recordDTO{ID: 3}, Collection[*record](mem), mapping.Transformer[recordDTO, *record](failing))
		assert.ErrorContains(t, err, "create: boom")
		assert.False(t, mem.Tracker().HasChanges())
	})
}

// TestReconcile_Store tests whole-collection reconciliation staged on each store.
func TestReconcile_Store(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t, record{ID: 1, Title: "a"}, record{ID: 2, Title: "b"}) {
		t.Run(name, func(t *testing.T) {
			source := []recordDTO{{ID: 1, Title: "A"}, {ID: 0, Title: "new"}}

			plan, n, err := Reconcile(ctx, reconcile.Matcher[recordDTO, *record](idRelation(t)), source, Store[*record](store), recordCopier(), true)
			require.NoError(t, err)
			assert.Equal(t, 0, n)
			assert.Equal(t, reconcile.PlanSummary{Matched: 1, Inserted: 1, Removed: 1}, plan.Summary)
			assert.False(t, store.Tracker().HasChanges())

			_, n, err = Reconcile(ctx, reconcile.Matcher[recordDTO, *record](idRelation(t)), source, Store[*record](store), recordCopier(), false)
			require.NoError(t, err)
			assert.Equal(t, 3, n)
			assert.Len(t, store.Tracker().Pending(Added), 1)
			assert.Len(t, store.Tracker().Pending(Modified), 1)
			assert.Len(t, store.Tracker().Pending(Deleted), 1)

			_, err = store.SaveChanges(ctx)
			require.NoError(t, err)

			all, err := store.All(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "A", all[0].Title)
			assert.Equal(t, "new", all[1].Title)
		})
	}
}

// TestReconcile_AbsentSource checks that a nil source stages nothing while an
// empty one stages the removal of every stored entity.
func TestReconcile_AbsentSource(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t, record{ID: 1, Title: "a"}, record{ID: 2, Title: "b"}) {
		t.Run(name, func(t *testing.T) {
			_, n, err := Reconcile(ctx, reconcile.Matcher[recordDTO, *record](idRelation(t)), nil, Store[*record](store), recordCopier(), false)
			assert.ErrorIs(t, err, ErrInvalidArgument)
			assert.Zero(t, n)
			assert.False(t, store.Tracker().HasChanges())

			plan, n, err := Reconcile(ctx, reconcile.Matcher[recordDTO, *record](idRelation(t)), []recordDTO{}, Store[*record](store), recordCopier(), false)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
			assert.Equal(t, 2, plan.Summary.Removed)
			assert.Len(t, store.Tracker().Pending(Deleted), 2)
		})
	}
}

// TestPlanApply_SeparateSteps applies a plan to entities loaded in a later call.
func TestPlanApply_SeparateSteps(t *testing.T) {
	ctx := context.Background()
	rel := reconcile.Matcher[recordDTO, *record](idRelation(t))

	for name, store := range stores(t, record{ID: 1, Title: "a"}, record{ID: 2, Title: "b"}) {
		t.Run(name, func(t *testing.T) {
			plan, current, err := Plan(ctx, rel, []recordDTO{{ID: 2, Title: "B"}}, Store[*record](store))
			require.NoError(t, err)
			assert.Len(t, current, 2)
			assert.False(t, store.Tracker().HasChanges())

			fresh, err := store.All(ctx)
			require.NoError(t, err)
			n, err := Apply(ctx, plan, fresh, Store[*record](store), recordCopier())
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			_, err = store.SaveChanges(ctx)
			require.NoError(t, err)

			all, err := store.All(ctx)
			require.NoError(t, err)
			require.Len(t, all, 1)
			assert.Equal(t, "B", all[0].Title)

			_, err = Apply(ctx, plan, all, Store[*record](store), recordCopier())
			assert.ErrorIs(t, err, reconcile.ErrStalePlan)
		})
	}
}
