package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/model"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *storage.SQLite {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLite_SetRule(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rule := &model.Rule{
		Name:       "low-balance",
		Account:    "home",
		Sensor:     "balance",
		Comparison: model.CompareBelow,
		Threshold:  10,
	}
	require.NoError(t, db.SetRule(ctx, rule))
	assert.NotEmpty(t, rule.ID)
	assert.False(t, rule.CreatedAt.IsZero())

	got, err := db.GetRule(ctx, "low-balance")
	require.NoError(t, err)
	assert.Equal(t, rule.ID, got.ID)
	assert.Equal(t, "home", got.Account)
	assert.Equal(t, "balance", got.Sensor)
	assert.Equal(t, model.CompareBelow, got.Comparison)
	assert.Equal(t, 10.0, got.Threshold)
	assert.False(t, got.Triggered)
}

func TestSQLite_SetRule_UpsertKeepsIDAndResetsState(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := &model.Rule{Name: "data-cap", Account: "home", Sensor: "data_used", Comparison: model.CompareAbove, Threshold: 900}
	require.NoError(t, db.SetRule(ctx, first))
	require.NoError(t, db.UpdateRuleState(ctx, "data-cap", true, 950))

	update := &model.Rule{Name: "data-cap", Account: "home", Sensor: "data_used", Comparison: model.CompareAbove, Threshold: 1000}
	require.NoError(t, db.SetRule(ctx, update))
	assert.Equal(t, first.ID, update.ID)

	got, err := db.GetRule(ctx, "data-cap")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, got.Threshold)
	assert.False(t, got.Triggered)
	assert.Equal(t, 0.0, got.LastValue)
}

func TestSQLite_SetRule_RejectsUnknownComparison(t *testing.T) {
	db := newTestDB(t)
	err := db.SetRule(context.Background(), &model.Rule{Name: "x", Account: "a", Sensor: "s", Comparison: "sideways"})
	assert.Error(t, err)
}

func TestSQLite_ListRules(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rules := []*model.Rule{
		{Name: "b-home-balance", Account: "home", Sensor: "balance", Comparison: model.CompareBelow, Threshold: 5},
		{Name: "a-home-data", Account: "home", Sensor: "data_used", Comparison: model.CompareAbove, Threshold: 900},
		{Name: "c-office-balance", Account: "office", Sensor: "balance", Comparison: model.CompareBelow, Threshold: 20},
	}
	for _, r := range rules {
		require.NoError(t, db.SetRule(ctx, r))
	}

	all, err := db.ListRules(ctx, storage.RuleFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a-home-data", all[0].Name)

	home, err := db.ListRules(ctx, storage.RuleFilter{Account: "home"})
	require.NoError(t, err)
	assert.Len(t, home, 2)

	balance, err := db.ListRules(ctx, storage.RuleFilter{Account: "office", Sensor: "balance"})
	require.NoError(t, err)
	assert.Len(t, balance, 1)

	none, err := db.ListRules(ctx, storage.RuleFilter{Account: "nobody"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLite_UpdateRuleState(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SetRule(ctx, &model.Rule{Name: "r", Account: "home", Sensor: "balance", Comparison: model.CompareBelow, Threshold: 5}))
	require.NoError(t, db.UpdateRuleState(ctx, "r", true, 3.5))

	got, err := db.GetRule(ctx, "r")
	require.NoError(t, err)
	assert.True(t, got.Triggered)
	assert.Equal(t, 3.5, got.LastValue)
}

func TestSQLite_NotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.GetRule(ctx, "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, db.UpdateRuleState(ctx, "nonexistent", true, 1), storage.ErrNotFound)
	assert.ErrorIs(t, db.DeleteRule(ctx, "nonexistent"), storage.ErrNotFound)
}

func TestSQLite_DeleteRule(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SetRule(ctx, &model.Rule{Name: "r", Account: "home", Sensor: "balance", Comparison: model.CompareBelow, Threshold: 5}))
	require.NoError(t, db.DeleteRule(ctx, "r"))

	_, err := db.GetRule(ctx, "r")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSQLite_MigrationIdempotency(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db1, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, db1.SetRule(context.Background(), &model.Rule{Name: "r", Account: "a", Sensor: "balance", Comparison: model.CompareBelow, Threshold: 1}))
	db1.Close()

	db2, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	defer db2.Close()

	got, err := db2.GetRule(context.Background(), "r")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Account)
}
