package store

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/senselib/senselib/internal/model"
	"github.com/senselib/senselib/pkg/component/milvus"
)

type fakePayloadSource struct {
	points  []milvus.SearchResult
	deleted []int64
}

func (f *fakePayloadSource) QueryByFilter(_ context.Context, _ string, _ string) ([]milvus.SearchResult, error) {
	return f.points, nil
}

func (f *fakePayloadSource) DeleteByIDs(_ context.Context, _ string, ids []int64) error {
	f.deleted = append(f.deleted, ids...)
	return nil
}

func TestReconcileFindsOrphans(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	s, err := NewFromDB(db)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, &model.Document{ID: "live", Title: "L", Source: "l", FileHash: "livehash"}))
	require.NoError(t, s.UpdateStatus(ctx, "live", model.StatusAvailable))
	require.NoError(t, s.Create(ctx, &model.Document{ID: "gone", Title: "G", Source: "g", FileHash: "gonehash"}))
	require.NoError(t, s.UpdateStatus(ctx, "gone", model.StatusRejected))

	source := &fakePayloadSource{points: []milvus.SearchResult{
		{ID: 1, Metadata: map[string]any{"content_hash": "livehash"}},
		{ID: 2, Metadata: map[string]any{"content_hash": "gonehash"}},
		{ID: 3, Metadata: map[string]any{"content_hash": "unknownhash"}},
		{ID: 4, Metadata: map[string]any{}},
	}}

	r := NewReconciler(s, source)
	report, err := r.Reconcile(ctx, "senselib")
	require.NoError(t, err)

	assert.ElementsMatch(t, []int64{2, 3, 4}, report.OrphanedPoints)
	assert.Equal(t, 1, report.LivePoints)
	assert.Empty(t, report.MissingDocuments)
}

func TestReconcileFindsMissingDocuments(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	s, err := NewFromDB(db)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, &model.Document{ID: "unindexed", Title: "U", Source: "u", FileHash: "uhash"}))
	require.NoError(t, s.UpdateStatus(ctx, "unindexed", model.StatusAvailable))

	r := NewReconciler(s, &fakePayloadSource{})
	report, err := r.Reconcile(ctx, "senselib")
	require.NoError(t, err)

	assert.Equal(t, []string{"unindexed"}, report.MissingDocuments)
}

func TestPurgeOrphans(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	s, err := NewFromDB(db)
	require.NoError(t, err)

	source := &fakePayloadSource{}
	r := NewReconciler(s, source)

	require.NoError(t, r.PurgeOrphans(context.Background(), "senselib", &Report{
		OrphanedPoints: []int64{7, 8},
	}))
	assert.Equal(t, []int64{7, 8}, source.deleted)

	// Empty report issues no delete.
	require.NoError(t, r.PurgeOrphans(context.Background(), "senselib", &Report{}))
	assert.Len(t, source.deleted, 2)
}
