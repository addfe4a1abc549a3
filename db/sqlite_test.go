package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phronesis/models"
)

func newTestStore(t *testing.T) *SQLiteResultStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "results.db")
	store, err := NewSQLiteResultStore(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRow(id string, at time.Time) models.ResultRow {
	turns := []models.DialogueTurn{
		{Speaker: models.SpeakerAgent, Text: "무엇을 고치셨나요?"},
		{Speaker: models.SpeakerUser, Text: "의자요"},
	}
	report := models.Report{
		models.ReportKeyTitle:      "Nova",
		models.ReportKeyConfidence: "92%",
		"extra":                    "kept",
	}
	choice := models.ArchetypeChoice{Location: models.LocationWorkshop, Tool: models.ToolRepairKit}
	return models.NewResultRow(id, at, models.DefaultCatalog(), choice, report, turns)
}

func TestSQLiteAppendAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"first", "second", "third"} {
		require.NoError(t, store.AppendResult(ctx, sampleRow(id, base.Add(time.Duration(i)*time.Minute))))
	}

	rows, total, err := store.ListResults(ctx, 2, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, rows, 2)
	assert.Equal(t, "third", rows[0].SessionID)
	assert.Equal(t, "second", rows[1].SessionID)

	got := rows[0]
	assert.Equal(t, "2026-10-18 09:02:00", got.Timestamp)
	assert.Equal(t, "Nova", got.Title)
	assert.Equal(t, "92%", got.Confidence)
	assert.Equal(t, "kept", got.Report["extra"])
	assert.Equal(t, "[Agent] 무엇을 고치셨나요?\n[User] 의자요", got.Transcript)
	assert.True(t, base.Add(2*time.Minute).Equal(got.CreatedAt))

	rows, _, err = store.ListResults(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "first", rows[0].SessionID)
}

func TestSQLiteListEmpty(t *testing.T) {
	store := newTestStore(t)

	rows, total, err := store.ListResults(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, rows)
}

func TestSQLiteClosedStoreReportsPersistenceError(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Close())

	err := store.AppendResult(context.Background(), sampleRow("late", time.Now()))
	assert.True(t, errors.Is(err, ErrPersistence))
}

func TestSQLiteReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	ctx := context.Background()

	store, err := NewSQLiteResultStore(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.AppendResult(ctx, sampleRow("persisted", time.Now())))
	require.NoError(t, store.Close())

	store, err = NewSQLiteResultStore(ctx, path)
	require.NoError(t, err)
	defer store.Close()

	_, total, err := store.ListResults(ctx, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestDocumentConversionRoundTrip(t *testing.T) {
	row := sampleRow("doc", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	assert.Equal(t, row, fromDocument(toDocument(row)))
}
