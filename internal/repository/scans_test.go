package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ashwini-cargo/constants"
	"github.com/joseph-ayodele/ashwini-cargo/internal/common"
	"github.com/joseph-ayodele/ashwini-cargo/internal/lrparse"
)

func newScanRepo(t *testing.T) *scanRepo {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "scans.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewScanRepository(db, testLogger()).(*scanRepo)
}

// steppingClock advances by one minute on every call.
func steppingClock(start time.Time) func() time.Time {
	cur := start
	return func() time.Time {
		cur = cur.Add(time.Minute)
		return cur
	}
}

func TestScanRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newScanRepo(t)

	scan, err := repo.Create(ctx, "lr-19893.jpg", "abc123", 2048)
	require.NoError(t, err)
	assert.Equal(t, constants.ScanStatusQueued, scan.Status)
	assert.Equal(t, "lr-19893.jpg", scan.Filename)
	assert.Nil(t, scan.StartedAt)
	assert.False(t, scan.Terminal())

	require.NoError(t, repo.Start(ctx, scan.ID))
	got, err := repo.Get(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.ScanStatusRunning, got.Status)
	require.NotNil(t, got.StartedAt)

	rec := lrparse.Parse("LR No: 19893\nTruck/No.: TN81AY3420\nTotal Freight 1,05,000")
	require.NoError(t, repo.FinishParsed(ctx, scan.ID, "image-ocr", rec))

	got, err = repo.Get(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.ScanStatusParsed, got.Status)
	assert.True(t, got.Terminal())
	assert.True(t, got.NeedsReview)
	require.NotNil(t, got.Method)
	assert.Equal(t, "image-ocr", *got.Method)
	require.NotNil(t, got.Record.LRNumber)
	assert.Equal(t, "19893", *got.Record.LRNumber)
	require.NotNil(t, got.Record.TotalFreight)
	assert.Equal(t, 105000.0, *got.Record.TotalFreight)
	assert.Nil(t, got.Record.ConsigneeName)
	assert.Equal(t, constants.PaymentUnknown, got.Record.PaymentStatus)
	assert.Equal(t, rec.RawText, got.Record.RawText)
	require.NotNil(t, got.FinishedAt)
}

func TestScanRepository_FinishFailed(t *testing.T) {
	ctx := context.Background()
	repo := newScanRepo(t)

	scan, err := repo.Create(ctx, "blurry.heic", "ff00", 10)
	require.NoError(t, err)
	require.NoError(t, repo.FinishFailed(ctx, scan.ID, "scan failed"))

	got, err := repo.Get(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.ScanStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "scan failed", *got.ErrorMessage)
	assert.True(t, got.NeedsReview)
}

func TestScanRepository_ApplyCorrection(t *testing.T) {
	ctx := context.Background()
	repo := newScanRepo(t)

	scan, err := repo.Create(ctx, "lr.png", "aa", 1)
	require.NoError(t, err)
	parsed := lrparse.Parse("LR No: 1")
	require.NoError(t, repo.FinishParsed(ctx, scan.ID, "image-ocr", parsed))

	lr, vehicle, consignee, material := "19893", "TN81AY3420", "M/s Example Co", "Steel Coils"
	freight := 105000.0
	corrected, err := repo.ApplyCorrection(ctx, scan.ID, lrparse.Record{
		LRNumber:      &lr,
		VehicleNo:     &vehicle,
		PaymentStatus: constants.PaymentToPay,
		PaymentMode:   constants.PaymentToPay,
		TotalFreight:  &freight,
		ConsigneeName: &consignee,
		Material:      &material,
		RawText:       "ignored",
	})
	require.NoError(t, err)

	assert.Equal(t, constants.ScanStatusConfirmed, corrected.Status)
	assert.False(t, corrected.NeedsReview)
	assert.Equal(t, "19893", *corrected.Record.LRNumber)
	assert.Equal(t, constants.PaymentToPay, corrected.Record.PaymentMode)
	assert.Equal(t, "LR No: 1", corrected.Record.RawText)
}

func TestScanRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := newScanRepo(t)
	missing := uuid.New()

	_, err := repo.Get(ctx, missing)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, repo.Start(ctx, missing), common.ErrNotFound)
	assert.ErrorIs(t, repo.FinishFailed(ctx, missing, "x"), common.ErrNotFound)
	_, err = repo.ApplyCorrection(ctx, missing, lrparse.Record{})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestScanRepository_ListWindow(t *testing.T) {
	ctx := context.Background()
	repo := newScanRepo(t)
	start := time.Date(2026, time.January, 12, 8, 0, 0, 0, time.UTC)
	repo.now = steppingClock(start)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		s, err := repo.Create(ctx, "lr.jpg", "h", 1)
		require.NoError(t, err)
		ids = append(ids, s.ID)
	}
	// created at 08:01, 08:02, 08:03

	all, err := repo.List(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID, "newest first")

	window, err := repo.List(ctx, start.Add(2*time.Minute), start.Add(3*time.Minute))
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, ids[1], window[0].ID)
}

func TestScanRepository_FindByContentHash(t *testing.T) {
	ctx := context.Background()
	repo := newScanRepo(t)
	repo.now = steppingClock(time.Date(2026, time.January, 12, 8, 0, 0, 0, time.UTC))

	_, err := repo.FindByContentHash(ctx, "abc")
	assert.ErrorIs(t, err, common.ErrNotFound)

	failed, err := repo.Create(ctx, "lr.jpg", "abc", 10)
	require.NoError(t, err)
	require.NoError(t, repo.FinishFailed(ctx, failed.ID, "engine down"))

	_, err = repo.FindByContentHash(ctx, "abc")
	assert.ErrorIs(t, err, common.ErrNotFound, "failed scans do not count")

	queued, err := repo.Create(ctx, "lr-again.jpg", "abc", 10)
	require.NoError(t, err)
	got, err := repo.FindByContentHash(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, queued.ID, got.ID)
}
