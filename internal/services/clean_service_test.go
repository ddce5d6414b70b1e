package services

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "cleanbot/internal/errors"
	"cleanbot/internal/session"
	"cleanbot/internal/websocket"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
}

func testService() (*CleanService, session.Store) {
	store := session.NewMemoryStore()
	return NewCleanService(store, testLogger(), nil, nil, nil), store
}

const dirtyCSV = "id,score,city\n1,10,Baghdad\n2,,Basra\n2,,Basra\n3,30,Erbil\n"

func TestUploadCreatesSession(t *testing.T) {
	svc, store := testService()

	result, err := svc.Upload(context.Background(), []UploadedFile{
		{Name: "scores.csv", Data: []byte(dirtyCSV)},
	})
	require.NoError(t, err)
	require.Len(t, result.Tables, 1)
	assert.Equal(t, "scores", result.Tables[0].Name)
	assert.Equal(t, 4, result.Tables[0].Rows)
	assert.Equal(t, 3, result.Tables[0].Columns)
	assert.Greater(t, result.Tables[0].Stats.DirtyScore, 0.0)
	assert.NotNil(t, result.Tables[0].Suggested)

	sess, err := store.Get(result.SessionID)
	require.NoError(t, err)
	assert.False(t, sess.Cleaned())
}

func TestUploadSkipsUnparsableFiles(t *testing.T) {
	svc, _ := testService()

	result, err := svc.Upload(context.Background(), []UploadedFile{
		{Name: "scores.csv", Data: []byte(dirtyCSV)},
		{Name: "notes.txt", Data: []byte("not a table")},
	})
	require.NoError(t, err)
	assert.Len(t, result.Tables, 1)
	assert.Equal(t, []string{"notes.txt"}, result.Skipped)
}

func TestUploadAllFilesInvalid(t *testing.T) {
	svc, _ := testService()

	_, err := svc.Upload(context.Background(), []UploadedFile{
		{Name: "notes.txt", Data: []byte("nope")},
	})
	assert.ErrorIs(t, err, apierrors.ErrNoValidFiles)
}

func TestCleanStoresResultsInUploadOrder(t *testing.T) {
	svc, store := testService()

	uploaded, err := svc.Upload(context.Background(), []UploadedFile{
		{Name: "a.csv", Data: []byte("x\n1\n1\n")},
		{Name: "b.csv", Data: []byte("y\n2\n3\n")},
		{Name: "c.csv", Data: []byte("z\n4\n\n")},
	})
	require.NoError(t, err)

	results, err := svc.Clean(context.Background(), uploaded.SessionID, nil, false)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].Table.Name)
	assert.Equal(t, "b", results[1].Table.Name)
	assert.Equal(t, "c", results[2].Table.Name)

	sess, err := store.Get(uploaded.SessionID)
	require.NoError(t, err)
	assert.True(t, sess.Cleaned())
}

func TestCleanUnknownSession(t *testing.T) {
	svc, _ := testService()
	_, err := svc.Clean(context.Background(), "missing", nil, false)
	assert.ErrorIs(t, err, apierrors.ErrSessionNotFound)
}

func TestCleanRefusesUnsalvageableWithoutForce(t *testing.T) {
	svc, _ := testService()

	// 80% of cells blank: over the unsalvageable threshold.
	csv := "a,b\n,\n,\n,\n,\n1,2\n"
	uploaded, err := svc.Upload(context.Background(), []UploadedFile{
		{Name: "hopeless.csv", Data: []byte(csv)},
	})
	require.NoError(t, err)
	require.True(t, uploaded.Tables[0].Stats.Unsalvageable)

	_, err = svc.Clean(context.Background(), uploaded.SessionID, nil, false)
	require.Error(t, err)
	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "UNSALVAGEABLE_INPUT", apiErr.ErrorCode)

	results, err := svc.Clean(context.Background(), uploaded.SessionID, nil, true)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestCleanBroadcastsProgress(t *testing.T) {
	store := session.NewMemoryStore()
	hub := websocket.NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	svc := NewCleanService(store, testLogger(), nil, nil, hub)
	uploaded, err := svc.Upload(ctx, []UploadedFile{
		{Name: "scores.csv", Data: []byte(dirtyCSV)},
	})
	require.NoError(t, err)

	_, err = svc.Clean(ctx, uploaded.SessionID, nil, false)
	require.NoError(t, err)
}

func TestArchiveRequiresCleanedSession(t *testing.T) {
	svc, _ := testService()

	uploaded, err := svc.Upload(context.Background(), []UploadedFile{
		{Name: "scores.csv", Data: []byte(dirtyCSV)},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	err = svc.Archive(context.Background(), uploaded.SessionID, &buf)
	assert.ErrorIs(t, err, apierrors.ErrNotCleaned)

	_, err = svc.Clean(context.Background(), uploaded.SessionID, nil, false)
	require.NoError(t, err)

	require.NoError(t, svc.Archive(context.Background(), uploaded.SessionID, &buf))
	assert.Greater(t, buf.Len(), 0)
}

func TestStatsBeforeAndAfterClean(t *testing.T) {
	svc, _ := testService()

	uploaded, err := svc.Upload(context.Background(), []UploadedFile{
		{Name: "scores.csv", Data: []byte(dirtyCSV)},
	})
	require.NoError(t, err)

	stats, err := svc.Stats(context.Background(), uploaded.SessionID)
	require.NoError(t, err)
	assert.False(t, stats.Cleaned)
	require.Len(t, stats.Tables, 1)
	assert.Nil(t, stats.Tables[0].After)

	_, err = svc.Clean(context.Background(), uploaded.SessionID, nil, false)
	require.NoError(t, err)

	stats, err = svc.Stats(context.Background(), uploaded.SessionID)
	require.NoError(t, err)
	assert.True(t, stats.Cleaned)
	require.NotNil(t, stats.Tables[0].After)
	assert.NotEmpty(t, stats.Tables[0].Verdict)
}

func TestReport(t *testing.T) {
	svc, _ := testService()

	uploaded, err := svc.Upload(context.Background(), []UploadedFile{
		{Name: "scores.csv", Data: []byte(dirtyCSV)},
	})
	require.NoError(t, err)

	_, err = svc.Report(context.Background(), uploaded.SessionID)
	assert.ErrorIs(t, err, apierrors.ErrNotCleaned)

	_, err = svc.Clean(context.Background(), uploaded.SessionID, nil, false)
	require.NoError(t, err)

	report, err := svc.Report(context.Background(), uploaded.SessionID)
	require.NoError(t, err)
	assert.Contains(t, report, "Multi-File Cleaning Report")
	assert.Contains(t, report, "File: scores")
}

func TestCleanConcurrentSessions(t *testing.T) {
	svc, _ := testService()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		uploaded, err := svc.Upload(context.Background(), []UploadedFile{
			{Name: "scores.csv", Data: []byte(dirtyCSV)},
		})
		require.NoError(t, err)
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := svc.Clean(context.Background(), id, nil, false)
			assert.NoError(t, err)
		}(uploaded.SessionID)
	}
	wg.Wait()
}
