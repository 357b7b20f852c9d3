package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Aman-CERP/ancheck/internal/errors"
)

// Helper to create a test store with cleanup
func newTestStore(t *testing.T) (*SQLiteFileStore, string) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "AnCheck", "ancheck_index.db")

	s, err := NewSQLiteFileStore(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s, tmpDir
}

func entry(path string, fileType FileType) *FileEntry {
	return &FileEntry{
		Filename:   filepath.Base(path),
		Filepath:   path,
		Extension:  extOf(path),
		FileSize:   10,
		ModifiedAt: 1700000000,
		FileType:   fileType,
	}
}

func extOf(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return ""
	}
	return ext[1:]
}

func filenames(entries []*FileEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Filename
	}
	return out
}

func TestSQLiteFileStore_SchemaAutoCreation(t *testing.T) {
	s, _ := newTestStore(t)

	// Then: both tables and all indexes exist
	for _, name := range []string{"files", "index_meta", "idx_filename", "idx_filepath",
		"idx_extension", "idx_file_type", "idx_click_count", "idx_modified_at"} {
		var count int
		err := s.DB().QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = ?`, name).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, name)
	}
}

func TestSQLiteFileStore_Upsert_PreservesUsageStats(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	// Given: an indexed entry that has been clicked twice
	require.NoError(t, s.Upsert(ctx, entry("/home/u/notes.txt", FileTypeDocument)))
	s.now = func() time.Time { return time.Unix(1700001000, 0) }
	require.NoError(t, s.RecordClick(ctx, "/home/u/notes.txt"))
	require.NoError(t, s.RecordClick(ctx, "/home/u/notes.txt"))

	// When: the same path is re-upserted with new metadata
	updated := entry("/home/u/notes.txt", FileTypeCode)
	updated.FileSize = 999
	updated.ModifiedAt = 1800000000
	require.NoError(t, s.Upsert(ctx, updated))

	// Then: one row with the new metadata and untouched usage stats
	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	results, err := s.Search(ctx, "notes.txt", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	got := results[0]
	assert.Equal(t, int64(999), got.FileSize)
	assert.Equal(t, int64(1800000000), got.ModifiedAt)
	assert.Equal(t, FileTypeCode, got.FileType)
	assert.Equal(t, int64(2), got.ClickCount)
	assert.Equal(t, int64(1700001000), got.LastAccessed)
}

func TestSQLiteFileStore_UpsertBatch_Uniqueness(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	// Given: a batch containing the same path twice
	batch := []*FileEntry{
		entry("/a/one.pdf", FileTypeDocument),
		entry("/a/two.pdf", FileTypeDocument),
		entry("/a/one.pdf", FileTypeOther),
	}

	// When: it is upserted
	require.NoError(t, s.UpsertBatch(ctx, batch))

	// Then: one row per path, last write wins
	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	byPath := map[string]FileType{}
	for _, e := range all {
		byPath[e.Filepath] = e.FileType
	}
	assert.Equal(t, FileTypeOther, byPath["/a/one.pdf"])
}

func TestSQLiteFileStore_UpsertBatch_AllOrNothing(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	// Given: a cancelled context, so the batch cannot commit
	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	// When: upserting a batch
	err := s.UpsertBatch(cancelled, []*FileEntry{
		entry("/b/1.txt", FileTypeDocument),
		entry("/b/2.txt", FileTypeDocument),
	})

	// Then: nothing was written
	require.Error(t, err)
	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestSQLiteFileStore_UpsertBatch_Large(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	batch := make([]*FileEntry, 0, 1200)
	for i := 0; i < 1200; i++ {
		batch = append(batch, entry(fmt.Sprintf("/big/file_%04d.txt", i), FileTypeDocument))
	}

	require.NoError(t, s.UpsertBatch(ctx, batch))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), count)
}

func TestSQLiteFileStore_Search_TierOrdering(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	// Given: entries hitting each match tier for "report"
	require.NoError(t, s.UpsertBatch(ctx, []*FileEntry{
		entry("/docs/report/summary.txt", FileTypeDocument), // filepath substring
		entry("/docs/annual_report.pdf", FileTypeDocument),  // filename substring
		entry("/docs/report.pdf", FileTypeDocument),         // prefix
		entry("/docs/report", FileTypeFolder),               // exact
		entry("/docs/unrelated.pdf", FileTypeDocument),
	}))

	// When: searching
	results, err := s.Search(ctx, "report", 10)
	require.NoError(t, err)

	// Then: exact > prefix > filename substring > filepath substring.
	// "/docs/report/summary.txt" also matches the path tier only.
	assert.Equal(t, []string{"report", "report.pdf", "annual_report.pdf", "summary.txt"}, filenames(results))
}

func TestSQLiteFileStore_Search_HugeLimit(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertBatch(ctx, []*FileEntry{
		entry("/docs/alpha.txt", FileTypeDocument),
		entry("/docs/beta.txt", FileTypeDocument),
	}))

	// When: the limit is far beyond anything allocatable
	results, err := s.Search(ctx, "a", 3*(1<<40))

	// Then: only the matching rows are returned
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.LessOrEqual(t, cap(results), searchPrealloc)
}

func TestSQLiteFileStore_Search_TypeAndUsageOrdering(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	// Given: same-tier prefix matches of different types
	require.NoError(t, s.UpsertBatch(ctx, []*FileEntry{
		entry("/x/code.other", FileTypeOther),
		entry("/x/code.folder", FileTypeFolder),
		entry("/x/code.doc", FileTypeDocument),
		entry("/x/code.lnk", FileTypeShortcut),
		entry("/x/code.exe", FileTypeApp),
		entry("/y/code.png", FileTypeImage),
	}))

	// And: the image is clicked, which outranks the other "1" tier entry
	require.NoError(t, s.RecordClick(ctx, "/y/code.png"))

	results, err := s.Search(ctx, "code", 10)
	require.NoError(t, err)

	assert.Equal(t, []string{"code.exe", "code.lnk", "code.doc", "code.folder", "code.png", "code.other"},
		filenames(results))
}

func TestSQLiteFileStore_Search_ModifiedAtBreaksTies(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	older := entry("/m/plan_a.txt", FileTypeDocument)
	older.ModifiedAt = 100
	newer := entry("/m/plan_b.txt", FileTypeDocument)
	newer.ModifiedAt = 200
	require.NoError(t, s.UpsertBatch(ctx, []*FileEntry{older, newer}))

	results, err := s.Search(ctx, "plan", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"plan_b.txt", "plan_a.txt"}, filenames(results))
}

func TestSQLiteFileStore_Search_EscapesWildcards(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertBatch(ctx, []*FileEntry{
		entry("/w/100%_done.txt", FileTypeDocument),
		entry("/w/100xxdone.txt", FileTypeDocument),
		entry("/w/a_b.txt", FileTypeDocument),
		entry("/w/axb.txt", FileTypeDocument),
	}))

	tests := []struct {
		query    string
		expected []string
	}{
		{"100%_", []string{"100%_done.txt"}},
		{"a_b", []string{"a_b.txt"}},
		{"%", []string{"100%_done.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			results, err := s.Search(ctx, tt.query, 10)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, filenames(results))
		})
	}
}

func TestSQLiteFileStore_Search_BackslashPaths(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	e := &FileEntry{Filename: "tool.exe", Filepath: `C:\Program Files\Tool\tool.exe`, Extension: "exe", FileType: FileTypeApp}
	require.NoError(t, s.Upsert(ctx, e))

	results, err := s.Search(ctx, `files\tool`, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"tool.exe"}, filenames(results))
}

func TestSQLiteFileStore_Search_CaseInsensitiveAndLimit(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	batch := make([]*FileEntry, 0, 20)
	for i := 0; i < 20; i++ {
		batch = append(batch, entry(fmt.Sprintf("/l/Photo_%02d.JPG", i), FileTypeImage))
	}
	require.NoError(t, s.UpsertBatch(ctx, batch))

	results, err := s.Search(ctx, "photo", 5)
	require.NoError(t, err)
	assert.Len(t, results, 5)

	empty, err := s.Search(ctx, "photo", 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLiteFileStore_RecordClick_UnknownPathIsNoop(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordClick(ctx, "/does/not/exist"))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestSQLiteFileStore_ReconcileMissing(t *testing.T) {
	s, tmpDir := newTestStore(t)
	ctx := context.Background()

	// Given: five indexed paths, two of which are then deleted
	var paths []string
	for i := 0; i < 5; i++ {
		p := filepath.Join(tmpDir, fmt.Sprintf("f%d.txt", i))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
		paths = append(paths, p)
		require.NoError(t, s.Upsert(ctx, entry(p, FileTypeDocument)))
	}
	require.NoError(t, os.Remove(paths[1]))
	require.NoError(t, os.Remove(paths[3]))

	// When: reconciling
	removed, err := s.ReconcileMissing(ctx)

	// Then: exactly the two vanished rows are gone
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	var remaining []string
	for _, e := range all {
		remaining = append(remaining, e.Filepath)
	}
	assert.ElementsMatch(t, []string{paths[0], paths[2], paths[4]}, remaining)

	// And: a second pass removes nothing
	removed, err = s.ReconcileMissing(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestSQLiteFileStore_Meta(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, found, err := s.GetMeta(ctx, MetaKeyLastFullIndex)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.SetMeta(ctx, MetaKeyLastFullIndex, "1700000000"))
	require.NoError(t, s.SetMeta(ctx, MetaKeyLastFullIndex, "1700000100"))

	value, found, err := s.GetMeta(ctx, MetaKeyLastFullIndex)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "1700000100", value)
}

func TestSQLiteFileStore_GetByID(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, entry("/g/app.exe", FileTypeApp)))
	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	got, err := s.GetByID(ctx, all[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "app.exe", got.Filename)
	assert.Equal(t, "exe", got.Extension)
	assert.Empty(t, got.IconPath)

	missing, err := s.GetByID(ctx, all[0].ID+100)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLiteFileStore_IDStableAcrossUpserts(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, entry("/s/a.txt", FileTypeDocument)))
	first, err := s.ListAll(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Upsert(ctx, entry("/s/a.txt", FileTypeDocument)))
	second, err := s.ListAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestSQLiteFileStore_ClosedStore(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Close())
	require.NoError(t, s.Close()) // idempotent

	_, err := s.Count(ctx)
	assert.True(t, errors.Is(err, apperrors.ErrStoreClosed))
	_, err = s.Search(ctx, "x", 5)
	assert.True(t, errors.Is(err, apperrors.ErrStoreClosed))
}

func TestSQLiteFileStore_ReopenPersists(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "index.db")
	ctx := context.Background()

	s, err := NewSQLiteFileStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, entry("/p/keep.md", FileTypeDocument)))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteFileStore(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSQLiteFileStore_CorruptFileIsRecreated(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "index.db")

	// Given: garbage where the database should be
	require.NoError(t, os.WriteFile(dbPath, []byte("definitely not sqlite"), 0644))

	// When: opening
	s, err := NewSQLiteFileStore(dbPath)

	// Then: a fresh empty store is created
	require.NoError(t, err)
	defer s.Close()
	count, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestSQLiteFileStore_ConcurrentAccess(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_ = s.Upsert(ctx, entry(fmt.Sprintf("/c/w%d_%d.txt", w, i), FileTypeDocument))
				_, _ = s.Search(ctx, "w", 10)
			}
		}(w)
	}
	wg.Wait()

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), count)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off`, escapeLike("50%_off"))
	assert.Equal(t, `c:\\users`, escapeLike(`c:\users`))
	assert.Equal(t, "plain", escapeLike("plain"))
}
