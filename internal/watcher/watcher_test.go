package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("[]"), 0o644))
}

func TestScanGroupsByToken(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "movements_20250601_120000_aaaa.json")
	touch(t, dir, "clicks_20250601_120000_aaaa.json")
	touch(t, dir, "hover_20250601_120000_aaaa.json")
	touch(t, dir, "movements_20250601_130000_bbbb.json")
	touch(t, dir, "unrelated.json")
	touch(t, dir, "notes.txt")

	sets, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, sets, 2)

	// Newest token first.
	assert.Equal(t, "20250601_130000_bbbb", sets[0].Token)
	assert.True(t, sets[0].HasMovements)
	assert.False(t, sets[0].HasClicks)

	assert.Equal(t, "20250601_120000_aaaa", sets[1].Token)
	assert.True(t, sets[1].HasMovements)
	assert.True(t, sets[1].HasClicks)
	assert.True(t, sets[1].HasHover)
	assert.False(t, sets[1].HasScrolls)
	assert.False(t, sets[1].HasStats)
}

func TestSnapshotSetLoadable(t *testing.T) {
	assert.True(t, SnapshotSet{HasMovements: true}.Loadable())
	assert.False(t, SnapshotSet{HasClicks: true, HasStats: true}.Loadable(),
		"movements is the one required document")
}

func TestSplitDocumentName(t *testing.T) {
	tests := []struct {
		name       string
		wantPrefix string
		wantToken  string
		wantOK     bool
	}{
		{"movements_tok123.json", "movements", "tok123", true},
		{"stats_20250601_120000_ffff.json", "stats", "20250601_120000_ffff", true},
		{"hover_a.json", "hover", "a", true},
		{"movements_tok.txt", "", "", false},
		{"heatmap_tok.json", "", "", false},
		{"movements.json", "", "", false},
	}
	for _, tt := range tests {
		prefix, token, ok := splitDocumentName(tt.name)
		assert.Equal(t, tt.wantOK, ok, tt.name)
		assert.Equal(t, tt.wantPrefix, prefix, tt.name)
		assert.Equal(t, tt.wantToken, token, tt.name)
	}
}

func TestWatcherDetectsNewSnapshot(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "movements_existing.json")

	updates := make(chan []SnapshotSet, 8)
	w := New(func(sets []SnapshotSet) { updates <- sets }, nil)
	require.NoError(t, w.Watch(dir))
	defer w.Shutdown()

	// Initial scan fires once with the pre-existing session.
	select {
	case sets := <-updates:
		require.Len(t, sets, 1)
		assert.Equal(t, "existing", sets[0].Token)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial index callback")
	}

	touch(t, dir, "movements_fresh.json")
	touch(t, dir, "stats_fresh.json")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case sets := <-updates:
			if len(sets) == 2 {
				index := w.Index()
				require.Len(t, index, 2)
				return
			}
		case <-deadline:
			t.Fatal("watcher never indexed the new snapshot")
		}
	}
}

func TestWatcherShutdownIdempotent(t *testing.T) {
	w := New(nil, nil)
	require.NoError(t, w.Watch(t.TempDir()))
	w.Shutdown()
	w.Shutdown()
}
