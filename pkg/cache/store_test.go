package cache

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestStore(t *testing.T, maxBytes int64) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "speech.db"), maxBytes)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestDeriveKey(t *testing.T) {
	tests := []struct {
		name  string
		a, b  map[string]any
		textA string
		textB string
		same  bool
	}{
		{
			name:  "key order independence",
			a:     map[string]any{"voice": "nova", "speed": 1.0},
			b:     map[string]any{"speed": 1.0, "voice": "nova"},
			textA: "Hello",
			textB: "Hello",
			same:  true,
		},
		{
			name:  "different voice",
			a:     map[string]any{"voice": "nova", "speed": 1.0},
			b:     map[string]any{"voice": "shimmer", "speed": 1.0},
			textA: "Hello",
			textB: "Hello",
			same:  false,
		},
		{
			name:  "different text",
			a:     map[string]any{"voice": "nova"},
			b:     map[string]any{"voice": "nova"},
			textA: "Hello",
			textB: "Goodbye",
			same:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keyA := DeriveKey(tt.textA, "openai", tt.a)
			keyB := DeriveKey(tt.textB, "openai", tt.b)
			if (keyA == keyB) != tt.same {
				t.Errorf("DeriveKey: %q vs %q, want same=%v", keyA, keyB, tt.same)
			}
		})
	}
}

func TestDeriveKeyShape(t *testing.T) {
	key := DeriveKey("Hello", "openai", map[string]any{"voice": "nova"})
	if !strings.HasPrefix(key, "tts_") {
		t.Errorf("key %q missing tts_ prefix", key)
	}
	if len(key) != len("tts_")+keyHashLen {
		t.Errorf("key %q has unexpected length %d", key, len(key))
	}
	// Stable across calls (and, by construction, across restarts).
	if again := DeriveKey("Hello", "openai", map[string]any{"voice": "nova"}); again != key {
		t.Errorf("key not stable: %q vs %q", key, again)
	}
}

func TestRoundTrip(t *testing.T) {
	store := openTestStore(t, 0)
	opts := map[string]any{"voice": "nova", "speed": 1.0}
	audio := []byte{0x01, 0x02, 0x03, 0x04}

	if err := store.Set("Hello world", "openai", opts, audio); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := store.Get("Hello world", "openai", opts)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, audio) {
		t.Errorf("round trip mismatch: got %v, want %v", got, audio)
	}

	// Unset key misses with nil, no error.
	miss, err := store.Get("never stored", "openai", opts)
	if err != nil {
		t.Fatalf("get miss: %v", err)
	}
	if miss != nil {
		t.Errorf("expected nil on miss, got %d bytes", len(miss))
	}
}

func TestEmptyTextNeverCached(t *testing.T) {
	store := openTestStore(t, 0)
	opts := map[string]any{"voice": "nova"}

	if err := store.Set("", "openai", opts, []byte{1, 2, 3}); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := store.Get("", "openai", opts)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("empty text should always miss, got %d bytes", len(got))
	}

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Count != 0 {
		t.Errorf("expected empty store, got %d entries", stats.Count)
	}
}

func TestOverwriteSameKey(t *testing.T) {
	store := openTestStore(t, 0)
	opts := map[string]any{"voice": "nova"}

	if err := store.Set("Hello", "openai", opts, []byte("old")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set("Hello", "openai", opts, []byte("new")); err != nil {
		t.Fatalf("re-set: %v", err)
	}

	got, err := store.Get("Hello", "openai", opts)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "new" {
		t.Errorf("expected overwritten audio, got %q", got)
	}

	stats, _ := store.Stats()
	if stats.Count != 1 {
		t.Errorf("expected 1 entry after overwrite, got %d", stats.Count)
	}
}

func TestTextPreviewTruncated(t *testing.T) {
	store := openTestStore(t, 0)
	long := strings.Repeat("a", 500)
	if err := store.Set(long, "openai", nil, []byte{1}); err != nil {
		t.Fatalf("set: %v", err)
	}
	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(stats.Entries))
	}
	if got := len([]rune(stats.Entries[0].Text)); got != previewRunes {
		t.Errorf("preview length = %d, want %d", got, previewRunes)
	}
}

func TestPruneEvictsOldestFirst(t *testing.T) {
	// Cap of 100 bytes; three 40-byte entries exceed it.
	store := openTestStore(t, 100)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	blob := make([]byte, 40)
	for i, text := range []string{"oldest", "middle", "newest"} {
		store.clock = func(offset int) func() time.Time {
			return func() time.Time { return now.Add(time.Duration(offset) * time.Minute) }
		}(i)
		if err := store.Set(text, "openai", nil, blob); err != nil {
			t.Fatalf("set %q: %v", text, err)
		}
	}

	if err := store.Prune(0.8); err != nil {
		t.Fatalf("prune: %v", err)
	}

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalSizeBytes > 100 {
		t.Errorf("total size %d exceeds cap after prune", stats.TotalSizeBytes)
	}

	// The oldest entry goes first; the newest survives.
	if got, _ := store.Get("oldest", "openai", nil); got != nil {
		t.Error("oldest entry should have been evicted")
	}
	if got, _ := store.Get("newest", "openai", nil); got == nil {
		t.Error("newest entry should have survived pruning")
	}
}

func TestPruneUnderCapIsNoop(t *testing.T) {
	store := openTestStore(t, 1024)
	if err := store.Set("keep", "openai", nil, []byte{1, 2, 3}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Prune(0.8); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if got, _ := store.Get("keep", "openai", nil); got == nil {
		t.Error("entry under cap should not be evicted")
	}
}

func TestClear(t *testing.T) {
	store := openTestStore(t, 0)
	for _, text := range []string{"one", "two", "three"} {
		if err := store.Set(text, "openai", nil, []byte{1}); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Count != 0 || stats.TotalSizeBytes != 0 {
		t.Errorf("expected empty store after clear, got %+v", stats)
	}
}
