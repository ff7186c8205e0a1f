package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSortedStringKeys(t *testing.T) {
	t.Parallel()

	m := map[string]int{"tb.clk": 2, "tb.a": 1, "tb.dut.q": 3}
	keys := SortedStringKeys(m)
	expected := []string{"tb.a", "tb.clk", "tb.dut.q"}
	if len(keys) != len(expected) {
		t.Fatalf("expected %d keys, got %d", len(expected), len(keys))
	}
	for i, key := range expected {
		if keys[i] != key {
			t.Fatalf("expected %q at %d, got %q", key, i, keys[i])
		}
	}
}

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "cycles.tsv")
	content := []byte("index\ttime\n")

	if err := WriteFileAtomic(path, []byte("stale"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := WriteFileAtomic(path, content, 0o644); err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("expected %q, got %q", string(content), string(got))
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected no temporary files left behind, got %d entries", len(entries))
	}
}

func TestReadHeapStats(t *testing.T) {
	buf := make([]byte, 4<<20)
	stats := ReadHeapStats()
	if stats.AllocMB == 0 {
		t.Fatal("expected a non-zero heap after a 4MB allocation")
	}
	if stats.SysMB < stats.AllocMB {
		t.Fatalf("expected sys >= alloc, got %d < %d", stats.SysMB, stats.AllocMB)
	}
	_ = buf
}
