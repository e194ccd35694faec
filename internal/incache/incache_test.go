package incache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"codedoc/internal/extract"
	"codedoc/internal/model"
)

func TestComputeDigestStableForUnchangedContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	if err := os.WriteFile(path, []byte("package a\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	d1, err := ComputeDigest(path, "a.go", extract.LangGo)
	if err != nil {
		t.Fatalf("ComputeDigest: %v", err)
	}
	d2, err := ComputeDigest(path, "a.go", extract.LangGo)
	if err != nil {
		t.Fatalf("ComputeDigest: %v", err)
	}
	if d1.Digest != d2.Digest {
		t.Error("expected a stable digest for unchanged content")
	}

	if err := os.WriteFile(path, []byte("package a\n\nfunc X() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	d3, err := ComputeDigest(path, "a.go", extract.LangGo)
	if err != nil {
		t.Fatalf("ComputeDigest: %v", err)
	}
	if d3.Digest == d1.Digest {
		t.Error("expected the digest to change after the file's content changed")
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	cache, err := Open(filepath.Join(t.TempDir(), "cache.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cache.Close()

	digest := model.ContentDigest{RelativePath: "pkg/a.go", Language: "go", Digest: "abc123"}
	if err := cache.Put(context.Background(), digest); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := cache.Get(context.Background(), "pkg/a.go")
	if !ok {
		t.Fatal("expected a cache hit for a just-stored digest")
	}
	if got != digest {
		t.Errorf("Get = %+v, want %+v", got, digest)
	}

	if _, ok := cache.Get(context.Background(), "pkg/missing.go"); ok {
		t.Error("expected a miss for a never-stored path")
	}
}

func TestPutOverwritesPriorRecord(t *testing.T) {
	cache, err := Open(filepath.Join(t.TempDir(), "cache.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cache.Close()

	ctx := context.Background()
	cache.Put(ctx, model.ContentDigest{RelativePath: "pkg/a.go", Language: "go", Digest: "old"})
	cache.Put(ctx, model.ContentDigest{RelativePath: "pkg/a.go", Language: "go", Digest: "new"})

	got, ok := cache.Get(ctx, "pkg/a.go")
	if !ok || got.Digest != "new" {
		t.Errorf("Get after overwrite = %+v, ok=%v, want Digest=new", got, ok)
	}
}

func TestNilCacheIsAlwaysMiss(t *testing.T) {
	var cache *Cache
	if _, ok := cache.Get(context.Background(), "anything"); ok {
		t.Error("expected a nil cache to always miss")
	}
	if err := cache.Put(context.Background(), model.ContentDigest{RelativePath: "x"}); err != nil {
		t.Errorf("Put on a nil cache should be a no-op, got %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Errorf("Close on a nil cache should be a no-op, got %v", err)
	}
}

func TestFilterChangedPartitionsAndUpdatesCache(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.go")
	pathB := filepath.Join(dir, "b.go")
	os.WriteFile(pathA, []byte("package a\n"), 0o644)
	os.WriteFile(pathB, []byte("package b\n"), 0o644)

	cache, err := Open(filepath.Join(t.TempDir(), "cache.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cache.Close()

	entries := []extract.FileEntry{
		{RelPath: "a.go", AbsPath: pathA, Language: extract.LangGo},
		{RelPath: "b.go", AbsPath: pathB, Language: extract.LangGo},
	}

	ctx := context.Background()
	changed, unchanged := cache.FilterChanged(ctx, dir, entries)
	if len(changed) != 2 || len(unchanged) != 0 {
		t.Fatalf("first pass: changed=%d unchanged=%d, want 2/0 on an empty cache", len(changed), len(unchanged))
	}

	// Second pass over the same unmodified files should report both unchanged.
	changed, unchanged = cache.FilterChanged(ctx, dir, entries)
	if len(changed) != 0 || len(unchanged) != 2 {
		t.Fatalf("second pass: changed=%d unchanged=%d, want 0/2 once digests are cached", len(changed), len(unchanged))
	}

	// Modify one file; only it should report changed.
	os.WriteFile(pathA, []byte("package a\n\nfunc X(){}\n"), 0o644)
	changed, unchanged = cache.FilterChanged(ctx, dir, entries)
	if len(changed) != 1 || changed[0].RelPath != "a.go" {
		t.Errorf("expected only a.go to be reported changed, got %+v", changed)
	}
	if len(unchanged) != 1 || unchanged[0].RelPath != "b.go" {
		t.Errorf("expected only b.go to be reported unchanged, got %+v", unchanged)
	}
}
