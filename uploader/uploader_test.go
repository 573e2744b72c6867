package uploader

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/attachkit/attachkit"
	"github.com/attachkit/attachkit/analyzer"
	"github.com/attachkit/attachkit/storage/driver/inmemory"
)

func newTestRegistry() *attachkit.Registry {
	registry := attachkit.NewRegistry()
	registry.Register(attachkit.CacheStorage, inmemory.New())
	registry.Register(attachkit.StoreStorage, inmemory.New())
	return registry
}

func TestUploadRoundTrip(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry()
	u := New(registry)

	f, err := u.Upload(ctx, strings.NewReader("hello world"), attachkit.CacheStorage, attachkit.UploadContext{Filename: "hello.txt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.StorageKey != attachkit.CacheStorage {
		t.Errorf("storage key = %q, want cache", f.StorageKey)
	}
	if f.Metadata.Size == nil || *f.Metadata.Size != 11 {
		t.Errorf("size = %v, want 11", f.Metadata.Size)
	}
	if f.Metadata.Filename == nil || *f.Metadata.Filename != "hello.txt" {
		t.Errorf("filename = %v, want hello.txt", f.Metadata.Filename)
	}
	if ext := attachkit.Extension(f.ID); ext != ".txt" {
		t.Errorf("id %q extension = %q, want .txt", f.ID, ext)
	}

	cache, _ := registry.Driver(attachkit.CacheStorage)
	rc, err := cache.Reader(ctx, f.ID, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rc.Close()
	contents, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(contents) != "hello world" {
		t.Errorf("stored contents = %q, want %q", contents, "hello world")
	}
}

func TestUploadGeneratesUniqueIDs(t *testing.T) {
	ctx := context.Background()
	u := New(newTestRegistry())

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		f, err := u.Upload(ctx, strings.NewReader("same content"), attachkit.CacheStorage, attachkit.UploadContext{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen[f.ID] {
			t.Fatalf("id %q reused", f.ID)
		}
		seen[f.ID] = true
	}
}

func TestUploadUnknownStorageKey(t *testing.T) {
	u := New(newTestRegistry())

	_, err := u.Upload(context.Background(), strings.NewReader("x"), "archive", attachkit.UploadContext{})
	if _, ok := err.(attachkit.ConfigurationError); !ok {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestUploadRejectedByAnalyzer(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry()
	u := New(registry, WithAnalyzers(analyzer.Limit(analyzer.Limits{MaxSize: 4})))

	_, err := u.Upload(ctx, strings.NewReader("too large"), attachkit.CacheStorage, attachkit.UploadContext{})
	if _, ok := err.(attachkit.InvalidFileError); !ok {
		t.Fatalf("expected InvalidFileError, got %v", err)
	}
}

func TestUploadNonSeekableContent(t *testing.T) {
	ctx := context.Background()
	u := New(newTestRegistry())

	// iotest-style wrapper hiding the Seeker
	content := io.MultiReader(strings.NewReader("part one "), strings.NewReader("part two"))
	f, err := u.Upload(ctx, content, attachkit.CacheStorage, attachkit.UploadContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Metadata.Size == nil || *f.Metadata.Size != int64(len("part one part two")) {
		t.Errorf("size = %v, want %d", f.Metadata.Size, len("part one part two"))
	}
}

func TestWithLocation(t *testing.T) {
	ctx := context.Background()
	u := New(newTestRegistry(), WithLocation(func(uc attachkit.UploadContext, md attachkit.Metadata) string {
		return "prefix/" + uc.Filename
	}))

	f, err := u.Upload(ctx, strings.NewReader("x"), attachkit.CacheStorage, attachkit.UploadContext{Filename: "a.txt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.ID != "prefix/a.txt" {
		t.Errorf("id = %q, want prefix/a.txt", f.ID)
	}
}

func TestMoveAcrossDrivers(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry()
	u := New(registry)

	f, err := u.Upload(ctx, strings.NewReader("promote me"), attachkit.CacheStorage, attachkit.UploadContext{Filename: "p.bin"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	moved, err := u.Move(ctx, f, attachkit.StoreStorage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if moved.StorageKey != attachkit.StoreStorage {
		t.Errorf("storage key = %q, want store", moved.StorageKey)
	}
	if moved.ID == f.ID {
		t.Error("expected a fresh id after move")
	}
	if moved.Metadata.Filename == nil || *moved.Metadata.Filename != "p.bin" {
		t.Errorf("metadata lost in move: %+v", moved.Metadata)
	}

	store, _ := registry.Driver(attachkit.StoreStorage)
	contents, err := store.GetContent(ctx, moved.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(contents) != "promote me" {
		t.Errorf("moved contents = %q", contents)
	}

	cache, _ := registry.Driver(attachkit.CacheStorage)
	if _, err := cache.GetContent(ctx, f.ID); err == nil {
		t.Error("source object survived the move")
	}
}

func TestMoveSameDriver(t *testing.T) {
	ctx := context.Background()
	registry := attachkit.NewRegistry()
	shared := inmemory.New()
	registry.Register(attachkit.CacheStorage, shared)
	registry.Register(attachkit.StoreStorage, shared)
	u := New(registry)

	f, err := u.Upload(ctx, strings.NewReader("rename me"), attachkit.CacheStorage, attachkit.UploadContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	moved, err := u.Move(ctx, f, attachkit.StoreStorage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	contents, err := shared.GetContent(ctx, moved.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(contents) != "rename me" {
		t.Errorf("moved contents = %q", contents)
	}
	if _, err := shared.GetContent(ctx, f.ID); err == nil {
		t.Error("source object survived the rename")
	}
}
