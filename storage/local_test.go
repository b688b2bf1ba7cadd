package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalStore_PutAndRemove(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/files")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	key := EvidenceKey("citizen-1", "fine-1", "abc123", "photo.jpg")
	url, err := store.Put(context.Background(), key, strings.NewReader("jpeg bytes"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "/files/"+key {
		t.Fatalf("unexpected url %q", url)
	}

	// second write to the same key must fail: blobs are write-once
	if _, err := store.Put(context.Background(), key, strings.NewReader("other")); err == nil {
		t.Fatal("expected write-once violation to fail")
	}

	if err := store.Remove(context.Background(), key); err != nil {
		t.Fatalf("remove: %v", err)
	}
	// removing again is a no-op
	if err := store.Remove(context.Background(), key); err != nil {
		t.Fatalf("remove missing: %v", err)
	}
}

func TestLocalStore_PutRejectsCancelledContext(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/files")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Put(ctx, "evidence/x/y/z.pdf", strings.NewReader("data")); err == nil {
		t.Fatal("expected error for cancelled context")
	}

	if _, err := os.Stat(filepath.Join(dir, "evidence")); !os.IsNotExist(err) {
		t.Fatal("expected no blob written after cancelled put")
	}
}

func TestAllowedEvidenceType(t *testing.T) {
	cases := map[string]bool{
		"scan.pdf":    true,
		"photo.JPG":   true,
		"photo.jpeg":  true,
		"shot.png":    true,
		"clip.mp4":    false,
		"notes.txt":   false,
		"no-ext":      false,
		"archive.zip": false,
	}
	for name, want := range cases {
		if got := AllowedEvidenceType(name); got != want {
			t.Errorf("AllowedEvidenceType(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestEvidenceKeySanitizesFilename(t *testing.T) {
	key := EvidenceKey("c1", "f1", "s1", "../weird name!.png")
	if strings.Contains(key, "..") {
		t.Fatalf("key %q escaped its scope", key)
	}
	if !strings.HasPrefix(key, "evidence/c1/f1/s1-") {
		t.Fatalf("key %q not scoped as expected", key)
	}
}
