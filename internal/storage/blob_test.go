package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveCreatesFolderAndFile(t *testing.T) {
	store := NewBlobStore(t.TempDir())

	if err := store.Save("images/products", "p-1.jpeg", []byte("jpeg-bytes")); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	if !store.Exists("images/products/p-1.jpeg") {
		t.Fatal("expected saved file to exist")
	}

	data, err := os.ReadFile(filepath.Join(store.Root(), "images", "products", "p-1.jpeg"))
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Fatalf("unexpected file content: %q", data)
	}
}

func TestDeleteRemovesFile(t *testing.T) {
	store := NewBlobStore(t.TempDir())
	if err := store.Save("images/products", "p-2.jpeg", []byte("x")); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	if err := store.Delete("images/products/p-2.jpeg"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if store.Exists("images/products/p-2.jpeg") {
		t.Fatal("expected file to be gone after delete")
	}
}

func TestDeleteMissingFileIsNoError(t *testing.T) {
	store := NewBlobStore(t.TempDir())
	if err := store.Delete("images/products/never-written.jpeg"); err != nil {
		t.Fatalf("expected missing file delete to succeed, got %v", err)
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	store := NewBlobStore(root)

	outside := filepath.Join(filepath.Dir(root), "victim.txt")
	if err := os.WriteFile(outside, []byte("keep me"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := store.Delete("../victim.txt"); err == nil {
		t.Fatal("expected traversal delete to be rejected")
	}
	if _, err := os.Stat(outside); err != nil {
		t.Fatalf("file outside root should be untouched: %v", err)
	}
}

func TestSafeDeleteSwallowsErrors(t *testing.T) {
	store := NewBlobStore(t.TempDir())
	// Must not panic or escalate, even for a rejected path.
	store.SafeDelete("../outside.jpeg")
	store.SafeDelete("")
}
