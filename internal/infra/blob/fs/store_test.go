package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"civicdesk/internal/blob/core"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestStorePutGetHeadListDelete(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	info, err := store.Put(ctx, "civicdesk/youth.csv", bytes.NewReader([]byte("ID\n1\n")), core.PutOptions{})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "civicdesk/youth.csv" || info.Size != 5 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.Location != filepath.Join(store.Root(), "civicdesk", "youth.csv") {
		t.Fatalf("location should be the file path, got %s", info.Location)
	}
	if _, err := os.Stat(info.Location + ".meta"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("no sidecar files should be written next to documents")
	}
	if _, err := store.Put(ctx, "civicdesk/youth.csv", bytes.NewReader([]byte("x")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	h, err := store.Head(ctx, "civicdesk/youth.csv")
	if err != nil || h.Size != 5 {
		t.Fatalf("head: %+v %v", h, err)
	}
	_, rc, err := store.Get(ctx, "civicdesk/youth.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	if err := rc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if string(b) != "ID\n1\n" {
		t.Fatalf("unexpected content %q", b)
	}

	list, err := store.List(ctx, "civicdesk/")
	if err != nil || len(list) != 1 {
		t.Fatalf("unexpected list %+v %v", list, err)
	}
	ok, err := store.Delete(ctx, "civicdesk/youth.csv")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	ok, err = store.Delete(ctx, "civicdesk/youth.csv")
	if err != nil || ok {
		t.Fatalf("second delete: %v %v", ok, err)
	}
	if _, err := store.Head(ctx, "civicdesk/youth.csv"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOverwriteReplacesAtomically(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if _, err := store.Put(ctx, "expense.csv", bytes.NewReader([]byte("old")), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	info, err := store.Put(ctx, "expense.csv", bytes.NewReader([]byte("newer")), core.PutOptions{Overwrite: true})
	if err != nil || !info.Replaced || info.Size != 5 {
		t.Fatalf("overwrite: %+v %v", info, err)
	}
	entries, _ := os.ReadDir(store.Root())
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v", entries)
	}
}

func TestFailedWriteLeavesPreviousFile(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if _, err := store.Put(ctx, "blotter.csv", bytes.NewReader([]byte("keep")), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := store.Put(cancelled, "blotter.csv", bytes.NewReader([]byte("lost")), core.PutOptions{Overwrite: true}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	b, _ := os.ReadFile(filepath.Join(store.Root(), "blotter.csv"))
	if string(b) != "keep" {
		t.Fatalf("previous file damaged: %q", b)
	}
}

func TestSanitizeKeyRejectsTraversal(t *testing.T) {
	store := newTempStore(t)
	for _, key := range []string{"", "  ", "../escape.csv", "/etc/passwd", "a/../../b"} {
		if _, err := store.Put(context.Background(), key, bytes.NewReader(nil), core.PutOptions{}); err == nil {
			t.Fatalf("expected rejection for %q", key)
		}
	}
	if _, err := New(""); err == nil {
		t.Fatalf("expected error for empty root")
	}
}
