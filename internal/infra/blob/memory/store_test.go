package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"civicdesk/internal/blob/core"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	meta := map[string]string{"actor": "clerk"}
	info, err := s.Put(ctx, "a.csv", bytes.NewReader([]byte("x,y")), core.PutOptions{ContentType: "text/csv", Metadata: meta})
	if err != nil || info.Size != 3 || info.Location != "memory:a.csv" {
		t.Fatalf("put: %+v %v", info, err)
	}
	meta["actor"] = "changed"
	h, _ := s.Head(ctx, "a.csv")
	if h.Metadata["actor"] != "clerk" {
		t.Fatalf("metadata should be copied on put")
	}
	if _, err := s.Put(ctx, "a.csv", bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	info, err = s.Put(ctx, "a.csv", bytes.NewReader([]byte("z")), core.PutOptions{Overwrite: true})
	if err != nil || !info.Replaced {
		t.Fatalf("overwrite: %+v %v", info, err)
	}
	_, rc, _ := s.Get(ctx, "a.csv")
	b, _ := io.ReadAll(rc)
	if string(b) != "z" {
		t.Fatalf("unexpected content %q", b)
	}
	if list, _ := s.List(ctx, "a"); len(list) != 1 {
		t.Fatalf("unexpected list %v", list)
	}
	if ok, _ := s.Delete(ctx, "a.csv"); !ok {
		t.Fatalf("expected delete")
	}
	if _, err := s.Head(ctx, "a.csv"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFailNextPut(t *testing.T) {
	s := New()
	boom := errors.New("disk full")
	s.FailNextPut(boom)
	if _, err := s.Put(context.Background(), "k", bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if _, err := s.Put(context.Background(), "k", bytes.NewReader(nil), core.PutOptions{}); err != nil {
		t.Fatalf("failure should apply once: %v", err)
	}
}
