package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"civicdesk/internal/blob/core"
)

func TestStorePutOverwriteListDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests("exports")
	info, err := store.Put(ctx, "youth.csv", bytes.NewReader([]byte("ID\n1\n")), core.PutOptions{ContentType: "text/csv"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 5 || info.Location != "s3://mock-bucket/exports/youth.csv" || info.Replaced {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := store.Put(ctx, "youth.csv", bytes.NewReader([]byte("x")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	info, err = store.Put(ctx, "youth.csv", bytes.NewReader([]byte("ID\n2\n3\n")), core.PutOptions{Overwrite: true})
	if err != nil || !info.Replaced {
		t.Fatalf("overwrite: %+v %v", info, err)
	}

	_, rc, err := store.Get(ctx, "youth.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "ID\n2\n3\n" {
		t.Fatalf("unexpected content %q", b)
	}

	list, err := store.List(ctx, "")
	if err != nil || len(list) != 1 || list[0].Key != "youth.csv" {
		t.Fatalf("unexpected list %+v %v", list, err)
	}

	ok, err := store.Delete(ctx, "youth.csv")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	ok, err = store.Delete(ctx, "youth.csv")
	if err != nil || ok {
		t.Fatalf("second delete should report nothing removed: %v %v", ok, err)
	}
	if _, err := store.Head(ctx, "youth.csv"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from head, got %v", err)
	}
	if _, _, err := store.Get(ctx, "youth.csv"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from get, got %v", err)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error without bucket")
	}
}

func TestDecodeChunked(t *testing.T) {
	body, ok := decodeChunked([]byte("5\r\nhello\r\n0\r\nx-amz-checksum-crc32:abc\r\n\r\n"))
	if !ok || string(body) != "hello" {
		t.Fatalf("unexpected %q %v", body, ok)
	}
	if _, ok := decodeChunked([]byte("plain body")); ok {
		t.Fatalf("plain payloads are not chunked")
	}
}
