package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseGCSURI(t *testing.T) {
	t.Parallel()

	bucket, object, err := ParseGCSURI("gs://legal-docs/2026/policy.pdf")
	if err != nil || bucket != "legal-docs" || object != "2026/policy.pdf" {
		t.Fatalf("got %q %q %v", bucket, object, err)
	}
	for _, bad := range []string{"legal-docs/policy.pdf", "gs://", "gs://bucket", "gs://bucket/"} {
		if _, _, err := ParseGCSURI(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestLocalSaveAndOpen(t *testing.T) {
	t.Parallel()

	r := New(nil, 1024)
	dir := filepath.Join(t.TempDir(), "uploads")
	p, err := r.Save(context.Background(), dir, "a.txt", []byte("hello"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	b, err := r.Open(context.Background(), p)
	if err != nil || string(b) != "hello" {
		t.Fatalf("open: %q %v", b, err)
	}
}

func TestSizeLimit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := filepath.Join(dir, "big.txt")
	if err := os.WriteFile(p, make([]byte, 20), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	r := New(nil, 10)
	if _, err := r.Open(context.Background(), p); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if _, err := r.Save(context.Background(), dir, "x", make([]byte, 11)); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestGCSRequiresClient(t *testing.T) {
	t.Parallel()

	r := New(nil, 0)
	if _, err := r.Open(context.Background(), "gs://b/o"); !errors.Is(err, ErrGCSNotEnabled) {
		t.Fatalf("expected ErrGCSNotEnabled, got %v", err)
	}
	if _, err := r.Save(context.Background(), "gs://b/uploads", "o", []byte("x")); !errors.Is(err, ErrGCSNotEnabled) {
		t.Fatalf("expected ErrGCSNotEnabled, got %v", err)
	}
}

func TestListLocal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, n := range []string{"b.txt", "a.pdf"} {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	got, err := New(nil, 0).List(context.Background(), dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0] != filepath.Join(dir, "a.pdf") || got[1] != filepath.Join(dir, "b.txt") {
		t.Fatalf("got %v", got)
	}
	if _, err := New(nil, 0).List(context.Background(), "gs://b/prefix/"); !errors.Is(err, ErrGCSNotEnabled) {
		t.Fatalf("expected ErrGCSNotEnabled, got %v", err)
	}
}
