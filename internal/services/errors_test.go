package services

import (
	"context"
	"errors"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("boom")
	err := Wrap(ErrValidation, "scanner", "upload", "bad batch", base)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation marker", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("err = %v, want wrapped cause", err)
	}
	want := "validation error: scanner: upload: bad batch: boom"
	if err.Error() != want {
		t.Fatalf("message = %q, want %q", err.Error(), want)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "syncer", "list jobs", "", errors.New("timeout"))
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("err = %v, want ErrTransient marker", err)
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := Wrap(ErrNotFound, "", "", "missing", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if err.Error() != "not found: missing" {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestContextCarriers(t *testing.T) {
	ctx := WithJobID(context.Background(), "job-1")
	ctx = WithRequestID(ctx, "req-1")

	if id, ok := JobIDFromContext(ctx); !ok || id != "job-1" {
		t.Fatalf("JobIDFromContext = (%q, %v)", id, ok)
	}
	if rid, ok := RequestIDFromContext(ctx); !ok || rid != "req-1" {
		t.Fatalf("RequestIDFromContext = (%q, %v)", rid, ok)
	}
	if _, ok := JobIDFromContext(context.Background()); ok {
		t.Fatal("empty context must carry no job id")
	}
}
