package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestRecordingKey(t *testing.T) {
	testCases := []struct {
		contentType string
		want        string
	}{
		{"audio/webm;codecs=opus", "recordings/u1/s1.webm"},
		{"audio/ogg", "recordings/u1/s1.ogg"},
		{"audio/wav", "recordings/u1/s1.wav"},
		{"audio/mpeg", "recordings/u1/s1.mp3"},
		{"application/octet-stream", "recordings/u1/s1.bin"},
	}
	for _, tc := range testCases {
		t.Run(tc.contentType, func(t *testing.T) {
			if got := RecordingKey("u1", "s1", tc.contentType); got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.FailNext(1)

	if _, err := s.Put(ctx, "k", strings.NewReader("data"), 4, "audio/webm"); err == nil {
		t.Fatal("expected the injected failure")
	}
	url, err := s.Put(ctx, "k", strings.NewReader("data"), 4, "audio/webm")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if url != "memory://k" || s.Len() != 1 {
		t.Errorf("unexpected url %q or size %d", url, s.Len())
	}

	rc, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "data" {
		t.Errorf("unexpected body %q", body)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
	if _, err := s.URL(ctx, "missing"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound from URL, got %v", err)
	}
}
