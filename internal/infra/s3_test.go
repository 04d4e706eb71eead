package infra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Vovarama1992/voice_roundtrip/internal/config"
	"github.com/Vovarama1992/voice_roundtrip/internal/ports"
)

// fakeS3 — минимальный S3 с path-style адресацией.
type fakeS3 struct {
	mu        sync.Mutex
	bucket    string
	objects   map[string][]byte
	getStatus int
	putStatus int
	puts      []http.Header
	putKeys   []string
}

func writeS3Error(w http.ResponseWriter, status int, code, resource string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>%s</Code><Message>%s</Message><Resource>%s</Resource><RequestId>test</RequestId></Error>`, code, code, resource)
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if bucket != f.bucket {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeS3Error(w, http.StatusNotFound, "NoSuchBucket", r.URL.Path)
		return
	}

	switch {
	case key == "" && r.Method == http.MethodHead:
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodPut:
		_, _ = io.Copy(io.Discard, r.Body)
		if f.putStatus != 0 {
			writeS3Error(w, f.putStatus, "AccessDenied", r.URL.Path)
			return
		}
		f.puts = append(f.puts, r.Header.Clone())
		f.putKeys = append(f.putKeys, key)
		w.Header().Set("ETag", `"put-etag"`)
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodGet:
		if f.getStatus != 0 {
			writeS3Error(w, f.getStatus, "PreconditionFailed", r.URL.Path)
			return
		}
		data, ok := f.objects[key]
		if !ok {
			writeS3Error(w, http.StatusNotFound, "NoSuchKey", r.URL.Path)
			return
		}
		w.Header().Set("Content-Type", "audio/wav")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)

	default:
		writeS3Error(w, http.StatusMethodNotAllowed, "MethodNotAllowed", r.URL.Path)
	}
}

func newFakeS3(t *testing.T) (*fakeS3, config.S3Config) {
	t.Helper()
	f := &fakeS3{bucket: "audio", objects: map[string][]byte{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	return f, config.S3Config{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "test",
		SecretKey: "test-secret",
		Bucket:    "audio",
		Region:    "us-east-1",
		Prefix:    "voice",
	}
}

func TestS3Store_MissingBucket(t *testing.T) {
	_, cfg := newFakeS3(t)
	cfg.Bucket = "nope"

	if _, err := NewS3Store(context.Background(), cfg); err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("expected missing bucket error, got %v", err)
	}
}

func TestS3Store_Put(t *testing.T) {
	f, cfg := newFakeS3(t)
	s, err := NewS3Store(context.Background(), cfg)
	if err != nil {
		t.Fatalf("init: %v", err)
	}

	if err := s.Put(context.Background(), ports.SlotVoiced, []byte("RIFF-voiced")); err != nil {
		t.Fatalf("put: %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.putKeys) != 1 || f.putKeys[0] != "voice/voicedby.wav" {
		t.Fatalf("unexpected keys %v", f.putKeys)
	}
	if ct := f.puts[0].Get("Content-Type"); ct != "audio/wav" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if f.puts[0].Get("X-Amz-Meta-Uploaded-At") == "" {
		t.Fatal("uploaded-at metadata missing")
	}
}

func TestS3Store_PutRejected(t *testing.T) {
	f, cfg := newFakeS3(t)
	s, err := NewS3Store(context.Background(), cfg)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	f.putStatus = http.StatusForbidden

	if err := s.Put(context.Background(), ports.SlotVoiced, []byte("x")); err == nil {
		t.Fatal("expected error")
	}
}

func TestS3Store_Open(t *testing.T) {
	f, cfg := newFakeS3(t)
	f.objects["voice/voicedby.wav"] = []byte("RIFF-answer")
	s, err := NewS3Store(context.Background(), cfg)
	if err != nil {
		t.Fatalf("init: %v", err)
	}

	data, size := readSlot(t, s, ports.SlotVoiced)
	if string(data) != "RIFF-answer" || size != int64(len(data)) {
		t.Fatalf("unexpected object %q size=%d", data, size)
	}
}

func TestS3Store_OpenMissing(t *testing.T) {
	_, cfg := newFakeS3(t)
	s, err := NewS3Store(context.Background(), cfg)
	if err != nil {
		t.Fatalf("init: %v", err)
	}

	_, _, err = s.Open(context.Background(), ports.SlotVoiced)
	if !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// Ошибка GET должна прийти из Open, до того как вызывающий начнёт отдавать ответ.
func TestS3Store_OpenFailsBeforeStreaming(t *testing.T) {
	f, cfg := newFakeS3(t)
	f.objects["voice/voicedby.wav"] = []byte("RIFF-answer")
	f.getStatus = http.StatusPreconditionFailed
	s, err := NewS3Store(context.Background(), cfg)
	if err != nil {
		t.Fatalf("init: %v", err)
	}

	rc, size, err := s.Open(context.Background(), ports.SlotVoiced)
	if err == nil {
		rc.Close()
		t.Fatalf("expected error from Open, got reader of size %d", size)
	}
	if errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("precondition failure must not look like a missing slot: %v", err)
	}
}
