package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
)

// mediaBackend fakes the initialize/chunk/status endpoints and records what
// the uploader sends.
type mediaBackend struct {
	mu          sync.Mutex
	uploadID    string
	totalChunks int
	indexes     []int
	chunkSizes  []int
	attempts    map[int]int
	failIndex   int // chunk index to fail, -1 for none
	failOnce    bool
	resultURL   string
}

func newMediaBackend() *mediaBackend {
	return &mediaBackend{
		uploadID:  "up-1",
		attempts:  map[int]int{},
		failIndex: -1,
		resultURL: "/files/up-1.bin",
	}
}

func (b *mediaBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/media/initialize", func(w http.ResponseWriter, r *http.Request) {
		var req InitializeUploadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		b.totalChunks = req.TotalChunks
		b.mu.Unlock()
		fmt.Fprintf(w, `{"data":{"uploadId":%q,"totalChunks":%d}}`, b.uploadID, req.TotalChunks)
	})
	mux.HandleFunc("/media/chunk", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(2 * ChunkSize); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		index, err := strconv.Atoi(r.FormValue("chunkIndex"))
		if err != nil {
			http.Error(w, "bad chunkIndex", http.StatusBadRequest)
			return
		}
		file, _, err := r.FormFile("chunk")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		b.attempts[index]++
		if index == b.failIndex && (!b.failOnce || b.attempts[index] == 1) {
			http.Error(w, `{"message":"chunk rejected"}`, http.StatusInternalServerError)
			return
		}
		b.indexes = append(b.indexes, index)
		b.chunkSizes = append(b.chunkSizes, len(data))
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/media/status/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":{"url":%q}}`, b.resultURL)
	})
	return mux
}

func writeTempFile(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payload.bin")
	data := bytes.Repeat([]byte{0xAB}, size)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestUploadSplitsIntoSequentialChunks(t *testing.T) {
	backend := newMediaBackend()
	server := httptest.NewServer(backend.handler(t))
	defer server.Close()

	size := 2*ChunkSize + 1234
	path := writeTempFile(t, size)

	var percents []int
	uploader := NewChunkedUploader(NewAPIClient(server.URL, "tok"), NewMetrics())
	uploader.OnProgress(func(p TransferProgress) {
		if p.Direction != DirectionUpload {
			t.Errorf("wrong direction on tick: %v", p.Direction)
		}
		percents = append(percents, p.Percent)
	})

	session, err := uploader.Upload(path)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if session.TotalChunks != 3 {
		t.Fatalf("expected ceil(%d/%d)=3 chunks, got %d", size, ChunkSize, session.TotalChunks)
	}
	if session.ChunksSent != 3 {
		t.Fatalf("expected 3 chunks sent, got %d", session.ChunksSent)
	}
	if session.ResultURL != backend.resultURL {
		t.Fatalf("result url: got %q", session.ResultURL)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	wantIndexes := []int{0, 1, 2}
	if len(backend.indexes) != len(wantIndexes) {
		t.Fatalf("chunk indexes: got %v", backend.indexes)
	}
	for i, want := range wantIndexes {
		if backend.indexes[i] != want {
			t.Fatalf("chunk indexes not contiguous ascending: %v", backend.indexes)
		}
	}
	wantSizes := []int{ChunkSize, ChunkSize, 1234}
	for i, want := range wantSizes {
		if backend.chunkSizes[i] != want {
			t.Fatalf("chunk %d size: want %d got %d", i, want, backend.chunkSizes[i])
		}
	}
	wantPercents := []int{33, 67, 100}
	if len(percents) != len(wantPercents) {
		t.Fatalf("progress ticks: got %v", percents)
	}
	for i, want := range wantPercents {
		if percents[i] != want {
			t.Fatalf("progress: want %v got %v", wantPercents, percents)
		}
	}
}

func TestUploadAbortsOnChunkFailure(t *testing.T) {
	backend := newMediaBackend()
	backend.failIndex = 1
	server := httptest.NewServer(backend.handler(t))
	defer server.Close()

	path := writeTempFile(t, 2*ChunkSize+10)

	uploader := NewChunkedUploader(NewAPIClient(server.URL, "tok"), NewMetrics())
	session, err := uploader.Upload(path)
	if err == nil {
		t.Fatal("expected the upload to fail")
	}
	if session == nil {
		t.Fatal("a failed upload still returns the session for inspection")
	}
	if session.ChunksSent != 1 {
		t.Fatalf("expected 1 chunk out before the failure, got %d", session.ChunksSent)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	for _, idx := range backend.indexes {
		if idx >= 2 {
			t.Fatalf("chunk %d was sent after the failure", idx)
		}
	}
}

func TestUploadRetriesWithPolicy(t *testing.T) {
	backend := newMediaBackend()
	backend.failIndex = 1
	backend.failOnce = true
	server := httptest.NewServer(backend.handler(t))
	defer server.Close()

	path := writeTempFile(t, 2*ChunkSize+10)

	uploader := NewChunkedUploader(NewAPIClient(server.URL, "tok"), NewMetrics())
	uploader.SetRetryPolicy(FixedBackoff{MaxAttempts: 3})

	session, err := uploader.Upload(path)
	if err != nil {
		t.Fatalf("Upload with retry: %v", err)
	}
	if session.ChunksSent != 3 {
		t.Fatalf("expected 3 chunks sent, got %d", session.ChunksSent)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.attempts[1] != 2 {
		t.Fatalf("expected 2 attempts for chunk 1, got %d", backend.attempts[1])
	}
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	uploader := NewChunkedUploader(NewAPIClient("http://127.0.0.1:0", ""), NewMetrics())
	if _, err := uploader.Upload(writeTempFile(t, 0)); err == nil {
		t.Fatal("expected an error for an empty file")
	}
}

func TestMediaTypeFor(t *testing.T) {
	cases := map[string]string{
		"photo.JPG":    "image",
		"diagram.webp": "image",
		"clip.mp4":     "video",
		"movie.MKV":    "video",
		"report.pdf":   "file",
		"archive":      "file",
	}
	for path, want := range cases {
		if got := MediaTypeFor(path); got != want {
			t.Errorf("MediaTypeFor(%q) = %q, want %q", path, got, want)
		}
	}
}
