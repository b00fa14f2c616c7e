package internal

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestDownloadSavesAttachment(t *testing.T) {
	content := bytes.Repeat([]byte{0xCD}, 200*1024)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/report.pdf" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("missing bearer token, got %q", got)
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(content)))
		w.Write(content)
	}))
	defer server.Close()

	saveDir := t.TempDir()
	metrics := NewMetrics()
	downloader := NewDownloader(server.URL, "tok", saveDir, metrics)

	var percents []int
	downloader.OnProgress(func(p TransferProgress) {
		if p.Direction != DirectionDownload {
			t.Errorf("wrong direction on tick: %v", p.Direction)
		}
		percents = append(percents, p.Percent)
	})

	path, err := downloader.Download("/files/report.pdf")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if filepath.Base(path) != "report.pdf" {
		t.Fatalf("saved under the wrong name: %s", path)
	}
	saved, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if !bytes.Equal(saved, content) {
		t.Fatal("saved content does not match the served body")
	}

	if len(percents) < 2 {
		t.Fatalf("expected progress ticks plus the final reset, got %v", percents)
	}
	// progress ends at 100 and then resets to zero
	if percents[len(percents)-2] != 100 {
		t.Fatalf("expected 100%% before the reset, got %v", percents)
	}
	if percents[len(percents)-1] != 0 {
		t.Fatalf("progress must reset to zero after completion, got %v", percents)
	}
	for i := 1; i < len(percents)-1; i++ {
		if percents[i] < percents[i-1] {
			t.Fatalf("progress went backwards: %v", percents)
		}
	}

	// no temp files left behind
	entries, err := os.ReadDir(saveDir)
	if err != nil {
		t.Fatalf("read save dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the final file in %s, found %d entries", saveDir, len(entries))
	}
}

func TestDownloadErrorStillResetsProgress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	downloader := NewDownloader(server.URL, "", t.TempDir(), NewMetrics())
	var percents []int
	downloader.OnProgress(func(p TransferProgress) {
		percents = append(percents, p.Percent)
	})

	if _, err := downloader.Download("/files/missing.bin"); err == nil {
		t.Fatal("expected an error for a missing attachment")
	}
	if len(percents) == 0 || percents[len(percents)-1] != 0 {
		t.Fatalf("failed download must still reset progress to zero, got %v", percents)
	}
}

func TestDownloadStripsQueryFromFilename(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/report.pdf" || r.URL.Query().Get("sig") != "abc" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("signed payload"))
	}))
	defer server.Close()

	downloader := NewDownloader(server.URL, "", t.TempDir(), NewMetrics())
	path, err := downloader.Download("/files/report.pdf?sig=abc")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if filepath.Base(path) != "report.pdf" {
		t.Fatalf("query leaked into the filename: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if string(data) != "signed payload" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestDownloadResolvesAbsoluteURLs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload"))
	}))
	defer server.Close()

	// the downloader is configured against a different host; the absolute
	// url must win
	downloader := NewDownloader("http://127.0.0.1:0", "", t.TempDir(), NewMetrics())
	path, err := downloader.Download(server.URL + "/files/abs.bin")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("unexpected content: %q", data)
	}
}
