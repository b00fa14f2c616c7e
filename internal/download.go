package internal

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Downloader fetches a file attachment in a single request, reporting
// loaded/total progress as the body streams in, and saves it under the
// configured directory.
type Downloader struct {
	baseURL    string
	token      string
	saveDir    string
	client     *http.Client
	metrics    *Metrics
	onProgress func(TransferProgress)
}

func NewDownloader(baseURL, token, saveDir string, metrics *Metrics) *Downloader {
	return &Downloader{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		saveDir: saveDir,
		client:  &http.Client{Timeout: 2 * time.Minute},
		metrics: metrics,
	}
}

func (d *Downloader) OnProgress(fn func(TransferProgress)) {
	d.onProgress = fn
}

// Download fetches fileURL (absolute, or relative to the backend host) and
// writes it to the save directory under the attachment's own name. Progress
// is reset to zero when the transfer finishes, whether it succeeded or not.
func (d *Downloader) Download(fileURL string) (string, error) {
	defer d.report(0)

	target, err := d.resolve(fileURL)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(d.saveDir, 0o755); err != nil {
		return "", err
	}
	filename := attachmentName(fileURL)
	tmpPath := filepath.Join(d.saveDir, fmt.Sprintf(".%s-%s", uuid.NewString(), filename))
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return "", err
	}

	written, err := d.copyWithProgress(tmpFile, resp.Body, resp.ContentLength)
	closeErr := tmpFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	d.metrics.AddDownloadedBytes(written)

	finalPath := filepath.Join(d.saveDir, filename)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	return finalPath, nil
}

func (d *Downloader) copyWithProgress(dst io.Writer, src io.Reader, total int64) (int64, error) {
	buf := make([]byte, 32*1024)
	var loaded int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return loaded, writeErr
			}
			loaded += int64(n)
			if total > 0 {
				d.report(int(math.Round(float64(loaded) * 100 / float64(total))))
			}
		}
		if readErr == io.EOF {
			return loaded, nil
		}
		if readErr != nil {
			return loaded, readErr
		}
	}
}

// attachmentName derives the local filename from the url path alone, so
// query strings (signatures, cache busters) never end up on disk.
func attachmentName(fileURL string) string {
	name := fileURL
	if parsed, err := url.Parse(fileURL); err == nil && parsed.Path != "" {
		name = parsed.Path
	}
	name = path.Base(name)
	if name == "" || name == "." || name == "/" {
		return "attachment"
	}
	return name
}

// resolve joins relative attachment paths onto the backend host; absolute
// URLs pass through untouched.
func (d *Downloader) resolve(fileURL string) (string, error) {
	parsed, err := url.Parse(fileURL)
	if err != nil {
		return "", err
	}
	if parsed.IsAbs() {
		return fileURL, nil
	}
	return d.baseURL + "/" + strings.TrimLeft(fileURL, "/"), nil
}

func (d *Downloader) report(percent int) {
	if d.onProgress == nil {
		return
	}
	d.onProgress(TransferProgress{Percent: percent, Direction: DirectionDownload})
}
