package internal

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"
)

// ChunkSize is the fixed upload chunk size: 1 MiB.
const ChunkSize = 1 << 20

var imagePathRegex = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|bmp|tiff|tif|webp|svg|ico|heic|heif)$`)
var videoPathRegex = regexp.MustCompile(`(?i)\.(mp4|mov|avi|mkv|webm|m4v)$`)

// TransferDirection tags a progress tick as upload or download.
type TransferDirection int

const (
	DirectionUpload TransferDirection = iota
	DirectionDownload
)

// TransferProgress is a transient UI-facing value recomputed on every tick.
type TransferProgress struct {
	Percent   int
	Direction TransferDirection
}

// UploadSession tracks one in-flight chunked upload. It lives in memory
// only; an abandoned upload cannot be resumed after restart.
type UploadSession struct {
	UploadID    string
	TotalChunks int
	ChunksSent  int
	MediaType   string
	ResultURL   string
}

// RetryPolicy decides how many times a single chunk request may be tried and
// how long to wait between tries. The backend has no retry expectations of
// its own, so the policy is pluggable rather than baked in.
type RetryPolicy interface {
	Attempts() int
	Backoff(attempt int) time.Duration
}

type noRetry struct{}

func (noRetry) Attempts() int             { return 1 }
func (noRetry) Backoff(int) time.Duration { return 0 }

// NoRetry is the default policy: any chunk failure aborts the transfer.
func NoRetry() RetryPolicy { return noRetry{} }

// FixedBackoff retries each chunk up to MaxAttempts times with a constant
// delay between tries.
type FixedBackoff struct {
	MaxAttempts int
	Delay       time.Duration
}

func (p FixedBackoff) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p FixedBackoff) Backoff(int) time.Duration { return p.Delay }

// ChunkedUploader splits a file into 1 MiB chunks, uploads them one at a
// time, and reads the finalized media URL from the status endpoint. Chunks
// are never sent concurrently: chunk N+1 goes out only after chunk N's
// request resolved.
type ChunkedUploader struct {
	api        *APIClient
	retry      RetryPolicy
	metrics    *Metrics
	onProgress func(TransferProgress)
}

func NewChunkedUploader(api *APIClient, metrics *Metrics) *ChunkedUploader {
	return &ChunkedUploader{api: api, retry: NoRetry(), metrics: metrics}
}

// SetRetryPolicy replaces the default no-retry policy.
func (u *ChunkedUploader) SetRetryPolicy(policy RetryPolicy) {
	if policy != nil {
		u.retry = policy
	}
}

// OnProgress registers a callback invoked after each chunk completes with
// the rounded percentage.
func (u *ChunkedUploader) OnProgress(fn func(TransferProgress)) {
	u.onProgress = fn
}

// Upload runs the full initialize → chunks → status flow for the file at
// path. On failure the remaining chunks are abandoned; the returned session
// still reflects how many chunks made it out. No cleanup call is issued for
// partial uploads, the server expires them on its own.
func (u *ChunkedUploader) Upload(path string) (*UploadSession, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}
	size := stat.Size()
	if size == 0 {
		return nil, errors.New("upload: file is empty")
	}

	totalChunks := int((size + ChunkSize - 1) / ChunkSize)
	mediaType := MediaTypeFor(path)

	init, err := u.api.InitializeUpload(InitializeUploadRequest{
		Title:       filepath.Base(path),
		Type:        mediaType,
		TotalChunks: totalChunks,
		Metadata: UploadMetadata{
			Size:     size,
			Filename: filepath.Base(path),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload: initialize: %w", err)
	}

	session := &UploadSession{
		UploadID:    init.UploadID,
		TotalChunks: init.TotalChunks,
		MediaType:   mediaType,
	}

	buf := make([]byte, ChunkSize)
	for index := 0; index < session.TotalChunks; index++ {
		n, err := io.ReadFull(file, buf)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			return session, fmt.Errorf("upload: read chunk %d: %w", index, err)
		}
		if n == 0 {
			return session, fmt.Errorf("upload: file shorter than %d chunks", session.TotalChunks)
		}
		if err := u.sendChunk(buf[:n], index, session); err != nil {
			return session, err
		}
		session.ChunksSent++
		u.metrics.AddUploadedBytes(int64(n))
		u.report(session.ChunksSent, session.TotalChunks)
	}

	url, err := u.api.UploadStatus(session.UploadID)
	if err != nil {
		return session, fmt.Errorf("upload: status: %w", err)
	}
	if url == "" {
		return session, errors.New("upload: status returned empty url")
	}
	session.ResultURL = url
	return session, nil
}

func (u *ChunkedUploader) sendChunk(chunk []byte, index int, session *UploadSession) error {
	var lastErr error
	for attempt := 0; attempt < u.retry.Attempts(); attempt++ {
		if attempt > 0 {
			time.Sleep(u.retry.Backoff(attempt))
		}
		lastErr = u.api.UploadChunk(chunk, index, session.UploadID, session.TotalChunks, session.MediaType)
		if lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("upload: chunk %d/%d: %w", index, session.TotalChunks, lastErr)
}

func (u *ChunkedUploader) report(sent, total int) {
	if u.onProgress == nil {
		return
	}
	percent := int(math.Round(float64(sent) / float64(total) * 100))
	u.onProgress(TransferProgress{Percent: percent, Direction: DirectionUpload})
}

// MediaTypeFor classifies a filename the way the backend expects.
func MediaTypeFor(path string) string {
	switch {
	case imagePathRegex.MatchString(path):
		return "image"
	case videoPathRegex.MatchString(path):
		return "video"
	default:
		return "file"
	}
}

// InitializeUploadRequest is the body for POST /media/initialize.
type InitializeUploadRequest struct {
	Title       string         `json:"title"`
	Type        string         `json:"type"`
	TotalChunks int            `json:"totalChunks"`
	Metadata    UploadMetadata `json:"metadata"`
}

type UploadMetadata struct {
	Size        int64  `json:"size"`
	ContentType string `json:"contentType,omitempty"`
	Filename    string `json:"filename"`
}

// UploadInit is the allocation the server returns from initialize.
type UploadInit struct {
	UploadID    string `json:"uploadId"`
	TotalChunks int    `json:"totalChunks"`
}

type initializeUploadResponse struct {
	Data UploadInit `json:"data"`
}

// InitializeUpload allocates an uploadId and confirms the chunk count.
func (a *APIClient) InitializeUpload(req InitializeUploadRequest) (UploadInit, error) {
	var resp initializeUploadResponse
	if err := a.doJSON(http.MethodPost, "/media/initialize", req, &resp); err != nil {
		return UploadInit{}, err
	}
	if resp.Data.UploadID == "" {
		return UploadInit{}, errors.New("initialize response missing uploadId")
	}
	if resp.Data.TotalChunks == 0 {
		resp.Data.TotalChunks = req.TotalChunks
	}
	return resp.Data, nil
}

// UploadChunk posts one chunk as an independent multipart request.
func (a *APIClient) UploadChunk(chunk []byte, index int, uploadID string, totalChunks int, mediaType string) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("chunk", fmt.Sprintf("chunk-%d", index))
	if err != nil {
		return err
	}
	if _, err := part.Write(chunk); err != nil {
		return err
	}
	_ = writer.WriteField("uploadId", uploadID)
	_ = writer.WriteField("totalChunks", strconv.Itoa(totalChunks))
	_ = writer.WriteField("chunkIndex", strconv.Itoa(index))
	_ = writer.WriteField("typeFile", mediaType)
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, a.baseURL+"/media/chunk", body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, readResponseError(resp.Body))
	}
	return nil
}

type uploadStatusResponse struct {
	Data struct {
		URL string `json:"url"`
	} `json:"data"`
}

// UploadStatus reads the finalized media URL for a completed upload.
func (a *APIClient) UploadStatus(uploadID string) (string, error) {
	var resp uploadStatusResponse
	if err := a.doJSON(http.MethodGet, "/media/status/"+uploadID, nil, &resp); err != nil {
		return "", err
	}
	return resp.Data.URL, nil
}
