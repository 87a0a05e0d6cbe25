package scanner

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"inksync/internal/logging"
)

type signedURLRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

type signedURLResponse struct {
	SignedURL string `json:"signedUrl"`
	Path      string `json:"path"`
}

type finalizeEntry struct {
	Path        string `json:"path"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

type finalizeRequest struct {
	Uploads []finalizeEntry `json:"uploads"`
}

type finalizeResponse struct {
	JobIDs  []string `json:"jobIds"`
	Message string   `json:"message"`
}

// Upload runs the three-step pipeline for each file: request a one-time
// signed write target, transfer the raw bytes there, then submit one atomic
// finalize call for every file that transferred. A step-1 or step-2 failure
// excludes only that file; a finalize failure fails every transferred file
// because job creation is a single atomic call. When no files survive to
// finalize, no finalize call is made.
func (c *Client) Upload(ctx context.Context, files []UploadFile) (*UploadResult, error) {
	if len(files) == 0 {
		return &UploadResult{}, nil
	}
	if len(files) > c.maxBatchSize {
		return nil, fmt.Errorf("%w: batch of %d files exceeds limit of %d", ErrValidation, len(files), c.maxBatchSize)
	}

	result := &UploadResult{}
	var entries []finalizeEntry

	for _, file := range files {
		if int64(len(file.Data)) > c.maxFileBytes {
			result.Failures = append(result.Failures, UploadFailure{
				Filename: file.Name,
				Reason:   fmt.Sprintf("file exceeds %d byte limit", c.maxFileBytes),
			})
			continue
		}
		entry, err := c.transferFile(ctx, file)
		if err != nil {
			c.logger.Warn("file transfer failed",
				logging.String("filename", file.Name),
				logging.Error(err),
			)
			result.Failures = append(result.Failures, UploadFailure{Filename: file.Name, Reason: err.Error()})
			continue
		}
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return result, nil
	}

	jobIDs, err := c.finalize(ctx, entries)
	if err != nil {
		for _, entry := range entries {
			result.Failures = append(result.Failures, UploadFailure{
				Filename: entry.Filename,
				Reason:   fmt.Sprintf("finalize failed: %v", err),
			})
		}
		return result, nil
	}
	result.JobIDs = jobIDs
	return result, nil
}

// transferFile performs steps 1 and 2: signed-URL allocation and raw PUT.
func (c *Client) transferFile(ctx context.Context, file UploadFile) (finalizeEntry, error) {
	body, err := marshalBody(signedURLRequest{Filename: file.Name, ContentType: file.ContentType})
	if err != nil {
		return finalizeEntry{}, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/upload/signed-url", body)
	if err != nil {
		return finalizeEntry{}, err
	}
	var signed signedURLResponse
	if err := c.doJSON(req, "request signed url", &signed); err != nil {
		return finalizeEntry{}, err
	}
	if signed.SignedURL == "" || signed.Path == "" {
		return finalizeEntry{}, fmt.Errorf("%w: signed url response missing fields", ErrInternal)
	}

	// The signed URL is pre-authorized; no bearer token on the PUT.
	putReq, err := http.NewRequestWithContext(ctx, http.MethodPut, signed.SignedURL, bytes.NewReader(file.Data))
	if err != nil {
		return finalizeEntry{}, fmt.Errorf("build upload request: %w", err)
	}
	putReq.Header.Set("Content-Type", file.ContentType)
	putReq.Header.Set("User-Agent", userAgent)
	putReq.ContentLength = int64(len(file.Data))

	resp, err := c.client.Do(putReq)
	if err != nil {
		return finalizeEntry{}, networkError("transfer file", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return finalizeEntry{}, decodeAPIError(resp)
	}

	return finalizeEntry{
		Path:        signed.Path,
		Filename:    file.Name,
		ContentType: file.ContentType,
		Size:        int64(len(file.Data)),
	}, nil
}

// finalize performs step 3: one atomic create-jobs call for the batch.
func (c *Client) finalize(ctx context.Context, entries []finalizeEntry) ([]string, error) {
	body, err := marshalBody(finalizeRequest{Uploads: entries})
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/upload/finalize", body)
	if err != nil {
		return nil, err
	}
	var payload finalizeResponse
	if err := c.doJSON(req, "finalize upload", &payload); err != nil {
		return nil, err
	}
	return payload.JobIDs, nil
}
