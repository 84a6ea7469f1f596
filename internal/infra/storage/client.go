// Package storage re-hosts media files on an object-storage bucket. Media
// URLs handed out by the messaging platform expire within minutes; the agent
// platform needs a URL that stays valid for the life of the chat.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Bucket names for re-hosted media.
const (
	ImageBucket = "wap_images"
	FileBucket  = "wap_files"
)

// Client fetches a file from a temporary URL and uploads it to a bucket.
type Client struct {
	baseURL    string
	serviceKey string
	http       *http.Client
}

// NewClient creates a new object-storage client.
func NewClient(baseURL, serviceKey string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		serviceKey: serviceKey,
		http:       &http.Client{Timeout: 30 * time.Second},
	}
}

// Rehost downloads the file behind a temporary URL and uploads it to the
// bucket under a random name, returning the permanent public URL.
func (c *Client) Rehost(ctx context.Context, sourceURL, bucket string) (string, error) {
	content, contentType, err := c.fetch(ctx, sourceURL)
	if err != nil {
		return "", err
	}

	filename := uuid.NewString() + extensionFor(contentType)
	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, bucket, filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(content))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("storage upload error: %s body=%s", resp.Status, respBody)
	}

	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, bucket, filename), nil
}

func (c *Client) fetch(ctx context.Context, sourceURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("storage fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("storage fetch error: %s", resp.Status)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("storage fetch read: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return content, contentType, nil
}

func extensionFor(contentType string) string {
	// Strip parameters like "; charset=utf-8" before the lookup.
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	exts, err := mime.ExtensionsByType(contentType)
	if err != nil || len(exts) == 0 {
		return ".bin"
	}
	return exts[0]
}
