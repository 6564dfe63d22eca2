// Package media talks to the external image host. The core never stores
// binary image data, only the public URLs the host hands back.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-shop-backend/internal/apperrs"
)

type Uploader interface {
	Upload(ctx context.Context, filename string, data []byte) (string, error)
}

type File struct {
	Name string
	Data []byte
}

// HostClient is the HTTP client for the media host's upload endpoint.
type HostClient struct {
	HTTP   *http.Client
	URL    string
	APIKey string
}

func NewHostClient(url, apiKey string) *HostClient {
	return &HostClient{
		HTTP:   &http.Client{Timeout: 15 * time.Second},
		URL:    url,
		APIKey: apiKey,
	}
}

type uploadResp struct {
	SecureURL string `json:"secure_url"`
}

func (c *HostClient) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-File-Name", filename)
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", &apperrs.UpstreamError{Op: "media upload", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", &apperrs.UpstreamError{Op: "media upload", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	var out uploadResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &apperrs.UpstreamError{Op: "media upload", Err: err}
	}
	if out.SecureURL == "" {
		return "", &apperrs.UpstreamError{Op: "media upload", Err: fmt.Errorf("empty url in response")}
	}
	return out.SecureURL, nil
}

// UploadAll pushes all files concurrently and returns their URLs in input
// order. One failure cancels the rest; nothing partial is returned.
func UploadAll(ctx context.Context, up Uploader, files []File) ([]string, error) {
	urls := make([]string, len(files))
	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			url, err := up.Upload(ctx, f.Name, f.Data)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}
