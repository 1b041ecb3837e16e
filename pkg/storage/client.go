package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Error reports a failed artifact upload.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Client uploads artifacts to a Supabase-style storage API and returns
// stable public URLs.
type Client struct {
	http    *resty.Client
	baseURL string
	key     string
	bucket  string
}

func NewClient(baseURL, key, bucket string) *Client {
	return &Client{
		http:    resty.New().SetTimeout(30 * time.Second),
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		bucket:  bucket,
	}
}

// Upload stores data at path inside the bucket, overwriting any previous
// object, and returns the object's public URL.
func (c *Client) Upload(ctx context.Context, data []byte, contentType, path string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.key).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "true").
		SetBody(data).
		Post(fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, path))
	if err != nil {
		return "", &Error{Path: path, Err: err}
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return "", &Error{Path: path, Err: fmt.Errorf("storage API returned %d: %s", resp.StatusCode(), resp.String())}
	}
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, c.bucket, path), nil
}
