// Package drive is the Google Drive file-source client: given an
// access token and a file id it returns bytes and metadata. It knows
// nothing about users, credentials, or refresh; the import workflow
// handles a rejected token by refreshing and retrying once.
package drive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultBaseURL is the Drive v3 API root.
const DefaultBaseURL = "https://www.googleapis.com/drive/v3"

// ErrUnauthorized means the source rejected the access token. Callers
// may refresh and retry; the client itself never does.
var ErrUnauthorized = errors.New("drive: unauthorized")

// ErrNotFound means the requested file does not exist (or is not
// visible to this token).
var ErrNotFound = errors.New("drive: file not found")

// ErrUnavailable means the source is unreachable or failing.
var ErrUnavailable = errors.New("drive: unavailable")

// Meta is the subset of file metadata the importer needs.
type Meta struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MimeType  string `json:"mimeType"`
	Size      string `json:"size"`
	MD5       string `json:"md5Checksum"`
	SizeBytes int64  `json:"-"`
}

// Client talks to the Drive API over plain HTTP.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
}

func NewClient() *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		BaseURL:    DefaultBaseURL,
	}
}

func (c *Client) get(ctx context.Context, accessToken, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		resp.Body.Close()
		return nil, ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, body)
	}
	return resp, nil
}

// Metadata fetches name, media type, and size for one file.
func (c *Client) Metadata(ctx context.Context, accessToken, fileID string) (Meta, error) {
	u := fmt.Sprintf("%s/files/%s?fields=id,name,mimeType,size,md5Checksum", c.BaseURL, url.PathEscape(fileID))
	resp, err := c.get(ctx, accessToken, u)
	if err != nil {
		return Meta{}, err
	}
	defer resp.Body.Close()

	var meta Meta
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return Meta{}, fmt.Errorf("%w: decode metadata: %v", ErrUnavailable, err)
	}
	if meta.Size != "" {
		if n, err := strconv.ParseInt(meta.Size, 10, 64); err == nil {
			meta.SizeBytes = n
		}
	}
	return meta, nil
}

// Download returns the full content of one file.
func (c *Client) Download(ctx context.Context, accessToken, fileID string) ([]byte, error) {
	u := fmt.Sprintf("%s/files/%s?alt=media", c.BaseURL, url.PathEscape(fileID))
	resp, err := c.get(ctx, accessToken, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	return data, nil
}

// FileList is one page of a Drive listing.
type FileList struct {
	NextPageToken string `json:"nextPageToken"`
	Files         []Meta `json:"files"`
}

// List returns a page of the user's Drive files, optionally filtered
// by a Drive query string.
func (c *Client) List(ctx context.Context, accessToken, query, pageToken string, pageSize int) (FileList, error) {
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 50
	}
	params := url.Values{}
	params.Set("pageSize", strconv.Itoa(pageSize))
	params.Set("fields", "nextPageToken, files(id,name,mimeType,size)")
	if query != "" {
		params.Set("q", query)
	}
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	resp, err := c.get(ctx, accessToken, c.BaseURL+"/files?"+params.Encode())
	if err != nil {
		return FileList{}, err
	}
	defer resp.Body.Close()

	var list FileList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return FileList{}, fmt.Errorf("%w: decode list: %v", ErrUnavailable, err)
	}
	for i := range list.Files {
		if list.Files[i].Size != "" {
			if n, err := strconv.ParseInt(list.Files[i].Size, 10, 64); err == nil {
				list.Files[i].SizeBytes = n
			}
		}
	}
	return list, nil
}
