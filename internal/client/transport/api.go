package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ImageInfo mirrors one catalog row as returned by the listing API.
type ImageInfo struct {
	ID          int64      `json:"id"`
	FileID      string     `json:"file_id"`
	ThumbFileID string     `json:"thumb_file_id"`
	ShortCode   string     `json:"short_code"`
	Tags        string     `json:"tags"`
	Filename    string     `json:"filename"`
	Size        int64      `json:"size"`
	Folder      string     `json:"folder"`
	ContentType string     `json:"content_type"`
	Hash        string     `json:"hash,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// HistoryPage is one page of the listing.
type HistoryPage struct {
	Items []ImageInfo
	Page  int
	Limit int
	Total int64
}

// DedupResult reports the outcome of a deduplication run.
type DedupResult struct {
	Deleted int                `json:"deleted"`
	Groups  map[string][]int64 `json:"groups,omitempty"`
	Message string             `json:"message"`
}

// Stats holds catalog-wide totals.
type Stats struct {
	Images  int64 `json:"images"`
	Bytes   int64 `json:"bytes"`
	Folders int64 `json:"folders"`
	Tags    int64 `json:"tags"`
}

// HistoryFilter narrows the listing.
type HistoryFilter struct {
	Search   string
	Tag      string
	Filename string
	Folder   string
}

type statusEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// History fetches one page of the catalog listing.
func (c *Client) History(ctx context.Context, page, limit int, f HistoryFilter) (*HistoryPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Tag != "" {
		q.Set("tag", f.Tag)
	}
	if f.Filename != "" {
		q.Set("filename", f.Filename)
	}
	if f.Folder != "" {
		q.Set("folder", f.Folder)
	}

	var out struct {
		statusEnvelope
		Data       []ImageInfo `json:"data"`
		Pagination struct {
			Page  int   `json:"page"`
			Limit int   `json:"limit"`
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	if err := c.getJSON(ctx, "/api/history?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	if out.Status != "success" {
		return nil, fmt.Errorf("history: %s", out.Message)
	}
	return &HistoryPage{
		Items: out.Data,
		Page:  out.Pagination.Page,
		Limit: out.Pagination.Limit,
		Total: out.Pagination.Total,
	}, nil
}

// Delete removes catalog rows by id. Relay blobs are not purged.
func (c *Client) Delete(ctx context.Context, ids []int64) error {
	var out statusEnvelope
	if err := c.postJSON(ctx, "/api/delete", map[string]any{"ids": ids}, &out); err != nil {
		return err
	}
	if out.Status != "success" {
		return fmt.Errorf("delete: %s", out.Message)
	}
	return nil
}

// Folders lists the distinct folder paths.
func (c *Client) Folders(ctx context.Context) ([]string, error) {
	var out struct {
		statusEnvelope
		Folders []string `json:"folders"`
	}
	if err := c.getJSON(ctx, "/api/folders", &out); err != nil {
		return nil, err
	}
	if out.Status != "success" {
		return nil, fmt.Errorf("folders: %s", out.Message)
	}
	return out.Folders, nil
}

// RenameFolder moves every record under oldPath to the equivalent path
// under newPath.
func (c *Client) RenameFolder(ctx context.Context, oldPath, newPath string) error {
	return c.folderOp(ctx, "/api/folders/rename", map[string]any{"old_path": oldPath, "new_path": newPath})
}

// DeleteFolder removes every record at path or any descendant.
func (c *Client) DeleteFolder(ctx context.Context, path string) error {
	return c.folderOp(ctx, "/api/folders/delete", map[string]any{"path": path})
}

// MoveImages rewrites the folder of exactly the given ids.
func (c *Client) MoveImages(ctx context.Context, ids []int64, target string) error {
	return c.folderOp(ctx, "/api/folders/move", map[string]any{"ids": ids, "target": target})
}

// CopyImages duplicates the given rows into target under fresh short codes.
func (c *Client) CopyImages(ctx context.Context, ids []int64, target string) error {
	return c.folderOp(ctx, "/api/folders/copy", map[string]any{"ids": ids, "target": target})
}

func (c *Client) folderOp(ctx context.Context, path string, body any) error {
	var out statusEnvelope
	if err := c.postJSON(ctx, path, body, &out); err != nil {
		return err
	}
	if out.Status != "success" {
		return fmt.Errorf("folder operation: %s", out.Message)
	}
	return nil
}

// Dedup triggers the server-side deduplication job, optionally scoped to a
// subset of ids. A "nothing to do" outcome comes back as Deleted == 0 with
// a distinct message rather than an error.
func (c *Client) Dedup(ctx context.Context, ids []int64) (*DedupResult, error) {
	body := map[string]any{}
	if len(ids) > 0 {
		body["ids"] = ids
	}
	var out struct {
		Status string `json:"status"`
		DedupResult
	}
	if err := c.postJSON(ctx, "/api/dedup", body, &out); err != nil {
		return nil, err
	}
	if out.Status != "success" {
		return nil, fmt.Errorf("dedup: %s", out.Message)
	}
	r := out.DedupResult
	return &r, nil
}

// FetchStats retrieves catalog totals.
func (c *Client) FetchStats(ctx context.Context) (*Stats, error) {
	var out struct {
		statusEnvelope
		Stats
	}
	if err := c.getJSON(ctx, "/api/stats", &out); err != nil {
		return nil, err
	}
	if out.Status != "success" {
		return nil, fmt.Errorf("stats: %s", out.Message)
	}
	s := out.Stats
	return &s, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("malformed response (%d): %w", resp.StatusCode, err)
	}
	return nil
}
