// Package ipums talks to the IPUMS extract API. Extracts are built
// asynchronously: submit a definition, poll until the build completes, then
// download the gzipped CSV.
package ipums

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
)

// ExtractRequest defines a microdata extract: a collection (usa, atus), the
// samples to draw from, and the variables to include. Preselected technical
// variables (YEAR, SERIAL, PERWT and kin) come back automatically.
type ExtractRequest struct {
	Collection  string
	Description string
	Samples     []string
	Variables   []string
}

// ExtractStatus is one poll result.
type ExtractStatus struct {
	Number      int
	Status      string // queued | started | produced | canceled | failed | completed
	DownloadURL string
}

// Client submits and retrieves IPUMS extracts.
type Client struct {
	key          string
	httpClient   *http.Client
	baseURL      string
	logger       *slog.Logger
	pollInterval time.Duration
	clock        clockwork.Clock
}

// NewClient creates an IPUMS extract API client.
func NewClient(key string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		key:          key,
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      "https://api.ipums.org/extracts",
		logger:       logger,
		pollInterval: 30 * time.Second,
		clock:        clockwork.NewRealClock(),
	}
}

// Submit posts an extract definition and returns its extract number.
func (c *Client) Submit(ctx context.Context, req ExtractRequest) (int, error) {
	samples := map[string]struct{}{}
	for _, s := range req.Samples {
		samples[s] = struct{}{}
	}
	variables := map[string]struct{}{}
	for _, v := range req.Variables {
		variables[v] = struct{}{}
	}

	payload := submitPayload{
		Description:   req.Description,
		DataStructure: map[string]any{"rectangular": map[string]string{"on": "P"}},
		DataFormat:    "csv",
		Samples:       samples,
		Variables:     variables,
		CaseSelectWho: "individuals",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encode extract request: %w", err)
	}

	u := fmt.Sprintf("%s?collection=%s&version=2", c.baseURL, req.Collection)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", c.key)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("submit extract: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("ipums API error: status %d: %s", resp.StatusCode, b)
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}

	c.logger.Info("extract submitted", "collection", req.Collection, "number", out.Number)
	return out.Number, nil
}

// Status polls one extract.
func (c *Client) Status(ctx context.Context, collection string, number int) (ExtractStatus, error) {
	u := fmt.Sprintf("%s/%d?collection=%s&version=2", c.baseURL, number, collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return ExtractStatus{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", c.key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ExtractStatus{}, fmt.Errorf("poll extract: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return ExtractStatus{}, fmt.Errorf("ipums API error: status %d: %s", resp.StatusCode, b)
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ExtractStatus{}, fmt.Errorf("decode response: %w", err)
	}

	return ExtractStatus{
		Number:      out.Number,
		Status:      out.Status,
		DownloadURL: out.DownloadLinks.Data.URL,
	}, nil
}

// Wait polls until the extract completes or the context is cancelled. A
// terminal failed or canceled status is an error; there is no resubmission.
func (c *Client) Wait(ctx context.Context, collection string, number int) (ExtractStatus, error) {
	for {
		st, err := c.Status(ctx, collection, number)
		if err != nil {
			return ExtractStatus{}, err
		}

		switch st.Status {
		case "completed":
			return st, nil
		case "failed", "canceled":
			return ExtractStatus{}, fmt.Errorf("extract %d ended with status %q", number, st.Status)
		}

		c.logger.Debug("extract not ready", "number", number, "status", st.Status)
		if !c.sleep(ctx, c.pollInterval) {
			return ExtractStatus{}, ctx.Err()
		}
	}
}

// Download streams a completed extract's data file into dataDir/raw and
// returns the local path. The file stays gzipped on disk.
func (c *Client) Download(ctx context.Context, st ExtractStatus, dataDir, name string) (string, error) {
	if st.DownloadURL == "" {
		return "", fmt.Errorf("extract %d has no download link", st.Number)
	}

	dest := filepath.Join(dataDir, "raw", name+".csv.gz")
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("create raw dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, st.DownloadURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", c.key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download extract: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ipums download error: status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return "", fmt.Errorf("write extract: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", err
	}

	c.logger.Info("extract downloaded", "number", st.Number, "bytes", size, "path", dest)
	return dest, nil
}

// sleep waits d on the client clock; false means the context ended first.
func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	select {
	case <-ctx.Done():
		return false
	case <-c.clock.After(d):
		return true
	}
}

// IPUMS API payload types.

type submitPayload struct {
	Description   string              `json:"description"`
	DataStructure map[string]any      `json:"dataStructure"`
	DataFormat    string              `json:"dataFormat"`
	Samples       map[string]struct{} `json:"samples"`
	Variables     map[string]struct{} `json:"variables"`
	CaseSelectWho string              `json:"caseSelectWho,omitempty"`
}

type extractResponse struct {
	Number        int    `json:"number"`
	Status        string `json:"status"`
	DownloadLinks struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"downloadLinks"`
}
