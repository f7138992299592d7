package census

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hearthline/chartpress/internal/domain"
)

// Client pulls tables from the Census Bureau data API.
type Client struct {
	key        string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a Census data API client. The key may be empty; the API
// allows small unauthenticated quotas, useful in tests.
func NewClient(key string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		key: key,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.census.gov/data",
		logger:  logger,
	}
}

// Get fetches one dataset/year slice, e.g.
//
//	Get(ctx, "acs/acs5", 2023, []string{"NAME", "B25064_001E"},
//	    "metropolitan statistical area/micropolitan statistical area:*", "")
//
// and returns the decoded flat table. A non-2xx response aborts the run; the
// API is never retried.
func (c *Client) Get(ctx context.Context, dataset string, year int, variables []string, geoFor, geoIn string) (domain.Table, error) {
	u := fmt.Sprintf("%s/%d/%s", c.baseURL, year, dataset)
	params := url.Values{
		"get": {strings.Join(variables, ",")},
		"for": {geoFor},
	}
	if geoIn != "" {
		params.Set("in", geoIn)
	}
	if c.key != "" {
		params.Set("key", c.key)
	}

	return c.doRequest(ctx, u+"?"+params.Encode())
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.Table{}, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Table{}, fmt.Errorf("census API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.Table{}, fmt.Errorf("census API error: status %d: %s", resp.StatusCode, body)
	}

	table, err := decodeTable(resp.Body)
	if err != nil {
		return domain.Table{}, err
	}

	c.logger.Debug("census API response",
		"url", req.URL.Path,
		"rows", len(table.Rows),
		"duration", time.Since(start),
	)
	return table, nil
}

// decodeTable reads the API's array-of-arrays JSON: the first row is the
// header, every later row is positional. Cells are strings or null.
func decodeTable(r io.Reader) (domain.Table, error) {
	var rows [][]*string
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return domain.Table{}, fmt.Errorf("decode response: %w", err)
	}
	if len(rows) == 0 {
		return domain.Table{}, fmt.Errorf("empty response: no header row")
	}

	header := make([]string, len(rows[0]))
	for i, c := range rows[0] {
		if c == nil {
			return domain.Table{}, fmt.Errorf("null column name at position %d", i)
		}
		header[i] = *c
	}

	table := domain.Table{Columns: header, Rows: make([][]string, 0, len(rows)-1)}
	for n, raw := range rows[1:] {
		if len(raw) != len(header) {
			return domain.Table{}, fmt.Errorf("row %d has %d cells, header has %d", n+1, len(raw), len(header))
		}
		row := make([]string, len(raw))
		for i, c := range raw {
			if c != nil {
				row[i] = *c
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// requestKey is the cache key for one Get call.
func requestKey(dataset string, year int, variables []string, geoFor, geoIn string) string {
	return strings.Join([]string{dataset, strconv.Itoa(year), strings.Join(variables, ","), geoFor, geoIn}, "|")
}
