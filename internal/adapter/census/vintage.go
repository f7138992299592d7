package census

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hearthline/chartpress/internal/domain"
)

// Known population-estimate vintage files on www2.census.gov. Each maps a
// short name to the wide "ALLDATA" CSV for that geography and decade.
var VintageURLs = map[string]string{
	"state_v2025":  "https://www2.census.gov/programs-surveys/popest/datasets/2020-2025/state/totals/NST-EST2025-ALLDATA.csv",
	"state_2010s":  "https://www2.census.gov/programs-surveys/popest/datasets/2010-2020/state/totals/nst-est2020-alldata.csv",
	"county_v2024": "https://www2.census.gov/programs-surveys/popest/datasets/2020-2024/counties/totals/co-est2024-alldata.csv",
	"county_2010s": "https://www2.census.gov/programs-surveys/popest/datasets/2010-2020/counties/totals/co-est2020-alldata.csv",
	"cbsa_v2024":   "https://www2.census.gov/programs-surveys/popest/datasets/2020-2024/metro/totals/cbsa-est2024-alldata.csv",
}

// BulkDownloader fetches vintage CSVs and keeps the raw files on disk so
// later runs reuse them instead of re-downloading.
type BulkDownloader struct {
	httpClient *http.Client
	dataDir    string
	logger     *slog.Logger
	urls       map[string]string
}

// NewBulkDownloader creates a downloader writing under dataDir/raw.
func NewBulkDownloader(dataDir string, logger *slog.Logger) *BulkDownloader {
	return &BulkDownloader{
		httpClient: &http.Client{
			// County files run tens of megabytes; allow well beyond the API timeout.
			Timeout: 5 * time.Minute,
		},
		dataDir: dataDir,
		logger:  logger,
		urls:    VintageURLs,
	}
}

// Download fetches the named vintage, returning the local path. An existing
// file is reused without touching the network.
func (d *BulkDownloader) Download(ctx context.Context, name string) (string, error) {
	u, ok := d.urls[name]
	if !ok {
		return "", fmt.Errorf("unknown vintage %q", name)
	}

	dest := filepath.Join(d.dataDir, "raw", name+".csv")
	if _, err := os.Stat(dest); err == nil {
		d.logger.Debug("vintage already on disk", "name", name, "path", dest)
		return dest, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("create raw dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	d.logger.Info("downloading vintage", "name", name, "url", u)
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("vintage download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vintage download error: status %d for %s", resp.StatusCode, u)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return "", fmt.Errorf("write vintage: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", err
	}

	d.logger.Info("vintage downloaded", "name", name, "bytes", size)
	return dest, nil
}

// ReadCSV loads a downloaded vintage into a flat table. Older vintage files
// are Latin-1 encoded (county names like Doña Ana); invalid UTF-8 falls back
// to a Latin-1 decode rather than failing.
func ReadCSV(path string) (domain.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Table{}, fmt.Errorf("read vintage csv: %w", err)
	}
	if !utf8.Valid(data) {
		data = latin1ToUTF8(data)
	}

	r := csv.NewReader(strings.NewReader(string(data)))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return domain.Table{}, fmt.Errorf("parse vintage csv: %w", err)
	}
	if len(records) == 0 {
		return domain.Table{}, fmt.Errorf("vintage csv %s is empty", path)
	}

	table := domain.Table{Columns: records[0], Rows: make([][]string, 0, len(records)-1)}
	for _, rec := range records[1:] {
		// Ragged rows are padded so positional access stays safe.
		if len(rec) < len(table.Columns) {
			padded := make([]string, len(table.Columns))
			copy(padded, rec)
			rec = padded
		}
		table.Rows = append(table.Rows, rec)
	}
	return table, nil
}

func latin1ToUTF8(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		out = utf8.AppendRune(out, rune(c))
	}
	return out
}
