package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/hearthline/chartpress/internal/adapter/census"
	"github.com/hearthline/chartpress/internal/adapter/ipums"
	"github.com/hearthline/chartpress/internal/domain"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Pull raw data from upstream sources",
}

var (
	acsDataset   string
	acsYear      int
	acsVariables []string
	acsGeoFor    string
	acsGeoIn     string
	acsName      string
)

var fetchACSCmd = &cobra.Command{
	Use:   "acs",
	Short: "Fetch an ACS table from the Census data API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if app.cfg.CensusAPIKey == "" {
			return errors.New("CENSUS_API_KEY is not set")
		}
		client := census.NewCachedClient(
			census.NewClient(app.cfg.CensusAPIKey, app.cfg.HTTPTimeout, app.logger),
			app.cfg.FetchCacheSize,
		)

		table, err := client.Get(cmd.Context(), acsDataset, acsYear, acsVariables, acsGeoFor, acsGeoIn)
		if err != nil {
			app.metrics.FetchRequests.WithLabelValues("census", "error").Inc()
			return err
		}
		app.metrics.FetchRequests.WithLabelValues("census", "success").Inc()

		path := rawPath(acsName + ".csv")
		if err := writeTable(path, table); err != nil {
			return err
		}
		app.logger.Info("acs table fetched",
			"dataset", acsDataset, "year", acsYear, "rows", len(table.Rows), "path", path)
		return nil
	},
}

var fetchPopestCmd = &cobra.Command{
	Use:   "popest [vintage...]",
	Short: "Download population-estimate vintage files",
	Long: "Downloads the named popest vintage files (default: all known vintages).\n" +
		"Files already on disk are kept.",
	RunE: func(cmd *cobra.Command, args []string) error {
		names := args
		if len(names) == 0 {
			for name := range census.VintageURLs {
				names = append(names, name)
			}
			sort.Strings(names)
		}

		dl := census.NewBulkDownloader(app.cfg.DataDir, app.logger)
		for _, name := range names {
			path, err := dl.Download(cmd.Context(), name)
			if err != nil {
				app.metrics.FetchRequests.WithLabelValues("census_bulk", "error").Inc()
				return fmt.Errorf("vintage %s: %w", name, err)
			}
			app.metrics.FetchRequests.WithLabelValues("census_bulk", "success").Inc()
			app.logger.Info("vintage downloaded", "name", name, "path", path)
		}
		return nil
	},
}

var (
	ipumsCollection  string
	ipumsDescription string
	ipumsSamples     []string
	ipumsVariables   []string
	ipumsName        string
)

var fetchIPUMSCmd = &cobra.Command{
	Use:   "ipums",
	Short: "Submit an IPUMS extract, wait for it, and download it",
	RunE: func(cmd *cobra.Command, args []string) error {
		if app.cfg.IPUMSAPIKey == "" {
			return errors.New("IPUMS_API_KEY is not set")
		}
		client := ipums.NewClient(app.cfg.IPUMSAPIKey, app.cfg.HTTPTimeout, app.logger)

		number, err := client.Submit(cmd.Context(), ipums.ExtractRequest{
			Collection:  ipumsCollection,
			Description: ipumsDescription,
			Samples:     ipumsSamples,
			Variables:   ipumsVariables,
		})
		if err != nil {
			app.metrics.FetchRequests.WithLabelValues("ipums", "error").Inc()
			return err
		}
		app.logger.Info("extract submitted", "collection", ipumsCollection, "number", number)

		status, err := client.Wait(cmd.Context(), ipumsCollection, number)
		if err != nil {
			app.metrics.FetchRequests.WithLabelValues("ipums", "error").Inc()
			return err
		}

		path, err := client.Download(cmd.Context(), status, app.cfg.DataDir, ipumsName)
		if err != nil {
			app.metrics.FetchRequests.WithLabelValues("ipums", "error").Inc()
			return err
		}
		app.metrics.FetchRequests.WithLabelValues("ipums", "success").Inc()
		app.logger.Info("extract downloaded", "number", number, "path", path)
		return nil
	},
}

func init() {
	f := fetchACSCmd.Flags()
	f.StringVar(&acsDataset, "dataset", "acs/acs5", "Census API dataset path")
	f.IntVar(&acsYear, "year", 0, "data year")
	f.StringSliceVar(&acsVariables, "variables", nil, "variables to request")
	f.StringVar(&acsGeoFor, "for", "", "geography clause, e.g. 'county:*'")
	f.StringVar(&acsGeoIn, "in", "", "containing geography, e.g. 'state:36'")
	f.StringVar(&acsName, "name", "", "output file name under the raw data directory")
	_ = fetchACSCmd.MarkFlagRequired("year")
	_ = fetchACSCmd.MarkFlagRequired("variables")
	_ = fetchACSCmd.MarkFlagRequired("for")
	_ = fetchACSCmd.MarkFlagRequired("name")

	fi := fetchIPUMSCmd.Flags()
	fi.StringVar(&ipumsCollection, "collection", "usa", "IPUMS collection")
	fi.StringVar(&ipumsDescription, "description", "", "extract description")
	fi.StringSliceVar(&ipumsSamples, "samples", nil, "sample IDs, e.g. us2023a")
	fi.StringSliceVar(&ipumsVariables, "variables", nil, "variables to include")
	fi.StringVar(&ipumsName, "name", "", "output file name under the raw data directory")
	_ = fetchIPUMSCmd.MarkFlagRequired("samples")
	_ = fetchIPUMSCmd.MarkFlagRequired("variables")
	_ = fetchIPUMSCmd.MarkFlagRequired("name")

	fetchCmd.AddCommand(fetchACSCmd, fetchPopestCmd, fetchIPUMSCmd)
	rootCmd.AddCommand(fetchCmd)
}

func rawPath(name string) string {
	return filepath.Join(app.cfg.DataDir, "raw", name)
}

func writeTable(path string, t domain.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write table: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	return f.Close()
}
