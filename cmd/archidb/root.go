package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/archi-map/archidb"
)

type rootFlags struct {
	dbURL     string
	configURL string
	probeURL  string
	direct    bool
	chunkSize int64
	cacheDir  string
	cacheSize int64
	logLevel  string
	jsonLogs  bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "archidb",
		Short:         "Query a remote architecture map database",
		Long:          "archidb reads a SQLite architecture map database straight off its web host,\nfetching only the pages a query touches, with a full-download fallback.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.dbURL, "db-url", "", "database file URL")
	pf.StringVar(&flags.configURL, "config-url", "", "chunk config URL (enables the chunked loader)")
	pf.StringVar(&flags.probeURL, "probe-url", "", "connection probe URL (defaults to the config URL)")
	pf.BoolVar(&flags.direct, "direct", false, "skip the chunked loader and download the whole file")
	pf.Int64Var(&flags.chunkSize, "chunk-size", 0, "range request chunk size in bytes")
	pf.StringVar(&flags.cacheDir, "cache-dir", "", "persist fetched chunks under this directory")
	pf.Int64Var(&flags.cacheSize, "cache-size", 256<<20, "disk cache budget in bytes")
	pf.StringVar(&flags.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.BoolVar(&flags.jsonLogs, "json", false, "emit JSON logs")

	cmd.AddCommand(
		newQueryCmd(flags),
		newProbeCmd(flags),
		newTablesCmd(flags),
		newCoverageCmd(flags),
	)
	return cmd
}

func (f *rootFlags) session() (*archidb.Session, error) {
	if f.dbURL == "" && f.configURL == "" {
		return nil, fmt.Errorf("either --db-url or --config-url is required")
	}

	level, err := parseLevel(f.logLevel)
	if err != nil {
		return nil, err
	}
	logger := archidb.NewTextLogger(level)
	if f.jsonLogs {
		logger = archidb.NewJSONLogger(level)
	}

	opts := []archidb.Option{
		archidb.WithLogger(logger),
	}
	if f.chunkSize > 0 {
		opts = append(opts, archidb.WithChunkSize(f.chunkSize))
	}
	if f.cacheDir != "" {
		opts = append(opts, archidb.WithDiskCache(f.cacheDir, f.cacheSize))
	}

	cfg := archidb.Config{
		DatabaseURL:    f.dbURL,
		ConfigURL:      f.configURL,
		ProbeURL:       f.probeURL,
		DisableChunked: f.direct,
	}
	return archidb.New(cfg, opts...), nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
