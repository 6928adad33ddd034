package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/aluiziolira/go-scrape-lists/config"
	"github.com/aluiziolira/go-scrape-lists/harvest"
	"github.com/aluiziolira/go-scrape-lists/models"
	"github.com/aluiziolira/go-scrape-lists/scraper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schollz/progressbar/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()
	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// EnvFile is loaded before flags are parsed. Set before calling Run().
	EnvFile string

	// Transport replaces the HTTP transport used for the list source.
	Transport http.RoundTripper
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{EnvFile: envOr("HARVEST_ENV_FILE", ".env")}
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if err := config.LoadDotEnv(m.EnvFile); err != nil {
		return err
	}

	deps := &Dependencies{
		Ctx:       ctx,
		Stdout:    stdout,
		Stderr:    stderr,
		Transport: m.Transport,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("harvester"),
		kong.Description("Harvest ranked lists into JSON or CSV files"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Bind(&cli.Globals, deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'harvester --help' to see available commands")
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	logger, level := newLogger(stdout, cli.Globals.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	return kongCtx.Run(deps)
}

func (d *Dependencies) runHarvest(cfg *config.Config, urls []string, batch bool) ([]*models.HarvestResult, error) {
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return nil, err
	}

	bar := newProgressBar(d.Stderr)
	var opts []harvest.Option
	if bar != nil {
		opts = append(opts, harvest.WithProgressFunc(func(snap models.ProgressSnapshot) {
			if snap.Total > 0 && snap.Total != bar.GetMax() {
				bar.ChangeMax(snap.Total)
			}
			_ = bar.Set(snap.Completed)
		}))
	}

	h, client, err := harvest.NewFromConfig(d.Ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	if d.Transport != nil {
		client.WithTransport(d.Transport)
	}

	stopMetrics := serveMetrics(cfg.MetricsAddr, client.Metrics)
	defer stopMetrics()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-d.Ctx.Done():
			slog.Info("shutdown signal received, waiting for in-flight work to finish")
		case <-done:
		}
	}()

	slog.Info("starting harvest",
		slog.Int("lists", len(urls)),
		slog.Int("workers", cfg.Parallelism),
		slog.String("format", cfg.OutputFormat),
	)

	startTime := time.Now()
	var results []*models.HarvestResult
	if batch {
		results, err = h.RunBatch(d.Ctx, urls)
	} else {
		var result *models.HarvestResult
		result, err = h.Run(d.Ctx, urls[0])
		if result != nil {
			results = append(results, result)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	printSummary(d.Stdout, results, client, time.Since(startTime))
	if err != nil {
		slog.Error("harvest failed", slog.Any("error", err))
	}
	return results, err
}

func serveMetrics(addr string, metrics *scraper.Metrics) func() {
	if addr == "" || metrics == nil {
		return func() {}
	}

	server := &http.Server{
		Addr:    addr,
		Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}
}

func newProgressBar(w io.Writer) *progressbar.ProgressBar {
	f, ok := w.(*os.File)
	if !ok || !isTerminal(f) {
		return nil
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Harvesting"),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionClearOnFinish(),
	)
}

func printSummary(w io.Writer, results []*models.HarvestResult, client *scraper.Client, duration time.Duration) {
	separator := "--------------------------------------------------"
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "Harvest complete")

	total := 0
	for _, result := range results {
		total += result.TotalCount()
		status := "complete"
		if result.Truncated {
			status = "truncated"
		}
		fmt.Fprintf(w, "  %-40s %5d records, %d pages, %s\n", result.ListName, result.TotalCount(), result.PageCount, status)
		for _, file := range result.OutputFiles {
			fmt.Fprintf(w, "    Output file: %s\n", file)
		}
		if len(result.Skipped) > 0 {
			fmt.Fprintf(w, "    Skipped:     %s\n", formatCounts(result.Skipped))
		}
		if result.PublishError != nil {
			fmt.Fprintf(w, "    Publish:     failed (%v)\n", result.PublishError)
		}
	}

	itemsPerSec := 0.0
	if duration.Seconds() > 0 {
		itemsPerSec = float64(total) / duration.Seconds()
	}
	fmt.Fprintf(w, "  Total items:   %d\n", total)
	fmt.Fprintf(w, "  Requests:      %d\n", client.Requests())
	fmt.Fprintf(w, "  Retries:       %d\n", client.Retries())
	fmt.Fprintf(w, "  Duration:      %v\n", duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Items/sec:     %.2f\n", itemsPerSec)
	fmt.Fprintln(w, separator)
}

func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := ""
	for i, k := range keys {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%d", k, counts[k])
	}
	return out
}

func newLogger(w io.Writer, verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if f, ok := w.(*os.File); ok && isTerminal(f) {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

func envOr(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
