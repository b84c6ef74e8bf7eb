package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ppiankov/legalyze/internal/export"
	"github.com/ppiankov/legalyze/internal/extract"
	"github.com/ppiankov/legalyze/internal/pipeline"
)

// watchDebounce is how long a file must stay unchanged before it is analyzed
const watchDebounce = 500 * time.Millisecond

var watchFlags analysisFlags

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Analyze documents as they appear in a directory",
	Long: `Watch monitors a directory and analyzes every supported document that
is created or modified in it, until interrupted. Exports are skipped as
inputs, so the output directory may be the watched one.

Example:
  legalyze watch ./inbox --output-dir ./inbox/reports
  legalyze watch ./inbox --metrics-addr :9090`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchFlags.register(watchCmd)
	watchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := args[0]

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	cfg, err := setup()
	if err != nil {
		return err
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}
	if err := watchFlags.apply(cfg); err != nil {
		return err
	}

	ctx := cmd.Context()
	startMetrics(ctx, cfg.Metrics.Addr)

	p, cleanup, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	fmt.Fprintf(os.Stderr, "Watching %s for documents (Ctrl+C to stop)...\n", dir)

	ready := make(chan string, 16)
	deb := newDebouncer(watchDebounce, func(path string) {
		select {
		case ready <- path:
		case <-ctx.Done():
		}
	})
	defer deb.Stop()

	renderer := pipeline.NewRenderer(pipeline.DefaultTopRisks)
	out := cmd.OutOrStdout()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "Stopped watching.")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				if watchable(event.Name) {
					deb.Trigger(event.Name)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)

		case path := <-ready:
			result, err := p.Process(ctx, path)
			if err != nil {
				fmt.Fprintf(out, "✗ %s: %v\n", path, err)
				continue
			}
			renderer.RenderSummary(out, result.Report, result.Outputs)
			fmt.Fprintln(out)
		}
	}
}

// watchable reports whether a changed file should be analyzed: a supported,
// non-hidden document that is not one of our own exports
func watchable(path string) bool {
	return analyzable(filepath.Base(path))
}

// analyzable reports whether a file found in a scanned directory should be
// analysed. Hidden files and our own exports are skipped.
func analyzable(name string) bool {
	if strings.HasPrefix(name, ".") || export.IsOutput(name) {
		return false
	}
	return extract.Supported(name)
}

// debouncer calls fire for a key once no Trigger for it has arrived for delay
type debouncer struct {
	delay time.Duration
	fire  func(key string)

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newDebouncer(delay time.Duration, fire func(key string)) *debouncer {
	return &debouncer{
		delay:  delay,
		fire:   fire,
		timers: make(map[string]*time.Timer),
	}
}

// Trigger (re)starts the quiet period for key
func (d *debouncer) Trigger(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[key]; ok {
		t.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.timers[key] != t {
			// superseded by a later Trigger
			d.mu.Unlock()
			return
		}
		delete(d.timers, key)
		d.mu.Unlock()
		d.fire(key)
	})
	d.timers[key] = t
}

// Stop cancels all pending calls
func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
}

