package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"wordfreq/pkg/common"
	"wordfreq/pkg/config"
	"wordfreq/pkg/core"
	"wordfreq/pkg/logging"
	"wordfreq/pkg/storage"
	"wordfreq/pkg/storage/linefile"
)

const (
	exitOK     = 0
	exitFatal  = 1
	exitConfig = 2
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printHelp(stderr)
		return exitConfig
	}

	cmd, rest := strings.ToLower(args[0]), args[1:]
	var err error
	switch cmd {
	case "split":
		err = handleSplit(ctx, rest, stdout, stderr)
	case "sort-chunks":
		err = handleSortChunks(ctx, rest, stdout, stderr)
	case "merge":
		err = handleMerge(ctx, rest, stdout, stderr)
	case "merge-topk":
		err = handleMergeTopK(ctx, rest, stdout, stderr)
	case "run":
		err = handleRun(ctx, rest, stdout, stderr)
	case "history":
		err = handleHistory(rest, stdout, stderr)
	case "help", "-h", "--help":
		printHelp(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "Unknown command: '%s'. Run 'wordfreq help'.\n", cmd)
		return exitConfig
	}

	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return exitCode(err)
}

// exitCode maps errors to the documented exit codes.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var cfgErr *common.InvalidConfigError
	if errors.As(err, &cfgErr) || errors.Is(err, errUsage) {
		return exitConfig
	}
	return exitFatal
}

// command bundles the flags every subcommand understands.
type command struct {
	fs         *pflag.FlagSet
	configPath string
	logLevel   string
	order      string
	chunkBytes int64
	k          int
	workers    int
	dbPath     string
}

func newCommand(name string, stderr io.Writer) *command {
	c := &command{fs: pflag.NewFlagSet(name, pflag.ContinueOnError)}
	c.fs.SetOutput(stderr)
	c.fs.StringVar(&c.configPath, "config", "", "YAML config file")
	c.fs.StringVar(&c.logLevel, "log-level", "", "debug|info|warn|error")
	c.fs.StringVar(&c.order, "order", "", "record order: lexical|numeric")
	return c
}

func (c *command) withChunkBytes() *command {
	c.fs.Int64Var(&c.chunkBytes, "chunk-bytes", config.DefaultChunkBytes, "chunk size threshold in bytes")
	return c
}

func (c *command) withK() *command {
	c.fs.IntVar(&c.k, "k", config.DefaultK, "number of most frequent words to report")
	return c
}

func (c *command) withWorkers() *command {
	c.fs.IntVar(&c.workers, "workers", 0, "parallel chunk sorters (default: CPU count)")
	return c
}

func (c *command) withDB() *command {
	c.fs.StringVar(&c.dbPath, "db", "", "SQLite file recording top-k runs")
	return c
}

// setup parses args, loads the config and applies flag overrides on top.
func (c *command) setup(args []string) (*config.Config, *zap.Logger, error) {
	if err := c.fs.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, nil, &common.InvalidConfigError{Field: "config", Reason: err.Error()}
	}

	if c.fs.Changed("log-level") {
		cfg.Log.Level = c.logLevel
	}
	if c.fs.Changed("order") {
		cfg.Pipeline.Order = c.order
	}
	if c.fs.Changed("chunk-bytes") {
		cfg.Pipeline.ChunkBytes = c.chunkBytes
	}
	if c.fs.Changed("k") {
		cfg.Pipeline.K = c.k
	}
	if c.fs.Changed("workers") && c.workers > 0 {
		cfg.Pipeline.SortWorkers = c.workers
	}
	if c.fs.Changed("db") {
		cfg.Storage.ResultDB = c.dbPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	log, err := logging.New(cfg.Log.Level)
	if err != nil {
		return nil, nil, &common.InvalidConfigError{Field: "log.level", Reason: err.Error()}
	}
	return cfg, log, nil
}

func required(name, value string) error {
	if value == "" {
		return fmt.Errorf("%w: --%s is required", errUsage, name)
	}
	return nil
}

func handleSplit(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	c := newCommand("split", stderr).withChunkBytes()
	input := c.fs.String("input", "", "input word list")
	outDir := c.fs.String("out-dir", "", "directory for chunk files")
	cfg, log, err := c.setup(args)
	if err != nil {
		return err
	}
	defer log.Sync()
	if err := required("input", *input); err != nil {
		return err
	}
	if err := required("out-dir", *outDir); err != nil {
		return err
	}

	start := time.Now()
	chunks, err := core.NewPipeline(cfg, log).Split(ctx, *input, *outDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Split into %d chunks (%v)\n", len(chunks), time.Since(start))
	return nil
}

func handleSortChunks(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	c := newCommand("sort-chunks", stderr).withWorkers()
	dir := c.fs.String("dir", "", "directory holding raw chunks")
	cfg, log, err := c.setup(args)
	if err != nil {
		return err
	}
	defer log.Sync()
	if err := required("dir", *dir); err != nil {
		return err
	}

	start := time.Now()
	sorted, err := core.NewPipeline(cfg, log).SortChunks(ctx, *dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Sorted %d chunks (%v)\n", len(sorted), time.Since(start))
	return nil
}

func handleMerge(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	c := newCommand("merge", stderr)
	dir := c.fs.String("dir", "", "directory holding sorted chunks")
	out := c.fs.String("out", "", "file receiving the merged stream")
	cfg, log, err := c.setup(args)
	if err != nil {
		return err
	}
	defer log.Sync()
	if err := required("dir", *dir); err != nil {
		return err
	}
	if err := required("out", *out); err != nil {
		return err
	}

	start := time.Now()
	res, err := core.NewPipeline(cfg, log).Merge(ctx, *dir, *out)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Merged %d records from %d chunks (%v)\n", res.Records, res.Chunks, time.Since(start))
	return nil
}

func handleMergeTopK(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	c := newCommand("merge-topk", stderr).withK().withDB()
	dir := c.fs.String("dir", "", "directory holding sorted chunks")
	out := c.fs.String("out", "", "result file (word<TAB>count); stdout when empty")
	cfg, log, err := c.setup(args)
	if err != nil {
		return err
	}
	defer log.Sync()
	if err := required("dir", *dir); err != nil {
		return err
	}

	opts, closeStore, err := storeOption(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	report, err := core.NewPipeline(cfg, log, opts...).MergeTopK(ctx, *dir, cfg.Pipeline.K)
	if err != nil {
		return err
	}
	return emitReport(report, *out, stdout)
}

func handleRun(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	c := newCommand("run", stderr).withChunkBytes().withK().withWorkers().withDB()
	input := c.fs.String("input", "", "input word list")
	dir := c.fs.String("dir", "", "directory for chunk files (default: storage.chunk_dir)")
	out := c.fs.String("out", "", "result file (word<TAB>count); stdout when empty")
	keep := c.fs.Bool("keep-chunks", false, "keep chunk files after the run")
	cfg, log, err := c.setup(args)
	if err != nil {
		return err
	}
	defer log.Sync()
	if err := required("input", *input); err != nil {
		return err
	}
	if *dir == "" {
		*dir = cfg.Storage.ChunkDir
	}
	if c.fs.Changed("keep-chunks") {
		cfg.Storage.KeepChunks = *keep
	}

	opts, closeStore, err := storeOption(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	report, err := core.NewPipeline(cfg, log, opts...).Run(ctx, *input, *dir, cfg.Pipeline.K)
	if err != nil {
		return err
	}
	return emitReport(report, *out, stdout)
}

func handleHistory(args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("history", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	dbPath := fs.String("db", "", "SQLite file recording top-k runs")
	runID := fs.Int64("run", 0, "run id (default: latest)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if err := required("db", *dbPath); err != nil {
		return err
	}

	store, err := storage.NewSQLiteStore(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	var rec storage.Run
	if *runID > 0 {
		rec, err = store.LoadRun(*runID)
	} else {
		rec, err = store.LatestRun()
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Run #%d  %s  input=%s k=%d chunks=%d records=%d\n",
		rec.ID, rec.CreatedAt.Format(time.RFC3339), rec.Input, rec.K, rec.Chunks, rec.Records)
	for i, wc := range rec.Results {
		fmt.Fprintf(stdout, "%4d  %s\n", i+1, wc.String())
	}
	return nil
}

func storeOption(cfg *config.Config) ([]core.Option, func(), error) {
	if cfg.Storage.ResultDB == "" {
		return nil, func() {}, nil
	}
	store, err := storage.NewSQLiteStore(cfg.Storage.ResultDB)
	if err != nil {
		return nil, nil, err
	}
	return []core.Option{core.WithStore(store)}, func() { store.Close() }, nil
}

func emitReport(report core.Report, out string, stdout io.Writer) error {
	if out != "" {
		if err := core.WriteResults(linefile.Disk{}, out, report.Results); err != nil {
			return err
		}
	} else {
		for _, wc := range report.Results {
			fmt.Fprintln(stdout, wc.String())
		}
	}
	if report.RunID > 0 {
		fmt.Fprintf(stdout, "Saved as run #%s\n", strconv.FormatInt(report.RunID, 10))
	}
	return nil
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, `Usage: wordfreq <command> [flags]

Commands:
  split        --input <path> --chunk-bytes <N> --out-dir <dir>
  sort-chunks  --dir <dir> [--workers N]
  merge        --dir <dir> --out <path>
  merge-topk   --dir <dir> --k <K> [--out <path>] [--db <sqlite>]
  run          --input <path> [--dir <dir>] [--chunk-bytes <N>] [--k <K>] [--out <path>] [--db <sqlite>]
  history      --db <sqlite> [--run <id>]

Common flags: --config <yaml> --log-level <level> --order lexical|numeric
Exit codes: 0 ok, 1 fatal I/O error, 2 invalid configuration`)
}
