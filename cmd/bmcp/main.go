// Command bmcp is the coordinator's CLI front end (§6, peripheral):
// `analyze <dir>` runs one full extraction pass, `watch <dir>` enters the
// debounced filesystem watch loop. Everything it does is orchestration —
// load config, build the dispatcher/visitor/store collaborators, drive
// internal/pipeline — following the shape (not the subcommands) of the
// teacher's cmd/lci/main.go: an urfave/cli App, a loadConfigWithOverrides
// helper layering CLI flags onto a KDL config, and a top-level error path
// that logs to stderr and sets the process exit code.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/bmcp/internal/config"
	"github.com/standardbeagle/bmcp/internal/debug"
	"github.com/standardbeagle/bmcp/internal/dispatcher"
	bmcperrors "github.com/standardbeagle/bmcp/internal/errors"
	"github.com/standardbeagle/bmcp/internal/pipeline"
	"github.com/standardbeagle/bmcp/internal/scanner"
	"github.com/standardbeagle/bmcp/internal/store"
	"github.com/standardbeagle/bmcp/internal/visitor"
	"github.com/standardbeagle/bmcp/internal/watch"
)

// Exit codes per spec.md §6: 0 success, 1 unexpected error, 2
// configuration error.
const (
	exitOK   = 0
	exitErr  = 1
	exitConf = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	app := &cli.App{
		Name:                   "bmcp",
		Usage:                  "Polyglot code-graph extractor",
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "root", Aliases: []string{"r"}, Usage: "Project root directory (overrides config); also read from .bmcp.kdl there"},
			&cli.StringSliceFlag{Name: "include", Usage: "Include files matching glob patterns"},
			&cli.StringSliceFlag{Name: "exclude", Usage: "Exclude files matching glob patterns"},
			&cli.IntFlag{Name: "workers", Usage: "Parser worker pool size (overrides config)"},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
			&cli.StringFlag{Name: "debug-log-file", Usage: "Write debug output to this file instead of a timestamped file under the temp dir"},
			&cli.StringFlag{Name: "store-kind", Usage: "Store backend tag (overrides config); only \"memory\" is built in", Value: ""},
			&cli.StringFlag{Name: "store-dsn", Usage: "Store connection string (overrides config)"},
			&cli.BoolFlag{Name: "reset-db", Usage: "Discard any existing store content before running"},
			&cli.BoolFlag{Name: "update-schema", Usage: "Apply pending store schema migrations before running (no-op for the in-memory store)"},
		},
		Commands: []*cli.Command{
			{
				Name:      "analyze",
				Usage:     "Run a full extraction pass over a directory",
				ArgsUsage: "<dir>",
				Action:    analyzeCommand,
			},
			{
				Name:      "watch",
				Usage:     "Enter the debounced filesystem watch loop",
				ArgsUsage: "<dir>",
				Action:    watchCommand,
			},
		},
		Action: func(c *cli.Context) error {
			return cli.ShowAppHelp(c)
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "bmcp: %v\n", err)
		return classifyExit(err)
	}
	return exitOK
}

// classifyExit maps an error to the exit code family §6 pins: a
// malformed configuration is 2, everything else is 1.
func classifyExit(err error) int {
	var confErr *bmcperrors.ConfigError
	if errors.As(err, &confErr) {
		return exitConf
	}
	if errors.Is(err, errConfig) {
		return exitConf
	}
	return exitErr
}

var errConfig = errors.New("configuration error")

// loadConfigWithOverrides loads the KDL config for root and layers CLI
// flag overrides on top, mirroring the teacher's
// loadConfigWithOverrides(c *cli.Context) in cmd/lci/main.go.
func loadConfigWithOverrides(c *cli.Context, dirArg string) (*config.Config, error) {
	root := dirArg
	if r := c.String("root"); r != "" {
		root = r
	}
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve root %q: %v", errConfig, root, err)
	}

	cfg, err := config.LoadKDL(absRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: load config: %v", errConfig, err)
	}
	if cfg == nil {
		cfg = config.Default()
		cfg.Project.Root = absRoot
	}

	if include := c.StringSlice("include"); len(include) > 0 {
		cfg.Include = include
	}
	if exclude := c.StringSlice("exclude"); len(exclude) > 0 {
		cfg.Exclude = append(cfg.Exclude, exclude...)
	}
	if cfg.Index.RespectGitignore {
		patterns, err := config.LoadGitignorePatterns(absRoot)
		if err != nil {
			return nil, fmt.Errorf("%w: read .gitignore: %v", errConfig, err)
		}
		cfg.Exclude = append(cfg.Exclude, patterns...)
	}
	if workers := c.Int("workers"); workers > 0 {
		cfg.Dispatcher.WorkerCount = workers
	}
	if kind := c.String("store-kind"); kind != "" {
		cfg.Store.Kind = kind
	}
	if dsn := c.String("store-dsn"); dsn != "" {
		cfg.Store.DSN = dsn
	}

	return cfg, nil
}

func setupDebug(c *cli.Context) (func(), error) {
	debug.EnableDebug = c.Bool("debug")
	if !debug.EnableDebug {
		return func() {}, nil
	}
	if path := c.String("debug-log-file"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("open debug log file: %w", err)
		}
		debug.SetDebugOutput(f)
		return func() { _ = f.Close() }, nil
	}
	closeFn, err := debug.InitDebugLogFile()
	if err != nil {
		return nil, err
	}
	return func() { _ = closeFn() }, nil
}

// buildStore resolves the configured store backend. Only "memory" (or an
// unset kind) is built in: the persistent store is a pinned collaborator
// interface (§6) whose concrete drivers live outside this module's scope.
// --reset-db is a no-op for the in-memory store (it never persists across
// a run); --update-schema likewise has nothing to migrate.
func buildStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Kind {
	case "", "memory":
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported store kind %q (only \"memory\" is built in)", errConfig, cfg.Store.Kind)
	}
}

// logStoreMaintenanceFlags records --reset-db/--update-schema intent.
// Both are no-ops against the in-memory store (§6 lists them as
// connection-override-adjacent flags for the external store drivers this
// module doesn't implement), but a run invoked with them should say so
// rather than silently ignoring the operator's request.
func logStoreMaintenanceFlags(c *cli.Context, cfg *config.Config) {
	if c.Bool("reset-db") {
		debug.LogIndexing("--reset-db requested against store kind %q (no-op: in-memory store never persists across a run)", cfg.Store.Kind)
	}
	if c.Bool("update-schema") {
		debug.LogIndexing("--update-schema requested against store kind %q (no-op: nothing to migrate)", cfg.Store.Kind)
	}
}

// resolveWorkerBinary locates the bmcp-worker executable: first on PATH,
// then alongside the running bmcp binary, matching how the teacher's
// daemon mode locates its own sibling binaries.
func resolveWorkerBinary() (string, error) {
	if path, err := exec.LookPath("bmcp-worker"); err == nil {
		return path, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate bmcp-worker: %w", err)
	}
	candidate := filepath.Join(filepath.Dir(exe), "bmcp-worker")
	if _, err := os.Stat(candidate); err != nil {
		return "", fmt.Errorf("bmcp-worker not found on PATH or next to %s", exe)
	}
	return candidate, nil
}

func buildPipeline(cfg *config.Config, st store.Store) (*pipeline.Pipeline, error) {
	workerBin, err := resolveWorkerBinary()
	if err != nil {
		return nil, err
	}
	spawner := dispatcher.ProcessSpawner{BinaryPath: workerBin}
	d, err := dispatcher.New(context.Background(), spawner, cfg.Dispatcher)
	if err != nil {
		return nil, fmt.Errorf("start parser dispatcher: %w", err)
	}
	return pipeline.New(d, visitor.NewRegistry(), st, visitor.Options{}), nil
}

func analyzeCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c, c.Args().First())
	if err != nil {
		return err
	}
	closeDebug, err := setupDebug(c)
	if err != nil {
		return err
	}
	defer closeDebug()

	st, err := buildStore(cfg)
	if err != nil {
		return err
	}
	logStoreMaintenanceFlags(c, cfg)

	p, err := buildPipeline(cfg, st)
	if err != nil {
		return err
	}
	defer p.Dispatcher.Shutdown()

	sc := scanner.New(cfg.Include, cfg.Exclude)
	debug.LogIndexing("analyzing %s", cfg.Project.Root)

	batch, err := p.AnalyzeTree(context.Background(), cfg.Project.Root, sc)
	if err != nil {
		return err
	}

	upserted, deleted := 0, 0
	for _, rc := range batch.Reconcile {
		upserted += rc.Upserted
		deleted += rc.Deleted
	}
	fmt.Printf("analyzed %d files: %d upserted, %d deleted, %d errors\n", len(batch.Files), upserted, deleted, len(batch.Errors))

	for _, fileErr := range batch.Errors {
		if isFatalBatchError(fileErr) {
			return fileErr
		}
		fmt.Fprintf(os.Stderr, "bmcp: %v\n", fileErr)
	}
	return nil
}

// isFatalBatchError reports whether err should abort the process with a
// non-zero exit, per §7: "full-analysis mode returns a non-zero exit only
// when the store itself fails or an invariant is violated." Per-file
// parse failures and timeouts are logged but never fatal to the run.
func isFatalBatchError(err error) bool {
	var storeErr *bmcperrors.StoreError
	var invariantErr *bmcperrors.InvariantError
	return errors.As(err, &storeErr) || errors.As(err, &invariantErr)
}

func watchCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c, c.Args().First())
	if err != nil {
		return err
	}
	closeDebug, err := setupDebug(c)
	if err != nil {
		return err
	}
	defer closeDebug()

	st, err := buildStore(cfg)
	if err != nil {
		return err
	}
	logStoreMaintenanceFlags(c, cfg)

	p, err := buildPipeline(cfg, st)
	if err != nil {
		return err
	}
	defer p.Dispatcher.Shutdown()

	sc := scanner.New(cfg.Include, cfg.Exclude)

	debug.LogIndexing("initial analysis of %s before entering watch mode", cfg.Project.Root)
	if _, err := p.AnalyzeTree(context.Background(), cfg.Project.Root, sc); err != nil {
		return err
	}

	handler := func(ctx context.Context, path string, evt watch.EventType) error {
		if evt == watch.Deleted {
			_, err := p.DeleteFile(ctx, path)
			return err
		}
		_, err := p.AnalyzeFile(ctx, path)
		return err
	}

	w, err := watch.New(cfg.Project.Root, sc, cfg.Watch.DebounceMs, handler)
	if err != nil {
		return fmt.Errorf("start watch loop: %w", err)
	}
	if err := w.Start(); err != nil {
		return fmt.Errorf("start watch loop: %w", err)
	}
	fmt.Printf("watching %s (debounce %dms)\n", cfg.Project.Root, cfg.Watch.DebounceMs)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	fmt.Println("shutting down")
	w.Stop()
	return nil
}
