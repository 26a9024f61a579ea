package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/subsync/internal/formatter"
	"github.com/desertthunder/subsync/internal/library"
	"github.com/desertthunder/subsync/internal/resolver"
	"github.com/desertthunder/subsync/internal/shared"
	"github.com/desertthunder/subsync/internal/subsonic"
	"github.com/desertthunder/subsync/internal/tasks"
	"github.com/desertthunder/subsync/internal/ui"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods
// for each command action. Dependencies not injected up front are wired
// lazily from the configuration file named by the command's flags.
type Runner struct {
	config     *shared.Config
	logger     *log.Logger
	output     io.Writer
	httpClient *http.Client
	catalog    subsonic.Catalog
	lib        *library.Library
	engine     *tasks.SyncEngine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Logger     *log.Logger
	Output     io.Writer
	HTTPClient *http.Client
	Catalog    subsonic.Catalog
	Library    *library.Library
}

// NewRunner creates a new Runner with the provided options.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		logger:     opts.Logger,
		output:     opts.Output,
		httpClient: opts.HTTPClient,
		catalog:    opts.Catalog,
		lib:        opts.Library,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, idsCommand, ratingsCommand, scrobblesCommand, scanCommand, searchCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig loads the config file named by the command's --config flag,
// unless a config was injected.
func (r *Runner) loadConfig(cmd *cli.Command) error {
	if r.config != nil {
		return nil
	}

	path := cmd.String("config")
	config, err := shared.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("%w: %v (run `subsync setup` to create one)", shared.ErrMissingConfig, err)
	}
	r.config = config
	return nil
}

// connect wires the catalog client, library, and sync engine from
// configuration. Injected dependencies are kept as-is.
func (r *Runner) connect(cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	if r.catalog == nil {
		timeout := time.Duration(r.config.Sync.TimeoutSeconds) * time.Second
		r.catalog = subsonic.NewClient(r.config.Subsonic, timeout, r.httpClient)
	}

	if r.lib == nil {
		lib, err := library.Open(r.config.Library.Path, r.config.Library.MaxOpenConns, r.config.Library.MaxIdleConns)
		if err != nil {
			return err
		}
		r.lib = lib
	}

	if r.engine == nil {
		res := resolver.New(r.catalog, shared.WithLogger(r.logger, "component", "resolver"))
		cache := resolver.NewCache(res, r.lib)
		r.engine = tasks.NewSyncEngine(r.catalog, cache, r.lib,
			shared.WithLogger(r.logger, "component", "engine"),
			tasks.Options{
				Workers:   r.config.Sync.Workers,
				RateLimit: r.config.Sync.RateLimit,
			})
	}

	return nil
}

// items loads library items matching the command's positional query terms.
func (r *Runner) items(cmd *cli.Command) ([]*library.Item, error) {
	query := strings.Join(cmd.Args().Slice(), " ")
	items, err := r.lib.Items(query)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		r.logger.Warn("no items matched query", "query", query)
	}
	return items, nil
}

// runBatch executes a batch with either the progress view or plain
// per-item logging, then prints the summary and writes any requested
// report. The batch error is returned only when fatal; per-item
// failures leave the exit status at zero.
func (r *Runner) runBatch(cmd *cli.Command, title string, run func(chan<- tasks.ProgressUpdate) (*tasks.BatchResult, error)) error {
	var (
		result *tasks.BatchResult
		err    error
	)

	if cmd.Bool("ui") {
		result, err = ui.RunProgress(title, run)
	} else {
		progressChan := make(chan tasks.ProgressUpdate, 64)
		drained := make(chan struct{})
		go func() {
			for update := range progressChan {
				r.writePlain("%s\n", update.Message)
			}
			close(drained)
		}()

		result, err = run(progressChan)
		close(progressChan)
		<-drained
	}

	if result != nil {
		if cmd.Bool("json") {
			if jsonErr := r.writeJSON(result, true); jsonErr != nil {
				return jsonErr
			}
		} else {
			r.writePlain("%s\n", ui.RenderSummary(result, err))
		}

		if path := cmd.String("report"); path != "" {
			if reportErr := formatter.WriteReport(result, path); reportErr != nil {
				return reportErr
			}
			r.logger.Info("report written", "path", path)
		}
	}

	return err
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// Close releases resources held by lazily-wired dependencies.
func (r *Runner) Close() error {
	if r.lib != nil {
		return r.lib.Close()
	}
	return nil
}
