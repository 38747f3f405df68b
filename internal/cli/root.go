// Package cli holds the pagefind cobra commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pagefind/internal/aria"
	"pagefind/internal/config"
	"pagefind/internal/dom"
	"pagefind/internal/domain"
	"pagefind/internal/eventbus"
	"pagefind/internal/locator"
	"pagefind/internal/logging"
	"pagefind/internal/overlay"
	"pagefind/internal/search"
	"pagefind/internal/ui"
	"pagefind/internal/watch"
)

// options are the persistent flags shared by every command.
type options struct {
	configPath  string
	logFile     string
	logLevel    string
	overlayAddr string
	language    string
	watch       bool
}

// Environment variables that supply flag defaults. A .env file in the
// working directory is loaded first.
const (
	EnvConfig      = "PAGEFIND_CONFIG"
	EnvLogFile     = "PAGEFIND_LOG_FILE"
	EnvLogLevel    = "PAGEFIND_LOG_LEVEL"
	EnvOverlayAddr = "PAGEFIND_OVERLAY_ADDR"
	EnvLanguage    = "PAGEFIND_LANGUAGE"
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	// A missing .env is fine
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "pagefind [page]",
		Short: "Incrementally search the elements of an HTML page",
		Long: `pagefind opens an HTML page (a file path or an http(s) URL) and searches
its elements as you type. A query is a locator (getByRole('button')), a CSS
selector, an accessibility template (- button "Save") or plain text.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), opts, args[0])
		},
	}

	cmd.SetFlagErrorFunc(flagError)

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", os.Getenv(EnvConfig), "config file (default "+config.DefaultPath()+")")
	flags.StringVar(&opts.logFile, "log-file", os.Getenv(EnvLogFile), "log file, overrides [log] file")
	flags.StringVar(&opts.logLevel, "log-level", os.Getenv(EnvLogLevel), "log level, overrides [log] level")
	flags.StringVar(&opts.language, "language", os.Getenv(EnvLanguage), "locator language: javascript or python")
	cmd.Flags().StringVar(&opts.overlayAddr, "overlay-addr", os.Getenv(EnvOverlayAddr), "serve the highlight overlay bridge on this address")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "reload the page when the file changes")

	cmd.AddCommand(
		newQueryCommand(opts),
		newLocatorCommand(opts),
		newSnapshotCommand(opts),
		newScanCommand(opts),
		newReportCommand(opts),
	)
	return cmd
}

// flagError points at "--" when a dash-leading query was taken for flags.
func flagError(cmd *cobra.Command, err error) error {
	if strings.Contains(err.Error(), "unknown shorthand flag: ' '") {
		return fmt.Errorf("%w (put queries starting with \"-\" after --, e.g. %s -- '- button')", err, cmd.CommandPath())
	}
	return err
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(opts *options, bus eventbus.EventBus) (*config.Config, error) {
	svc := config.NewConfigServiceWithBus(bus, opts.configPath)
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = svc.LoadFromPath(opts.configPath)
	} else {
		cfg, err = svc.Load()
	}
	if err != nil {
		return nil, err
	}

	if opts.logFile != "" {
		cfg.Log.File = opts.logFile
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.overlayAddr != "" {
		cfg.Overlay.Addr = opts.overlayAddr
	}
	if opts.language != "" {
		cfg.Search.Language = opts.language
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newController wires the search controller with the configured engines.
func newController(doc *dom.Document, cfg *config.Config, hl search.Highlighter, bus eventbus.EventBus, logger *zerolog.Logger) *search.Controller {
	opts := search.Options{
		Config:      cfg.SearchConfig(),
		Engine:      locator.NewEngine(cfg.Search.TestIDAttribute),
		AriaMatcher: aria.Matcher{},
		Highlighter: hl,
		Bus:         bus,
		Logger:      logger,
	}
	if cfg.Search.AriaTemplates {
		opts.Aria = aria.Binding{}
	}
	return search.New(doc, opts)
}

func runTUI(ctx context.Context, opts *options, source string) error {
	bus := eventbus.New(nil)
	defer bus.Close()

	cfg, err := loadConfig(opts, bus)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Settings{File: cfg.Log.File, Level: cfg.Log.Level})
	if err != nil {
		return err
	}
	defer logger.Close()
	log := &logger.Logger
	log.Info().Str("source", source).Msg("starting pagefind")

	doc, err := dom.Load(ctx, source)
	if err != nil {
		return err
	}
	bus.Publish(domain.DocumentLoadedEvent{Source: source})

	model := ui.NewModel(doc, cfg, log)
	highlighters := overlay.Multi{model}

	var bridge *overlay.Bridge
	if cfg.Overlay.Addr != "" {
		bridge = overlay.NewBridge(doc, bus, log, overlay.WithAllowedOrigins(cfg.Overlay.AllowedOrigins...))
		highlighters = append(highlighters, bridge)
	}

	ctrl := newController(doc, cfg, highlighters, bus, log)
	ctrl.Install(model)
	defer ctrl.Uninstall()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	model.SetProgram(p)

	forward := func(e eventbus.DomainEvent) { go p.Send(ui.EventMsg{Event: e}) }
	defer bus.Subscribe(eventbus.EventDocumentReloaded, forward)()
	defer bus.Subscribe(eventbus.EventError, forward)()

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gctx)
	defer stop()

	g.Go(func() error {
		defer stop()
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	})
	if bridge != nil {
		g.Go(func() error {
			defer bridge.Close()
			return bridge.Serve(runCtx, cfg.Overlay.Addr)
		})
	}
	if opts.watch && !dom.IsRemote(source) {
		reloader := watch.NewReloader(doc, source, bus, log)
		reloader.OnReload = ctrl.Rerun
		g.Go(func() error { return reloader.Run(runCtx) })
	}

	err = g.Wait()
	log.Info().Err(err).Msg("pagefind exited")
	return err
}

// consoleLogger builds the stderr logger for one-shot commands. Only
// warnings are shown unless --log-level asks for more.
func consoleLogger(opts *options, w io.Writer) (*zerolog.Logger, error) {
	level := zerolog.WarnLevel
	if opts.logLevel != "" {
		parsed, err := zerolog.ParseLevel(opts.logLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.logLevel, err)
		}
		level = parsed
	}
	logger := logging.Console(w, level)
	return &logger, nil
}
