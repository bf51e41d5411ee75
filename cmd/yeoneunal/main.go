package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"yeoneunal/internal/api"
	"yeoneunal/internal/config"
	"yeoneunal/internal/logging"
	"yeoneunal/internal/report"
	"yeoneunal/internal/session"
	"yeoneunal/internal/store"
	"yeoneunal/internal/workflow"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string
	timeout    time.Duration
	ephemeral  bool

	// Logger
	logger *zap.Logger

	// Per-invocation state, set up in PersistentPreRunE
	cfg          *config.Config
	sessionStore store.Store
	sess         *session.Session
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "yeoneunal",
	Short: "Voice health-screening client",
	Long: `yeoneunal registers a ward, records their self-diagnosis survey, uploads
a phone-call recording and follows it until the AI risk report is ready.

Session state (selected ward, recording in progress, report flags) is kept in
the workspace so a later invocation can pick up where the last one stopped.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		teardown()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: <workspace>/.yeoneunal/config.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Minute, "Operation timeout")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "Keep session state in memory only")
}

func main() {
	err := rootCmd.Execute()
	// PersistentPostRun is skipped when a command fails.
	teardown()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration, starts file logging and opens the session.
func setup() error {
	ws := workspace
	if ws == "" {
		var err error
		if ws, err = os.Getwd(); err != nil {
			return fmt.Errorf("failed to resolve workspace: %w", err)
		}
	}
	workspace = ws

	path := configPath
	if path == "" {
		path = config.DefaultConfigPath(ws)
	}
	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	if ephemeral {
		loaded.Session.Backend = config.SessionBackendMemory
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}
	cfg = loaded

	if err := logging.Initialize(ws, logging.Options{
		DebugMode:  cfg.Logging.DebugMode,
		Level:      cfg.Logging.Level,
		JSONFormat: cfg.Logging.JSONFormat,
		Categories: cfg.Logging.Categories,
	}); err != nil {
		logger.Warn("file logging disabled", zap.Error(err))
	}
	logging.Boot("config %s: api %s, session %s, polling %s x %d",
		path, cfg.API.BaseURL, cfg.Session.Backend, cfg.GetPollInterval(), cfg.Polling.MaxAttempts)
	if err := logging.InitAudit(); err != nil {
		logging.BootWarn("audit log disabled: %v", err)
		logger.Warn("audit log disabled", zap.Error(err))
	}

	sessionStore, err = openSessionStore(cfg, ws)
	if err != nil {
		return err
	}
	sess = session.New(sessionStore)
	logger.Debug("session opened",
		zap.String("backend", cfg.Session.Backend),
		zap.String("path", cfg.Session.ResolvePath(ws)))
	return nil
}

func teardown() {
	if sessionStore == nil {
		return
	}
	if c, ok := sessionStore.(io.Closer); ok {
		if err := c.Close(); err != nil && logger != nil {
			logger.Warn("closing session store", zap.Error(err))
		}
	}
	sessionStore = nil
	sess = nil
	logging.CloseAll()
}

func openSessionStore(c *config.Config, ws string) (store.Store, error) {
	switch c.Session.Backend {
	case config.SessionBackendMemory:
		return store.NewMemoryStore(nil), nil
	case config.SessionBackendFile:
		return store.NewFileStore(c.Session.ResolvePath(ws))
	default:
		return store.NewSQLiteStore(c.Session.ResolvePath(ws))
	}
}

// commandContext bounds a command by --timeout and cancels it on SIGINT or
// SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

func newClient() *api.Client {
	return api.NewClient(cfg.API.BaseURL,
		api.WithTimeout(cfg.GetAPITimeout()),
		api.WithMaxBodyBytes(cfg.API.MaxBodyBytes))
}

func newEngine(client workflow.Backend) *workflow.Engine {
	return workflow.NewEngine(client, sess, workflow.WithPollConfig(workflow.PollConfig{
		Interval:    cfg.GetPollInterval(),
		MaxAttempts: cfg.Polling.MaxAttempts,
	}))
}

func language() report.Language {
	return report.Language(cfg.Report.Language)
}

// guardianID prefers the logged-in guardian over the configured default.
func guardianID() int64 {
	if id, ok := sess.GuardianID(); ok {
		return id
	}
	return cfg.API.GuardianID
}

// userError shows the user-facing message while keeping the cause for
// errors.Is and errors.As.
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.err }

// fail converts an API error into its user-facing message.
func fail(action string, err error) error {
	logger.Debug(action+" failed", zap.Error(err))
	return &userError{msg: action + ": " + api.UserMessage(err), err: err}
}
