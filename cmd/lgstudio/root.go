package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/randalmurphal/lgstudio/pkg/lgstudio/api"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/bridge"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/draft"
	lgerrors "github.com/randalmurphal/lgstudio/pkg/lgstudio/errors"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/observability"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/store"
)

// settings is read from lgstudio.yaml, LGSTUDIO_* variables and flags, in
// increasing order of precedence.
type settings struct {
	Server    string        `mapstructure:"server"`
	Token     string        `mapstructure:"token"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Retries   int           `mapstructure:"retries"`
	SpaceID   int           `mapstructure:"space_id"`
	Drafts    string        `mapstructure:"drafts"`
	LogLevel  string        `mapstructure:"log_level"`
	LogFormat string        `mapstructure:"log_format"`
}

// app carries what every command needs once settings are loaded.
type app struct {
	v      *viper.Viper
	cfg    settings
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	var configFile string

	root := &cobra.Command{
		Use:           "lgstudio",
		Short:         "Author and run LangGraph workflows",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd, configFile)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "settings file (default ./lgstudio.yaml)")
	pf.String("server", "http://localhost:7860", "backend base URL")
	pf.String("token", "", "bearer token for the backend")
	pf.Duration("timeout", api.DefaultTimeout, "timeout for non-streaming requests")
	pf.Int("retries", lgerrors.DefaultRetry.MaxAttempts, "attempts for idempotent requests")
	pf.Int("space-id", 0, "space for newly created workflows")
	pf.String("drafts", defaultDraftsPath(), "draft database file; empty keeps drafts in memory")
	pf.String("log-level", "warn", "log level (debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text, json)")

	for key, flag := range map[string]string{
		"server":     "server",
		"token":      "token",
		"timeout":    "timeout",
		"retries":    "retries",
		"space_id":   "space-id",
		"drafts":     "drafts",
		"log_level":  "log-level",
		"log_format": "log-format",
	} {
		_ = a.v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(
		newNodeTypesCmd(a),
		newTemplatesCmd(a),
		newCreateCmd(a),
		newCreateFromTemplateCmd(a),
		newGetCmd(a),
		newImportCmd(a),
		newDeleteCmd(a),
		newValidateCmd(a),
		newRunCmd(a),
		newResumeCmd(a),
		newStateCmd(a),
		newHistoryCmd(a),
		newNewCmd(a),
		newNodeCmd(a),
		newConnectCmd(a),
		newEdgeCmd(a),
		newDraftsCmd(a),
	)
	return root
}

func defaultDraftsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "lgstudio", "drafts.db")
}

// load reads settings and builds the logger.
func (a *app) load(cmd *cobra.Command, configFile string) error {
	v := a.v
	v.SetEnvPrefix("lgstudio")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("lgstudio")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "lgstudio"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read settings: %w", err)
		}
	}

	if err := v.Unmarshal(&a.cfg); err != nil {
		return fmt.Errorf("parse settings: %w", err)
	}

	logger, err := newLogger(cmd.ErrOrStderr(), a.cfg.LogLevel, a.cfg.LogFormat)
	if err != nil {
		return err
	}
	a.logger = logger
	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug("settings loaded", slog.String("file", used))
	}
	return nil
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log format %q: want text or json", format)
	}
}

func (a *app) client() *api.Client {
	return api.New(a.cfg.Server,
		api.WithToken(a.cfg.Token),
		api.WithTimeout(a.cfg.Timeout),
		api.WithRetry(lgerrors.NewRetryConfig(lgerrors.WithMaxAttempts(a.cfg.Retries))),
		api.WithLogger(a.logger),
	)
}

func (a *app) bridge(s store.Store) *bridge.Bridge {
	opts := []bridge.Option{
		bridge.WithLogger(a.logger),
		bridge.WithMetrics(observability.NewMetricsRecorder()),
		bridge.WithSpanManager(observability.NewSpanManager()),
	}
	if a.cfg.SpaceID != 0 {
		opts = append(opts, bridge.WithSpaceID(a.cfg.SpaceID))
	}
	return bridge.New(a.client(), s, opts...)
}

// openDrafts opens the draft database, falling back to memory when no path
// is configured.
func (a *app) openDrafts() (draft.Store, error) {
	if a.cfg.Drafts == "" {
		return draft.NewMemoryStore(), nil
	}
	if err := os.MkdirAll(filepath.Dir(a.cfg.Drafts), 0o755); err != nil {
		return nil, fmt.Errorf("create draft directory: %w", err)
	}
	return draft.NewSQLiteStore(a.cfg.Drafts)
}
