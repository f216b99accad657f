package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kiranshivaraju/jobtracker/internal/auth"
	"github.com/kiranshivaraju/jobtracker/internal/cache"
	"github.com/kiranshivaraju/jobtracker/internal/config"
	"github.com/kiranshivaraju/jobtracker/internal/engine"
	"github.com/kiranshivaraju/jobtracker/internal/netstatus"
	"github.com/kiranshivaraju/jobtracker/internal/remote"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	appDir        = ".jobctl"
	envPrefix     = "JOBCTL"
	logMaxSizeMB  = 5
	logMaxBackups = 3
)

// app is the client stack one command invocation runs against.
type app struct {
	cfg      config.ClientConfig
	engine   *engine.Engine
	sessions *auth.SessionProvider
	monitor  *netstatus.Monitor
	source   engine.Source
	closers  []io.Closer
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	a := &app{}

	root := &cobra.Command{
		Use:           "jobctl",
		Short:         "Track job applications from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if builtin(cmd) {
				return nil
			}
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			if err := setupLogging(v); err != nil {
				return err
			}
			return a.open(cmd.Context(), cfg, v.GetBool("offline"))
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return a.Close()
		},
	}

	home := homeDir()
	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default $HOME/.jobctl/config.yaml)")
	pf.String("api-url", "", "tracker API base URL")
	pf.Duration("timeout", config.DefaultClientConfig().Timeout, "per-request timeout")
	pf.String("cache-backend", config.CacheBackendSQLite, "local cache backend: sqlite or redis")
	pf.String("cache-path", filepath.Join(home, appDir, "jobctl.db"), "sqlite cache file")
	pf.String("redis-url", "", "redis URL for the redis cache backend")
	pf.String("namespace", config.DefaultClientConfig().Namespace, "cache key namespace")
	pf.Duration("probe-interval", config.DefaultClientConfig().ProbeInterval, "connectivity probe interval")
	pf.String("log-file", filepath.Join(home, appDir, "jobctl.log"), "log file")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.Bool("offline", false, "skip the API and read from the local cache")
	_ = v.BindPFlags(pf)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root.AddCommand(
		newListCmd(a),
		newShowCmd(a),
		newAddCmd(a),
		newUpdateCmd(a),
		newStatusCmd(a),
		newRemoveCmd(a),
		newMoveCmd(a),
		newCountsCmd(a),
		newCommentCmd(a),
	)
	return root
}

// builtin reports whether cmd is one of cobra's own commands, which must work
// without any configuration.
func builtin(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return true
		}
	}
	return false
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// loadConfig resolves flags, JOBCTL_* env vars and the optional config file,
// in that order of precedence.
func loadConfig(v *viper.Viper) (config.ClientConfig, error) {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return config.ClientConfig{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(homeDir(), appDir))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return config.ClientConfig{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := config.ClientConfig{
		APIURL:        v.GetString("api-url"),
		Timeout:       v.GetDuration("timeout"),
		CacheBackend:  v.GetString("cache-backend"),
		CachePath:     v.GetString("cache-path"),
		RedisURL:      v.GetString("redis-url"),
		Namespace:     v.GetString("namespace"),
		ProbeInterval: v.GetDuration("probe-interval"),
	}
	if err := cfg.Validate(); err != nil {
		return config.ClientConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setupLogging sends slog output to a rotating file so it never mixes with
// command output.
func setupLogging(v *viper.Viper) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("log-level"))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	path := v.GetString("log-file")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackups,
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return nil
}

func openCache(ctx context.Context, cfg config.ClientConfig) (cache.Cache, error) {
	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		c, err := cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("create redis cache: %w", err)
		}
		return c, nil
	default:
		c, err := cache.OpenSQLiteCache(ctx, cfg.CachePath)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// open builds the client stack and loads the job collection.
func (a *app) open(ctx context.Context, cfg config.ClientConfig, offline bool) error {
	a.cfg = cfg

	local, err := openCache(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	a.closers = append(a.closers, local)

	a.sessions = auth.NewSessionProvider(cfg.APIURL, local, cfg.Namespace, cfg.Timeout)
	client := remote.NewHTTPClient(cfg.APIURL, cfg.Timeout,
		remote.WithTokenProvider(a.sessions),
		remote.WithAuthLostHandler(func(err error) {
			slog.Warn("authorization lost, clearing session", "error", err)
			if err := a.sessions.SignOut(context.Background()); err != nil {
				slog.Warn("clearing session failed", "error", err)
			}
		}),
	)

	a.monitor = netstatus.NewMonitor(client.Health, cfg.ProbeInterval)
	if offline {
		a.monitor.SetOnline(false)
	} else {
		a.monitor.Check(ctx)
	}

	a.engine = engine.New(client, cache.NewJobStore(local, cfg.Namespace),
		engine.WithConnectivity(a.monitor))
	a.source, err = a.engine.Load(ctx)
	if err != nil {
		return err
	}
	slog.Info("jobs loaded", "source", a.source, "count", len(a.engine.Jobs()))
	return nil
}
