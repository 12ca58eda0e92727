// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/xtekky/deepseek4free/cmd/dsk/cli"
	"github.com/xtekky/deepseek4free/lib/apierror"
	"github.com/xtekky/deepseek4free/lib/clearance"
	"github.com/xtekky/deepseek4free/lib/config"
	"github.com/xtekky/deepseek4free/lib/deepseek"
	"github.com/xtekky/deepseek4free/lib/impersonate"
	"github.com/xtekky/deepseek4free/lib/pow"
	"github.com/xtekky/deepseek4free/lib/powmodule"
	"github.com/xtekky/deepseek4free/lib/secret"
)

// globalOptions are the flags every command accepts.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func (options *globalOptions) register(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&options.configPath, "config", "", "config file (default $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&options.logLevel, "log-level", "", "debug, info, warn, or error (overrides log.level)")
	flagSet.StringVar(&options.logFormat, "log-format", "", "text or json (overrides log.format)")
}

// environment is what every command starts from: the effective
// configuration and a logger built from it.
type environment struct {
	config *config.Config
	logger *slog.Logger
	stderr io.Writer
}

// loadEnvironment reads the .env file, the config, and applies flag
// overrides.
func (options *globalOptions) loadEnvironment(stderr io.Writer) (*environment, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := options.loadConfig()
	if err != nil {
		return nil, err
	}

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, cli.Usage("%v", err)
	}
	logger := cli.NewCommandLogger(stderr, level, cfg.Log.Format)
	slog.SetDefault(logger)

	return &environment{config: cfg, logger: logger, stderr: stderr}, nil
}

func (options *globalOptions) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case options.configPath != "":
		cfg, err = config.LoadFile(options.configPath)
	case os.Getenv(config.EnvironmentVariable) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
		cfg.ExpandVariables()
	}
	if err != nil {
		return nil, err
	}

	if options.logLevel != "" {
		cfg.Log.Level = options.logLevel
	}
	if options.logFormat != "" {
		cfg.Log.Format = options.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, cli.Usage("invalid configuration: %v", err)
	}
	return cfg, nil
}

// cookieStore returns the store for the configured cookie file.
func (env *environment) cookieStore() *clearance.Store {
	return &clearance.Store{
		Path:         env.config.Cookies.File,
		Recipients:   env.config.Cookies.Recipients,
		IdentityFile: env.config.Cookies.IdentityFile,
	}
}

// serviceRefresher returns a refresher for the configured bypass
// service.
func (env *environment) serviceRefresher() *clearance.ServiceRefresher {
	return &clearance.ServiceRefresher{
		ServiceURL: env.config.Bypass.URL,
		Target:     env.config.Bypass.Target,
		Proxy:      env.config.Transport.Proxy,
		Attempts:   env.config.Bypass.Attempts,
		Interval:   env.config.Bypass.Interval,
		Logger:     env.logger,
	}
}

// apiSession is an authenticated API client and the resources behind it.
type apiSession struct {
	client *deepseek.Client
	token  *secret.Buffer
	solver *moduleSolver
}

// openSession resolves the token, loads the cookie file, and builds the
// client. The hashing module is loaded on first use, so commands that
// never solve a challenge do not need it.
func (env *environment) openSession(tokenFile string) (*apiSession, error) {
	token, err := resolveToken(tokenFile, env.config.TokenFile, os.Stdin, env.stderr)
	if err != nil {
		return nil, err
	}

	store := env.cookieStore()
	snapshot, err := store.LoadOrEmpty()
	if err != nil {
		token.Close()
		return nil, err
	}
	if snapshot.Empty() {
		env.logger.Debug("no stored cookies", "path", store.Path)
	} else {
		env.logger.Debug("loaded cookies", "path", store.Path, "cookies", snapshot.Names())
	}

	httpClient, err := impersonate.NewClient(impersonate.Options{
		Profile: env.config.Transport.Profile,
		Proxy:   env.config.Transport.Proxy,
		Logger:  env.logger,
	})
	if err != nil {
		token.Close()
		return nil, cli.Usage("%v", err)
	}

	solver := &moduleSolver{
		path:   env.config.Pow.Module,
		digest: env.config.Pow.Digest,
		logger: env.logger,
	}
	client, err := deepseek.New(deepseek.Config{
		BaseURL:              env.config.BaseURL,
		Token:                token,
		HTTPClient:           httpClient,
		Solver:               solver,
		Cookies:              clearance.NewCell(snapshot),
		Refresher:            clearance.SaveOnRefresh(env.serviceRefresher(), store, env.logger),
		BotChallengeAttempts: env.config.Retry.BotChallengeAttempts,
		RetryDelay:           retryDelay(env.config.Retry.Delay),
		MaxLineBytes:         env.config.Stream.MaxLineBytes,
		Logger:               env.logger,
	})
	if err != nil {
		token.Close()
		return nil, err
	}
	return &apiSession{client: client, token: token, solver: solver}, nil
}

// retryDelay converts retry.delay to deepseek.Config.RetryDelay. A
// configured zero means no pause, which the client spells as a
// negative delay.
func retryDelay(configured time.Duration) time.Duration {
	if configured == 0 {
		return -1
	}
	return configured
}

// Close unloads the hashing module and releases the token.
func (s *apiSession) Close() error {
	return errors.Join(s.solver.Close(context.Background()), s.token.Close())
}

// moduleSolver loads the hashing module on the first challenge and
// keeps it for the rest of the process.
type moduleSolver struct {
	path   string
	digest string
	logger *slog.Logger

	once    sync.Once
	module  *powmodule.Module
	solver  *pow.Solver
	loadErr error
}

func (s *moduleSolver) Solve(ctx context.Context, challenge pow.Challenge) (pow.Token, error) {
	s.once.Do(func() {
		s.module, s.loadErr = powmodule.LoadFile(ctx, s.path, s.digest, powmodule.Options{Logger: s.logger})
		if s.loadErr == nil {
			s.solver = pow.NewSolver(s.module, s.logger)
		}
	})
	if s.loadErr != nil {
		return pow.Token{}, apierror.Wrap(apierror.KindPowUnsolvable, s.loadErr, "loading hashing module")
	}
	return s.solver.Solve(ctx, challenge)
}

func (s *moduleSolver) Close(ctx context.Context) error {
	if s.module == nil {
		return nil
	}
	return s.module.Close(ctx)
}
