// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// parley is a line-oriented console client for an agent platform. It
// keeps a chat session and the work-item feed connected, prints
// streamed replies as they arrive, and accepts slash commands for
// conversation management.
//
// Configuration comes from the file named by --config or
// PARLEY_CONFIG. The bearer token is read from auth.token_file or the
// environment variable named by auth.token_env (PARLEY_TOKEN by
// default), which is unset after reading.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/parley/engine"
	"github.com/bureau-foundation/parley/lib/clock"
	"github.com/bureau-foundation/parley/lib/config"
	"github.com/bureau-foundation/parley/lib/logging"
	"github.com/bureau-foundation/parley/lib/secret"
	"github.com/bureau-foundation/parley/lib/version"
	"github.com/bureau-foundation/parley/persist"
	"github.com/bureau-foundation/parley/platform"
	"github.com/bureau-foundation/parley/protocol"
	"github.com/bureau-foundation/parley/transport"
)

// platformRequestTimeout bounds each REST call. The streaming feed
// uses its own client without a timeout.
const platformRequestTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		logLevel    string
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("parley", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to the config file (default: $PARLEY_CONFIG)")
	flagSet.StringVar(&logLevel, "log-level", "", "override log.level: debug, info, warn, or error")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if showVersion {
		fmt.Printf("parley %s\n", version.Full())
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		return err
	}

	token, err := loadToken(cfg.Auth)
	if err != nil {
		return err
	}
	if token != nil {
		defer token.Close()
		logger.Debug("bearer token loaded", "token", token)
	} else {
		logger.Warn("no bearer token configured, connecting unauthenticated")
	}

	signalCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	ctx, cancel := context.WithCancel(signalCtx)
	defer cancel()

	chatURL, err := cfg.ChatURL()
	if err != nil {
		return err
	}
	feedURL, err := cfg.FeedURL()
	if err != nil {
		return err
	}

	chat, err := transport.NewSupervisor(transport.Config[protocol.ChatEvent]{
		Name: "chat",
		Dialer: &transport.ChatDialer{
			URL:              chatURL,
			Token:            token,
			HandshakeTimeout: cfg.Transport.HandshakeTimeout.Std(),
			WriteTimeout:     cfg.Transport.WriteTimeout.Std(),
		},
		Decode:         protocol.DecodeChatEvent,
		ReconnectDelay: cfg.Transport.ReconnectDelay.Std(),
		QueueSize:      cfg.Transport.EventQueue,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	feed, err := transport.NewSupervisor(transport.Config[protocol.FeedEvent]{
		Name: "feed",
		Dialer: &transport.FeedDialer{
			URL:              feedURL,
			Token:            token,
			HTTPClient:       &http.Client{},
			Compression:      cfg.Transport.FeedCompression,
			HandshakeTimeout: cfg.Transport.HandshakeTimeout.Std(),
		},
		Decode:         protocol.DecodeFeedEvent,
		ReconnectDelay: cfg.Transport.ReconnectDelay.Std(),
		QueueSize:      cfg.Transport.EventQueue,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	client, err := platform.NewClient(platform.ClientConfig{
		BaseURL:    cfg.Server.BaseURL,
		HTTPClient: &http.Client{Timeout: platformRequestTimeout},
		Token:      token,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	defer client.CloseIdleConnections()

	var store persist.Store = persist.NewMemoryStore()
	if cfg.State.Path != "" {
		store = persist.NewFileStore(cfg.State.Path, clock.Real())
	}

	eng, err := engine.New(engine.Config{
		Chat:     chat,
		Feed:     feed,
		Platform: client,
		Store:    store,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	engineDone := make(chan error, 1)
	go func() { engineDone <- eng.Run(ctx) }()

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		fmt.Fprintf(os.Stdout, "parley %s, connected to %s. /help for commands.\n", version.Version, cfg.Server.BaseURL)
	}
	consoleErr := newConsole(eng, os.Stdin, os.Stdout, interactive).Run(ctx)

	cancel()
	if err := <-engineDone; err != nil {
		logger.Error("engine stopped with error", "error", err)
	}
	return consoleErr
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// loadToken reads the bearer credential. A configured token file must
// exist; an unset environment variable means no credential.
func loadToken(auth config.AuthConfig) (*secret.Buffer, error) {
	if auth.TokenFile != "" {
		token, err := secret.ReadFromPath(auth.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("reading token file: %w", err)
		}
		return token, nil
	}
	if auth.TokenEnv != "" {
		token, err := secret.FromEnvironment(auth.TokenEnv)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", auth.TokenEnv, err)
		}
		return token, nil
	}
	return nil, nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `parley: console client for an agent platform.

Keeps the chat session and work-item feed connected and prints streamed
replies as they arrive. Type /help inside the console for commands.

Usage:
  parley [flags]

Examples:
  # Use the config named by PARLEY_CONFIG
  parley

  # Use an explicit config with debug logging
  parley --config ~/.config/parley.yaml --log-level debug

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
