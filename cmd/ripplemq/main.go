package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ripplemq/ripplemq/auth"
	"github.com/ripplemq/ripplemq/broker"
	"github.com/ripplemq/ripplemq/config"
	"github.com/ripplemq/ripplemq/store"
	"github.com/ripplemq/ripplemq/store/badger"
	"github.com/ripplemq/ripplemq/store/memory"
	"github.com/ripplemq/ripplemq/topicmatcher"
	"github.com/ripplemq/ripplemq/transport"
)

func main() {
	configFile := flag.String("config", "", "path to configuration file")
	flag.Parse()

	cfg := config.Default()
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			slog.Error("failed to load configuration", slog.String("error", err.Error()))
			os.Exit(1)
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	var messages store.MessageStore
	var wills store.WillStore
	if cfg.BadgerDir != "" {
		st, err := badger.New(badger.Config{Dir: cfg.BadgerDir})
		if err != nil {
			logger.Error("failed to open badger storage", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer st.Close()
		messages, wills = st.Messages(), st.Wills()
		logger.Info("using badger persistent storage", slog.String("dir", cfg.BadgerDir))
	} else {
		messages, wills = memory.New(), memory.NewWillStore()
		logger.Info("using in-memory storage")
	}

	var authenticator auth.Authenticator
	if cfg.PasswordFile != "" {
		pf, err := auth.LoadPasswordFile(cfg.PasswordFile)
		if err != nil {
			logger.Error("failed to load password file", slog.String("error", err.Error()))
			os.Exit(1)
		}
		authenticator = pf
	}

	b := broker.New(broker.Options{
		Matcher:               topicmatcher.New(),
		Messages:              messages,
		Wills:                 wills,
		Authenticator:         authenticator,
		Authorizer:            auth.AllowAll{},
		AllowAnonymous:        cfg.AllowAnonymous,
		AllowZeroByteClientID: cfg.AllowZeroByteClientID,
		Logger:                logger,
	})

	if !cfg.WebsocketDisabled {
		logger.Info("websocket_port configured but no websocket listener is implemented",
			slog.Int("port", cfg.WebsocketPort))
	}

	ln := transport.New(transport.Config{
		Address: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Logger:  logger,
	}, b.Director)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- ln.Serve(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	case err := <-serverErr:
		if err != nil {
			logger.Error("listener exited", slog.String("error", err.Error()))
		}
		return
	}

	if err := <-serverErr; err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("ripplemq stopped")
}
