package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/urfave/cli"

	"github.com/sheikh-saqib/bank-ledger-service/internal/accountcache"
	"github.com/sheikh-saqib/bank-ledger-service/internal/auth"
	"github.com/sheikh-saqib/bank-ledger-service/internal/config"
	"github.com/sheikh-saqib/bank-ledger-service/internal/events/kafka"
	"github.com/sheikh-saqib/bank-ledger-service/internal/health"
	"github.com/sheikh-saqib/bank-ledger-service/internal/idempotency"
	"github.com/sheikh-saqib/bank-ledger-service/internal/interfaces"
	"github.com/sheikh-saqib/bank-ledger-service/internal/ledger"
	"github.com/sheikh-saqib/bank-ledger-service/internal/storage"
	"github.com/sheikh-saqib/bank-ledger-service/internal/tailer"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// the env file has to be in the environment before the flags are parsed
	if err := config.LoadEnvFile(envFileFromArgs(os.Args[1:])); err != nil {
		fmt.Fprintf(os.Stderr, "env file: %s\n", err)
		os.Exit(1)
	}

	app := cli.NewApp()
	app.Name = "bank-ledger"
	app.Usage = "tail the ledger, serve balances and accept transactions"
	app.Flags = config.Flags()
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", app.Name, err)
		os.Exit(1)
	}
}

func envFileFromArgs(args []string) string {
	for i, arg := range args {
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		}
		if "env-file" == name && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(name, "env-file=") {
			return strings.TrimPrefix(name, "env-file=")
		}
	}
	return ""
}

func run(c *cli.Context) error {
	cfg, err := config.FromContext(c)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.LogDirectory, 0700); err != nil {
		return err
	}
	err = logger.Initialise(logger.Configuration{
		Directory: cfg.LogDirectory,
		File:      "ledger.log",
		Size:      1048576,
		Count:     20,
		Console:   cfg.LogConsole,
		Levels: map[string]string{
			logger.DefaultTag: cfg.LogLevel,
		},
	})
	if err != nil {
		return fmt.Errorf("logger setup failed: %w", err)
	}
	defer logger.Finalise()

	log := logger.New("main")
	log.Infof("routing number: %s store: %s", cfg.LocalRoutingNumber, cfg.StoreDriver)

	verifier, err := auth.NewVerifier(cfg.TokenPublicKey)
	if err != nil {
		log.Criticalf("token verifier: %s", err)
		return err
	}

	ctx := context.Background()
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Criticalf("open store: %s", err)
		return err
	}
	defer store.Close()

	cache, err := accountcache.New(store, cfg)
	if err != nil {
		return err
	}
	cache.Start()
	defer cache.Stop()

	tail := tailer.New(store, cfg)
	checker := health.New(tail)
	if err := tail.Start(ctx, cache); err != nil {
		log.Criticalf("start tailer: %s", err)
		return err
	}
	defer tail.Stop()
	checker.MarkReady()

	var publisher interfaces.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		p := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer p.Close()
		publisher = p
		log.Infof("publishing events to: %s on: %v", cfg.KafkaTopic, cfg.KafkaBrokers)
	}

	submitter := ledger.NewLedger(store, verifier, cache, idempotency.New(cfg.DedupTTL), publisher, cfg)

	srv := &http.Server{
		Addr:    cfg.ListenAddress,
		Handler: newServer(submitter, cache, verifier, checker).routes(),
	}

	failed := make(chan error, 1)
	go func() {
		log.Infof("listening on: %s", cfg.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			failed <- err
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-ch:
		log.Infof("received signal: %v", sig)
	case err := <-failed:
		log.Criticalf("http server: %s", err)
		return err
	}

	log.Info("shutting down…")
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
