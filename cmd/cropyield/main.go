// Command cropyield trains the crop yield model and serves predictions.
//
//	cropyield train [-config config/config.yaml]
//	cropyield serve [-config config/config.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/YuminosukeSato/cropyield/artifact"
	"github.com/YuminosukeSato/cropyield/config"
	"github.com/YuminosukeSato/cropyield/pkg/errors"
	"github.com/YuminosukeSato/cropyield/pkg/log"
	"github.com/YuminosukeSato/cropyield/prediction"
	"github.com/YuminosukeSato/cropyield/server"
	"github.com/YuminosukeSato/cropyield/training"
)

const usage = `usage: cropyield <command> [-config path]

commands:
  train   fit the preprocessor and model and write artifacts
  serve   load artifacts and serve predictions over HTTP
`

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	cmd := args[0]

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "config/config.yaml", "path to the YAML configuration")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "cropyield: %v\n", err)
		return 1
	}
	logger, err := cfg.Logging.NewLogger(os.Stdout)
	if err != nil {
		fmt.Fprintf(stderr, "cropyield: %v\n", err)
		return 1
	}
	logger = logger.With("command", cmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "train":
		err = train(ctx, cfg, logger)
	case "serve":
		err = serve(ctx, cfg, logger)
	default:
		fmt.Fprintf(stderr, "cropyield: unknown command %q\n\n%s", cmd, usage)
		return 2
	}
	if err != nil {
		logger.Error("Command failed", log.ErrorKey, err)
		return 1
	}
	return 0
}

func train(ctx context.Context, cfg config.Config, logger log.Logger) error {
	job, err := training.NewJob(cfg, logger)
	if err != nil {
		return err
	}
	res, err := job.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("Training complete",
		log.RunIDKey, res.RunID,
		log.FeaturesKey, len(res.Features),
		"test_r2", res.TestMetrics.R2,
		"test_rmse", res.TestMetrics.RMSE,
		"test_mae", res.TestMetrics.MAE,
	)
	return nil
}

func serve(ctx context.Context, cfg config.Config, logger log.Logger) error {
	store := artifact.NewStore("", logger)
	pipeline, err := prediction.Load(store, artifact.DefaultPaths(cfg.Artifacts.Dir), cfg.Features.FlagColumns, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      server.New(pipeline, logger).Handler(),
		ReadTimeout:  cfg.HTTP.ReadTimeout(),
		WriteTimeout: cfg.HTTP.WriteTimeout(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", log.AddrKey, srv.Addr, log.FeaturesKey, pipeline.Width())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "HTTP server")
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	logger.Info("Server stopped gracefully")
	return nil
}
