package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/marvin-labs/memoria/pkg/server"
	"github.com/marvin-labs/memoria/pkg/usecase/tweet"
	"github.com/marvin-labs/memoria/pkg/utils/logging"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "memoria",
		Usage: "Persona memory service",
		Commands: []*cli.Command{
			serveCommand(),
			processTweetsCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}

func serveCommand() *cli.Command {
	var cfg config
	var addr string

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address",
			Value:       ":8080",
			Sources:     cli.EnvVars("MEMORIA_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, batchFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API and the scheduled tweet processor",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.New(cfg.logLevel, os.Stderr)
			logging.SetDefault(logger)
			ctx = logging.With(ctx, logger)

			uc, err := cfg.newUseCases(ctx)
			if err != nil {
				return err
			}
			defer uc.postgres.Close()

			runner := tweet.NewRunner(uc.tweets, cfg.batchInterval, tweet.ProcessOptions{
				Limit:         int(cfg.batchLimit),
				MinEngagement: cfg.minEngagement,
			})
			go runner.Run(ctx)

			srv := &http.Server{
				Addr:              addr,
				Handler:           server.New(uc.memories, uc.tweets, server.WithLogger(logger)).Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			logger.Info("starting server", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
}

func processTweetsCommand() *cli.Command {
	var cfg config

	flags := append(globalFlags(&cfg), llmFlags(&cfg)...)
	flags = append(flags, batchFlags(&cfg)...)

	return &cli.Command{
		Name:  "process-tweets",
		Usage: "Run one tweet batch and exit",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.New(cfg.logLevel, os.Stderr)
			logging.SetDefault(logger)
			ctx = logging.With(ctx, logger)

			uc, err := cfg.newUseCases(ctx)
			if err != nil {
				return err
			}
			defer uc.postgres.Close()

			result, err := uc.tweets.Process(ctx, tweet.ProcessOptions{
				Limit:         int(cfg.batchLimit),
				MinEngagement: cfg.minEngagement,
			})
			if err != nil {
				return err
			}

			logger.Info("batch complete",
				"processed", result.ProcessedCount, "failed", result.FailedCount)
			return nil
		},
	}
}
