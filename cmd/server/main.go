// Command server starts the resume ranking HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hireloop/resume-ranker/internal/adapter/ai/openai"
	"github.com/hireloop/resume-ranker/internal/adapter/extractor"
	httpserver "github.com/hireloop/resume-ranker/internal/adapter/httpserver"
	"github.com/hireloop/resume-ranker/internal/app"
	"github.com/hireloop/resume-ranker/internal/config"
	"github.com/hireloop/resume-ranker/internal/observability"
	"github.com/hireloop/resume-ranker/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	weights, err := config.LoadWeightProfile(cfg.WeightProfilePath)
	if err != nil {
		slog.Error("weight profile load failed", slog.Any("error", err))
		os.Exit(1)
	}

	aiClient := openai.New(cfg)
	docExtractor := extractor.New(cfg)

	rankSvc := usecase.NewRankService(cfg, aiClient)
	extractSvc := usecase.NewExtractService(cfg, docExtractor)

	srv := httpserver.NewServer(cfg, rankSvc, extractSvc, weights)
	handler := app.BuildRouter(cfg, srv)

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	go func() {
		slog.Info("server listening", slog.Int("port", cfg.Port), slog.String("env", cfg.AppEnv))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Error("graceful shutdown failed", slog.Any("error", err))
	}
}
