package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/jpg-converter/internal/api/handlers/converter"
	"github.com/aliskhannn/jpg-converter/internal/api/router"
	"github.com/aliskhannn/jpg-converter/internal/api/server"
	"github.com/aliskhannn/jpg-converter/internal/config"
	"github.com/aliskhannn/jpg-converter/internal/infra/kafka/producer"
	"github.com/aliskhannn/jpg-converter/internal/model"
	"github.com/aliskhannn/jpg-converter/internal/pipeline"
	"github.com/aliskhannn/jpg-converter/internal/preview"
	"github.com/aliskhannn/jpg-converter/internal/processor"
	convertersvc "github.com/aliskhannn/jpg-converter/internal/service/converter"
	"github.com/aliskhannn/jpg-converter/internal/storage/file"
	"github.com/aliskhannn/jpg-converter/internal/storage/local"
)

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()
	cfg := config.MustLoad("./config/config.yml")

	// Retry strategy for the archive sink and Kafka.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	// Conversion strategies, one per mode.
	svg := processor.NewSVG(processor.SVGOptions{
		Scale:          cfg.Converter.SVG.Scale,
		Quality:        cfg.Converter.SVG.Quality,
		FallbackWidth:  cfg.Converter.SVG.FallbackWidth,
		FallbackHeight: cfg.Converter.SVG.FallbackHeight,
	})
	heic := processor.NewHEIC(processor.NewNativeCodec(), cfg.Converter.HEIC.Quality)
	p := processor.New(svg, heic)

	opts := []convertersvc.Option{convertersvc.WithObserver(pipeline.LogObserver())}

	// Optional Kafka publisher for status and progress events.
	var events *producer.Producer
	if cfg.Kafka.Enabled {
		events = producer.New(&cfg.Kafka, strategy)
		opts = append(opts, convertersvc.WithObserver(events))
	}

	// Optional archive sink.
	switch cfg.Output.Sink {
	case config.SinkDir:
		opts = append(opts, convertersvc.WithSink(local.NewStorage(cfg.Output.Dir), cfg.Output.Subdir, strategy))
	case config.SinkMinio:
		storage, err := file.NewStorage(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.BucketName, cfg.Storage.UseSSL)
		if err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to connect to storage")
		}
		opts = append(opts, convertersvc.WithSink(storage, cfg.Output.Subdir, strategy))
	}

	// Validated by config.Load.
	mode, _ := model.ParseMode(cfg.Converter.Mode)
	service := convertersvc.NewService(mode, p, pipeline.New(), preview.NewStore(), opts...)

	// Start HTTP server in a separate goroutine.
	h := converter.NewHandler(service, cfg.Converter.MaxUploadBytes)
	r := router.Setup(h)
	s := server.New(cfg.Server.HTTPPort, r, cfg.Server.WriteTimeout)
	go func() {
		zlog.Logger.Info().Str("addr", cfg.Server.HTTPPort).Str("mode", mode.String()).Msg("starting server")
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	// Graceful shutdown with timeout for HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	// Close Kafka producer client.
	if events != nil {
		if err := events.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close kafka producer client")
		}
	}
}
