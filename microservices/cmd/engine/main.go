package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"sgf_review/internal/bootstrap"
	engineDelivery "sgf_review/internal/delivery/engine"
	"sgf_review/internal/repository/checkpoint"
	"sgf_review/internal/repository/engine"
	"sgf_review/internal/usecase/analysis"
)

const serviceNamespace = "engine-service"

func main() {
	logger := NewLogger()
	defer logger.Sync()

	cfg, err := bootstrap.Setup(".env")
	if err != nil {
		logger.Error("Failed to setup configuration", zap.Error(err))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := checkpoint.New(ctx, cfg, serviceNamespace, logger)
	if err != nil {
		logger.Fatalw("Failed to open checkpoint store", "error", err)
	}
	defer store.Close(context.Background())

	client, err := engine.NewProcessClient(cfg, engine.Game{
		BoardSize: cfg.BoardSize,
		Komi:      cfg.Komi,
	}, logger)
	if err != nil {
		logger.Fatalw("Failed to configure engine", "error", err)
	}
	if err := client.Start(ctx); err != nil {
		logger.Fatalw("Failed to start engine", "error", err)
	}
	defer client.Stop()

	svc := analysis.NewService(analysis.Config{
		Restarts:        cfg.Restarts,
		SkipCheckpoints: cfg.SkipCheckpoints,
	}, client, store, logger)

	handler := engineDelivery.NewEngineHandler(*cfg, logger, svc)

	r := chi.NewRouter()
	handler.Router(r)

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(engineDelivery.UnaryLogger(logger)))
	health := handler.RegisterGrpc(grpcServer)

	lis, err := net.Listen("tcp", cfg.GrpcPort)
	if err != nil {
		logger.Fatalw("Failed to listen for grpc", "port", cfg.GrpcPort, "error", err)
	}

	server := &http.Server{
		Addr:              cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Engine service is running on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Infof("Engine grpc service is running on port %s", cfg.GrpcPort)
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Received shutdown signal")
		health.Shutdown()
		grpcServer.GracefulStop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Errorw("Engine service stopped", "error", err)
	}
}

func NewLogger() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}

	return logger.Sugar()
}
