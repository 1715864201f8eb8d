package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"productcatalog/internal/api"
	"productcatalog/internal/auth"
	"productcatalog/internal/blobstore"
	"productcatalog/internal/catalog"
	"productcatalog/internal/config"
	"productcatalog/internal/db"
	"productcatalog/internal/logging"
	"productcatalog/internal/metrics"
	"productcatalog/internal/store"
	"productcatalog/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Open(cfg.DBDSN, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			logger.Warn("closing database", zap.Error(err))
		}
	}()

	blobs, uploadDir, err := openBlobs(ctx, cfg)
	if err != nil {
		return err
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	st := store.New(gdb)
	tokens := auth.NewTokens(cfg.JWTKey, cfg.TokenTTL)
	gate := auth.NewGate(tokens)
	m := metrics.New()

	srv := api.New(api.Options{
		Log:            logger,
		DB:             gdb,
		Users:          users.NewService(st, tokens, logger),
		Catalog:        catalog.NewService(st, blobs, gate, logger, m),
		Gate:           gate,
		Metrics:        m,
		MaxUploadBytes: cfg.MaxUploadBytes,
		UploadDir:      uploadDir,
		ClientURL:      cfg.ClientURL,
		Production:     cfg.IsProduction(),
	})

	httpSrv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", httpSrv.Addr), zap.String("storage", cfg.StorageDriver))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openBlobs picks the blob store. The local store also returns the folder
// to serve under /uploads.
func openBlobs(ctx context.Context, cfg *config.Config) (blobstore.Store, string, error) {
	switch strings.ToLower(cfg.StorageDriver) {
	case config.StorageS3:
		s3, err := blobstore.NewS3(ctx, blobstore.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PathStyle: cfg.S3PathStyle,
		})
		if err != nil {
			return nil, "", err
		}
		return s3, "", nil
	default:
		disk, err := blobstore.NewDisk(cfg.UploadDir, blobstore.DefaultPublicPrefix)
		if err != nil {
			return nil, "", err
		}
		return disk, disk.Dir(), nil
	}
}
