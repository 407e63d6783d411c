package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amankumarsingh77/media-muxer/internal/config"
	"github.com/amankumarsingh77/media-muxer/internal/jobs"
	"github.com/amankumarsingh77/media-muxer/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/minio/minio-go/v7"
)

const (
	maxHeaderBytes = 1 << 20
	ctxTimeout     = 30
)

type Server struct {
	echo          *echo.Echo
	cfg           *config.Config
	redisClient   *redis.Client
	s3Client      *s3.Client
	preSignClient *s3.PresignClient
	minioClient   *minio.Client
	logger        logger.Logger
	jobsUC        jobs.UseCase
}

// NewServer wires the HTTP server. redisClient, the S3 clients and
// minioClient may be nil when their backend is not configured.
func NewServer(
	cfg *config.Config,
	redisClient *redis.Client,
	s3Client *s3.Client,
	preSignClient *s3.PresignClient,
	minioClient *minio.Client,
	logger logger.Logger,
) *Server {
	e := echo.New()
	e.HideBanner = true
	return &Server{
		echo:          e,
		cfg:           cfg,
		redisClient:   redisClient,
		s3Client:      s3Client,
		preSignClient: preSignClient,
		minioClient:   minioClient,
		logger:        logger,
	}
}

func (s *Server) Run() error {
	if err := s.MapHandlers(s.echo); err != nil {
		return err
	}
	server := &http.Server{
		Addr:           s.cfg.Server.Port,
		ReadTimeout:    s.cfg.Server.ReadTimeout,
		IdleTimeout:    s.cfg.Server.IdleTimeout,
		WriteTimeout:   s.cfg.Server.WriteTimeout,
		MaxHeaderBytes: maxHeaderBytes,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.jobsUC.StartJanitor(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Server is listening on PORT: %s", s.cfg.Server.Port)
		if err := s.echo.StartServer(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		s.logger.Errorf("Run - StartServer error: %v", err)
		_ = s.jobsUC.Shutdown(context.Background())
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*ctxTimeout)
	defer cancel()
	s.logger.Infof("shutting down server")
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		s.logger.Errorf("Run - echo.Shutdown error: %v", err)
	}
	return s.jobsUC.Shutdown(shutdownCtx)
}
