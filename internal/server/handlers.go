package server

import (
	"fmt"
	"net/http"

	"github.com/amankumarsingh77/media-muxer/internal/config"
	"github.com/amankumarsingh77/media-muxer/internal/jobs"
	jobsHttp "github.com/amankumarsingh77/media-muxer/internal/jobs/delivery/http"
	jobsRepository "github.com/amankumarsingh77/media-muxer/internal/jobs/repository"
	jobsUsecase "github.com/amankumarsingh77/media-muxer/internal/jobs/usecase"
	"github.com/amankumarsingh77/media-muxer/internal/middleware"
	"github.com/amankumarsingh77/media-muxer/internal/muxer"
	"github.com/amankumarsingh77/media-muxer/pkg/utils"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

func (s *Server) MapHandlers(e *echo.Echo) error {
	store, err := s.artifactStore()
	if err != nil {
		return err
	}
	var events jobs.EventPublisher
	if s.cfg.Redis.Enabled && s.redisClient != nil {
		events = jobsRepository.NewJobRedisRepo(s.redisClient, s.cfg.Redis.JobKeyPrefix, s.cfg.Redis.EventChannel, s.cfg.Redis.SnapshotTTL)
	}

	jRepo := jobsRepository.NewJobRepo()
	ffmpeg := muxer.NewFFmpeg(s.cfg.Muxer.FFmpegPath, s.cfg.Muxer.KillGrace, s.cfg.Muxer.StderrLimit)
	runner := muxer.NewRunner(s.cfg, ffmpeg, s.logger)

	s.jobsUC = jobsUsecase.NewJobsUseCase(s.cfg, jRepo, runner, store, events, s.logger)
	jobsHandlers := jobsHttp.NewJobsHandler(s.jobsUC, s.logger)

	mw := middleware.NewMiddlewareManager(s.cfg, s.cfg.Server.AllowOrigins, s.logger)

	e.Use(echoMiddleware.RequestID())
	e.Use(echoMiddleware.Recover())
	if s.cfg.Server.BodyLimit != "" {
		e.Use(echoMiddleware.BodyLimit(s.cfg.Server.BodyLimit))
	}
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: mw.Origins(),
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderXRequestID},
		MaxAge:       300,
	}))

	health := e.Group("/health")
	jobsGroup := e.Group("/jobs")

	jobsHttp.MapJobsRoutes(jobsGroup, jobsHandlers, mw)
	health.GET("", func(c echo.Context) error {
		s.logger.Infof("Health check RequestID: %s", utils.GetRequestID(c))
		return c.JSON(http.StatusOK, map[string]string{"status": "OK"})
	})
	return nil
}

func (s *Server) artifactStore() (jobs.ArtifactStore, error) {
	switch s.cfg.Storage.Backend {
	case config.StorageLocal, "":
		return jobsRepository.NewLocalStore(s.cfg.Storage.OutputDir), nil
	case config.StorageS3:
		if s.s3Client == nil || s.preSignClient == nil {
			return nil, fmt.Errorf("storage backend s3 selected but no s3 client is configured")
		}
		return jobsRepository.NewAwsRepository(s.s3Client, s.preSignClient, s.cfg.S3.OutputBucket, s.cfg.Storage.KeyPrefix, s.cfg.Storage.PresignExpiry), nil
	case config.StorageMinio:
		if s.minioClient == nil {
			return nil, fmt.Errorf("storage backend minio selected but no minio client is configured")
		}
		return jobsRepository.NewMinioRepository(s.minioClient, s.cfg.Minio.Bucket, s.cfg.Storage.KeyPrefix, s.cfg.Storage.PresignExpiry), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", s.cfg.Storage.Backend)
	}
}
