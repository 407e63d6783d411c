package main

import (
	"context"
	"log"
	"time"

	"github.com/amankumarsingh77/media-muxer/internal/config"
	"github.com/amankumarsingh77/media-muxer/internal/server"
	"github.com/amankumarsingh77/media-muxer/pkg/db/aws"
	minioConn "github.com/amankumarsingh77/media-muxer/pkg/db/minio"
	redisConn "github.com/amankumarsingh77/media-muxer/pkg/db/redis"
	"github.com/amankumarsingh77/media-muxer/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
)

const connectTimeout = 10 * time.Second

func main() {
	log.Println("Starting server")
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	configFile := "config.yml"
	cfgFile, err := config.LoadConfig(configFile)
	if err != nil {
		log.Fatalf("loadConfig: %v", err)
	}
	cfg, err := config.ParseConfig(cfgFile)
	if err != nil {
		log.Fatalf("parseConfig: %v", err)
	}
	appLogger := logger.NewApiLogger(cfg)
	appLogger.InitLogger()
	defer appLogger.Sync()
	appLogger.Infof("AppVersion: %s, LogLevel: %s, Mode: %s, Storage: %s",
		cfg.Server.AppVersion, cfg.Logger.Level, cfg.Server.Mode, cfg.Storage.Backend)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redisConn.NewRedisClient(ctx, cfg)
		if err != nil {
			appLogger.Warnf("could not connect to redis, job events disabled: %s", err)
		} else {
			appLogger.Infof("redis connected")
			defer redisClient.Close()
		}
	}

	var (
		s3Client      *s3.Client
		presignClient *s3.PresignClient
		minioClient   *minio.Client
	)
	switch cfg.Storage.Backend {
	case config.StorageS3:
		s3Client, presignClient, err = aws.NewAWSClient(ctx, cfg.S3.Endpoint, cfg.S3.Region, cfg.S3.AccessKey, cfg.S3.SecretKey)
		if err != nil {
			appLogger.Fatalf("could not connect to s3: %s", err)
		}
	case config.StorageMinio:
		minioClient, err = minioConn.NewMinioClient(ctx, cfg)
		if err != nil {
			appLogger.Fatalf("could not connect to minio: %s", err)
		}
	}

	s := server.NewServer(cfg, redisClient, s3Client, presignClient, minioClient, appLogger)
	if err = s.Run(); err != nil {
		appLogger.Errorf("server stopped: %s", err)
	}
}
