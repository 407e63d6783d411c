package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	Redis   RedisConfig
	S3      S3Config
	Minio   MinioConfig
	Storage StorageConfig
	Logger  Logger
	Muxer   MuxerConfig
	Jobs    JobsConfig
}

type ServerConfig struct {
	AppVersion   string
	Port         string
	Mode         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	BodyLimit    string
	AllowOrigins []string
}

// MuxerConfig drives the ffmpeg process runner.
type MuxerConfig struct {
	FFmpegPath         string
	WorkDir            string
	InputDir           string
	MaxConcurrent      int
	MaxCPUUsage        float64
	CPUCheckInterval   time.Duration
	Timeout            time.Duration
	KillGrace          time.Duration
	MaxDuration        time.Duration
	MaxOutputBytes     int64
	StderrLimit        int
	AllowedURLPrefixes []string
}

type JobsConfig struct {
	Retention     time.Duration
	EvictInterval time.Duration
}

type StorageConfig struct {
	Backend       string
	OutputDir     string
	KeyPrefix     string
	PresignExpiry time.Duration
}

type RedisConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	DB            int
	MinIdleConns  int
	PoolSize      int
	PoolTimeout   int
	UseTLS        bool
	JobKeyPrefix  string
	EventChannel  string
	SnapshotTTL   time.Duration
}

type S3Config struct {
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	OutputBucket string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
	Bucket    string
}

type Logger struct {
	Development       bool
	DisableCaller     bool
	DisableStacktrace bool
	Encoding          string
	Level             string
}

const (
	StorageLocal = "local"
	StorageS3    = "s3"
	StorageMinio = "minio"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.appVersion", "1.0.0")
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.mode", "Production")
	v.SetDefault("server.readTimeout", 15*time.Second)
	v.SetDefault("server.writeTimeout", 60*time.Second)
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.bodyLimit", "1M")
	v.SetDefault("server.allowOrigins", []string{"*"})

	v.SetDefault("muxer.ffmpegPath", "ffmpeg")
	v.SetDefault("muxer.workDir", "tmp_mux")
	v.SetDefault("muxer.inputDir", "")
	v.SetDefault("muxer.maxConcurrent", 4)
	v.SetDefault("muxer.maxCPUUsage", 0)
	v.SetDefault("muxer.cpuCheckInterval", 10*time.Second)
	v.SetDefault("muxer.timeout", 10*time.Minute)
	v.SetDefault("muxer.killGrace", 5*time.Second)
	v.SetDefault("muxer.maxDuration", 0)
	v.SetDefault("muxer.maxOutputBytes", 0)
	v.SetDefault("muxer.stderrLimit", 4096)
	v.SetDefault("muxer.allowedURLPrefixes", []string{})

	v.SetDefault("jobs.retention", 15*time.Minute)
	v.SetDefault("jobs.evictInterval", time.Minute)

	v.SetDefault("storage.backend", StorageLocal)
	v.SetDefault("storage.outputDir", "output")
	v.SetDefault("storage.keyPrefix", "muxed/")
	v.SetDefault("storage.presignExpiry", time.Hour)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.redisAddr", ":6379")
	v.SetDefault("redis.poolSize", 10)
	v.SetDefault("redis.poolTimeout", 5)
	v.SetDefault("redis.jobKeyPrefix", "job:")
	v.SetDefault("redis.eventChannel", "mux_jobs_channel")
	v.SetDefault("redis.snapshotTTL", 24*time.Hour)

	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("minio.endpoint", "localhost:9000")

	v.SetDefault("logger.development", false)
	v.SetDefault("logger.disableCaller", false)
	v.SetDefault("logger.disableStacktrace", true)
	v.SetDefault("logger.encoding", "json")
	v.SetDefault("logger.level", "info")
}

// LoadConfig reads filename when it exists; env vars override file values
// (server.port -> SERVER_PORT, plus the bare PORT variable).
func LoadConfig(filename string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("server.port", "PORT", "SERVER_PORT"); err != nil {
		return nil, err
	}
	if filename == "" {
		return v, nil
	}
	v.SetConfigFile(filename)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFound) || errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		return nil, err
	}
	return v, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) normalize() {
	c.Server.Port = strings.TrimSpace(c.Server.Port)
	if c.Server.Port != "" && !strings.Contains(c.Server.Port, ":") {
		c.Server.Port = ":" + c.Server.Port
	}
	if c.Muxer.MaxConcurrent < 1 {
		c.Muxer.MaxConcurrent = 1
	}
	if c.Muxer.StderrLimit <= 0 {
		c.Muxer.StderrLimit = 4096
	}
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageLocal
	}
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if strings.TrimSpace(c.Muxer.FFmpegPath) == "" {
		return errors.New("muxer ffmpeg path is required")
	}
	switch c.Storage.Backend {
	case StorageLocal:
		if c.Storage.OutputDir == "" {
			return errors.New("storage output dir is required for the local backend")
		}
	case StorageS3:
		if c.S3.OutputBucket == "" {
			return errors.New("s3 output bucket is required for the s3 backend")
		}
	case StorageMinio:
		if c.Minio.Bucket == "" {
			return errors.New("minio bucket is required for the minio backend")
		}
	default:
		return errors.New("unknown storage backend: " + c.Storage.Backend)
	}
	return nil
}
