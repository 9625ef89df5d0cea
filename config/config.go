package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config stores the engine configuration. Values come from the
// environment (optionally via a .env file) with simple defaults.
type Config struct {
	FFmpegPath string // ffmpeg binary used for frame extraction
	WorkDir    string // scratch directory for downloaded assets

	// Render defaults, used when a sequence does not carry its own.
	OutputWidth  int
	OutputHeight int
	FPS          float64

	// Frame cache tuning.
	FrameCacheEntries int // LRU capacity, frames kept decoded in memory
	FrameCacheTTLSec  int // redis mirror TTL in seconds

	// Server.
	ListenAddr string

	// Redis (persisted frame cache mirror).
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MinIO (media asset store).
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvFloat gets an environment variable as float64 or returns a default value.
func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, relying on environment variables and defaults.")
	}

	return &Config{
		FFmpegPath: getEnv("FFMPEG_PATH", "ffmpeg"),
		WorkDir:    getEnv("MONTAGE_WORK_DIR", os.TempDir()),

		OutputWidth:  getEnvInt("MONTAGE_WIDTH", 1920),
		OutputHeight: getEnvInt("MONTAGE_HEIGHT", 1080),
		FPS:          getEnvFloat("MONTAGE_FPS", 30.0),

		FrameCacheEntries: getEnvInt("FRAME_CACHE_ENTRIES", 50),
		FrameCacheTTLSec:  getEnvInt("FRAME_CACHE_TTL", 3600),

		ListenAddr: getEnv("MONTAGE_LISTEN", ":8080"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "montage"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
	}
}
