package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Application
	Version     string
	Environment string
	WorkerID    string
	Port        int
	LogLevel    string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// Camera records (YAML)
	CamerasConfig string

	// Detector
	DetectorURL     string
	DetectorTimeout time.Duration // 0 = no deadline on detector calls
	DetectorQuality int           // JPEG quality of frames sent to the detector

	// NATS (count events and archive metadata)
	// Default: nats://localhost:4222
	// Docker: nats://nats:4222
	NatsEnabled        bool
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int
	CountsSubject      string
	ArchiveSubject     string

	// MQTT (per camera count snapshots on SYS/<camera>)
	MQTTEnabled  bool
	MQTTBroker   string
	MQTTClientID string
	MQTTQoS      int

	// Event API (gate events and snapshots)
	EventAPIEnabled bool
	EventAPIURL     string
	EventAPITimeout time.Duration
	SnapshotDir     string
	SnapshotBaseURL string
	SnapshotQuality int

	// Notification dispatch
	NotifyWorkers   int
	NotifyQueueSize int

	// Count ledger (SQLite)
	LedgerEnabled bool
	LedgerPath    string

	// Pipeline defaults, overridable per camera
	FrameWidth       int
	ProcessFPS       int
	QueueCapacity    int
	RotationHour     int
	SnapshotMargin   float64
	SourceRetryDelay time.Duration

	// Archive
	ArchiveEnabled  bool
	ArchiveDir      string
	ArchiveFourCC   string
	ArchiveMaxFiles int

	// Overlay
	ShowFPS     bool
	ShowTracks  bool
	RegionColor string // #RRGGBB

	// Health
	FrameStaleThreshold time.Duration

	// Graceful Shutdown
	ShutdownTimeout time.Duration

	// Delay before restarting a crashed goroutine
	PanicRestartDelay time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		WorkerID:    getEnv("WORKER_ID", "counter-1"),
		Port:        getEnvInt("PORT", 8000),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Logdy
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		CamerasConfig: getEnv("CAMERAS_CONFIG", "cameras.yaml"),

		// Detector
		DetectorURL:     getEnv("DETECTOR_URL", "localhost:50052"),
		DetectorTimeout: getEnvDuration("DETECTOR_TIMEOUT", 0),
		DetectorQuality: getEnvInt("DETECTOR_JPEG_QUALITY", 90),

		// NATS
		NatsEnabled:        getEnvBool("NATS_ENABLED", true),
		NatsURL:            getNatsURL(),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		CountsSubject:      getEnv("COUNTS_SUBJECT", "counts"),
		ArchiveSubject:     getEnv("ARCHIVE_SUBJECT", "video.archives"),

		// MQTT
		MQTTEnabled:  getEnvBool("MQTT_ENABLED", false),
		MQTTBroker:   getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "vehicle-counter"),
		MQTTQoS:      getEnvInt("MQTT_QOS", 0),

		// Event API
		EventAPIEnabled: getEnvBool("EVENT_API_ENABLED", true),
		EventAPIURL:     getEnv("EVENT_API_URL", "http://127.0.0.1:5000"),
		EventAPITimeout: getEnvDuration("EVENT_API_TIMEOUT", 5*time.Second),
		SnapshotDir:     getEnv("SNAPSHOT_DIR", "./snapshots"),
		SnapshotBaseURL: getEnv("SNAPSHOT_BASE_URL", "http://localhost/images"),
		SnapshotQuality: getEnvInt("SNAPSHOT_QUALITY", 90),

		NotifyWorkers:   getEnvInt("NOTIFY_WORKERS", 2),
		NotifyQueueSize: getEnvInt("NOTIFY_QUEUE_SIZE", 64),

		LedgerEnabled: getEnvBool("LEDGER_ENABLED", true),
		LedgerPath:    getEnv("LEDGER_PATH", "counts.db"),

		// Pipeline
		FrameWidth:       getEnvInt("FRAME_WIDTH", 1280),
		ProcessFPS:       getEnvInt("PROCESS_FPS", 15),
		QueueCapacity:    getEnvInt("QUEUE_CAPACITY", 10),
		RotationHour:     getEnvInt("ROTATION_HOUR", 0),
		SnapshotMargin:   getEnvFloat("SNAPSHOT_MARGIN", 0.5),
		SourceRetryDelay: getEnvDuration("SOURCE_RETRY_DELAY", 500*time.Millisecond),

		// Archive
		ArchiveEnabled:  getEnvBool("ARCHIVE_ENABLED", true),
		ArchiveDir:      getEnv("ARCHIVE_DIR", "./archive"),
		ArchiveFourCC:   getEnv("ARCHIVE_FOURCC", "mp4v"),
		ArchiveMaxFiles: getEnvInt("ARCHIVE_MAX_FILES", 30), // one file per day

		ShowFPS:     getEnvBool("SHOW_FPS", true),
		ShowTracks:  getEnvBool("SHOW_TRACKS", true),
		RegionColor: getEnv("REGION_COLOR", "#FF00FF"),

		FrameStaleThreshold: getEnvDuration("FRAME_STALE_THRESHOLD", 10*time.Second),

		ShutdownTimeout:   getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		PanicRestartDelay: getEnvDuration("PANIC_RESTART_DELAY", 2*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Helper functions for Docker environment detection
func isRunningInDocker() bool {
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}

	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	return false
}

// getNatsURL returns the appropriate NATS URL based on environment
func getNatsURL() string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}

	if isRunningInDocker() {
		return "nats://nats:4222"
	}

	return "nats://localhost:4222"
}
