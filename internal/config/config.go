package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the client reads from the environment. The
// credential and viewer identity live here and are passed down at
// construction; nothing reads ambient storage at call sites.
type Config struct {
	// ServerURL is the http(s) base of the chat backend.
	ServerURL string
	// Token is the bearer credential used for REST calls and the
	// websocket handshake.
	Token    string
	UserID   string
	Username string

	// AMQPURL enables event publishing when set; empty runs without a
	// broker.
	AMQPURL      string
	AMQPExchange string

	// OTLPEndpoint enables trace export when set.
	OTLPEndpoint string

	// MetricsAddr exposes /metrics when set, e.g. ":9091".
	MetricsAddr string

	ReconnectEnabled     bool
	ReconnectMaxAttempts uint64
	ReconnectInterval    time.Duration
}

// Load reads configuration from a .env file (when present) and the
// environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment variables")
	}

	cfg := &Config{
		ServerURL:            getEnv("CHAT_SERVER_URL", "http://localhost:8000"),
		Token:                os.Getenv("CHAT_TOKEN"),
		UserID:               os.Getenv("CHAT_USER_ID"),
		Username:             getEnv("CHAT_USERNAME", "me"),
		AMQPURL:              os.Getenv("AMQP_URL"),
		AMQPExchange:         getEnv("AMQP_EXCHANGE", "chat_client_events"),
		OTLPEndpoint:         os.Getenv("OTLP_ENDPOINT"),
		MetricsAddr:          os.Getenv("METRICS_ADDR"),
		ReconnectEnabled:     getEnvBool("CHAT_RECONNECT", false),
		ReconnectMaxAttempts: getEnvUint("CHAT_RECONNECT_MAX_ATTEMPTS", 5),
		ReconnectInterval:    getEnvDuration("CHAT_RECONNECT_INTERVAL", 500*time.Millisecond),
	}

	if cfg.Token == "" || cfg.UserID == "" {
		log.Fatal("required environment variables CHAT_TOKEN or CHAT_USER_ID are not set")
	}

	return cfg
}

// WSBaseURL derives the websocket origin from ServerURL.
func (c *Config) WSBaseURL() string {
	return "ws" + strings.TrimPrefix(c.ServerURL, "http")
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvUint(key string, fallback uint64) uint64 {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
