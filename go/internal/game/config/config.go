package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config holds the game server settings.
type Config struct {
	Port              string        `yaml:"port"`
	LogLevel          string        `yaml:"log_level"`
	QuestionDuration  time.Duration `yaml:"question_duration"`
	StartDelay        time.Duration `yaml:"start_delay"`
	DefaultMaxPlayers int           `yaml:"default_max_players"`
	QuestionsFile     string        `yaml:"questions_file"`
	SchedulerEnabled  bool          `yaml:"scheduler_enabled"`

	NATS      NATSConfig      `yaml:"nats"`
	WebSocket WebSocketConfig `yaml:"websocket"`
}

type NATSConfig struct {
	URL           string `yaml:"url"`
	CommandStream string `yaml:"command_stream"`
	EventStream   string `yaml:"event_stream"`
	Consumer      string `yaml:"consumer"`
}

// Enabled reports whether a NATS server is configured.
func (c NATSConfig) Enabled() bool {
	return c.URL != ""
}

type WebSocketConfig struct {
	MaxMessageSize int64         `yaml:"max_message_size"`
	SendBufferSize int           `yaml:"send_buffer_size"`
	MessageRate    float64       `yaml:"message_rate"`
	MessageBurst   int           `yaml:"message_burst"`
	PongWait       time.Duration `yaml:"pong_wait"`
}

// Load reads .env, then the environment, then the optional YAML file at path.
// Non-zero YAML values override the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg := fromEnv()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.merge(overlay)
	return cfg, nil
}

func fromEnv() *Config {
	return &Config{
		Port:              getEnv("PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		QuestionDuration:  getEnvAsDuration("QUESTION_DURATION", 10*time.Second),
		StartDelay:        getEnvAsDuration("START_DELAY", 3*time.Second),
		DefaultMaxPlayers: getEnvAsInt("DEFAULT_MAX_PLAYERS", 100),
		QuestionsFile:     getEnv("QUESTIONS_FILE", ""),
		SchedulerEnabled:  getEnvAsBool("SCHEDULER_ENABLED", false),
		NATS: NATSConfig{
			URL:           getEnv("NATS_URL", ""),
			CommandStream: getEnv("NATS_COMMAND_STREAM", "GAME_COMMANDS"),
			EventStream:   getEnv("NATS_EVENT_STREAM", "GAME_EVENTS"),
			Consumer:      getEnv("NATS_CONSUMER", "quiz-engine"),
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: int64(getEnvAsInt("WS_MAX_MESSAGE_SIZE", 4096)),
			SendBufferSize: getEnvAsInt("WS_SEND_BUFFER", 256),
			MessageRate:    getEnvAsFloat("WS_MESSAGE_RATE", 5),
			MessageBurst:   getEnvAsInt("WS_MESSAGE_BURST", 10),
			PongWait:       getEnvAsDuration("WS_PONG_WAIT", 60*time.Second),
		},
	}
}

func (c *Config) merge(o Config) {
	setString(&c.Port, o.Port)
	setString(&c.LogLevel, o.LogLevel)
	setDuration(&c.QuestionDuration, o.QuestionDuration)
	setDuration(&c.StartDelay, o.StartDelay)
	setInt(&c.DefaultMaxPlayers, o.DefaultMaxPlayers)
	setString(&c.QuestionsFile, o.QuestionsFile)
	if o.SchedulerEnabled {
		c.SchedulerEnabled = true
	}

	setString(&c.NATS.URL, o.NATS.URL)
	setString(&c.NATS.CommandStream, o.NATS.CommandStream)
	setString(&c.NATS.EventStream, o.NATS.EventStream)
	setString(&c.NATS.Consumer, o.NATS.Consumer)

	if o.WebSocket.MaxMessageSize > 0 {
		c.WebSocket.MaxMessageSize = o.WebSocket.MaxMessageSize
	}
	setInt(&c.WebSocket.SendBufferSize, o.WebSocket.SendBufferSize)
	if o.WebSocket.MessageRate > 0 {
		c.WebSocket.MessageRate = o.WebSocket.MessageRate
	}
	setInt(&c.WebSocket.MessageBurst, o.WebSocket.MessageBurst)
	setDuration(&c.WebSocket.PongWait, o.WebSocket.PongWait)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("10s") or plain seconds ("10").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
