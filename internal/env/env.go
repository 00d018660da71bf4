/*
Package env loads the server configuration from the environment.  Values from a
dotenv file never override variables which are already set.
*/
package env

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Addr           string
	AllowedOrigins []string
	// Empty disables the event mirror.
	RabbitMQURL    string
	MQExchange     string
	MQBuffer       int
	LogLevel       string
	LogFormat      string
	RateLimit      float64
	RateBurst      int
	MaxMessageSize int64
	PongWait       time.Duration
}

/*
Load loads the dotenv file at path.  A missing file is not an error: the
process environment is used as is.
*/
func Load(path string) {
	if err := godotenv.Load(path); err != nil {
		log.Info().Str("path", path).Msg("no dotenv file, using the process environment")
	}
}

// Parse builds the config from the environment, filling in the defaults.
func Parse() (Config, error) {
	c := Config{
		Addr:           lookup("ADDR", ":3001"),
		AllowedOrigins: splitList(lookup("ALLOWED_ORIGINS", "*")),
		RabbitMQURL:    lookup("RABBITMQ_URL", ""),
		MQExchange:     lookup("MQ_EXCHANGE", "voteroom"),
		LogLevel:       lookup("LOG_LEVEL", "info"),
		LogFormat:      lookup("LOG_FORMAT", "json"),
	}

	var errs []error
	c.MQBuffer = parse(&errs, "MQ_BUFFER", 256, positive(strconv.Atoi))
	c.RateLimit = parse(&errs, "RATE_LIMIT", 20, positive(func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	}))
	c.RateBurst = parse(&errs, "RATE_BURST", 40, positive(strconv.Atoi))
	c.MaxMessageSize = parse(&errs, "MAX_MESSAGE_SIZE", 4096, positive(func(s string) (int64, error) {
		return strconv.ParseInt(s, 10, 64)
	}))
	c.PongWait = parse(&errs, "PONG_WAIT", 60*time.Second, positive(time.ParseDuration))

	if c.LogFormat != "json" && c.LogFormat != "console" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT: must be json or console, got %q", c.LogFormat))
	}

	return c, errors.Join(errs...)
}

func lookup(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// parse converts the variable, collecting an error that names it on failure.
func parse[T any](errs *[]error, key string, fallback T, conv func(string) (T, error)) T {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}

	parsed, err := conv(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return parsed
}

type number interface {
	~int | ~int64 | ~float64
}

func positive[T number](conv func(string) (T, error)) func(string) (T, error) {
	return func(s string) (T, error) {
		v, err := conv(s)
		if err == nil && v <= 0 {
			err = fmt.Errorf("must be positive, got %s", s)
		}
		return v, err
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
