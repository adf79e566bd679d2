package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/dvcrn/gcs-stream/internal/env"
	"github.com/rs/zerolog"
)

const (
	colorRed     = 31
	colorGreen   = 32
	colorYellow  = 33
	colorMagenta = 35

	colorBold = 1
)

var (
	once   sync.Once
	mu     sync.Mutex
	logger *zerolog.Logger
)

// Get returns the singleton logger instance, initializing it on first call.
// Output always goes to stderr: stdout carries object data.
func Get() *zerolog.Logger {
	once.Do(func() {
		l := newLogger(os.Stderr)
		mu.Lock()
		logger = l
		mu.Unlock()
	})
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// WithInvocationID tags every subsequent log line with id.
func WithInvocationID(id string) {
	l := Get().With().Str("invocation_id", id).Logger()
	mu.Lock()
	logger = &l
	mu.Unlock()
}

func colorize(s interface{}, c int) string {
	return fmt.Sprintf("\x1b[%dm%v\x1b[0m", c, s)
}

// newLogger picks level from LOG_LEVEL and format from ENV.
func newLogger(out io.Writer) *zerolog.Logger {
	logLevel := zerolog.InfoLevel
	if levelStr, ok := env.Get("LOG_LEVEL"); ok {
		if parsedLevel, err := zerolog.ParseLevel(strings.ToLower(levelStr)); err == nil {
			logLevel = parsedLevel
		} else {
			fmt.Fprintf(os.Stderr, "Invalid LOG_LEVEL \"%s\"; defaulting to 'info'\n", levelStr)
		}
	}
	zerolog.SetGlobalLevel(logLevel)

	switch env.GetOrDefault("ENV", "development") {
	case "production", "prod":
		return newProduction(out)
	default:
		return newDevelopment(out)
	}
}

func formatLevel(i interface{}) string {
	ll, ok := i.(string)
	if !ok {
		return strings.ToUpper(fmt.Sprintf("%s", i))[0:3]
	}
	switch ll {
	case "trace":
		return colorize("TRC", colorMagenta)
	case "debug":
		return colorize("DBG", colorYellow)
	case "info":
		return colorize("INF", colorGreen)
	case "warn":
		return colorize("WRN", colorRed)
	case "error":
		return colorize("ERR", colorRed)
	case "fatal":
		return colorize("FTL", colorRed)
	case "panic":
		return colorize("PNC", colorRed)
	default:
		return colorize(strings.ToUpper(ll)[0:3], colorBold)
	}
}

// newDevelopment creates a console logger with colored levels.
func newDevelopment(out io.Writer) *zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:         out,
		TimeFormat:  "2006-01-02 15:04:05",
		FormatLevel: formatLevel,
	}
	zl := zerolog.New(output).With().Timestamp().Logger()
	return &zl
}

// newProduction creates a JSON logger with UNIX timestamps.
func newProduction(out io.Writer) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zl := zerolog.New(out).With().Timestamp().Logger()
	return &zl
}
