// Package logging wires zerolog to a rotating file sink and exposes the
// package-level helpers the rest of riptide uses for structured logging.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide structured logger.
var Logger zerolog.Logger

// Config controls log level, destination and rotation policy.
type Config struct {
	Level      string
	LogDir     string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultConfig matches the teacher's conservative rotation defaults.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		LogDir:     "logs",
		MaxSizeMB:  100,
		MaxBackups: 5,
		MaxAgeDays: 28,
		Compress:   true,
	}
}

// Init configures the global logger: colored console output plus two
// rotating files (all levels, and error-and-above only).
func Init(cfg Config) error {
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	mainLog := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, "riptide.log"),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	errorLog := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, "riptide_error.log"),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}

	multi := zerolog.MultiLevelWriter(
		console,
		mainLog,
		&levelFilteredWriter{w: errorLog, min: zerolog.ErrorLevel},
	)

	Logger = zerolog.New(multi).With().Timestamp().Caller().Logger()
	log.Logger = Logger

	Logger.Info().Str("level", cfg.Level).Str("log_dir", cfg.LogDir).Msg("logging initialized")
	return nil
}

// levelFilteredWriter only forwards records at or above a minimum level.
// zerolog calls WriteLevel when the writer implements zerolog.LevelWriter;
// Write is the fallback for writers that don't carry level information.
type levelFilteredWriter struct {
	w   io.Writer
	min zerolog.Level
}

func (f *levelFilteredWriter) Write(p []byte) (int, error) {
	return f.w.Write(p)
}

func (f *levelFilteredWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level >= f.min {
		return f.w.Write(p)
	}
	return len(p), nil
}

func Info(msg string)                               { Logger.Info().Msg(msg) }
func Infof(format string, args ...interface{})       { Logger.Info().Msgf(format, args...) }
func Warn(msg string)                                { Logger.Warn().Msg(msg) }
func Warnf(format string, args ...interface{})       { Logger.Warn().Msgf(format, args...) }
func Debug(msg string)                               { Logger.Debug().Msg(msg) }
func Debugf(format string, args ...interface{})      { Logger.Debug().Msgf(format, args...) }
func Error(err error, msg string)                    { Logger.Error().Err(err).Msg(msg) }
func Errorf(err error, format string, args ...interface{}) {
	Logger.Error().Err(err).Msgf(format, args...)
}
