// Package logger configures the process-wide logrus logger.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/localnerve/sheetsdb/internal/config"
)

// Setup applies level, format and output from the configuration.
// When LOG_FILE is set, entries go to stdout and to a rotating file.
func Setup(cfg *config.Config) error {
	level, err := log.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return err
	}
	log.SetLevel(level)

	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp: true,
		})
	}

	log.SetOutput(Writer(cfg))
	return nil
}

// Writer returns the log destination for the configuration
func Writer(cfg *config.Config) io.Writer {
	if cfg.LogFile == "" {
		return os.Stdout
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
		log.Warnf("Unable to create log directory, logging to stdout only: %v", err)
		return os.Stdout
	}

	return io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	})
}
