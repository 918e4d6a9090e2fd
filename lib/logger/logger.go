package logger

import (
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	logFileName = "tiergate.log"
)

// SetupLogger builds the root logger for the environment; local logs go to
// stdout, dev and prod append to tiergate.log inside logDir.
func SetupLogger(env, logDir string) *slog.Logger {
	var out io.Writer = os.Stdout

	if env != EnvLocal {
		logPath := filepath.Join(logDir, logFileName)
		logFile, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("error opening log file: ", err)
		}
		log.Printf("env: %s; log file: %s", env, logPath)
		out = logFile
	}

	level, ok := Level(env)
	if !ok {
		log.Fatal("invalid environment: ", env)
	}

	return slog.New(
		slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}),
	)
}

// Level maps an environment name to its minimum log level.
func Level(env string) (slog.Level, bool) {
	switch env {
	case EnvLocal, EnvDev:
		return slog.LevelDebug, true
	case EnvProd:
		return slog.LevelInfo, true
	default:
		return slog.LevelInfo, false
	}
}
