package utils

import (
	"os"

	"github.com/rs/zerolog"
)

// Log is the package level logger. Call SetLogger before using it.
var Log zerolog.Logger

func SetLogger(debug bool) {
	level := zerolog.InfoLevel

	debugFromEnv := os.Getenv("OSPROF_DEBUG") != ""
	if debug || debugFromEnv {
		level = zerolog.DebugLevel
	}

	Log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(level)
}
