package testutil

import (
	"bytes"
	"io"
	"log/slog"

	"github.com/dtroode/authkeeper/internal/logger"
)

func MakeNoopLogger() *logger.Logger {
	return &logger.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))}
}

// MakeBufferLogger returns a debug-level logger writing to the returned buffer.
func MakeBufferLogger() (*logger.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return &logger.Logger{Logger: slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}, buf
}
