package logging

import (
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig configures the rotating log file.
type FileConfig struct {
	// Filename is the path of the active log file. The ".log" suffix is appended when missing.
	Filename string
	// MaxSizeMB is the size in megabytes at which the file is rotated.
	MaxSizeMB int
	// MaxBackups is the number of rotated files to retain. Zero retains all of them.
	MaxBackups int
	Level      slog.Leveler
}

// NewRotatingFile returns a writer that rotates and compresses the log file once it grows past cfg.MaxSizeMB.
func NewRotatingFile(cfg FileConfig) io.WriteCloser {
	filename := cfg.Filename
	if !strings.HasSuffix(filename, ".log") {
		filename += ".log"
	}
	return &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    cfg.MaxSizeMB,
		MaxAge:     0,
		MaxBackups: cfg.MaxBackups,
		LocalTime:  false,
		Compress:   true,
	}
}

// NewFileHandler returns a JSON handler writing to a rotating file and the file so that the caller can close it.
func NewFileHandler(cfg FileConfig) (slog.Handler, io.Closer) {
	w := NewRotatingFile(cfg)
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource:   false,
		Level:       cfg.Level,
		ReplaceAttr: nil,
	}), w
}
