// Package logging builds the process logger: slog text or JSON, written to
// stdout, a rotating file, or both.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Params struct {
	Level    string
	JSON     bool
	File     string
	ToStdout bool
}

// Setup returns a logger for params and a closer for the log file, if any.
func Setup(params Params) (*slog.Logger, io.Closer) {
	out, closer := output(params)
	opts := &slog.HandlerOptions{Level: ParseLevel(params.Level)}

	var handler slog.Handler
	if params.JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler), closer
}

func output(params Params) (io.Writer, io.Closer) {
	if params.File == "" {
		return os.Stdout, io.NopCloser(nil)
	}

	name := params.File
	if !strings.HasSuffix(name, ".log") {
		name += ".log"
	}
	file := &lumberjack.Logger{
		Filename:   name,
		MaxSize:    20, // megabytes
		MaxBackups: 5,
		Compress:   true,
	}

	if params.ToStdout {
		return NewCombinedWriter(os.Stdout, file), file
	}
	return file, file
}

// ParseLevel maps a config level name to a slog level. Unknown names log at info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// CombinedWriter writes to every writer, continuing past failures.
type CombinedWriter struct {
	Writers []io.Writer
}

func NewCombinedWriter(writers ...io.Writer) *CombinedWriter {
	return &CombinedWriter{Writers: writers}
}

func (cw *CombinedWriter) Write(p []byte) (int, error) {
	var err error
	for _, w := range cw.Writers {
		if _, werr := w.Write(p); werr != nil {
			err = multierr.Append(err, werr)
		}
	}
	if err != nil {
		return 0, err
	}
	return len(p), nil
}
