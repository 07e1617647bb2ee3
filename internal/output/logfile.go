package output

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/substantialcattle5/dupefiles/internal/constants"
)

// LogFileSink appends timestamped messages to a log file through zap
type LogFileSink struct {
	file   *os.File
	logger *zap.Logger
}

// NewLogFileSink opens (or creates) path for appending
func NewLogFileSink(path string) (*LogFileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("log-file output needs a log filename")
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, constants.StandardFilePerms)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(file),
		zap.DebugLevel,
	)

	return &LogFileSink{file: file, logger: zap.New(core)}, nil
}

func (s *LogFileSink) Emit(severity Severity, message string) {
	switch severity {
	case SeverityDebug:
		s.logger.Debug(message)
	case SeveritySuccess:
		s.logger.Info(message, zap.Bool("ok", true))
	case SeverityWarning:
		s.logger.Warn(message)
	case SeverityError:
		s.logger.Error(message)
	default:
		s.logger.Info(message)
	}
}

// Close flushes buffered entries and closes the file
func (s *LogFileSink) Close() error {
	// Sync on a regular file only fails on real I/O errors
	if err := s.logger.Sync(); err != nil {
		s.file.Close()
		return fmt.Errorf("failed to flush log file: %w", err)
	}
	return s.file.Close()
}
