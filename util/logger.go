package util

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger. With toFile set, output goes to the
// configured log file instead of stderr so it does not draw over a local
// terminal UI.
func NewLogger(conf *AppConfig, toFile bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if conf.Conf.Debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if toFile && conf.Conf.LogFile != "" {
		path := ResolveFilePath(conf.Conf.LogFile)
		config.OutputPaths = []string{path}
		config.ErrorOutputPaths = []string{path}
	}

	return config.Build(zap.Fields(zap.String("app", Name)))
}
