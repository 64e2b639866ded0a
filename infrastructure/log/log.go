package log

import (
	"go.uber.org/zap"

	"portmirror/config"
)

// logger is the interface of the logger.
type logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Fatalf(template string, args ...interface{})
}

// Logger is the reality called by the program
var Logger logger

// Structure for zap
type zapLogger struct {
	logger *zap.SugaredLogger
}

func NewZapLogger(logger *zap.Logger) *zapLogger {
	return &zapLogger{
		logger: logger.Sugar(),
	}
}

func init() {
	var zapLog *zap.Logger
	switch {
	case config.IsDebug():
		zapLog, _ = zap.NewDevelopment(zap.AddCaller(), zap.AddCallerSkip(1))
	case config.IsTest():
		zapLog = zap.NewNop()
	default:
		zapLog, _ = zap.NewProduction(zap.AddCallerSkip(1))
	}
	Logger = NewZapLogger(zapLog)
}

// Sync flushes buffered log entries. Call it before the program exits.
func Sync() {
	if l, ok := Logger.(*zapLogger); ok {
		_ = l.logger.Sync()
	}
}

func (l *zapLogger) Debugf(template string, args ...interface{}) {
	l.logger.Debugf(template, args...)
}

func (l *zapLogger) Infof(template string, args ...interface{}) {
	l.logger.Infof(template, args...)
}

func (l *zapLogger) Warnf(template string, args ...interface{}) {
	l.logger.Warnf(template, args...)
}

func (l *zapLogger) Errorf(template string, args ...interface{}) {
	l.logger.Errorf(template, args...)
}

func (l *zapLogger) Fatalf(template string, args ...interface{}) {
	// Flush the remaining log entries in buff.
	defer func() {
		_ = l.logger.Sync()
	}()
	l.logger.Fatalf(template, args...)
}
