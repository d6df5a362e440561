package main

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type logger struct {
	z *zap.Logger
}

func newLogger(verbose bool) logger {
	if !verbose {
		return logger{zap.NewNop()}
	}
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stderr), zapcore.DebugLevel)
	return logger{zap.New(core)}
}

func (l logger) Logf(format string, a ...interface{}) {
	if l.z == nil {
		return
	}
	l.z.Sugar().Infof(format, a...)
}

// Zap returns the structured logger behind Logf, for libraries
func (l logger) Zap() *zap.Logger {
	if l.z == nil {
		return zap.NewNop()
	}
	return l.z
}
