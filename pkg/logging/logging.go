// Package logging builds the zap logger shared by the daemon.
package logging

import (
	"fmt"
	"os"

	"github.com/ericogr/ohmmeter/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a sugared logger. Debug selects the development encoder; a log
// file, when set, is rotated by lumberjack and mirrored to stderr.
func New(cfg config.LogConfig) (*zap.SugaredLogger, error) {
	if cfg.File == "" {
		var (
			l   *zap.Logger
			err error
		)
		if cfg.Debug {
			l, err = zap.NewDevelopment()
		} else {
			l, err = zap.NewProduction()
		}
		if err != nil {
			return nil, fmt.Errorf("can't initialize zap logger: %w", err)
		}
		return l.Sugar(), nil
	}

	level := zapcore.InfoLevel
	encCfg := zap.NewProductionEncoderConfig()
	if cfg.Debug {
		level = zapcore.DebugLevel
		encCfg = zap.NewDevelopmentEncoderConfig()
	}
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotator), level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), level),
	)
	return zap.New(core, zap.AddCaller()).Sugar(), nil
}
