// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package logger

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"go.elastic.co/ecszap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/elastic/elastic-agent-libs/logp"
)

const iso8601Format = "2006-01-02T15:04:05.000Z0700"

// Level is the level used by the generator.
type Level = logp.Level

// DefaultLogLevel used when no level is configured.
const DefaultLogLevel = logp.InfoLevel

// Logger alias ecslog.Logger with Logger.
type Logger = logp.Logger

// New returns a console logger writing to w. The pipeline itself goes to stdout, so
// callers pass stderr here.
func New(name string, level Level, w io.Writer) *Logger {
	encoderConfig := ecszap.ECSCompatibleEncoderConfig(logp.ConsoleEncoderConfig())
	encoderConfig.EncodeTime = UtcTimestampEncode
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(level.ZapLevel()))

	return logp.NewLogger(
		name,
		zap.WrapCore(func(in zapcore.Core) zapcore.Core {
			return core
		}))
}

// ParseLevel parses a level name such as "debug" or "warning".
func ParseLevel(s string) (Level, error) {
	lvl := DefaultLogLevel
	if s == "" {
		return lvl, nil
	}
	if err := lvl.Unpack(s); err != nil {
		return lvl, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}

// NewInMemory returns a new in-memory logger along with the buffer to which it
// logs.
// encCfg configures the log format, use logp.ConsoleEncoderConfig for console
// format, logp.JSONEncoderConfig for JSON or any other valid zapcore.EncoderConfig.
func NewInMemory(selector string, encCfg zapcore.EncoderConfig) (*Logger, *bytes.Buffer) {
	buff := bytes.Buffer{}

	encoderConfig := ecszap.ECSCompatibleEncoderConfig(encCfg)
	encoderConfig.EncodeTime = UtcTimestampEncode
	encoder := zapcore.NewConsoleEncoder(encoderConfig)

	core := zapcore.NewCore(
		encoder,
		zapcore.AddSync(&buff),
		zap.NewAtomicLevelAt(zap.DebugLevel))

	logger := logp.NewLogger(
		selector,
		zap.WrapCore(func(in zapcore.Core) zapcore.Core {
			return core
		}))
	return logger, &buff
}

// UtcTimestampEncode is a zapcore.TimeEncoder that formats time.Time in ISO-8601 in UTC.
func UtcTimestampEncode(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	type appendTimeEncoder interface {
		AppendTimeLayout(time.Time, string)
	}
	if enc, ok := enc.(appendTimeEncoder); ok {
		enc.AppendTimeLayout(t.UTC(), iso8601Format)
		return
	}
	enc.AppendString(t.UTC().Format(iso8601Format))
}
