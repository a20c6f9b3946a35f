// Package logging 初始化进程级结构化日志（log/slog）。
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config 日志配置。
type Config struct {
	Level  string `yaml:"level" json:"level"`   // debug / info / warn / error（默认 info）
	Format string `yaml:"format" json:"format"` // json / text（默认 text）
}

// New 按配置构建 slog.Logger，输出到 w。
func New(cfg Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Init 构建输出到标准输出的 Logger 并设为进程默认。
func Init(cfg Config) *slog.Logger {
	logger := New(cfg, os.Stdout)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel 解析日志级别字符串，未知取值回落到 info。
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
