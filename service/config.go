package service

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/churnkit/pkg/logging"
	"github.com/rushteam/churnkit/policy"
)

// Duration 包装 time.Duration，支持 YAML 中 "5s"、"1m" 形态的取值。
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"5s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std 转回 time.Duration。
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config 是 churnd 的服务配置（YAML）。
type Config struct {
	// Addr 监听地址（默认 ":9696"）
	Addr string `yaml:"addr"`

	// Model 模型工件来源
	Model ModelConfig `yaml:"model"`

	// Logging 日志配置
	Logging logging.Config `yaml:"logging"`

	// Server HTTP 超时
	Server ServerConfig `yaml:"server"`

	// History 预测审计日志（可选，path 为空则不落库）
	History HistoryConfig `yaml:"history"`

	// Collector 预测事件上报（可选，brokers 为空则不上报）
	Collector CollectorConfig `yaml:"collector"`

	// Policy 挽留策略规则（可选，默认只走概率阶梯）
	Policy PolicyConfig `yaml:"policy"`
}

// ModelConfig 指定模型工件来源。
type ModelConfig struct {
	// Ref 本地路径或 http(s) URL
	Ref string `yaml:"ref"`
}

// ServerConfig HTTP 服务超时配置。
type ServerConfig struct {
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// HistoryConfig 预测审计日志配置。
type HistoryConfig struct {
	// Path SQLite 文件路径
	Path string `yaml:"path"`
}

// CollectorConfig Kafka 事件上报配置。
type CollectorConfig struct {
	Brokers       []string `yaml:"brokers"`
	Topic         string   `yaml:"topic"`
	BatchSize     int      `yaml:"batch_size"`
	FlushInterval Duration `yaml:"flush_interval"`
	Acks          string   `yaml:"acks"`
	Compression   string   `yaml:"compression"`
	Idempotent    bool     `yaml:"idempotent"`
}

// PolicyConfig 挽留策略配置。
type PolicyConfig struct {
	Rules []policy.Rule `yaml:"rules"`
}

// DefaultConfig 返回带默认值的配置。
func DefaultConfig() Config {
	return Config{
		Addr:    ":9696",
		Logging: logging.Config{Level: "info", Format: "text"},
		Server: ServerConfig{
			ReadTimeout:     Duration(5 * time.Second),
			WriteTimeout:    Duration(10 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
	}
}

// LoadConfig 从 YAML 文件加载配置，未出现的字段保持默认值。
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Addr == "" {
		cfg.Addr = ":9696"
	}
	if cfg.Model.Ref == "" {
		return cfg, fmt.Errorf("config: model.ref is required")
	}
	return cfg, nil
}
