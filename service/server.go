// Package service 实现流失评分的 HTTP 服务。
//
// 设计原则：
//   - 评分流水线在启动期加载一次，之后不可变，注入 handler 并发复用
//   - 请求校验只发生在 handler 边界，库内部不抛校验错误
//   - 错误响应统一携带 {module, code, message, fields} 结构
//
// 路由：
//   - GET  /ping           健康检查
//   - POST /predict        单客户评分
//   - POST /predict/batch  批量评分（全量校验，任一字段非法整批拒绝）
//   - GET  /model          模型工件元信息
//   - GET  /metrics        Prometheus 指标
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/rushteam/churnkit/collector"
	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pkg/metrics"
	"github.com/rushteam/churnkit/policy"
	"github.com/rushteam/churnkit/scoring"
)

// Server 是流失评分服务。
type Server struct {
	pipe      *scoring.Pipeline
	logger    *slog.Logger
	collector core.Collector
	history   core.PredictionLog
	engine    *policy.Engine
	ladder    policy.Ladder

	addr            string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration

	handler http.Handler
}

// Option 配置 Server。
type Option func(*Server)

// WithAddr 设置监听地址（默认 ":9696"）。
func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithLogger 设置日志器（默认 slog.Default）。
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCollector 设置预测事件采集器（默认丢弃）。
func WithCollector(c core.Collector) Option {
	return func(s *Server) {
		if c != nil {
			s.collector = c
		}
	}
}

// WithHistory 设置预测审计日志（默认不落库）。
func WithHistory(log core.PredictionLog) Option {
	return func(s *Server) { s.history = log }
}

// WithPolicyEngine 设置挽留策略引擎（规则优先于阶梯）。
func WithPolicyEngine(e *policy.Engine) Option {
	return func(s *Server) { s.engine = e }
}

// WithLadder 替换默认概率阶梯。
func WithLadder(l policy.Ladder) Option {
	return func(s *Server) {
		if len(l) > 0 {
			s.ladder = l
		}
	}
}

// WithTimeouts 设置读、写、优雅退出超时。
func WithTimeouts(read, write, shutdown time.Duration) Option {
	return func(s *Server) {
		if read > 0 {
			s.readTimeout = read
		}
		if write > 0 {
			s.writeTimeout = write
		}
		if shutdown > 0 {
			s.shutdownTimeout = shutdown
		}
	}
}

// NewServer 装配服务。pipe 必须是已加载完成的评分流水线。
func NewServer(pipe *scoring.Pipeline, opts ...Option) (*Server, error) {
	if pipe == nil {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput,
			"service: scoring pipeline is required")
	}

	s := &Server{
		pipe:            pipe,
		logger:          slog.Default(),
		collector:       collector.NopCollector{},
		ladder:          policy.DefaultLadder(),
		addr:            ":9696",
		readTimeout:     5 * time.Second,
		writeTimeout:    10 * time.Second,
		shutdownTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", s.handlePing)
	mux.HandleFunc("POST /predict", s.handlePredict)
	mux.HandleFunc("POST /predict/batch", s.handlePredictBatch)
	mux.HandleFunc("GET /model", s.handleModel)
	mux.Handle("GET /metrics", metrics.Handler())

	s.handler = RequestID(Logging(s.logger)(Metrics(mux)))
	return s, nil
}

// Handler 返回含中间件的完整 HTTP handler。
func (s *Server) Handler() http.Handler { return s.handler }

// Addr 返回监听地址。
func (s *Server) Addr() string { return s.addr }

// Run 启动监听并阻塞；ctx 取消后在 shutdownTimeout 内优雅退出。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.handler,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("churn scoring service listening",
			"addr", s.addr, "model_id", s.pipe.Metadata().ModelID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
