package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/rushteam/churnkit/config"
	_ "github.com/rushteam/churnkit/config/builders"
	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pipeline"
	"github.com/rushteam/churnkit/pkg/logging"
	"github.com/rushteam/churnkit/pkg/metrics"
)

func main() {
	var (
		pipelinePath = flag.String("pipeline", "pipeline.yaml", "批处理流水线配置路径")
		schedule     = flag.String("schedule", "", `cron 表达式（如 "0 2 * * *"），为空只跑一次`)
		scene        = flag.String("scene", "batch", "任务场景标识")
		metricsAddr  = flag.String("metrics-addr", "", `指标监听地址（如 ":9697"），仅调度模式有意义`)
		logLevel     = flag.String("log-level", "info", "日志级别")
		logFormat    = flag.String("log-format", "text", "日志格式（text/json）")
	)
	flag.Parse()

	logger := logging.Init(logging.Config{Level: *logLevel, Format: *logFormat})

	cfg, err := pipeline.LoadFromYAML(*pipelinePath)
	if err != nil {
		logger.Error("load pipeline config", "path", *pipelinePath, "error", err)
		os.Exit(1)
	}
	if err := config.ValidatePipelineConfig(cfg); err != nil {
		logger.Error("validate pipeline config", "error", err)
		os.Exit(1)
	}
	p, err := cfg.BuildPipeline(config.DefaultFactory())
	if err != nil {
		logger.Error("build pipeline", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *schedule == "" {
		if err := runOnce(ctx, logger, p, *scene); err != nil {
			os.Exit(1)
		}
		return
	}

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", metrics.Handler())
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Error("metrics endpoint exited", "error", err)
			}
		}()
	}

	c := cron.New()
	if _, err := c.AddFunc(*schedule, func() {
		_ = runOnce(ctx, logger, p, *scene)
	}); err != nil {
		logger.Error("parse cron schedule", "schedule", *schedule, "error", err)
		os.Exit(1)
	}
	logger.Info("batch scheduler started", "pipeline", p.Name, "schedule", *schedule)
	c.Start()

	<-ctx.Done()
	// 等在途批次跑完再退出
	<-c.Stop().Done()
	logger.Info("batch scheduler stopped")
}

func runOnce(ctx context.Context, logger *slog.Logger, p *pipeline.Pipeline, scene string) error {
	bctx := &core.BatchContext{
		JobID: uuid.NewString(),
		Scene: scene,
	}

	start := time.Now()
	out, err := p.Run(ctx, bctx, nil)
	elapsed := time.Since(start)

	if err != nil {
		metrics.BatchRuns.WithLabelValues(p.Name, "error").Inc()
		logger.Error("batch run failed",
			"job_id", bctx.JobID,
			"pipeline", p.Name,
			"duration_ms", elapsed.Milliseconds(),
			"error", err)
		return err
	}

	metrics.BatchRuns.WithLabelValues(p.Name, "ok").Inc()
	metrics.BatchDuration.WithLabelValues(p.Name).Observe(elapsed.Seconds())
	metrics.BatchCustomersOut.WithLabelValues(p.Name).Set(float64(len(out)))

	tiers := make(map[string]int)
	for _, c := range out {
		if c != nil && c.Tier != "" {
			tiers[c.Tier]++
		}
	}
	logger.Info("batch run finished",
		"job_id", bctx.JobID,
		"pipeline", p.Name,
		"customers", len(out),
		"tiers", tiers,
		"duration_ms", elapsed.Milliseconds())
	return nil
}
