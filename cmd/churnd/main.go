package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rushteam/churnkit/collector"
	"github.com/rushteam/churnkit/pkg/logging"
	"github.com/rushteam/churnkit/policy"
	"github.com/rushteam/churnkit/scoring"
	"github.com/rushteam/churnkit/service"
	"github.com/rushteam/churnkit/store"
)

func main() {
	configPath := flag.String("config", "churnd.yaml", "服务配置文件路径")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := service.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logging.Init(cfg.Logging)

	// 模型工件缺失或损坏属启动期致命错误，不能带病监听
	pipe, err := scoring.LoadRef(ctx, cfg.Model.Ref, 30*time.Second)
	if err != nil {
		logger.Error("load model artifact", "ref", cfg.Model.Ref, "error", err)
		os.Exit(1)
	}
	logger.Info("model artifact loaded",
		"model_id", pipe.Metadata().ModelID,
		"features", pipe.Vocabulary().Size())

	opts := []service.Option{
		service.WithAddr(cfg.Addr),
		service.WithLogger(logger),
		service.WithTimeouts(
			cfg.Server.ReadTimeout.Std(),
			cfg.Server.WriteTimeout.Std(),
			cfg.Server.ShutdownTimeout.Std(),
		),
	}

	if len(cfg.Collector.Brokers) > 0 {
		kc, err := collector.NewKafkaCollector(collector.KafkaConfig{
			Brokers:       cfg.Collector.Brokers,
			Topic:         cfg.Collector.Topic,
			BatchSize:     cfg.Collector.BatchSize,
			FlushInterval: cfg.Collector.FlushInterval.Std(),
			Acks:          cfg.Collector.Acks,
			Compression:   cfg.Collector.Compression,
			Idempotent:    cfg.Collector.Idempotent,
		})
		if err != nil {
			logger.Error("init kafka collector", "error", err)
			os.Exit(1)
		}
		defer kc.Close()
		opts = append(opts, service.WithCollector(kc))
	}

	if cfg.History.Path != "" {
		history, err := store.NewSQLiteLog(cfg.History.Path)
		if err != nil {
			logger.Error("open prediction history", "path", cfg.History.Path, "error", err)
			os.Exit(1)
		}
		defer history.Close()
		opts = append(opts, service.WithHistory(history))
	}

	if len(cfg.Policy.Rules) > 0 {
		engine, err := policy.NewEngine(cfg.Policy.Rules, nil)
		if err != nil {
			logger.Error("compile policy rules", "error", err)
			os.Exit(1)
		}
		opts = append(opts, service.WithPolicyEngine(engine))
	}

	srv, err := service.NewServer(pipe, opts...)
	if err != nil {
		logger.Error("assemble server", "error", err)
		os.Exit(1)
	}

	if err := srv.Run(ctx); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}
