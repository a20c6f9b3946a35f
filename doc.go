// Package churnkit 是一个客户流失预测工具包（Churn Kit）。
//
// 设计要点：
// - Pipeline-first: 批量挽留逻辑通过 Node 串联（Source → Filter → Score → Policy → Sink）
// - 工件即契约: 词表与系数固化在同一份带版本的 JSON 工件里，加载后不可变
// - Labels-first: labels 全链路透传与标准化 merge，支持 explain / 观测 / 策略驱动
// - Node 可扩展: 自定义 Node 即可插拔扩展（本地模型或远程评分服务均可）
package churnkit

import "github.com/rushteam/churnkit/pipeline"

// 轻量 facade：便于用户直接 import "churnkit" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindSource = pipeline.KindSource
	KindFilter = pipeline.KindFilter
	KindScore  = pipeline.KindScore
	KindPolicy = pipeline.KindPolicy
	KindSink   = pipeline.KindSink
)
