// Package feast 接入 Feast Feature Store 作为客户画像来源。
//
// 画像字段在 Feast 里按特征视图组织（例如 customer_profile:contract），
// Provider 负责把特征引用映射回 schema 字段名，评分链路对此无感知。
package feast

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// Client 是 Feast 在线特征查询的最小接口。
// 领域代码只依赖此接口，gRPC 实现可替换（测试中用内存假实现）。
type Client interface {
	// GetOnlineFeatures 查询一批实体的在线特征，
	// 返回与 EntityRows 等长的特征行
	GetOnlineFeatures(ctx context.Context, req *OnlineFeaturesRequest) ([]FeatureRow, error)

	// Close 关闭底层连接
	Close() error
}

// OnlineFeaturesRequest 在线特征查询请求。
type OnlineFeaturesRequest struct {
	// Features 特征引用列表，例如 ["customer_profile:contract"]
	Features []string

	// EntityRows 实体行，例如 [{"customer_id": "7590-vhveg"}]
	EntityRows []map[string]any

	// Project 项目名（可选，默认取客户端配置）
	Project string
}

// FeatureRow 是一行实体的特征值，key 为特征引用，缺失的特征不出现。
type FeatureRow map[string]any

// ClientConfig 客户端配置。
type ClientConfig struct {
	Timeout time.Duration // 单次查询超时
	Token   string        // 静态 Token 认证（可选）
}

// ClientOption 配置客户端。
type ClientOption func(*ClientConfig)

// WithTimeout 设置单次查询超时（默认 3s）。
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) { c.Timeout = timeout }
}

// WithStaticToken 启用静态 Token 认证。
func WithStaticToken(token string) ClientOption {
	return func(c *ClientConfig) { c.Token = token }
}

// ParseEndpoint 解析 "host:port" 形态的端点（容忍 grpc:// 前缀）。
// 未指定端口时返回 0，由调用方取默认端口。
func ParseEndpoint(endpoint string) (string, int) {
	endpoint = strings.TrimPrefix(endpoint, "grpc://")
	host, portStr, ok := strings.Cut(endpoint, ":")
	if !ok {
		return endpoint, 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 0
	}
	return host, port
}
