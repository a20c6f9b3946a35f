// Package client 是流失评分服务的 HTTP 客户端。
//
// 实现 core.Scorer，批处理流水线可以把远程服务当作本地评分器使用；
// 服务端返回的 {module, code, message, fields} 错误结构会还原为
// core.DomainError，调用方用同一套 IsXXX 检查本地与远程错误。
//
// 连接失败映射为 UPSTREAM_UNAVAILABLE，客户端不做重试，
// 由调用方决定是否换源或放弃。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rushteam/churnkit/core"
)

// DefaultEndpoint 是 churnd 的默认地址。
const DefaultEndpoint = "http://localhost:9696"

// Client 是评分服务客户端。
type Client struct {
	// Endpoint 服务根地址，如 "http://localhost:9696"
	Endpoint string
	// Timeout 单次请求超时
	Timeout time.Duration

	httpClient *http.Client
}

var _ core.Scorer = (*Client)(nil)

// Option 配置客户端。
type Option func(*Client)

// WithTimeout 设置请求超时（默认 10s）。
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.Timeout = timeout
		}
	}
}

// WithHTTPClient 设置自定义 HTTP 客户端。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient 创建客户端。endpoint 为空时使用 DefaultEndpoint。
func NewClient(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		Endpoint: strings.TrimRight(endpoint, "/"),
		Timeout:  10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.Timeout}
	}
	return c
}

// Name 实现 core.Scorer。
func (c *Client) Name() string { return "churn-remote" }

// Ping 检查服务是否就绪。
func (c *Client) Ping(ctx context.Context) error {
	var status struct {
		Status string `json:"status"`
	}
	if err := c.call(ctx, http.MethodGet, "/ping", nil, &status); err != nil {
		return err
	}
	if status.Status != "ok" {
		return core.NewDomainError(core.ModuleClient, core.ErrorCodeUpstreamUnavailable,
			fmt.Sprintf("unexpected ping status %q", status.Status))
	}
	return nil
}

// Predict 实现 core.Scorer，对单个客户画像远程打分。
// fields 无需预归一化，服务端会完成校验与归一化。
func (c *Client) Predict(ctx context.Context, fields map[string]any) (*core.Prediction, error) {
	var pred core.Prediction
	if err := c.call(ctx, http.MethodPost, "/predict", fields, &pred); err != nil {
		return nil, err
	}
	return &pred, nil
}

// PredictBatch 批量打分，predictions 与 customers 按序对齐。
// 任一客户校验失败时整批拒绝，错误的 fields 带 customers[i].field 下标。
func (c *Client) PredictBatch(ctx context.Context, customers []map[string]any) ([]*core.Prediction, error) {
	req := map[string]any{"customers": customers}
	var resp struct {
		Predictions []*core.Prediction `json:"predictions"`
	}
	if err := c.call(ctx, http.MethodPost, "/predict/batch", req, &resp); err != nil {
		return nil, err
	}
	return resp.Predictions, nil
}

// ModelInfo 是服务端模型工件的元信息。
type ModelInfo struct {
	ModelID      string `json:"model_id"`
	CreatedAt    string `json:"created_at"`
	LabelColumn  string `json:"label_column"`
	FeatureCount int    `json:"feature_count"`
	Scorer       string `json:"scorer"`
}

// Model 返回服务端当前加载的模型元信息。
func (c *Client) Model(ctx context.Context) (*ModelInfo, error) {
	var info ModelInfo
	if err := c.call(ctx, http.MethodGet, "/model", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// call 发起一次请求并解码响应，错误统一还原为 DomainError。
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.Endpoint+path, reader)
	if err != nil {
		return fmt.Errorf("client: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.NewDomainError(core.ModuleClient, core.ErrorCodeUpstreamUnavailable,
			fmt.Sprintf("scoring service unreachable: %v", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.NewDomainError(core.ModuleClient, core.ErrorCodeUpstreamUnavailable,
			fmt.Sprintf("read response: %v", err))
	}

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

// decodeError 把服务端错误响应还原为 DomainError。
// 响应体不可解析时按状态码归类，保留原文便于排查。
func decodeError(status int, data []byte) error {
	var resp struct {
		Error struct {
			Module  string            `json:"module"`
			Code    string            `json:"code"`
			Message string            `json:"message"`
			Fields  []core.FieldError `json:"fields"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &resp); err == nil && resp.Error.Code != "" {
		module := resp.Error.Module
		if module == "" {
			module = core.ModuleClient
		}
		return &core.DomainError{
			Module:  module,
			Code:    resp.Error.Code,
			Message: resp.Error.Message,
			Fields:  resp.Error.Fields,
		}
	}
	return core.NewDomainError(core.ModuleClient, codeForStatus(status),
		fmt.Sprintf("scoring service returned status %d: %s", status, truncate(data, 512)))
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusUnprocessableEntity:
		return core.ErrorCodeValidation
	case http.StatusBadRequest:
		return core.ErrorCodeInvalidInput
	case http.StatusNotFound:
		return core.ErrorCodeNotFound
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return core.ErrorCodeUpstreamUnavailable
	default:
		return core.ErrorCodeInternalError
	}
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}
