package feast

import (
	"context"
	"fmt"
	"time"

	feastsdk "github.com/feast-dev/feast/sdk/go"
	feasttypes "github.com/feast-dev/feast/sdk/go/protos/feast/types"

	"github.com/rushteam/churnkit/core"
)

// GrpcClient 是基于官方 Feast Go SDK 的客户端实现。
type GrpcClient struct {
	client  *feastsdk.GrpcClient
	project string
	timeout time.Duration
}

var _ Client = (*GrpcClient)(nil)

// NewGrpcClient 连接 Feast Feature Server。
// endpoint 形如 "localhost:6565"，未指定端口时取 6565。
func NewGrpcClient(endpoint, project string, opts ...ClientOption) (*GrpcClient, error) {
	cfg := &ClientConfig{Timeout: 3 * time.Second}
	for _, opt := range opts {
		opt(cfg)
	}

	host, port := ParseEndpoint(endpoint)
	if port == 0 {
		port = 6565
	}

	var (
		client *feastsdk.GrpcClient
		err    error
	)
	if cfg.Token != "" {
		security := feastsdk.SecurityConfig{
			Credential: feastsdk.NewStaticCredential(cfg.Token),
		}
		client, err = feastsdk.NewSecureGrpcClient(host, port, security)
	} else {
		client, err = feastsdk.NewGrpcClient(host, port)
	}
	if err != nil {
		return nil, fmt.Errorf("connect feast serving %s:%d: %w", host, port, err)
	}

	return &GrpcClient{client: client, project: project, timeout: cfg.Timeout}, nil
}

// GetOnlineFeatures 实现 Client 接口。
func (c *GrpcClient) GetOnlineFeatures(ctx context.Context, req *OnlineFeaturesRequest) ([]FeatureRow, error) {
	if len(req.Features) == 0 || len(req.EntityRows) == 0 {
		return nil, core.NewDomainError(core.ModuleFeast, core.ErrorCodeInvalidInput,
			"feast: features and entity rows are required")
	}
	project := req.Project
	if project == "" {
		project = c.project
	}

	entities := make([]feastsdk.Row, len(req.EntityRows))
	for i, row := range req.EntityRows {
		entity := make(feastsdk.Row, len(row))
		for k, v := range row {
			entity[k] = toValue(v)
		}
		entities[i] = entity
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.GetOnlineFeatures(ctx, &feastsdk.OnlineFeaturesRequest{
		Features: req.Features,
		Entities: entities,
		Project:  project,
	})
	if err != nil {
		return nil, core.NewDomainError(core.ModuleFeast, core.ErrorCodeUpstreamUnavailable,
			fmt.Sprintf("feast: get online features: %v", err))
	}

	rows := resp.Rows()
	if len(rows) != len(req.EntityRows) {
		return nil, fmt.Errorf("feast: response has %d rows for %d entities", len(rows), len(req.EntityRows))
	}

	out := make([]FeatureRow, len(rows))
	for i, row := range rows {
		values := make(FeatureRow, len(row))
		for _, ref := range req.Features {
			v, ok := row[ref]
			if !ok {
				continue
			}
			if decoded := fromValue(v); decoded != nil {
				values[ref] = decoded
			}
		}
		out[i] = values
	}
	return out, nil
}

// Close 关闭 gRPC 连接。
func (c *GrpcClient) Close() error {
	return c.client.Close()
}

// toValue 把 Go 原生值转换为 Feast 的 protobuf Value。
func toValue(v any) *feasttypes.Value {
	switch val := v.(type) {
	case string:
		return feastsdk.StrVal(val)
	case int:
		return feastsdk.Int64Val(int64(val))
	case int32:
		return feastsdk.Int64Val(int64(val))
	case int64:
		return feastsdk.Int64Val(val)
	case float32:
		return feastsdk.FloatVal(val)
	case float64:
		return feastsdk.DoubleVal(val)
	case bool:
		return feastsdk.BoolVal(val)
	case []byte:
		return feastsdk.BytesVal(val)
	default:
		return feastsdk.StrVal(fmt.Sprintf("%v", val))
	}
}

// fromValue 把 Feast 的 protobuf Value 还原为 Go 原生值。
// 数值统一还原为 float64，与 JSON 画像解码保持一致；缺失值返回 nil。
func fromValue(v *feasttypes.Value) any {
	if v == nil {
		return nil
	}
	switch val := v.Val.(type) {
	case *feasttypes.Value_StringVal:
		return val.StringVal
	case *feasttypes.Value_Int32Val:
		return float64(val.Int32Val)
	case *feasttypes.Value_Int64Val:
		return float64(val.Int64Val)
	case *feasttypes.Value_FloatVal:
		return float64(val.FloatVal)
	case *feasttypes.Value_DoubleVal:
		return val.DoubleVal
	case *feasttypes.Value_BoolVal:
		return val.BoolVal
	case *feasttypes.Value_BytesVal:
		return string(val.BytesVal)
	default:
		return nil
	}
}
