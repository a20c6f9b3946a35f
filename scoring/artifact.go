package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/feature"
	"github.com/rushteam/churnkit/model"
)

// FormatVersion 是当前工件格式版本。加载时严格校验，
// 版本不符立即报错，绝不按旧格式静默误读。
const FormatVersion = 1

// Artifact 是模型工件的 JSON 结构：词表列序、系数与身份信息，单文件。
type Artifact struct {
	FormatVersion  int       `json:"format_version"`
	ModelID        string    `json:"model_id"`
	CreatedAt      time.Time `json:"created_at"`
	LabelColumn    string    `json:"label_column"`
	FeatureColumns []string  `json:"feature_columns"`
	FeatureCount   int       `json:"feature_count"`
	Coef           []float64 `json:"coef"`
	Intercept      float64   `json:"intercept"`
}

// Artifact 导出流水线的工件快照（用于持久化与 /model 元数据接口）。
func (p *Pipeline) Artifact() *Artifact {
	columns := p.vocab.Columns()
	coef := make([]float64, len(p.model.Coef))
	copy(coef, p.model.Coef)
	return &Artifact{
		FormatVersion:  FormatVersion,
		ModelID:        p.meta.ModelID,
		CreatedAt:      p.meta.CreatedAt,
		LabelColumn:    p.meta.LabelColumn,
		FeatureColumns: columns,
		FeatureCount:   len(columns),
		Coef:           coef,
		Intercept:      p.model.Intercept,
	}
}

// Save 把流水线序列化为 JSON 工件文件。
func Save(p *Pipeline, path string) error {
	data, err := json.MarshalIndent(p.Artifact(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

// FromArtifact 校验工件并装配流水线。
// 任何不一致（版本、列数、系数数）都返回 ARTIFACT_LOAD 错误。
func FromArtifact(a *Artifact) (*Pipeline, error) {
	if a.FormatVersion != FormatVersion {
		return nil, artifactError("unsupported artifact format version %d (want %d)", a.FormatVersion, FormatVersion)
	}
	if a.ModelID == "" {
		return nil, artifactError("artifact has no model_id")
	}
	if len(a.FeatureColumns) == 0 {
		return nil, artifactError("artifact has no feature columns")
	}
	if a.FeatureCount != len(a.FeatureColumns) {
		return nil, artifactError("feature_count %d does not match %d feature columns", a.FeatureCount, len(a.FeatureColumns))
	}
	if len(a.Coef) != len(a.FeatureColumns) {
		return nil, artifactError("%d coefficients do not match %d feature columns", len(a.Coef), len(a.FeatureColumns))
	}

	vocab, err := feature.NewVocabulary(a.FeatureColumns)
	if err != nil {
		return nil, artifactError("invalid feature columns: %v", err)
	}
	coef := make([]float64, len(a.Coef))
	copy(coef, a.Coef)
	p, err := NewPipeline(vocab, model.NewLinearModel(coef, a.Intercept), Metadata{
		ModelID:     a.ModelID,
		CreatedAt:   a.CreatedAt,
		LabelColumn: a.LabelColumn,
	})
	if err != nil {
		return nil, artifactError("assemble pipeline: %v", err)
	}
	return p, nil
}

// Load 从本地文件加载工件并装配流水线。
// 工件缺失或损坏属启动期致命错误，调用方不得继续提供服务。
func Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, artifactError("read artifact: %v", err)
	}
	return decode(data)
}

// LoadHTTP 从 HTTP(S) 地址加载工件（模型仓库/对象存储场景）。
// timeout 为 0 时默认 10s。
func LoadHTTP(ctx context.Context, url string, timeout time.Duration) (*Pipeline, error) {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, artifactError("build artifact request: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, artifactError("fetch artifact: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, artifactError("fetch artifact: status=%d, body=%s", resp.StatusCode, string(body))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, artifactError("read artifact response: %v", err)
	}
	return decode(data)
}

// LoadRef 按引用形态分发：http(s):// 走远程加载，其余按本地路径处理。
func LoadRef(ctx context.Context, ref string, timeout time.Duration) (*Pipeline, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return LoadHTTP(ctx, ref, timeout)
	}
	return Load(ref)
}

func decode(data []byte) (*Pipeline, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, artifactError("parse artifact: %v", err)
	}
	return FromArtifact(&a)
}

func artifactError(format string, args ...any) *core.DomainError {
	return &core.DomainError{
		Module:  core.ModuleScoring,
		Code:    core.ErrorCodeArtifactLoad,
		Message: fmt.Sprintf(format, args...),
	}
}
