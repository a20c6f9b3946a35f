package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rushteam/churnkit/core"
)

// recordingNode 把自己的名字追加到每个客户的 meta，用于验证执行顺序。
type recordingNode struct {
	name string
	kind Kind
	err  error
}

func (n *recordingNode) Name() string { return n.name }
func (n *recordingNode) Kind() Kind   { return n.kind }

func (n *recordingNode) Process(
	_ context.Context,
	_ *core.BatchContext,
	customers []*core.Customer,
) ([]*core.Customer, error) {
	if n.err != nil {
		return nil, n.err
	}
	for _, c := range customers {
		trace, _ := c.Meta["trace"].(string)
		if trace != "" {
			trace += ","
		}
		c.Meta["trace"] = trace + n.name
	}
	return customers, nil
}

func TestPipeline_Run_Order(t *testing.T) {
	p := &Pipeline{
		Name: "trace",
		Nodes: []Node{
			&recordingNode{name: "a", kind: KindSource},
			&recordingNode{name: "b", kind: KindScore},
			&recordingNode{name: "c", kind: KindSink},
		},
	}

	in := []*core.Customer{core.NewCustomer("7590-vhveg")}
	out, err := p.Run(context.Background(), &core.BatchContext{JobID: "job-1"}, in)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1", len(out))
	}
	if got := out[0].Meta["trace"]; got != "a,b,c" {
		t.Errorf("trace = %v, want a,b,c", got)
	}
}

func TestPipeline_Run_AbortsOnError(t *testing.T) {
	boom := errors.New("store gone")
	sink := &recordingNode{name: "after", kind: KindSink}
	p := &Pipeline{
		Name: "failing",
		Nodes: []Node{
			&recordingNode{name: "first", kind: KindSource},
			&recordingNode{name: "broken", kind: KindFilter, err: boom},
			sink,
		},
	}

	in := []*core.Customer{core.NewCustomer("7590-vhveg")}
	out, err := p.Run(context.Background(), nil, in)
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want %v", err, boom)
	}
	if out != nil {
		t.Errorf("out = %v, want nil on error", out)
	}
	// 失败后中止，后续节点不应执行
	if got := in[0].Meta["trace"]; got != "first" {
		t.Errorf("trace = %v, want first", got)
	}
}

func TestNodeFactory(t *testing.T) {
	factory := NewNodeFactory()
	factory.Register("test.recording", func(cfg map[string]any) (Node, error) {
		name, _ := cfg["name"].(string)
		return &recordingNode{name: name, kind: KindSource}, nil
	})

	node, err := factory.Build("test.recording", map[string]any{"name": "n1"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if node.Name() != "n1" {
		t.Errorf("Name() = %q, want n1", node.Name())
	}

	if _, err := factory.Build("test.unknown", nil); err == nil {
		t.Error("Build(unknown) error = nil, want unknown node type")
	}
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	content := `
pipeline:
  name: nightly
  nodes:
    - type: test.a
      config:
        n: 3
    - type: test.b
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	cfg, err := LoadFromYAML(path)
	if err != nil {
		t.Fatalf("LoadFromYAML() error = %v", err)
	}
	if cfg.Pipeline.Name != "nightly" {
		t.Errorf("Name = %q, want nightly", cfg.Pipeline.Name)
	}
	if len(cfg.Pipeline.Nodes) != 2 {
		t.Fatalf("len(nodes) = %d, want 2", len(cfg.Pipeline.Nodes))
	}
	if cfg.Pipeline.Nodes[0].Type != "test.a" {
		t.Errorf("nodes[0].Type = %q, want test.a", cfg.Pipeline.Nodes[0].Type)
	}

	factory := NewNodeFactory()
	factory.Register("test.a", func(cfg map[string]any) (Node, error) {
		return &recordingNode{name: "a"}, nil
	})
	factory.Register("test.b", func(cfg map[string]any) (Node, error) {
		return &recordingNode{name: "b"}, nil
	})
	p, err := cfg.BuildPipeline(factory)
	if err != nil {
		t.Fatalf("BuildPipeline() error = %v", err)
	}
	if len(p.Nodes) != 2 || p.Name != "nightly" {
		t.Errorf("pipeline = %q with %d nodes, want nightly with 2", p.Name, len(p.Nodes))
	}

	cfg.Pipeline.Nodes = append(cfg.Pipeline.Nodes, NodeConfig{Type: "test.c"})
	if _, err := cfg.BuildPipeline(factory); err == nil ||
		!strings.Contains(err.Error(), "test.c") {
		t.Errorf("BuildPipeline() error = %v, want build node test.c error", err)
	}
}
