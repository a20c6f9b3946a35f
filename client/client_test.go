package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rushteam/churnkit/core"
)

func TestClient_Predict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/predict" {
			t.Errorf("request = %s %s, want POST /predict", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		var fields map[string]any
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if fields["gender"] != "female" {
			t.Errorf("gender = %v, want female", fields["gender"])
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"churn_probability":0.73,"churn":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	pred, err := c.Predict(context.Background(), map[string]any{"gender": "female"})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if pred.Probability != 0.73 {
		t.Errorf("Probability = %v, want 0.73", pred.Probability)
	}
	if !pred.Churn {
		t.Error("Churn = false, want true")
	}
}

func TestClient_Predict_ValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":{"module":"schema","code":"VALIDATION","message":"request validation failed","fields":[{"field":"tenure","message":"field required"}]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Predict(context.Background(), map[string]any{})
	if !core.IsValidation(err) {
		t.Fatalf("Predict() error = %v, want validation error", err)
	}
	de := core.GetDomainError(err)
	if de.Module != "schema" {
		t.Errorf("Module = %q, want schema", de.Module)
	}
	if len(de.Fields) != 1 || de.Fields[0].Field != "tenure" {
		t.Errorf("Fields = %v, want [tenure]", de.Fields)
	}
}

func TestClient_Predict_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // 立刻关掉，端口拒绝连接

	c := NewClient(srv.URL)
	_, err := c.Predict(context.Background(), map[string]any{"gender": "female"})
	if !core.IsUpstreamUnavailable(err) {
		t.Errorf("Predict() error = %v, want upstream unavailable", err)
	}
}

func TestClient_Predict_ErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Predict(context.Background(), map[string]any{"gender": "female"})
	if !core.IsUpstreamUnavailable(err) {
		t.Errorf("Predict() error = %v, want upstream unavailable", err)
	}
}

func TestClient_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ping" {
			t.Errorf("path = %s, want /ping", r.URL.Path)
		}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	if err := NewClient(srv.URL).Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestClient_PredictBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict/batch" {
			t.Errorf("path = %s, want /predict/batch", r.URL.Path)
		}
		var req struct {
			Customers []map[string]any `json:"customers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Customers) != 2 {
			t.Errorf("len(customers) = %d, want 2", len(req.Customers))
		}
		w.Write([]byte(`{"predictions":[{"churn_probability":0.8,"churn":true},{"churn_probability":0.1,"churn":false}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	preds, err := c.PredictBatch(context.Background(), []map[string]any{
		{"gender": "female"},
		{"gender": "male"},
	})
	if err != nil {
		t.Fatalf("PredictBatch() error = %v", err)
	}
	if len(preds) != 2 {
		t.Fatalf("len(predictions) = %d, want 2", len(preds))
	}
	if preds[0].Probability != 0.8 || preds[1].Probability != 0.1 {
		t.Errorf("predictions = %v, %v, want 0.8, 0.1", preds[0].Probability, preds[1].Probability)
	}
}

func TestClient_Model(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"model_id":"m-1","created_at":"2026-07-14T08:21:43Z","label_column":"churn","feature_count":45,"scorer":"churn-lr"}`))
	}))
	defer srv.Close()

	info, err := NewClient(srv.URL).Model(context.Background())
	if err != nil {
		t.Fatalf("Model() error = %v", err)
	}
	if info.ModelID != "m-1" {
		t.Errorf("ModelID = %q, want m-1", info.ModelID)
	}
	if info.FeatureCount != 45 {
		t.Errorf("FeatureCount = %d, want 45", info.FeatureCount)
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("")
	if c.Endpoint != DefaultEndpoint {
		t.Errorf("Endpoint = %q, want %q", c.Endpoint, DefaultEndpoint)
	}
	c = NewClient("http://scoring.internal:9696/")
	if c.Endpoint != "http://scoring.internal:9696" {
		t.Errorf("Endpoint = %q, trailing slash should be trimmed", c.Endpoint)
	}
}
