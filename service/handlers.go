package service

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pkg/conv"
	"github.com/rushteam/churnkit/pkg/metrics"
	"github.com/rushteam/churnkit/schema"
)

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// scored 是一次评分的完整结果，供响应与旁路记录共用。
type scored struct {
	customerID string
	fields     map[string]any
	pred       *core.Prediction
	tier       string
}

// score 完成 校验 → 评分 → 分层。返回的 error 恒为 *core.DomainError。
func (s *Server) score(ctx context.Context, record map[string]any) (*scored, error) {
	fields, err := schema.Customer().Validate(record)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	pred, err := s.pipe.Predict(ctx, fields)
	if err != nil {
		return nil, err
	}
	metrics.PredictionDuration.Observe(time.Since(start).Seconds())

	out := &scored{fields: fields, pred: pred}

	// customerid 不是特征，但保留用于事件归因
	if raw, ok := schema.NormalizeRecord(record)["customerid"]; ok {
		out.customerID, _ = conv.ToString(raw)
	}

	if s.engine != nil {
		c := core.NewCustomer(out.customerID)
		c.Fields = fields
		c.Probability = pred.Probability
		c.Churn = pred.Churn
		out.tier, _ = s.engine.TierFor(c, nil)
	} else {
		out.tier = s.ladder.TierFor(pred.Probability)
	}
	return out, nil
}

// record 上报预测事件并追加审计日志，失败只记日志不影响响应。
func (s *Server) record(ctx context.Context, sr *scored) {
	now := time.Now()
	requestID := RequestIDFrom(ctx)
	modelID := s.pipe.Metadata().ModelID

	_ = s.collector.RecordPrediction(ctx, &core.PredictionEvent{
		RequestID:   requestID,
		CustomerID:  sr.customerID,
		Source:      "http",
		Probability: sr.pred.Probability,
		Churn:       sr.pred.Churn,
		Tier:        sr.tier,
		ModelID:     modelID,
		Timestamp:   now,
	})

	if s.history != nil {
		err := s.history.Append(ctx, &core.PredictionRecord{
			RequestID:   requestID,
			CustomerID:  sr.customerID,
			Probability: sr.pred.Probability,
			Churn:       sr.pred.Churn,
			Tier:        sr.tier,
			ModelID:     modelID,
			Source:      "http",
			CreatedAt:   now,
		})
		if err != nil {
			s.logger.Warn("append prediction history", "error", err)
		}
	}

	metrics.PredictionsTotal.WithLabelValues("http", strconv.FormatBool(sr.pred.Churn)).Inc()
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var record map[string]any
	if err := decodeJSON(r, &record); err != nil {
		writeError(w, err)
		return
	}

	sr, err := s.score(r.Context(), record)
	if err != nil {
		metrics.PredictionErrors.WithLabelValues(errorCode(err)).Inc()
		writeError(w, err)
		return
	}

	s.record(r.Context(), sr)
	writeJSON(w, http.StatusOK, sr.pred)
}

// batchRequest 是 /predict/batch 的请求体。
type batchRequest struct {
	Customers []map[string]any `json:"customers"`
}

// batchResponse 是 /predict/batch 的响应体，predictions 与 customers 按序对齐。
type batchResponse struct {
	Predictions []*core.Prediction `json:"predictions"`
}

func (s *Server) handlePredictBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Customers) == 0 {
		writeError(w, core.NewValidationError(core.ModuleService,
			"customers is required", nil))
		return
	}

	// 先整批校验：任一客户的任一字段非法，整批拒绝并给出带下标的明细
	var fieldErrs []core.FieldError
	for i, record := range req.Customers {
		if _, err := schema.Customer().Validate(record); err != nil {
			de := core.GetDomainError(err)
			if de == nil {
				writeError(w, err)
				return
			}
			if len(de.Fields) == 0 {
				fieldErrs = append(fieldErrs, core.FieldError{
					Field:   fmt.Sprintf("customers[%d]", i),
					Message: de.Message,
				})
			}
			for _, fe := range de.Fields {
				fieldErrs = append(fieldErrs, core.FieldError{
					Field:   fmt.Sprintf("customers[%d].%s", i, fe.Field),
					Message: fe.Message,
				})
			}
		}
	}
	if len(fieldErrs) > 0 {
		metrics.PredictionErrors.WithLabelValues(core.ErrorCodeValidation).Inc()
		writeError(w, core.NewValidationError(core.ModuleService,
			"batch validation failed", fieldErrs))
		return
	}

	resp := batchResponse{Predictions: make([]*core.Prediction, 0, len(req.Customers))}
	for _, record := range req.Customers {
		sr, err := s.score(r.Context(), record)
		if err != nil {
			metrics.PredictionErrors.WithLabelValues(errorCode(err)).Inc()
			writeError(w, err)
			return
		}
		s.record(r.Context(), sr)
		resp.Predictions = append(resp.Predictions, sr.pred)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleModel(w http.ResponseWriter, _ *http.Request) {
	meta := s.pipe.Metadata()
	writeJSON(w, http.StatusOK, map[string]any{
		"model_id":      meta.ModelID,
		"created_at":    meta.CreatedAt.UTC().Format(time.RFC3339),
		"label_column":  meta.LabelColumn,
		"feature_count": s.pipe.Vocabulary().Size(),
		"scorer":        s.pipe.Name(),
	})
}
