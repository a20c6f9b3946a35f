package service

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rushteam/churnkit/core"
)

// maxBodySize 是请求体大小上限，超出即拒绝，避免恶意大包拖垮解码。
const maxBodySize = 1 << 20

// errorPayload 是错误响应体中 "error" 字段的结构。
type errorPayload struct {
	Module  string            `json:"module,omitempty"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  []core.FieldError `json:"fields,omitempty"`
}

// decodeJSON 解码请求体到 v，格式错误统一转为 INVALID_INPUT（HTTP 400）。
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		return core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput,
			fmt.Sprintf("malformed json body: %v", err))
	}
	if dec.More() {
		return core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput,
			"unexpected data after json body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError 将领域错误映射为 HTTP 响应。
// 非 DomainError 一律按 500 处理且不透出内部细节。
func writeError(w http.ResponseWriter, err error) {
	de := core.GetDomainError(err)
	if de == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": errorPayload{
				Code:    core.ErrorCodeInternalError,
				Message: "internal error",
			},
		})
		return
	}
	writeJSON(w, httpStatus(de.Code), map[string]any{
		"error": errorPayload{
			Module:  de.Module,
			Code:    de.Code,
			Message: de.Message,
			Fields:  de.Fields,
		},
	})
}

// httpStatus 是错误代码到 HTTP 状态码的映射。
// 校验/编码错误属于调用方问题，用 422 与格式错误的 400 区分开。
func httpStatus(code string) int {
	switch code {
	case core.ErrorCodeValidation, core.ErrorCodeEncoding:
		return http.StatusUnprocessableEntity
	case core.ErrorCodeInvalidInput:
		return http.StatusBadRequest
	case core.ErrorCodeNotFound:
		return http.StatusNotFound
	case core.ErrorCodeUpstreamUnavailable, core.ErrorCodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorCode 提取错误代码用于指标标签，非领域错误归为 INTERNAL_ERROR。
func errorCode(err error) string {
	if de := core.GetDomainError(err); de != nil {
		return de.Code
	}
	return core.ErrorCodeInternalError
}
