package core

import "github.com/rushteam/churnkit/pkg/utils"

// BatchContext 承载一次批量评分任务的上下文，贯穿整个 Pipeline 透传。
type BatchContext struct {
	// JobID 是本次任务的唯一标识（UUID），用于日志关联与事件溯源
	JobID string

	// Scene 标记任务场景，如 "batch", "smoke", "backfill"
	Scene string

	// Labels 是任务级标签，可驱动整个 Pipeline 行为
	// 例如：灰度批次、区域分组等
	Labels map[string]utils.Label

	// Params 任务级上下文参数，包含：
	// - 任务参数：dataset, as_of_date, region 等
	// - 运行时开关：dry_run 等
	Params map[string]any
}

// PutLabel 写入任务级 Label。
func (bctx *BatchContext) PutLabel(key string, lbl utils.Label) {
	if bctx.Labels == nil {
		bctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := bctx.Labels[key]; ok {
		bctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	bctx.Labels[key] = lbl
}

// GetLabel 获取任务级 Label。
func (bctx *BatchContext) GetLabel(key string) (utils.Label, bool) {
	if bctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := bctx.Labels[key]
	return lbl, ok
}
