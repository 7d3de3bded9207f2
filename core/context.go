package core

import "github.com/rushteam/shoprec/pkg/utils"

// RecommendContext 承载一次推荐请求的用户/场景信息，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID string
	Scene  string // 场景标识：home / product_detail / cart 等，供规则过滤使用

	// Profile 是请求开始时加载（或惰性创建）的用户画像。
	Profile *PreferenceProfile

	// Labels 是用户级标签，可驱动整个 Pipeline 行为（新用户、价格敏感等）。
	Labels map[string]utils.Label

	// Params 请求级参数：limit、exclude_interacted、实时上下文等。
	Params map[string]any
}

// PutLabel 写入用户级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取用户级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}

// ParamInt 从 Params 取 int 参数，取不到时返回 defaultVal。
func (rctx *RecommendContext) ParamInt(key string, defaultVal int) int {
	if rctx.Params == nil {
		return defaultVal
	}
	switch v := rctx.Params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return defaultVal
	}
}

// ParamBool 从 Params 取 bool 参数，取不到时返回 defaultVal。
func (rctx *RecommendContext) ParamBool(key string, defaultVal bool) bool {
	if rctx.Params == nil {
		return defaultVal
	}
	if b, ok := rctx.Params[key].(bool); ok {
		return b
	}
	return defaultVal
}
