package core

import "github.com/rushteam/shoprec/pkg/utils"

// Item 是推荐链路中的统一承载结构：候选商品 + 各阶段得分 + 标签。
// ContentScore 来自召回，CollabScore 来自协同重排，Score 为融合后的最终分。
// Labels 用于解释与策略驱动。
type Item struct {
	ID string

	// ContentScore 偏好向量与商品向量的余弦相似度，召回阶段写入。
	ContentScore float64

	// CollabScore 基于用户自身行为史的协同信号，重排阶段写入。
	CollabScore float64

	// Score 最终排序分（融合 ContentScore 与 CollabScore）。
	Score float64

	Meta   map[string]any
	Labels map[string]utils.Label
}

func NewItem(id string) *Item {
	return &Item{
		ID:     id,
		Meta:   make(map[string]any),
		Labels: make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// GetLabel 获取 Label。
func (it *Item) GetLabel(key string) (utils.Label, bool) {
	if it.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := it.Labels[key]
	return lbl, ok
}

// Brand 返回候选商品的品牌（召回阶段写入 meta，供多样性重排使用）。
func (it *Item) Brand() string {
	if it.Meta == nil {
		return ""
	}
	if b, ok := it.Meta["brand"].(string); ok {
		return b
	}
	return ""
}
