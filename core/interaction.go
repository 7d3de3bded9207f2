package core

import "time"

// InteractionType 是用户行为类型。
// 每种类型有固定的基础权重（见 WeightConfig），写入时按上下文调整。
type InteractionType string

const (
	InteractionView           InteractionType = "view"
	InteractionLike           InteractionType = "like"
	InteractionUnlike         InteractionType = "unlike" // 取消喜欢：追加负权重记录，不删除原记录
	InteractionAddToCart      InteractionType = "add_to_cart"
	InteractionRemoveFromCart InteractionType = "remove_from_cart"
	InteractionPurchase       InteractionType = "purchase"
	InteractionRating         InteractionType = "rating"
	InteractionSearchClick    InteractionType = "search_click"
)

// ValidInteractionType 校验行为类型是否合法。
func ValidInteractionType(t InteractionType) bool {
	switch t {
	case InteractionView, InteractionLike, InteractionUnlike,
		InteractionAddToCart, InteractionRemoveFromCart,
		InteractionPurchase, InteractionRating, InteractionSearchClick:
		return true
	default:
		return false
	}
}

// Interaction 是一条不可变的用户行为记录。
// 由 Ledger 独占写入：只追加，不修改，不删除（取消类行为以反向权重记录表达）。
type Interaction struct {
	UserID    string
	ProductID string
	Type      InteractionType

	// Weight 是写入时计算好的调整后权重（保留两位小数）。
	Weight float64

	// Metadata 是自由格式的上下文：duration、rating_value、source、session_id 等。
	Metadata map[string]any

	Timestamp time.Time
}

// Duration 返回 metadata 中的浏览时长（秒），不存在时返回 (0, false)。
func (i *Interaction) Duration() (float64, bool) {
	return metaFloat(i.Metadata, "duration")
}

// RatingValue 返回 metadata 中的评分值，不存在时返回 (0, false)。
func (i *Interaction) RatingValue() (float64, bool) {
	return metaFloat(i.Metadata, "rating_value")
}

// Source 返回 metadata 中的来源标识（例如 "recommendation"）。
func (i *Interaction) Source() string {
	if i.Metadata == nil {
		return ""
	}
	if s, ok := i.Metadata["source"].(string); ok {
		return s
	}
	return ""
}

func metaFloat(m map[string]any, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
