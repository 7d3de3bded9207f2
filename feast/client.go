// Package feast 对接 Feast Feature Store：
// 商品的内容特征（embedding、热度统计等）由离线管道物化到 Feast 在线存储，
// 本包把它们实时取回并补进商品目录。
package feast

import (
	"context"
)

// Client 是 Feast 在线特征服务的客户端接口。
type Client interface {
	// GetOnlineFeatures 获取在线特征（用于实时推荐）
	GetOnlineFeatures(ctx context.Context, req *GetOnlineFeaturesRequest) (*GetOnlineFeaturesResponse, error)

	// Close 关闭客户端连接
	Close() error
}

// GetOnlineFeaturesRequest 获取在线特征请求。
type GetOnlineFeaturesRequest struct {
	// Features 特征名称列表，例如 ["product_stats:ctr", "product_stats:sale_count"]
	Features []string

	// EntityRows 实体行，例如 [{"product_id": "p-1001"}]
	EntityRows []map[string]any

	// Project 项目名称，空时用客户端默认值
	Project string
}

// FeatureVector 是单个实体的特征向量。
type FeatureVector struct {
	Values    map[string]any
	EntityRow map[string]any
}

// GetOnlineFeaturesResponse 获取在线特征响应。
type GetOnlineFeaturesResponse struct {
	FeatureVectors []FeatureVector
}
