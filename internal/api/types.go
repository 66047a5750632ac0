package api

import (
	"geo-compare/internal/report"

	"github.com/paulmach/orb/geojson"
)

// 比较请求：参数缺省时使用服务配置
type compareRequest struct {
	GeometryType string                     `json:"geometry_type"`
	IDField      string                     `json:"id_field"`
	RescuePolicy string                     `json:"rescue_policy"`
	Old          *geojson.FeatureCollection `json:"old"`
	New          *geojson.FeatureCollection `json:"new"`
}

type rescuedPair struct {
	OldID any `json:"old_id"`
	NewID any `json:"new_id"`
}

// 比较结果：三个分区为完整要素集合
type compareResponse struct {
	RunID       int64                      `json:"run_id,omitempty"`
	Summary     string                     `json:"summary"`
	Added       *geojson.FeatureCollection `json:"added"`
	Deleted     *geojson.FeatureCollection `json:"deleted"`
	Modified    *geojson.FeatureCollection `json:"modified"`
	Rescued     []rescuedPair              `json:"rescued"`
	Diagnostics report.Diagnostics         `json:"diagnostics"`
}

type errorResponse struct {
	Error string `json:"error"`
}
