// 包 source：输入适配层，读取 GeoJSON 快照（本地、压缩、S3）并转换为 feature.Collection
package source

import (
	"fmt"
	"sort"

	"geo-compare/internal/feature"
	"geo-compare/internal/geom"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// WrapFunc：几何引擎包装函数（geom.Wrap 或 geosgeom.Wrap）
type WrapFunc func(orb.Geometry) (feature.Geometry, error)

// 文档注释：GeoJSON 要素集合转换为快照
// 背景：属性原样保留；Fields 为属性键并集，按要素出现顺序、要素内按键名排序；Kind 为检测维度。
// 约束：标识不在此处提取，由驱动按 ID 字段赋值；几何包装失败时回退到 orb 实现并交由有效性判定。
func FromFeatureCollection(name string, fc *geojson.FeatureCollection, wrap WrapFunc) *feature.Collection {
	if wrap == nil {
		wrap = geom.Wrap
	}
	col := &feature.Collection{Name: name, Records: make([]feature.Record, 0, len(fc.Features))}
	seen := make(map[string]bool)
	for _, f := range fc.Features {
		keys := make([]string, 0, len(f.Properties))
		for k := range f.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				col.Fields = append(col.Fields, k)
			}
		}
		rec := feature.Record{Attributes: map[string]any(f.Properties)}
		if f.Geometry != nil {
			g, err := wrap(f.Geometry)
			if err != nil {
				g = geom.New(f.Geometry)
			}
			rec.Geometry = g
		}
		col.Records = append(col.Records, rec)
	}
	col.Kind = feature.DetectKind(col.Records)
	return col
}

// ToFeature：记录转 GeoJSON 要素（属性透传）
func ToFeature(r feature.Record) *geojson.Feature {
	var g orb.Geometry
	if r.Geometry != nil {
		g = r.Geometry.Orb()
	}
	f := &geojson.Feature{Type: "Feature", Geometry: g, Properties: geojson.Properties{}}
	for k, v := range r.Attributes {
		f.Properties[k] = v
	}
	return f
}

// MarshalRecord：记录编码为 GeoJSON 要素字节
func MarshalRecord(r feature.Record) ([]byte, error) {
	if r.Geometry == nil || r.Geometry.IsNull() {
		return nil, fmt.Errorf("marshal record %v: null geometry", r.ID)
	}
	return ToFeature(r).MarshalJSON()
}
