// 包 engine：按名称选择几何引擎（orb 纯 Go 实现或 GEOS 实现）
package engine

import (
	"fmt"
	"strings"

	"geo-compare/internal/geom"
	"geo-compare/internal/source"
)

// WrapFor：返回对应引擎的几何包装函数
// 约束：geos 仅在以 -tags geos 构建时可用，默认构建不依赖 cgo
func WrapFor(name string) (source.WrapFunc, error) {
	switch strings.ToLower(name) {
	case "", "orb":
		return geom.Wrap, nil
	case "geos":
		return geosWrap()
	}
	return nil, fmt.Errorf("unknown geometry engine %q", name)
}
