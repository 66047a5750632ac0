//go:build geos

package engine

import (
	"geo-compare/internal/geom/geosgeom"
	"geo-compare/internal/source"
)

func geosWrap() (source.WrapFunc, error) {
	return geosgeom.Wrap, nil
}
