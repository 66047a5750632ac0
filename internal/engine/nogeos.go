//go:build !geos

package engine

import (
	"errors"

	"geo-compare/internal/source"
)

// ErrNoGEOS：未以 geos 标签构建时选择 GEOS 引擎
var ErrNoGEOS = errors.New("geometry engine \"geos\" requires building with -tags geos")

func geosWrap() (source.WrapFunc, error) {
	return nil, ErrNoGEOS
}
