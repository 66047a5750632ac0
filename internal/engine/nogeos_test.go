//go:build !geos

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapForGEOSWithoutTag(t *testing.T) {
	wrap, err := WrapFor("geos")
	assert.ErrorIs(t, err, ErrNoGEOS)
	assert.Nil(t, wrap)
}
