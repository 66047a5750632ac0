package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNullJSON(t *testing.T) {
	assert.Nil(t, nullJSON(nil))
	assert.Nil(t, nullJSON([]byte{}))
	assert.Equal(t, `{"a":1}`, nullJSON([]byte(`{"a":1}`)))
}
