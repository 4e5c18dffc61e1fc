package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	a, b := New(), New()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestStub(t *testing.T) {
	restore := Stub("r1", "r2")
	assert.Equal(t, "r1", New())
	assert.Equal(t, "r2", New())
	assert.Equal(t, "r2", New())
	restore()
	assert.NotEqual(t, "r2", New())
}
