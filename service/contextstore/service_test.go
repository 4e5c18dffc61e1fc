package contextstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	values, err := s.Get(ctx, "")
	assert.NoError(t, err)
	assert.Empty(t, values)

	values, err = s.Get(ctx, "missing")
	assert.NoError(t, err)
	assert.Empty(t, values)

	assert.Error(t, s.Set(ctx, "", map[string]interface{}{"a": 1}))
	input := map[string]interface{}{"summary": "short"}
	assert.NoError(t, s.Set(ctx, "c1", input))
	input["summary"] = "mutated"

	values, err = s.Get(ctx, "c1")
	assert.NoError(t, err)
	assert.Equal(t, "short", values["summary"])
	values["summary"] = "local"

	again, _ := s.Get(ctx, "c1")
	assert.Equal(t, "short", again["summary"])
}
