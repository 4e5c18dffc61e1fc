package fs

import (
	"context"
	"testing"

	"github.com/juicer-platform/cortex/service/contextstore"
	"github.com/juicer-platform/cortex/service/dao"
	"github.com/stretchr/testify/assert"
	"github.com/viant/afs"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	srv, err := New(ctx, afs.New(), "mem://localhost/cortex/contexts")
	if !assert.NoError(t, err) {
		return
	}
	_, err = srv.Load(ctx, "c1")
	assert.ErrorIs(t, err, dao.ErrNotFound)

	assert.NoError(t, srv.Save(ctx, &contextstore.Record{ID: "c1", Values: map[string]interface{}{"summary": "text"}}))
	record, err := srv.Load(ctx, "c1")
	assert.NoError(t, err)
	assert.Equal(t, "text", record.Values["summary"])

	list, err := srv.List(ctx)
	assert.NoError(t, err)
	assert.Len(t, list, 1)

	store := contextstore.New(srv)
	values, err := store.Get(ctx, "c1")
	assert.NoError(t, err)
	assert.Equal(t, "text", values["summary"])

	assert.NoError(t, srv.Delete(ctx, "c1"))
	assert.ErrorIs(t, srv.Delete(ctx, "c1"), dao.ErrNotFound)
	assert.ErrorIs(t, srv.Save(ctx, &contextstore.Record{}), dao.ErrInvalidID)
}
