package ctxflag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerbose(t *testing.T) {
	ctx := context.Background()
	assert.False(t, IsVerbose(ctx))
	assert.True(t, IsVerbose(SetVerbose(ctx, true)))
	assert.False(t, IsVerbose(SetVerbose(SetVerbose(ctx, true), false)))
}

func TestDevice(t *testing.T) {
	_, ok := Device(context.Background())
	assert.False(t, ok)
	index, ok := Device(SetDevice(context.Background(), 2))
	assert.True(t, ok)
	assert.Equal(t, 2, index)
}
