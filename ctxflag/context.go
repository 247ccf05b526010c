// Package ctxflag carries per-invocation flags through a context.
package ctxflag

import "context"

type ctxIndex int

const (
	ctxIndexVerbose ctxIndex = iota
	ctxIndexDevice
)

// IsVerbose reports whether backends should dump the frames they exchange.
func IsVerbose(ctx context.Context) bool {
	val, _ := ctx.Value(ctxIndexVerbose).(bool)
	return val
}

func SetVerbose(ctx context.Context, value bool) context.Context {
	return context.WithValue(ctx, ctxIndexVerbose, value)
}

// Device returns the index of the USB bridge selected for this call and
// whether one was selected at all.
func Device(ctx context.Context) (int, bool) {
	val, ok := ctx.Value(ctxIndexDevice).(int)
	return val, ok
}

func SetDevice(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, ctxIndexDevice, index)
}
