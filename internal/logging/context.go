package logging

import "context"

type opKey struct{}

// WithOperation tags ctx with an operation name that loggers attach as "op".
func WithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, opKey{}, op)
}

// Operation returns the operation name stored in ctx, if any.
func Operation(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	op, ok := ctx.Value(opKey{}).(string)
	return op, ok && op != ""
}

func withOp(ctx context.Context, args []any) []any {
	if op, ok := Operation(ctx); ok {
		return append([]any{"op", op}, args...)
	}
	return args
}
