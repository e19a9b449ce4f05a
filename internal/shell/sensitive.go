package shell

import "context"

type sensitiveKey struct{}

// RedactedCommand replaces the command line of a sensitive exec in logs.
const RedactedCommand = "[redacted]"

// Sensitive marks ctx so that commands run with it are never written to
// logs or the command log verbatim.
func Sensitive(ctx context.Context) context.Context {
	return context.WithValue(ctx, sensitiveKey{}, true)
}

// IsSensitive reports whether ctx was marked by Sensitive.
func IsSensitive(ctx context.Context) bool {
	v, _ := ctx.Value(sensitiveKey{}).(bool)
	return v
}
