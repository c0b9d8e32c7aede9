// Package remote runs builds on registered build servers.
package remote

import (
	"context"
	"io"

	"github.com/wavelens/gradient/internal/model"
)

// Executor runs a single derivation on a build server and streams its
// output. The returned hash identifies the build artifact.
type Executor interface {
	// Execute realises the derivation on the server, writing log output to
	// logs as it is produced. privateKey is the organization's hex-encoded
	// ed25519 seed.
	Execute(ctx context.Context, server *model.Server, privateKey, derivation string, logs io.Writer) (outputHash string, err error)

	// Check verifies the server is reachable and accepts the
	// organization's key.
	Check(ctx context.Context, server *model.Server, privateKey string) error
}
