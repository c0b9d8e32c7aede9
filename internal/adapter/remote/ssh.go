package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/wavelens/gradient/internal/model"
	"github.com/wavelens/gradient/internal/pkg/crypto"
	"github.com/wavelens/gradient/pkg/responses"
)

const (
	dialTimeout = 10 * time.Second
)

// shellQuote wraps s in single quotes so the remote shell treats it as a
// literal argument. Derivation paths come from evaluator output, not from
// a trusted allowlist.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

type sshExecutor struct{}

// NewSSHExecutor returns an Executor that runs builds over SSH using the
// organization's ed25519 key.
func NewSSHExecutor() Executor {
	return &sshExecutor{}
}

func (e *sshExecutor) connect(ctx context.Context, server *model.Server, privateKey string) (*ssh.Client, error) {
	signer, err := crypto.SignerFromPrivateKey(privateKey)
	if err != nil {
		return nil, responses.Wrap(responses.CodeCryptoError, "load ssh key", err)
	}

	config := &ssh.ClientConfig{
		User:            server.SSHUsername,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         dialTimeout,
	}

	addr := net.JoinHostPort(server.Host, fmt.Sprintf("%d", server.Port))

	conn, err := (&net.Dialer{Timeout: dialTimeout}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, responses.Wrap(responses.CodeDispatchError, "dial build server", err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, responses.Wrap(responses.CodeDispatchError, "ssh handshake", err)
	}

	return ssh.NewClient(sshConn, chans, reqs), nil
}

func (e *sshExecutor) Execute(ctx context.Context, server *model.Server, privateKey, derivation string, logs io.Writer) (string, error) {
	client, err := e.connect(ctx, server, privateKey)
	if err != nil {
		return "", err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", responses.Wrap(responses.CodeDispatchError, "open ssh session", err)
	}
	defer session.Close()

	session.Stdout = logs
	session.Stderr = logs

	// Cancel the remote command when the build is aborted.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			session.Signal(ssh.SIGTERM)
			client.Close()
		case <-done:
		}
	}()

	cmd := fmt.Sprintf("nix-store --realise %s", shellQuote(derivation))
	if err := session.Run(cmd); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", responses.Wrap(responses.CodeDispatchError, "build failed", err)
	}

	hash, err := e.queryOutputHash(client, derivation)
	if err != nil {
		return "", err
	}
	return hash, nil
}

func (e *sshExecutor) queryOutputHash(client *ssh.Client, derivation string) (string, error) {
	session, err := client.NewSession()
	if err != nil {
		return "", responses.Wrap(responses.CodeDispatchError, "open ssh session", err)
	}
	defer session.Close()

	var out bytes.Buffer
	session.Stdout = &out

	cmd := fmt.Sprintf("nix-store --query --hash %s", shellQuote(derivation))
	if err := session.Run(cmd); err != nil {
		return "", responses.Wrap(responses.CodeDispatchError, "query output hash", err)
	}
	return strings.TrimSpace(out.String()), nil
}

func (e *sshExecutor) Check(ctx context.Context, server *model.Server, privateKey string) error {
	client, err := e.connect(ctx, server, privateKey)
	if err != nil {
		return err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return responses.Wrap(responses.CodeDispatchError, "open ssh session", err)
	}
	defer session.Close()

	if err := session.Run("true"); err != nil {
		return responses.Wrap(responses.CodeDispatchError, "run probe command", err)
	}
	return nil
}
