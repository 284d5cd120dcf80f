// Package remote is the harness's only way onto cluster hosts. It shells out
// to the local ssh and scp binaries, mirroring the transport the surrounding
// shell tooling uses, and layers pid capture, process tree discovery, and
// guarded cleanup on top of the raw command round trips.
package remote

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/gaoyaxin/kafka/internal/common/harnesserrors"
)

// Result carries what a finished remote command produced.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Gateway runs commands and moves files on cluster hosts. Run is a blocking
// round trip; RunDetached returns as soon as the remote shell does, leaving
// the launched process running.
type Gateway interface {
	Run(ctx context.Context, host, command string) (Result, error)
	RunDetached(ctx context.Context, host, command string) error
	Copy(ctx context.Context, localPath, host, remotePath string) error
	Fetch(ctx context.Context, host, remotePath, localPath string) error
}

type Option func(*SSHGateway)

// SSHGateway reaches hosts through ssh and scp subprocesses.
type SSHGateway struct {
	sshBinary string
	scpBinary string
	sshArgs   []string
	user      string
	log       *log.Entry
}

func NewSSHGateway(opts ...Option) *SSHGateway {
	gw := &SSHGateway{
		sshBinary: "ssh",
		scpBinary: "scp",
		sshArgs:   []string{"-o", "BatchMode=yes", "-o", "StrictHostKeyChecking=no"},
		log:       log.WithField("service", "SSHGateway"),
	}
	for _, opt := range opts {
		opt(gw)
	}
	return gw
}

// WithUser sets the login user for every host.
func WithUser(user string) Option {
	return func(gw *SSHGateway) {
		gw.user = user
	}
}

// WithSSHArgs replaces the default ssh/scp options.
func WithSSHArgs(args ...string) Option {
	return func(gw *SSHGateway) {
		gw.sshArgs = args
	}
}

// WithBinaries overrides the ssh and scp binaries, e.g. to interpose a
// wrapper script.
func WithBinaries(sshBinary, scpBinary string) Option {
	return func(gw *SSHGateway) {
		gw.sshBinary = sshBinary
		gw.scpBinary = scpBinary
	}
}

// WithLogger overrides the gateway's logger.
func WithLogger(entry *log.Entry) Option {
	return func(gw *SSHGateway) {
		gw.log = entry
	}
}

func (gw *SSHGateway) target(host string) string {
	if gw.user != "" {
		return gw.user + "@" + host
	}
	return host
}

func (gw *SSHGateway) Run(ctx context.Context, host, command string) (Result, error) {
	args := append(append([]string{}, gw.sshArgs...), gw.target(host), command)
	cmd := exec.CommandContext(ctx, gw.sshBinary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	gw.log.WithField("host", host).Debugf("run: %s", command)
	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, errors.WithStack(&harnesserrors.ErrRemoteCommand{
				Host:     host,
				Command:  command,
				ExitCode: res.ExitCode,
				Stderr:   strings.TrimSpace(res.Stderr),
			})
		}
		return res, errors.Wrapf(err, "error invoking %s for host %s", gw.sshBinary, host)
	}
	return res, nil
}

func (gw *SSHGateway) RunDetached(ctx context.Context, host, command string) error {
	gw.log.WithField("host", host).Debugf("run detached: %s", command)
	_, err := gw.Run(ctx, host, command)
	return err
}

func (gw *SSHGateway) Copy(ctx context.Context, localPath, host, remotePath string) error {
	gw.log.WithField("host", host).Debugf("copy %s -> %s", localPath, remotePath)
	return gw.scp(ctx, host, localPath, gw.target(host)+":"+remotePath)
}

func (gw *SSHGateway) Fetch(ctx context.Context, host, remotePath, localPath string) error {
	gw.log.WithField("host", host).Debugf("fetch %s -> %s", remotePath, localPath)
	return gw.scp(ctx, host, gw.target(host)+":"+remotePath, localPath)
}

func (gw *SSHGateway) scp(ctx context.Context, host, src, dst string) error {
	args := append(append([]string{"-r"}, gw.sshArgs...), src, dst)
	cmd := exec.CommandContext(ctx, gw.scpBinary, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return errors.WithStack(&harnesserrors.ErrRemoteCommand{
				Host:     host,
				Command:  gw.scpBinary + " " + src + " " + dst,
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
			})
		}
		return errors.Wrapf(err, "error invoking %s for host %s", gw.scpBinary, host)
	}
	return nil
}
