package telemetry

import (
	"context"

	"github.com/gaoyaxin/kafka/internal/systemtest/remote"
)

// instrumentedGateway counts gateway operations without changing their
// behavior.
type instrumentedGateway struct {
	inner remote.Gateway
	t     *Telemetry
}

// InstrumentGateway wraps gw so every operation and failure is counted.
func (t *Telemetry) InstrumentGateway(gw remote.Gateway) remote.Gateway {
	return &instrumentedGateway{inner: gw, t: t}
}

func (g *instrumentedGateway) Run(ctx context.Context, host, command string) (remote.Result, error) {
	res, err := g.inner.Run(ctx, host, command)
	g.t.recordRemote("run", err)
	return res, err
}

func (g *instrumentedGateway) RunDetached(ctx context.Context, host, command string) error {
	err := g.inner.RunDetached(ctx, host, command)
	g.t.recordRemote("detached", err)
	return err
}

func (g *instrumentedGateway) Copy(ctx context.Context, localPath, host, remotePath string) error {
	err := g.inner.Copy(ctx, localPath, host, remotePath)
	g.t.recordRemote("copy", err)
	return err
}

func (g *instrumentedGateway) Fetch(ctx context.Context, host, remotePath, localPath string) error {
	err := g.inner.Fetch(ctx, host, remotePath, localPath)
	g.t.recordRemote("fetch", err)
	return err
}
