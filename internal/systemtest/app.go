// Package systemtest orchestrates distributed validation runs against a
// messaging cluster: it materializes per-testcase configuration, starts and
// stops the remote processes, runs the clients, and validates what the
// cluster actually did.
package systemtest

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"

	"github.com/gaoyaxin/kafka/internal/common/harnesserrors"
	"github.com/gaoyaxin/kafka/internal/systemtest/build"
	"github.com/gaoyaxin/kafka/internal/systemtest/cluster"
	"github.com/gaoyaxin/kafka/internal/systemtest/remote"
	"github.com/gaoyaxin/kafka/internal/systemtest/testcase"
)

type App struct {
	// Parameters passed to the CLI by the user.
	Params *Params
	// Out is used to write the output. Defaults to standard out,
	// but can be overridden in tests to make assertions on the application's output.
	Out io.Writer
	// Gateway overrides the default SSH gateway. Tests use a scripted fake.
	Gateway remote.Gateway
}

// Params struct holds all user-customizable parameters.
// Using a single struct for all CLI commands ensures that all flags are distinct
// and that they can be provided either dynamically on a command line, or
// statically in a config file that's reused between command runs.
type Params struct {
	// ClusterFile is the topology document naming every entity.
	ClusterFile string
	// TemplateDir holds the role config templates.
	TemplateDir string
	// WorkDir is where each testcase lays out its config, logs, and report.
	WorkDir string
	// SSHUser is the login user on cluster hosts; empty means the current user.
	SSHUser string
	// SettleCeiling bounds how long a started entity may take to register
	// its pid.
	SettleCeiling time.Duration
	// GracePeriod separates the term and kill phases when stopping.
	GracePeriod time.Duration
	// CleanupPrefix is the only remote path prefix data cleanup may touch.
	CleanupPrefix string
}

// New instantiates an App with default parameters and standard output.
func New() *App {
	return &App{
		Params: &Params{
			SettleCeiling: 5 * time.Second,
			GracePeriod:   time.Second,
			CleanupPrefix: "/tmp",
		},
		Out: os.Stdout,
	}
}

func (a *App) validateParams() error {
	for name, value := range map[string]string{
		"clusterFile": a.Params.ClusterFile,
		"templateDir": a.Params.TemplateDir,
		"workDir":     a.Params.WorkDir,
	} {
		if value == "" {
			return errors.WithStack(&harnesserrors.ErrInvalidArgument{
				Name:    name,
				Value:   value,
				Message: "not provided",
			})
		}
	}
	return nil
}

// Version prints build information (e.g., current git commit) to the app output.
func (a *App) Version() error {
	w := tabwriter.NewWriter(a.Out, 1, 1, 1, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "Version:\t%s\n", build.ReleaseVersion)
	fmt.Fprintf(w, "Commit:\t%s\n", build.GitCommit)
	fmt.Fprintf(w, "Go version:\t%s\n", build.GoVersion)
	fmt.Fprintf(w, "Built:\t%s\n", build.BuildTime)
	return nil
}

func (a *App) gateway() remote.Gateway {
	if a.Gateway != nil {
		return a.Gateway
	}
	var opts []remote.Option
	if a.Params.SSHUser != "" {
		opts = append(opts, remote.WithUser(a.Params.SSHUser))
	}
	return remote.NewSSHGateway(opts...)
}

// TestFile runs one testcase definition against the configured cluster.
func (a *App) TestFile(ctx context.Context, path string) error {
	if err := a.validateParams(); err != nil {
		return err
	}
	c, err := cluster.Load(a.Params.ClusterFile)
	if err != nil {
		return err
	}
	spec, err := testcase.LoadSpec(path)
	if err != nil {
		return err
	}
	runner, err := NewTestcaseRunner(a.Params, a.gateway(), c, spec)
	if err != nil {
		return err
	}
	runner.Out = a.Out
	return runner.Run(ctx)
}
