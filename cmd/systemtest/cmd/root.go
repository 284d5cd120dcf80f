package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-zglob"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/gaoyaxin/kafka/internal/common/harnesserrors"
	"github.com/gaoyaxin/kafka/internal/systemtest"
)

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "systemtest",
		Short: "systemtest runs automated validation suites against a messaging cluster.",
		Long: `systemtest runs automated validation suites against a messaging cluster.

Each testcase renders per-entity configuration, starts the coordination nodes
and brokers over ssh, runs the producer and consumer, and validates leader
election and produced/consumed data from the logs the run leaves behind.`,
	}

	cmd.AddCommand(
		versionCmd(systemtest.New()),
		testCmd(systemtest.New()),
	)

	return cmd
}

// Print version info and exit.
func versionCmd(app *systemtest.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Version()
		},
	}
	return cmd
}

// Run every testcase matching the pattern and print per-testcase outcomes
// plus a summary on exit.
func testCmd(app *systemtest.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test a messaging cluster by running testcases and validating the outcome.",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, app)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern, err := cmd.Flags().GetString("tests")
			if err != nil {
				return err
			}
			testFiles, err := zglob.Glob(pattern)
			if err != nil {
				return errors.WithMessagef(err, "error matching testcase pattern %s", pattern)
			}

			// Create a context that is cancelled on SIGINT/SIGTERM.
			// Ensures started cluster entities are stopped on ctrl-C.
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			stopSignal := make(chan os.Signal, 1)
			signal.Notify(stopSignal, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				select {
				case <-ctx.Done():
					return
				case <-stopSignal:
					cancel()
				}
			}()

			numSuccesses := 0
			numFailures := 0
			start := time.Now()
			for _, testFile := range testFiles {
				testStart := time.Now()
				err := app.TestFile(ctx, testFile)
				fmt.Printf("\nRuntime: %s\n", time.Since(testStart))
				if err != nil {
					numFailures++
					fmt.Printf("TEST FAILED: %s\n", err)
					// a cleanup target outside the allow list means the
					// suite's configuration cannot be trusted
					var unsafe *harnesserrors.ErrUnsafePath
					if errors.As(err, &unsafe) {
						return err
					}
				} else {
					numSuccesses++
					fmt.Print("TEST SUCCEEDED\n")
				}
			}

			fmt.Printf("\n======= SUMMARY =======\n")
			fmt.Printf("Ran %d test(s) in %s\n", numSuccesses+numFailures, time.Since(start))
			fmt.Printf("Successes: %d\n", numSuccesses)
			fmt.Printf("Failures: %d\n", numFailures)
			if numFailures > 0 {
				return errors.Errorf("%d testcase(s) failed", numFailures)
			}
			return nil
		},
	}

	cmd.Flags().String("tests", "", "Testcase file pattern, e.g. './testcases/**/*.yaml'.")
	cmd.Flags().String("cluster", "", "Cluster topology file, e.g. './cluster.yaml'.")
	cmd.Flags().String("templates", "", "Directory holding the role config templates.")
	cmd.Flags().String("work-dir", "", "Directory testcase runs lay out config, logs, and reports in.")
	cmd.Flags().String("ssh-user", "", "Login user on cluster hosts; defaults to the current user.")
	cmd.Flags().Duration("settle-ceiling", 5*time.Second, "Upper bound on waiting for a started entity to register its pid.")
	cmd.Flags().Duration("grace-period", time.Second, "Pause between the term and kill phases when stopping entities.")
	cmd.Flags().String("cleanup-prefix", "/tmp", "Only remote paths under this prefix may be wiped by data cleanup.")

	return cmd
}

func initParams(cmd *cobra.Command, app *systemtest.App) error {
	flags := cmd.Flags()
	var err error
	if app.Params.ClusterFile, err = flags.GetString("cluster"); err != nil {
		return err
	}
	if app.Params.TemplateDir, err = flags.GetString("templates"); err != nil {
		return err
	}
	if app.Params.WorkDir, err = flags.GetString("work-dir"); err != nil {
		return err
	}
	if app.Params.SSHUser, err = flags.GetString("ssh-user"); err != nil {
		return err
	}
	if app.Params.SettleCeiling, err = flags.GetDuration("settle-ceiling"); err != nil {
		return err
	}
	if app.Params.GracePeriod, err = flags.GetDuration("grace-period"); err != nil {
		return err
	}
	if app.Params.CleanupPrefix, err = flags.GetString("cleanup-prefix"); err != nil {
		return err
	}
	return nil
}
