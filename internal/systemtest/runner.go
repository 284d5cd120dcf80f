package systemtest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/gaoyaxin/kafka/internal/common/harnesserrors"
	"github.com/gaoyaxin/kafka/internal/systemtest/cluster"
	"github.com/gaoyaxin/kafka/internal/systemtest/configgen"
	"github.com/gaoyaxin/kafka/internal/systemtest/lifecycle"
	"github.com/gaoyaxin/kafka/internal/systemtest/logscrape"
	"github.com/gaoyaxin/kafka/internal/systemtest/remote"
	"github.com/gaoyaxin/kafka/internal/systemtest/report"
	"github.com/gaoyaxin/kafka/internal/systemtest/telemetry"
	"github.com/gaoyaxin/kafka/internal/systemtest/testcase"
	"github.com/gaoyaxin/kafka/internal/systemtest/validation"
)

// countersFilename is the per-run telemetry snapshot in the dashboards
// directory.
const countersFilename = "counters.prom"

// teardownTimeout bounds the stop phase that runs after the testcase ctx is
// already cancelled or expired.
const teardownTimeout = time.Minute

// TestcaseRunner drives one testcase end to end: lay out directories, render
// and distribute configs, start the cluster, run the clients, validate the
// results, and tear everything down.
type TestcaseRunner struct {
	// Out is used to write progress and the validation report.
	Out io.Writer

	gw        remote.Gateway
	cluster   *cluster.Cluster
	spec      *testcase.Spec
	env       *testcase.Env
	manager   *lifecycle.Manager
	material  *configgen.Materializer
	validator *validation.Validator
	telemetry *telemetry.Telemetry
	log       *log.Entry
}

// NewTestcaseRunner wires a runner for one testcase. The gateway is
// instrumented, so the run's counters include every remote operation.
func NewTestcaseRunner(params *Params, gw remote.Gateway, c *cluster.Cluster, spec *testcase.Spec) (*TestcaseRunner, error) {
	if err := spec.BindCluster(c); err != nil {
		return nil, err
	}
	env := testcase.NewEnv(params.WorkDir, spec)
	if err := env.InitClientPaths(c, spec); err != nil {
		return nil, err
	}
	tel := telemetry.New()
	instrumented := tel.InstrumentGateway(gw)
	manager, err := lifecycle.New(instrumented, c, spec, env,
		lifecycle.WithSettleCeiling(params.SettleCeiling),
		lifecycle.WithGracePeriod(params.GracePeriod),
		lifecycle.WithCleanupPrefix(params.CleanupPrefix),
	)
	if err != nil {
		return nil, err
	}
	return &TestcaseRunner{
		Out:       os.Stdout,
		gw:        instrumented,
		cluster:   c,
		spec:      spec,
		env:       env,
		manager:   manager,
		material:  configgen.New(params.TemplateDir),
		validator: validation.New(),
		telemetry: tel,
		log:       log.WithField("service", "TestcaseRunner"),
	}, nil
}

// Env exposes the run's environment, mainly so callers can locate artifacts.
func (srv *TestcaseRunner) Env() *testcase.Env {
	return srv.env
}

// Run executes the testcase. Teardown always runs, on a fresh context so a
// cancelled testcase still stops what it started. The returned error is
// non-nil when orchestration aborted or any validation check failed.
func (srv *TestcaseRunner) Run(ctx context.Context) error {
	_, _ = fmt.Fprintf(srv.Out, "starting testcase %s\n", srv.spec.Name)
	if err := srv.env.CreateLayout(srv.cluster); err != nil {
		return err
	}

	runErr := srv.orchestrate(ctx)
	if runErr != nil {
		srv.log.WithError(runErr).Error("testcase run aborted")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()
	if err := srv.manager.StopAll(stopCtx); err != nil {
		srv.log.WithError(err).Warn("teardown reported failures")
	}

	rep := report.FromEnv(srv.spec, srv.env)
	srv.telemetry.RecordTestcase(rep.Outcome)
	rep.Print(srv.Out)
	if err := rep.WriteFile(filepath.Join(srv.env.BaseDir, report.DefaultFilename), nil); err != nil {
		srv.log.WithError(err).Warn("could not write the validation report")
	}
	srv.writeCounters()

	if runErr != nil {
		return runErr
	}
	if rep.Outcome != testcase.OutcomePassed {
		return errors.Errorf("testcase %s failed validation", srv.spec.Name)
	}
	return nil
}

func (srv *TestcaseRunner) orchestrate(ctx context.Context) error {
	if err := srv.manager.MakeRemoteLayout(ctx); err != nil {
		return err
	}
	if err := srv.manager.CleanupRemoteData(ctx); err != nil {
		return err
	}
	if err := srv.material.Materialize(srv.cluster, srv.spec, srv.env); err != nil {
		return err
	}
	if err := configgen.Distribute(ctx, srv.gw, srv.cluster, srv.env); err != nil {
		return err
	}
	if err := srv.manager.StartCoordinationNodes(ctx); err != nil {
		return err
	}
	if err := srv.manager.StartBrokers(ctx); err != nil {
		return err
	}
	if err := srv.manager.CreateTopics(ctx); err != nil {
		return err
	}
	if err := srv.manager.RunProducer(ctx); err != nil {
		return err
	}
	if err := srv.manager.RunConsumer(ctx); err != nil {
		return err
	}

	if srv.env.LeaderElectionMarker != "" {
		fact := srv.extractLeaderFact(ctx)
		outcome := srv.validator.ValidateLeaderElection(srv.env, fact)
		srv.telemetry.RecordValidation(validation.CheckLeaderElection, outcome)
	}

	// client logs are read locally, so they must be fetched first
	if err := srv.manager.CollectLogs(ctx); err != nil {
		srv.log.WithError(err).Warn("log collection reported failures")
	}

	hasProducer := len(srv.cluster.ByRole(cluster.RoleProducer)) > 0
	hasConsumer := len(srv.cluster.ByRole(cluster.RoleConsumer)) > 0
	if hasProducer && hasConsumer {
		srv.validateDataMatched()
	}
	return nil
}

// extractLeaderFact greps every broker log remotely and keeps the
// lexicographically greatest matching line across the cluster. Brokers
// without a match are skipped; extraction trouble degrades to an empty fact,
// which the leader election check reports as FAILED.
func (srv *TestcaseRunner) extractLeaderFact(ctx context.Context) logscrape.LeaderFact {
	extractor, err := logscrape.NewPatternExtractor(srv.env.LeaderElectionMarker, srv.env.LeaderElectionPattern)
	if err != nil {
		srv.log.WithError(err).Error("invalid leader election pattern")
		return logscrape.LeaderFact{}
	}
	var selected logscrape.LeaderFact
	for _, e := range srv.cluster.ByRole(cluster.RoleBroker) {
		ec, err := srv.spec.EntityConfig(e.EntityID)
		if err != nil {
			srv.log.WithError(err).WithField("entityId", e.EntityID).Warn("broker has no testcase config")
			continue
		}
		logPath := filepath.Join(srv.env.LogDirPath(e.Role, e.EntityID, testcase.PurposeDefault), ec.LogFilename)
		fact, err := extractor.Extract(ctx, srv.gw, e.Hostname, logPath)
		if err != nil {
			var notFound *harnesserrors.ErrNotFound
			if !errors.As(err, &notFound) {
				srv.log.WithError(err).WithField("entityId", e.EntityID).Warn("leader fact extraction failed")
			}
			continue
		}
		fact.EntityID = e.EntityID
		if selected.Empty() || fact.Line > selected.Line {
			selected = fact
		}
	}
	return selected
}

func (srv *TestcaseRunner) validateDataMatched() {
	produced, err := logscrape.ExtractMessageIDsFromFile(srv.env.ProducerLogPath)
	if err != nil {
		srv.log.WithError(err).Error("could not read the producer log")
		produced = logscrape.MessageIDSet{}
	}
	consumed, err := logscrape.ExtractMessageIDsFromFile(srv.env.ConsumerLogPath)
	if err != nil {
		srv.log.WithError(err).Error("could not read the consumer log")
		consumed = logscrape.MessageIDSet{}
	}
	missingPath := filepath.Join(srv.env.BaseDir, validation.MissingIDsFilename)
	outcome := srv.validator.ValidateDataMatched(srv.env, produced, consumed, missingPath)
	srv.telemetry.RecordValidation(validation.CheckDataMatched, outcome)
}

func (srv *TestcaseRunner) writeCounters() {
	dir := srv.env.LogDirPath(cluster.RoleUnknown, "", testcase.PurposeDashboards)
	if err := srv.telemetry.WriteTextfile(filepath.Join(dir, countersFilename)); err != nil {
		srv.log.WithError(err).Warn("could not write run counters")
	}
}
