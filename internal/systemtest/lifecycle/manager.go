// Package lifecycle starts, tracks, and stops the remote processes of a
// testcase run. Coordination nodes start first and feed the accumulated
// connection string that gates broker startup; every detached launch writes a
// pid marker that is polled back and registered on the testcase env.
package lifecycle

import (
	"context"
	"fmt"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/gaoyaxin/kafka/internal/common/harnesserrors"
	"github.com/gaoyaxin/kafka/internal/common/util"
	"github.com/gaoyaxin/kafka/internal/systemtest/cluster"
	"github.com/gaoyaxin/kafka/internal/systemtest/configgen"
	"github.com/gaoyaxin/kafka/internal/systemtest/remote"
	"github.com/gaoyaxin/kafka/internal/systemtest/testcase"
)

// metricsSuffix distinguishes a broker's metrics collector in the pid
// registry from the broker itself.
const metricsSuffix = "-metrics"

type Option func(*Manager)

// Manager drives the process lifecycle of one testcase run.
type Manager struct {
	gw      remote.Gateway
	cluster *cluster.Cluster
	spec    *testcase.Spec
	env     *testcase.Env

	// settleCeiling bounds the pid marker poll after a detached launch.
	settleCeiling time.Duration
	// gracePeriod separates the term and kill phases of a stop.
	gracePeriod   time.Duration
	cleanupPrefix string
	jmxObjectName string
	sleeper       util.Sleeper
	log           *log.Entry
}

func New(gw remote.Gateway, c *cluster.Cluster, spec *testcase.Spec, env *testcase.Env, opts ...Option) (*Manager, error) {
	m := &Manager{
		gw:            gw,
		cluster:       c,
		spec:          spec,
		env:           env,
		settleCeiling: 5 * time.Second,
		gracePeriod:   time.Second,
		cleanupPrefix: "/tmp",
		jmxObjectName: "kafka:type=kafka.SocketServerStats",
		sleeper:       util.DefaultSleeper{},
		log:           log.WithField("service", "Lifecycle"),
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.validateConfig(); err != nil {
		return nil, errors.WithMessage(err, "error validating lifecycle configuration")
	}
	return m, nil
}

func WithSettleCeiling(d time.Duration) Option {
	return func(m *Manager) { m.settleCeiling = d }
}

func WithGracePeriod(d time.Duration) Option {
	return func(m *Manager) { m.gracePeriod = d }
}

func WithCleanupPrefix(prefix string) Option {
	return func(m *Manager) { m.cleanupPrefix = prefix }
}

func WithJMXObjectName(name string) Option {
	return func(m *Manager) { m.jmxObjectName = name }
}

func WithSleeper(s util.Sleeper) Option {
	return func(m *Manager) { m.sleeper = s }
}

func WithLogger(entry *log.Entry) Option {
	return func(m *Manager) { m.log = entry }
}

func (m *Manager) validateConfig() error {
	if m.gw == nil {
		return errors.New("a remote gateway must be configured")
	}
	if m.cluster == nil || m.spec == nil || m.env == nil {
		return errors.New("cluster, spec, and env must all be configured")
	}
	if m.settleCeiling <= 0 || m.gracePeriod <= 0 {
		return errors.New("settle ceiling and grace period must be positive")
	}
	return nil
}

// MakeRemoteLayout creates the testcase directory tree on every host, same
// paths as the local layout.
func (m *Manager) MakeRemoteLayout(ctx context.Context) error {
	dirs := []string{
		m.env.ConfigDir,
		filepath.Join(m.env.LogsDir, "dashboards"),
	}
	for _, e := range m.cluster.Entities {
		dirs = append(dirs, m.env.LogDirPath(e.Role, e.EntityID, testcase.PurposeMetrics))
	}
	var result *multierror.Error
	for _, host := range configgen.Hosts(m.cluster) {
		if err := remote.MakeDirs(ctx, m.gw, host, dirs); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// StartCoordinationNodes starts every coordination entity in topology order.
// Each node's address is appended to the env's connection string before the
// next node starts, so the string accumulates rather than being recomputed.
func (m *Manager) StartCoordinationNodes(ctx context.Context) error {
	for _, e := range m.cluster.ByRole(cluster.RoleCoordination) {
		ec, err := m.spec.EntityConfig(e.EntityID)
		if err != nil {
			return err
		}
		port := ec.Settings["clientPort"]
		if port == "" {
			return errors.WithStack(&harnesserrors.ErrInvalidArgument{
				Name:    "clientPort",
				Value:   port,
				Message: fmt.Sprintf("coordination entity %s has no clientPort setting", e.EntityID),
			})
		}
		if err := m.StartEntity(ctx, e.EntityID); err != nil {
			return err
		}
		m.env.AppendConnectAddr(e.Hostname, port)
	}
	return nil
}

// StartBrokers starts every broker in topology order. Brokers reference the
// coordination service, so they refuse to start before any coordination node
// has registered.
func (m *Manager) StartBrokers(ctx context.Context) error {
	if len(m.cluster.ByRole(cluster.RoleCoordination)) > 0 && m.env.ConnectString() == "" {
		return errors.WithStack(&harnesserrors.ErrInvalidArgument{
			Name:    "connectString",
			Value:   "",
			Message: "coordination nodes must be started and registered before brokers",
		})
	}
	for _, e := range m.cluster.ByRole(cluster.RoleBroker) {
		if err := m.StartEntity(ctx, e.EntityID); err != nil {
			return err
		}
	}
	return nil
}

// StartEntity launches one coordination or broker process detached on its
// host and registers the pid read back from the marker file. A registration
// timeout leaves the entity unregistered and is tolerated; the leader
// election check surfaces it later.
func (m *Manager) StartEntity(ctx context.Context, entityID string) error {
	e, err := m.cluster.ByID(entityID)
	if err != nil {
		return err
	}
	ec, err := m.spec.EntityConfig(entityID)
	if err != nil {
		return err
	}
	command, err := m.launchCommand(e, ec)
	if err != nil {
		return err
	}
	marker := m.env.PidMarkerPath(e.Role, e.EntityID)
	m.log.WithFields(log.Fields{"entityId": e.EntityID, "role": e.Role.String(), "host": e.Hostname}).Info("starting entity")

	pid, err := remote.RunDetachedAndCapturePid(ctx, m.gw, e.Hostname, command, marker, m.settleCeiling)
	if err != nil {
		var timeoutErr *harnesserrors.ErrPidRegistrationTimeout
		if errors.As(err, &timeoutErr) {
			m.log.WithError(err).WithField("entityId", e.EntityID).Error("pid registration timed out, entity left unregistered")
			return nil
		}
		return err
	}
	m.env.RegisterPid(e.EntityID, pid)
	m.log.WithFields(log.Fields{"entityId": e.EntityID, "pid": pid}).Info("entity registered")

	if e.Role == cluster.RoleBroker {
		if err := m.StartMetrics(ctx, e); err != nil {
			m.log.WithError(err).WithField("entityId", e.EntityID).Warn("metrics collection did not start")
		}
	}
	return nil
}

func (m *Manager) launchCommand(e cluster.Entity, ec testcase.EntityConfig) (string, error) {
	configPath := filepath.Join(m.env.ConfigDir, ec.ConfigFilename)
	logPath := filepath.Join(m.env.LogDirPath(e.Role, e.EntityID, testcase.PurposeDefault), ec.LogFilename)
	marker := m.env.PidMarkerPath(e.Role, e.EntityID)

	switch e.Role {
	case cluster.RoleCoordination:
		return fmt.Sprintf("JAVA_HOME=%s %s/bin/zookeeper-server-start.sh %s &> %s & echo pid:$! > %s",
			e.RuntimeRoot, e.InstallRoot, configPath, logPath, marker), nil
	case cluster.RoleBroker:
		jmx := ""
		if e.JMXPort > 0 {
			jmx = fmt.Sprintf("JMX_PORT=%d ", e.JMXPort)
		}
		return fmt.Sprintf("JAVA_HOME=%s %s%s/bin/kafka-run-class.sh kafka.Kafka %s &> %s & echo pid:$! > %s",
			e.RuntimeRoot, jmx, e.InstallRoot, configPath, logPath, marker), nil
	case cluster.RoleProducer, cluster.RoleConsumer:
		return "", errors.WithStack(&harnesserrors.ErrInvalidArgument{
			Name:    "role",
			Value:   e.Role.String(),
			Message: "client entities run in the foreground, not detached",
		})
	default:
		return "", errors.WithStack(&harnesserrors.ErrUnknownRole{Role: e.Role.String()})
	}
}

// StopEntity terminates a remote process tree: the whole tree gets SIGTERM,
// then after the grace period SIGKILL. Both phases always run, so a process
// ignoring SIGTERM still dies.
func (m *Manager) StopEntity(ctx context.Context, entityID, hostname string, pid int) error {
	tree, err := remote.ProcessTree(ctx, m.gw, hostname, pid)
	if err != nil {
		m.log.WithError(err).WithField("entityId", entityID).Warn("process tree discovery failed, signalling the parent only")
		tree = []int{pid}
	}
	m.log.WithFields(log.Fields{"entityId": entityID, "pids": tree}).Info("stopping entity")

	if err := remote.Signal(ctx, m.gw, hostname, tree, syscall.SIGTERM); err != nil {
		m.log.WithError(err).Debug("sigterm reported failures")
	}
	m.sleeper.Sleep(ctx, m.gracePeriod)
	if err := remote.Signal(ctx, m.gw, hostname, tree, syscall.SIGKILL); err != nil {
		m.log.WithError(err).Debug("sigkill reported failures")
	}
	return nil
}

// StopAll stops every registered process in reverse registration order, so
// brokers and their collectors go down before the coordination nodes they
// depend on.
func (m *Manager) StopAll(ctx context.Context) error {
	var result *multierror.Error
	ids := m.env.RegisteredEntities()
	for i := len(ids) - 1; i >= 0; i-- {
		id := ids[i]
		pid, ok := m.env.Pid(id)
		if !ok {
			continue
		}
		host, err := m.entityHost(id)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if err := m.StopEntity(ctx, id, host, pid); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (m *Manager) entityHost(registeredID string) (string, error) {
	entityID := registeredID
	if n := len(registeredID) - len(metricsSuffix); n > 0 && registeredID[n:] == metricsSuffix {
		entityID = registeredID[:n]
	}
	e, err := m.cluster.ByID(entityID)
	if err != nil {
		return "", err
	}
	return e.Hostname, nil
}

// CleanupRemoteData wipes coordination dataDirs and broker log.dirs on their
// hosts. Any target outside the allow-listed prefix aborts the whole run
// before a single file is removed there.
func (m *Manager) CleanupRemoteData(ctx context.Context) error {
	for _, e := range m.cluster.Entities {
		var key string
		switch e.Role {
		case cluster.RoleCoordination:
			key = "dataDir"
		case cluster.RoleBroker:
			key = "log.dir"
		default:
			continue
		}
		ec, err := m.spec.EntityConfig(e.EntityID)
		if err != nil {
			return err
		}
		dir := ec.Settings[key]
		if dir == "" {
			m.log.WithFields(log.Fields{"entityId": e.EntityID, "setting": key}).Warn("no data directory configured, skipping cleanup")
			continue
		}
		if err := remote.RemoveDirContents(ctx, m.gw, e.Hostname, dir, m.cleanupPrefix); err != nil {
			return err
		}
	}
	return nil
}

// CollectLogs fetches every entity's log directory, metrics included, back
// into the local layout.
func (m *Manager) CollectLogs(ctx context.Context) error {
	var result *multierror.Error
	for _, e := range m.cluster.Entities {
		dir := m.env.LogDirPath(e.Role, e.EntityID, testcase.PurposeDefault)
		if err := m.gw.Fetch(ctx, e.Hostname, dir, filepath.Dir(dir)); err != nil {
			m.log.WithError(err).WithField("entityId", e.EntityID).Warn("log collection failed")
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
