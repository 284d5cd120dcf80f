package testcase

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/gaoyaxin/kafka/internal/common/util"
	"github.com/gaoyaxin/kafka/internal/systemtest/cluster"
)

// Outcome is the result of one validation check.
type Outcome string

const (
	OutcomePassed Outcome = "PASSED"
	OutcomeFailed Outcome = "FAILED"
)

// CheckResult is one validation check plus its outcome. Results keep
// execution order.
type CheckResult struct {
	Name    string  `json:"name" yaml:"name"`
	Outcome Outcome `json:"outcome" yaml:"outcome"`
	Detail  string  `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Env is the state one testcase run threads through every step: the local
// directory layout, the accumulated coordination connect string, the pid
// registry, client file paths, and the ordered validation results.
//
// A run is single-threaded, so Env performs no locking.
type Env struct {
	RunID     string
	Testcase  string
	BaseDir   string
	ConfigDir string
	LogsDir   string

	LeaderElectionMarker  string
	LeaderElectionPattern string

	ProducerConfigPath string
	ProducerLogPath    string
	ConsumerConfigPath string
	ConsumerLogPath    string

	connectAddrs []string
	pids         map[string]int
	pidOrder     []string
	results      []CheckResult
}

// NewEnv lays out a testcase under workDir. Local and remote hosts share the
// same paths, so the layout is deterministic per testcase name.
func NewEnv(workDir string, spec *Spec) *Env {
	base := filepath.Join(workDir, spec.Name)
	return &Env{
		RunID:                 util.NewRunID(),
		Testcase:              spec.Name,
		BaseDir:               base,
		ConfigDir:             filepath.Join(base, "config"),
		LogsDir:               filepath.Join(base, "logs"),
		LeaderElectionMarker:  spec.LeaderElectionMarker,
		LeaderElectionPattern: spec.LeaderElectionPattern,
		pids:                  make(map[string]int),
	}
}

// AppendConnectAddr adds one coordination node address. Nodes started later
// in the same run observe every address appended before them.
func (env *Env) AppendConnectAddr(hostname, clientPort string) {
	env.connectAddrs = append(env.connectAddrs, fmt.Sprintf("%s:%s", hostname, clientPort))
}

// ConnectString returns the coordination connection string accumulated so
// far: comma-joined host:port pairs in topology order.
func (env *Env) ConnectString() string {
	return strings.Join(env.connectAddrs, ",")
}

// RegisterPid records the remote parent pid for an entity. Re-registering an
// entity overwrites the previous pid but keeps its original position.
func (env *Env) RegisterPid(entityID string, pid int) {
	if _, ok := env.pids[entityID]; !ok {
		env.pidOrder = append(env.pidOrder, entityID)
	}
	env.pids[entityID] = pid
}

// Pid returns the registered pid for an entity, if any.
func (env *Env) Pid(entityID string) (int, bool) {
	pid, ok := env.pids[entityID]
	return pid, ok
}

// RegisteredEntities returns entity ids in registration order. Teardown
// iterates this reversed so dependents stop before what they depend on.
func (env *Env) RegisteredEntities() []string {
	out := make([]string, len(env.pidOrder))
	copy(out, env.pidOrder)
	return out
}

// RecordValidation appends a check result, preserving execution order.
func (env *Env) RecordValidation(name string, outcome Outcome, detail string) {
	env.results = append(env.results, CheckResult{Name: name, Outcome: outcome, Detail: detail})
}

// ValidationResults returns the recorded checks in execution order.
func (env *Env) ValidationResults() []CheckResult {
	out := make([]CheckResult, len(env.results))
	copy(out, env.results)
	return out
}

// InitClientPaths resolves the config and log paths of the first producer and
// first consumer in topology order. Testcases without clients leave the
// corresponding paths empty.
func (env *Env) InitClientPaths(c *cluster.Cluster, spec *Spec) error {
	for _, role := range []cluster.Role{cluster.RoleProducer, cluster.RoleConsumer} {
		entities := c.ByRole(role)
		if len(entities) == 0 {
			continue
		}
		e := entities[0]
		ec, err := spec.EntityConfig(e.EntityID)
		if err != nil {
			return err
		}
		configPath := filepath.Join(env.LogDirPath(e.Role, e.EntityID, PurposeConfig), ec.ConfigFilename)
		logPath := filepath.Join(env.LogDirPath(e.Role, e.EntityID, PurposeDefault), ec.LogFilename)
		switch role {
		case cluster.RoleProducer:
			env.ProducerConfigPath = configPath
			env.ProducerLogPath = logPath
		case cluster.RoleConsumer:
			env.ConsumerConfigPath = configPath
			env.ConsumerLogPath = logPath
		}
	}
	return nil
}

// CreateLayout makes the local directory tree: config dir, dashboards dir,
// and a default plus metrics dir per entity.
func (env *Env) CreateLayout(c *cluster.Cluster) error {
	dirs := []string{
		env.ConfigDir,
		filepath.Join(env.LogsDir, "dashboards"),
	}
	for _, e := range c.Entities {
		dirs = append(dirs, env.LogDirPath(e.Role, e.EntityID, PurposeMetrics))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}
