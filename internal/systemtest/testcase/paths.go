package testcase

import (
	"fmt"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/gaoyaxin/kafka/internal/systemtest/cluster"
)

// Purposes accepted by LogDirPath. The set is open on the calling side:
// unknown purposes degrade to the default path rather than failing the run.
const (
	PurposeDefault    = "default"
	PurposeMetrics    = "metrics"
	PurposeDashboards = "dashboards"
	PurposeConfig     = "config"
)

// LogDirPath resolves the directory an artifact of (role, entityID) belongs
// in. Dashboards are shared across entities; config is shared across the
// whole testcase.
func (env *Env) LogDirPath(role cluster.Role, entityID, purpose string) string {
	entityDir := filepath.Join(env.LogsDir, fmt.Sprintf("%s-%s", role, entityID))
	switch purpose {
	case PurposeDefault:
		return entityDir
	case PurposeMetrics:
		return filepath.Join(entityDir, "metrics")
	case PurposeDashboards:
		return filepath.Join(env.LogsDir, "dashboards")
	case PurposeConfig:
		return env.ConfigDir
	default:
		log.WithFields(log.Fields{"purpose": purpose, "entityId": entityID}).
			Error("unknown log directory purpose, using the default path")
		return entityDir
	}
}

// PidMarkerPath is the remote file a detached launch writes its pid line to.
func (env *Env) PidMarkerPath(role cluster.Role, entityID string) string {
	return filepath.Join(
		env.LogDirPath(role, entityID, PurposeDefault),
		fmt.Sprintf("entity_%s_pid", entityID),
	)
}

// MetricsPidMarkerPath is the marker written by an entity's metrics
// collector.
func (env *Env) MetricsPidMarkerPath(role cluster.Role, entityID string) string {
	return filepath.Join(env.LogDirPath(role, entityID, PurposeMetrics), "entity_pid")
}
