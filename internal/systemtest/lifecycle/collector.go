package lifecycle

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/gaoyaxin/kafka/internal/common/harnesserrors"
	"github.com/gaoyaxin/kafka/internal/systemtest/cluster"
	"github.com/gaoyaxin/kafka/internal/systemtest/remote"
	"github.com/gaoyaxin/kafka/internal/systemtest/testcase"
)

// metricsCSVFilename is where a collector streams its samples, inside the
// entity's metrics directory.
const metricsCSVFilename = "metrics.csv"

// JMXServiceURL builds the RMI service URL a JMX collector attaches to.
func JMXServiceURL(host string, port int) string {
	return fmt.Sprintf("service:jmx:rmi:///jndi/rmi://%s:%d/jmxrmi", host, port)
}

// StartMetrics launches a JmxTool collector against an entity's JMX port,
// sampling into the entity's metrics directory. The collector registers under
// "<entityID>-metrics" so teardown reaps it along with everything else.
// Entities without a JMX port are skipped.
func (m *Manager) StartMetrics(ctx context.Context, e cluster.Entity) error {
	if e.JMXPort == 0 {
		m.log.WithField("entityId", e.EntityID).Debug("no jmx port configured, skipping metrics collection")
		return nil
	}
	metricsDir := m.env.LogDirPath(e.Role, e.EntityID, testcase.PurposeMetrics)
	marker := m.env.MetricsPidMarkerPath(e.Role, e.EntityID)
	csvPath := filepath.Join(metricsDir, metricsCSVFilename)
	command := fmt.Sprintf(
		"JAVA_HOME=%s %s/bin/kafka-run-class.sh kafka.tools.JmxTool --jmx-url %s --object-name %s &> %s & echo pid:$! > %s",
		e.RuntimeRoot, e.InstallRoot, JMXServiceURL(e.Hostname, e.JMXPort), m.jmxObjectName, csvPath, marker)
	m.log.WithFields(log.Fields{"entityId": e.EntityID, "jmxPort": e.JMXPort}).Info("starting metrics collection")

	pid, err := remote.RunDetachedAndCapturePid(ctx, m.gw, e.Hostname, command, marker, m.settleCeiling)
	if err != nil {
		var timeoutErr *harnesserrors.ErrPidRegistrationTimeout
		if errors.As(err, &timeoutErr) {
			m.log.WithError(err).WithField("entityId", e.EntityID).Error("metrics pid registration timed out, collector left unregistered")
			return nil
		}
		return err
	}
	m.env.RegisterPid(e.EntityID+metricsSuffix, pid)
	return nil
}
