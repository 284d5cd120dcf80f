package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/gaoyaxin/kafka/internal/common/harnesserrors"
	"github.com/gaoyaxin/kafka/internal/systemtest/cluster"
	"github.com/gaoyaxin/kafka/internal/systemtest/configgen"
)

// CreateTopics registers the producer's topics with the coordination service
// before any client runs. Replica and partition counts come from the testcase
// arguments.
func (m *Manager) CreateTopics(ctx context.Context) error {
	producers := m.cluster.ByRole(cluster.RoleProducer)
	if len(producers) == 0 {
		return nil
	}
	coords := m.cluster.ByRole(cluster.RoleCoordination)
	if len(coords) == 0 {
		return errors.WithStack(&harnesserrors.ErrInvalidArgument{
			Name:    "cluster",
			Message: "topic creation needs a coordination entity",
		})
	}
	connect := m.env.ConnectString()
	if connect == "" {
		return errors.WithStack(&harnesserrors.ErrInvalidArgument{
			Name:    "connectString",
			Value:   "",
			Message: "topic creation needs a running coordination service",
		})
	}
	ec, err := m.spec.EntityConfig(producers[0].EntityID)
	if err != nil {
		return err
	}
	host := coords[0]
	replica := m.spec.Arg("replica_factor", "1")
	partition := m.spec.Arg("num_partition", "1")
	for _, topic := range strings.Split(ec.Settings["topic"], ",") {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}
		command := fmt.Sprintf("JAVA_HOME=%s %s/bin/kafka-create-topic.sh --topic %s --zookeeper %s --replica %s --partition %s",
			host.RuntimeRoot, host.InstallRoot, topic, connect, replica, partition)
		m.log.WithFields(log.Fields{"topic": topic, "replica": replica, "partition": partition}).Info("creating topic")
		if _, err := m.gw.Run(ctx, host.Hostname, command); err != nil {
			return err
		}
	}
	return nil
}

// RunProducer runs the performance producer in the foreground and waits for
// it to finish. Its arguments come from the rendered producer config, so the
// injected broker info rides along without special handling here.
func (m *Manager) RunProducer(ctx context.Context) error {
	entities := m.cluster.ByRole(cluster.RoleProducer)
	if len(entities) == 0 {
		m.log.Info("testcase has no producer entity")
		return nil
	}
	e := entities[0]
	args, err := configgen.PropertiesToArgs(m.env.ProducerConfigPath)
	if err != nil {
		return err
	}
	command := fmt.Sprintf("JAVA_HOME=%s %s/bin/kafka-run-class.sh kafka.perf.ProducerPerformance %s &> %s",
		e.RuntimeRoot, e.InstallRoot, args, m.env.ProducerLogPath)
	m.log.WithFields(log.Fields{"entityId": e.EntityID, "host": e.Hostname}).Info("running producer")
	_, err = m.gw.Run(ctx, e.Hostname, command)
	return err
}

// RunConsumer runs the console consumer in the foreground. The rendered
// consumer config supplies the coordination address, topic, and the timeout
// that makes the run terminate once the stream drains.
func (m *Manager) RunConsumer(ctx context.Context) error {
	entities := m.cluster.ByRole(cluster.RoleConsumer)
	if len(entities) == 0 {
		m.log.Info("testcase has no consumer entity")
		return nil
	}
	e := entities[0]
	args, err := configgen.PropertiesToArgs(m.env.ConsumerConfigPath)
	if err != nil {
		return err
	}
	command := fmt.Sprintf("JAVA_HOME=%s %s/bin/kafka-run-class.sh kafka.consumer.ConsoleConsumer %s &> %s",
		e.RuntimeRoot, e.InstallRoot, args, m.env.ConsumerLogPath)
	m.log.WithFields(log.Fields{"entityId": e.EntityID, "host": e.Hostname}).Info("running consumer")
	_, err = m.gw.Run(ctx, e.Hostname, command)
	return err
}
