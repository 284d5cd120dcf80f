package lifecycle

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaoyaxin/kafka/internal/common/harnesserrors"
)

func writeClientConfig(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

func TestCreateTopics_RegistersEveryProducerTopic(t *testing.T) {
	h := newHarness(t)
	h.env.AppendConnectAddr("host0", "2181")
	h.env.AppendConnectAddr("host1", "2182")
	ec, err := h.spec.EntityConfig("3")
	require.NoError(t, err)
	ec.Settings.Set("topic", "test_1,test_2")

	require.NoError(t, h.manager.CreateTopics(context.Background()))

	runs := h.fake.CommandsOf("run")
	require.Len(t, runs, 2)
	assert.Contains(t, runs[0], "/opt/kafka/bin/kafka-create-topic.sh")
	assert.Contains(t, runs[0], "--topic test_1 --zookeeper host0:2181,host1:2182 --replica 3 --partition 2")
	assert.Contains(t, runs[1], "--topic test_2 ")
	assert.Equal(t, "host0", h.fake.Calls[0].Host)
}

func TestCreateTopics_RefusesWithoutConnectString(t *testing.T) {
	h := newHarness(t)

	err := h.manager.CreateTopics(context.Background())

	var invalid *harnesserrors.ErrInvalidArgument
	require.ErrorAs(t, err, &invalid)
	assert.Empty(t, h.fake.Calls)
}

func TestRunProducer_ArgsComeFromRenderedConfig(t *testing.T) {
	h := newHarness(t)
	writeClientConfig(t, h.env.ProducerConfigPath,
		"# performance producer\ntopic=test_1\nthreads=5\nbrokerinfo=zk.connect=host0:2181\n")

	require.NoError(t, h.manager.RunProducer(context.Background()))

	runs := h.fake.CommandsOf("run")
	require.Len(t, runs, 1)
	assert.Contains(t, runs[0], "kafka-run-class.sh kafka.perf.ProducerPerformance")
	assert.Contains(t, runs[0], "--topic test_1 --threads 5 --brokerinfo zk.connect=host0:2181")
	assert.Contains(t, runs[0], "&> "+h.env.ProducerLogPath)
	assert.Equal(t, "host3", h.fake.Calls[0].Host)
}

func TestRunConsumer_ArgsComeFromRenderedConfig(t *testing.T) {
	h := newHarness(t)
	writeClientConfig(t, h.env.ConsumerConfigPath,
		"zookeeper=host0:2181\ntopic=test_1\nconsumer-timeout-ms=10000\n")

	require.NoError(t, h.manager.RunConsumer(context.Background()))

	runs := h.fake.CommandsOf("run")
	require.Len(t, runs, 1)
	assert.Contains(t, runs[0], "kafka-run-class.sh kafka.consumer.ConsoleConsumer")
	assert.Contains(t, runs[0], "--zookeeper host0:2181 --topic test_1 --consumer-timeout-ms 10000")
	assert.Contains(t, runs[0], "&> "+h.env.ConsumerLogPath)
	assert.Equal(t, "host4", h.fake.Calls[0].Host)
}

func TestRunProducer_NoProducerEntityIsANoop(t *testing.T) {
	h := newHarness(t)
	h.manager.cluster.Entities = h.manager.cluster.Entities[:3]

	require.NoError(t, h.manager.RunProducer(context.Background()))
	assert.Empty(t, h.fake.Calls)
}
