package testcase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaoyaxin/kafka/internal/common/harnesserrors"
	"github.com/gaoyaxin/kafka/internal/systemtest/cluster"
)

func testCluster() *cluster.Cluster {
	return &cluster.Cluster{Entities: []cluster.Entity{
		{EntityID: "0", Role: cluster.RoleCoordination, Hostname: "host0", InstallRoot: "/opt/kafka", RuntimeRoot: "/usr/java"},
		{EntityID: "1", Role: cluster.RoleBroker, Hostname: "host1", InstallRoot: "/opt/kafka", RuntimeRoot: "/usr/java", JMXPort: 9990},
		{EntityID: "4", Role: cluster.RoleProducer, Hostname: "host4", InstallRoot: "/opt/kafka", RuntimeRoot: "/usr/java"},
		{EntityID: "5", Role: cluster.RoleConsumer, Hostname: "host5", InstallRoot: "/opt/kafka", RuntimeRoot: "/usr/java"},
	}}
}

func TestLoadSpec(t *testing.T) {
	spec, err := LoadSpec("testdata/testcase_1.yaml")
	require.NoError(t, err)

	assert.Equal(t, "testcase_1", spec.Name)
	assert.Equal(t, "3", spec.Arg("replica_factor", "1"))
	assert.Equal(t, "1", spec.Arg("unset", "1"))
	assert.Equal(t, "completed the leader election", spec.LeaderElectionMarker)
	require.Len(t, spec.Entities, 4)

	ec, err := spec.EntityConfig("1")
	require.NoError(t, err)
	assert.Equal(t, "server_1.properties", ec.ConfigFilename)
	assert.Equal(t, "server_1.log", ec.LogFilename)
	assert.Equal(t, "9091", ec.Settings["port"])

	// settings keys are property names and must keep their case
	coord, err := spec.EntityConfig("0")
	require.NoError(t, err)
	assert.Equal(t, "2181", coord.Settings["clientPort"])
	assert.Equal(t, "/tmp/zookeeper_0", coord.Settings["dataDir"])
}

func TestLoadSpec_NameDefaultsToBasename(t *testing.T) {
	spec, err := LoadSpec("testdata/testcase_1.yaml")
	require.NoError(t, err)
	assert.Equal(t, "testcase_1", spec.Name)
}

func TestSpec_Validate_DuplicateEntity(t *testing.T) {
	spec := &Spec{
		Name: "dup",
		Entities: []EntityConfig{
			{EntityID: "1", ConfigFilename: "a.properties", LogFilename: "a.log"},
			{EntityID: "1", ConfigFilename: "b.properties", LogFilename: "b.log"},
		},
	}
	err := spec.Validate()
	require.Error(t, err)

	var argErr *harnesserrors.ErrInvalidArgument
	require.ErrorAs(t, err, &argErr)
}

func TestSpec_Validate_MissingFilenames(t *testing.T) {
	spec := &Spec{
		Name:     "incomplete",
		Entities: []EntityConfig{{EntityID: "1"}},
	}
	assert.Error(t, spec.Validate())
}

func TestSpec_BindCluster(t *testing.T) {
	spec, err := LoadSpec("testdata/testcase_1.yaml")
	require.NoError(t, err)
	assert.NoError(t, spec.BindCluster(testCluster()))
}

func TestSpec_BindCluster_UnknownEntity(t *testing.T) {
	spec := &Spec{
		Name:     "dangling",
		Entities: []EntityConfig{{EntityID: "42", ConfigFilename: "c.properties", LogFilename: "c.log"}},
	}
	err := spec.BindCluster(testCluster())
	require.Error(t, err)

	var notFound *harnesserrors.ErrNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestSettings_Copy(t *testing.T) {
	orig := Settings{"port": "9091"}
	cp := orig.Copy()
	cp.Set("port", "9092")

	assert.Equal(t, "9091", orig["port"])
	assert.Equal(t, "9092", cp["port"])
}
