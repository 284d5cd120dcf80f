package cluster

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaoyaxin/kafka/internal/common/harnesserrors"
)

func TestLoad(t *testing.T) {
	c, err := Load("testdata/cluster.yaml")
	require.NoError(t, err)
	require.Len(t, c.Entities, 5)

	assert.Equal(t, "0", c.Entities[0].EntityID)
	assert.Equal(t, RoleCoordination, c.Entities[0].Role)
	assert.Equal(t, "host0", c.Entities[0].Hostname)
	assert.Equal(t, "/opt/kafka", c.Entities[0].InstallRoot)
	assert.Equal(t, "/usr/lib/jvm/java-7", c.Entities[0].RuntimeRoot)
	assert.Equal(t, 0, c.Entities[0].JMXPort)

	assert.Equal(t, RoleBroker, c.Entities[1].Role)
	assert.Equal(t, 9990, c.Entities[1].JMXPort)
}

func TestLoad_UnknownRole(t *testing.T) {
	_, err := Load("testdata/cluster_bad_role.yaml")
	require.Error(t, err)

	var roleErr *harnesserrors.ErrUnknownRole
	require.ErrorAs(t, err, &roleErr)
	assert.Equal(t, "loadbalancer", roleErr.Role)
}

func TestValidate_DuplicateEntityID(t *testing.T) {
	c := &Cluster{Entities: []Entity{
		{EntityID: "1", Role: RoleBroker, Hostname: "h", InstallRoot: "/opt/kafka", RuntimeRoot: "/usr/java"},
		{EntityID: "1", Role: RoleBroker, Hostname: "h", InstallRoot: "/opt/kafka", RuntimeRoot: "/usr/java"},
	}}
	err := c.Validate()
	require.Error(t, err)

	var argErr *harnesserrors.ErrInvalidArgument
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, "1", argErr.Value)
}

func TestValidate_MissingRequiredFields(t *testing.T) {
	c := &Cluster{Entities: []Entity{
		{EntityID: "1", Role: RoleBroker, Hostname: "h"},
	}}
	assert.Error(t, c.Validate())
}

func TestByRole_PreservesTopologyOrder(t *testing.T) {
	c, err := Load("testdata/cluster.yaml")
	require.NoError(t, err)

	brokers := c.ByRole(RoleBroker)
	require.Len(t, brokers, 2)
	assert.Equal(t, "1", brokers[0].EntityID)
	assert.Equal(t, "2", brokers[1].EntityID)

	assert.Empty(t, c.ByRole(RoleUnknown))
}

func TestByID(t *testing.T) {
	c, err := Load("testdata/cluster.yaml")
	require.NoError(t, err)

	e, err := c.ByID("4")
	require.NoError(t, err)
	assert.Equal(t, RoleProducer, e.Role)

	_, err = c.ByID("99")
	var notFound *harnesserrors.ErrNotFound
	require.True(t, errors.As(err, &notFound))
}
