// Package cluster models the machines a testcase runs against: which host
// each entity lives on, what role it plays, and where its Kafka and Java
// installations sit. The topology is loaded once per run and is read-only
// afterwards.
package cluster

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/gaoyaxin/kafka/internal/common/config"
	"github.com/gaoyaxin/kafka/internal/common/harnesserrors"
)

// Entity is one logical process slot in the cluster. EntityID is the foreign
// key joining topology entries to per-testcase config blocks.
type Entity struct {
	EntityID    string `validate:"required"`
	Role        Role   `validate:"required"`
	Hostname    string `validate:"required"`
	InstallRoot string `validate:"required"`
	RuntimeRoot string `validate:"required"`
	// JMXPort enables metrics collection for brokers when non-zero.
	JMXPort int
}

// Cluster is the ordered list of entities. Slice order is the topology
// iteration order every orchestration step follows.
type Cluster struct {
	Entities []Entity `validate:"required,dive"`
}

// Load reads a topology document and validates it.
func Load(path string) (*Cluster, error) {
	var c Cluster
	if err := config.LoadFile(&c, path, viper.DecodeHook(RoleDecodeHook())); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Cluster) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		config.LogValidationErrors(err)
		return errors.WithMessage(err, "cluster topology failed validation")
	}
	seen := make(map[string]bool, len(c.Entities))
	for _, e := range c.Entities {
		if seen[e.EntityID] {
			return errors.WithStack(&harnesserrors.ErrInvalidArgument{
				Name:    "entityId",
				Value:   e.EntityID,
				Message: "duplicate entity id in topology",
			})
		}
		seen[e.EntityID] = true
	}
	return nil
}

// ByRole returns the entities playing role, in topology order.
func (c *Cluster) ByRole(role Role) []Entity {
	var out []Entity
	for _, e := range c.Entities {
		if e.Role == role {
			out = append(out, e)
		}
	}
	return out
}

// ByID returns the entity with the given id.
func (c *Cluster) ByID(entityID string) (Entity, error) {
	for _, e := range c.Entities {
		if e.EntityID == entityID {
			return e, nil
		}
	}
	return Entity{}, errors.WithStack(&harnesserrors.ErrNotFound{
		Type:  "entity",
		Value: entityID,
	})
}
