// Package testcase holds the per-testcase definition documents and the
// mutable environment a single run threads through every orchestration step.
package testcase

import (
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/gaoyaxin/kafka/internal/common/config"
	"github.com/gaoyaxin/kafka/internal/common/harnesserrors"
	"github.com/gaoyaxin/kafka/internal/systemtest/cluster"
)

// Settings are the flat key=value options rendered into an entity's config
// file. Orchestration steps also consult individual keys, e.g. clientPort,
// log.dir, and topic.
type Settings map[string]string

// Set writes a key, overwriting any previous value.
func (s Settings) Set(key, value string) {
	s[key] = value
}

// Copy returns an independent copy of the settings.
func (s Settings) Copy() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// EntityConfig carries the testcase-specific configuration for one cluster
// entity. EntityID joins it to the topology.
type EntityConfig struct {
	EntityID       string   `yaml:"entityId" validate:"required"`
	ConfigFilename string   `yaml:"configFilename" validate:"required"`
	LogFilename    string   `yaml:"logFilename" validate:"required"`
	Settings       Settings `yaml:"settings"`
}

// Spec is one testcase definition document.
type Spec struct {
	// Name defaults to the definition file's basename.
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Args hold testcase-wide arguments such as replica_factor and
	// num_partition.
	Args map[string]string `yaml:"args"`
	// LeaderElectionMarker is the log line fragment identifying completed
	// leader elections; LeaderElectionPattern is the four-group expression
	// applied to the selected line. Both must be set before log facts are
	// extracted.
	LeaderElectionMarker  string         `yaml:"leaderElectionMarker"`
	LeaderElectionPattern string         `yaml:"leaderElectionPattern"`
	Entities              []EntityConfig `yaml:"entities" validate:"required,dive"`
}

// LoadSpec reads a testcase definition. Settings keys are case-sensitive
// property names, so the document is read with the case-preserving loader. A
// missing name defaults to the file basename so globbed suites stay
// identifiable.
func LoadSpec(path string) (*Spec, error) {
	spec := &Spec{}
	if err := config.LoadYamlFile(spec, path); err != nil {
		return nil, err
	}
	if spec.Name == "" {
		fileName := filepath.Base(path)
		spec.Name = strings.TrimSuffix(fileName, filepath.Ext(fileName))
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

func (s *Spec) Validate() error {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		config.LogValidationErrors(err)
		return errors.WithMessagef(err, "testcase %s failed validation", s.Name)
	}
	seen := make(map[string]bool, len(s.Entities))
	for i := range s.Entities {
		ec := &s.Entities[i]
		if seen[ec.EntityID] {
			return errors.WithStack(&harnesserrors.ErrInvalidArgument{
				Name:    "entityId",
				Value:   ec.EntityID,
				Message: "duplicate entity id in testcase " + s.Name,
			})
		}
		seen[ec.EntityID] = true
		// computed settings are injected later, so the map must exist
		if ec.Settings == nil {
			ec.Settings = Settings{}
		}
	}
	return nil
}

// BindCluster checks that every entity config references a topology entity.
func (s *Spec) BindCluster(c *cluster.Cluster) error {
	for _, ec := range s.Entities {
		if _, err := c.ByID(ec.EntityID); err != nil {
			return errors.WithMessagef(err, "testcase %s references an unknown entity", s.Name)
		}
	}
	return nil
}

// EntityConfig returns the config block for an entity id.
func (s *Spec) EntityConfig(entityID string) (EntityConfig, error) {
	for _, ec := range s.Entities {
		if ec.EntityID == entityID {
			return ec, nil
		}
	}
	return EntityConfig{}, errors.WithStack(&harnesserrors.ErrNotFound{
		Type:    "entityConfig",
		Value:   entityID,
		Message: "testcase " + s.Name,
	})
}

// Arg returns a testcase-wide argument, or def when unset.
func (s *Spec) Arg(key, def string) string {
	if v, ok := s.Args[key]; ok {
		return v
	}
	return def
}
