// Package configgen turns role templates plus per-entity settings into the
// property files entities run with, and ships them to the cluster hosts.
package configgen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/gaoyaxin/kafka/internal/common/harnesserrors"
	"github.com/gaoyaxin/kafka/internal/systemtest/cluster"
	"github.com/gaoyaxin/kafka/internal/systemtest/remote"
	"github.com/gaoyaxin/kafka/internal/systemtest/testcase"
)

type Option func(*Materializer)

// Materializer renders entity config files from the role templates in
// templateDir.
type Materializer struct {
	templateDir string
	log         *log.Entry
}

func New(templateDir string, opts ...Option) *Materializer {
	m := &Materializer{
		templateDir: templateDir,
		log:         log.WithField("service", "Materializer"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func WithLogger(entry *log.Entry) Option {
	return func(m *Materializer) {
		m.log = entry
	}
}

// ConnectString concatenates hostname:clientPort over every coordination
// entity, comma-separated, in topology order. This is the complete string
// written into configs before anything starts; the incremental twin built
// during startup lives on the testcase env.
func ConnectString(c *cluster.Cluster, spec *testcase.Spec) (string, error) {
	var addrs []string
	for _, e := range c.ByRole(cluster.RoleCoordination) {
		ec, err := spec.EntityConfig(e.EntityID)
		if err != nil {
			return "", err
		}
		port := ec.Settings["clientPort"]
		if port == "" {
			return "", errors.WithStack(&harnesserrors.ErrInvalidArgument{
				Name:    "clientPort",
				Value:   port,
				Message: fmt.Sprintf("coordination entity %s has no clientPort setting", e.EntityID),
			})
		}
		addrs = append(addrs, e.Hostname+":"+port)
	}
	return strings.Join(addrs, ","), nil
}

// Materialize renders one config file per entity into env's config dir,
// injecting the computed coordination fields each role expects. Entities
// keep materializing past individual failures; the aggregate error still
// fails testcase setup.
func (m *Materializer) Materialize(c *cluster.Cluster, spec *testcase.Spec, env *testcase.Env) error {
	connectString, err := ConnectString(c, spec)
	if err != nil {
		return err
	}
	var result *multierror.Error
	for _, e := range c.Entities {
		if err := m.materializeEntity(e, spec, env, connectString); err != nil {
			m.log.WithError(err).WithField("entityId", e.EntityID).Error("config materialization failed")
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (m *Materializer) materializeEntity(e cluster.Entity, spec *testcase.Spec, env *testcase.Env, connectString string) error {
	ec, err := spec.EntityConfig(e.EntityID)
	if err != nil {
		return err
	}
	if err := injectComputedSettings(e.Role, ec.Settings, connectString); err != nil {
		return err
	}
	templateName, err := e.Role.TemplateFilename()
	if err != nil {
		return err
	}
	return RenderTemplate(
		filepath.Join(m.templateDir, templateName),
		filepath.Join(env.ConfigDir, ec.ConfigFilename),
		ec.Settings,
	)
}

// injectComputedSettings mutates settings with the coordination fields each
// role consumes. Unknown roles fail loudly.
func injectComputedSettings(role cluster.Role, settings testcase.Settings, connectString string) error {
	switch role {
	case cluster.RoleCoordination:
		// coordination nodes carry no computed fields
	case cluster.RoleBroker:
		settings.Set("zk.connect", connectString)
	case cluster.RoleProducer:
		settings.Set("brokerinfo", "zk.connect="+connectString)
	case cluster.RoleConsumer:
		settings.Set("zookeeper", connectString)
	default:
		return errors.WithStack(&harnesserrors.ErrUnknownRole{Role: role.String()})
	}
	return nil
}

// RenderTemplate copies the template line by line. A line whose key, the text
// before the first '=', matches a settings entry is replaced with key=value;
// everything else is copied verbatim. Settings keys absent from the template
// are not appended.
func RenderTemplate(templatePath, destPath string, settings testcase.Settings) error {
	data, err := os.ReadFile(templatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.WithStack(&harnesserrors.ErrMissingTemplate{
				Template: templatePath,
			})
		}
		return errors.WithStack(err)
	}

	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}
		key := line[:idx]
		if value, ok := settings[key]; ok {
			lines[i] = key + "=" + value
		}
	}
	return errors.WithStack(os.WriteFile(destPath, []byte(strings.Join(lines, "\n")), 0644))
}

// Distribute ships every rendered config file to every cluster host, same
// path remotely as locally.
func Distribute(ctx context.Context, gw remote.Gateway, c *cluster.Cluster, env *testcase.Env) error {
	entries, err := os.ReadDir(env.ConfigDir)
	if err != nil {
		return errors.WithStack(err)
	}
	var result *multierror.Error
	for _, host := range Hosts(c) {
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			p := filepath.Join(env.ConfigDir, entry.Name())
			if err := gw.Copy(ctx, p, host, p); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	return result.ErrorOrNil()
}

// Hosts returns the distinct hostnames of the cluster in topology order.
func Hosts(c *cluster.Cluster) []string {
	seen := make(map[string]bool, len(c.Entities))
	var hosts []string
	for _, e := range c.Entities {
		if !seen[e.Hostname] {
			seen[e.Hostname] = true
			hosts = append(hosts, e.Hostname)
		}
	}
	return hosts
}

// PropertiesToArgs converts a rendered properties file into long-option
// command arguments, one "--key value" pair per line, preserving file order.
func PropertiesToArgs(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	var args []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}
		args = append(args, fmt.Sprintf("--%s %s", line[:idx], line[idx+1:]))
	}
	return strings.Join(args, " "), nil
}
