package cluster

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/gaoyaxin/kafka/internal/common/harnesserrors"
)

// Role is the closed set of parts a cluster entity can play in a testcase.
// Code dispatching on Role must switch exhaustively and treat any other value
// as a hard failure.
type Role int

const (
	RoleUnknown Role = iota
	RoleCoordination
	RoleBroker
	RoleProducer
	RoleConsumer
)

func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "coordination":
		return RoleCoordination, nil
	case "broker":
		return RoleBroker, nil
	case "producer":
		return RoleProducer, nil
	case "consumer":
		return RoleConsumer, nil
	default:
		return RoleUnknown, errors.WithStack(&harnesserrors.ErrUnknownRole{Role: s})
	}
}

func (r Role) String() string {
	switch r {
	case RoleCoordination:
		return "coordination"
	case RoleBroker:
		return "broker"
	case RoleProducer:
		return "producer"
	case RoleConsumer:
		return "consumer"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

// TemplateFilename returns the name of the config template entities of this
// role are materialized from.
func (r Role) TemplateFilename() (string, error) {
	switch r {
	case RoleCoordination:
		return "zookeeper.properties", nil
	case RoleBroker:
		return "server.properties", nil
	case RoleProducer:
		return "producer_performance.properties", nil
	case RoleConsumer:
		return "console_consumer.properties", nil
	default:
		return "", errors.WithStack(&harnesserrors.ErrUnknownRole{Role: r.String()})
	}
}

// RoleDecodeHook lets viper unmarshal plain strings such as "broker" into a
// Role.
func RoleDecodeHook() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(RoleUnknown) {
			return data, nil
		}
		return ParseRole(data.(string))
	}
}
