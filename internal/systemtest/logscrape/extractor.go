// Package logscrape pulls structured facts out of the logs a testcase
// produced: completed leader elections from broker logs, and message ids
// from producer and consumer logs.
package logscrape

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/gaoyaxin/kafka/internal/common/harnesserrors"
	"github.com/gaoyaxin/kafka/internal/systemtest/remote"
)

// LeaderFact is one completed leader election. EntityID is filled in by the
// caller that knows whose log the fact came from.
type LeaderFact struct {
	EntityID  string
	BrokerID  string
	Topic     string
	Partition string
	// Timestamp is seconds since the Unix epoch with the fractional part of
	// the log timestamp preserved.
	Timestamp float64
	// Line is the raw log line the fact was parsed from.
	Line string
}

func (f LeaderFact) Empty() bool {
	return f == LeaderFact{}
}

// LeaderExtractor turns one broker log into a leader-election fact.
// Implementations choose how lines are matched; failures must come back as
// errors for the caller to log, never as panics.
type LeaderExtractor interface {
	Extract(ctx context.Context, gw remote.Gateway, host, logPath string) (LeaderFact, error)
}

// PatternExtractor selects the lexicographically last log line containing a
// marker string and applies a four-group expression: timestamp, broker id,
// topic, partition. Lexicographic selection stands in for "most recent",
// relying on timestamp-prefixed log lines.
type PatternExtractor struct {
	marker  string
	pattern *regexp.Regexp
}

func NewPatternExtractor(marker, pattern string) (*PatternExtractor, error) {
	if marker == "" {
		return nil, errors.WithStack(&harnesserrors.ErrInvalidArgument{
			Name:    "leaderElectionMarker",
			Value:   marker,
			Message: "a marker string must be supplied before extraction runs",
		})
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.WithStack(&harnesserrors.ErrInvalidArgument{
			Name:    "leaderElectionPattern",
			Value:   pattern,
			Message: err.Error(),
		})
	}
	if re.NumSubexp() < 4 {
		return nil, errors.WithStack(&harnesserrors.ErrInvalidArgument{
			Name:    "leaderElectionPattern",
			Value:   pattern,
			Message: "pattern needs four capture groups: timestamp, broker id, topic, partition",
		})
	}
	return &PatternExtractor{marker: marker, pattern: re}, nil
}

func (x *PatternExtractor) Extract(ctx context.Context, gw remote.Gateway, host, logPath string) (LeaderFact, error) {
	command := fmt.Sprintf("grep -i -h '%s' %s | sort | tail -1", x.marker, logPath)
	res, err := gw.Run(ctx, host, command)
	if err != nil {
		return LeaderFact{}, err
	}
	line := strings.TrimSpace(res.Stdout)
	if line == "" {
		return LeaderFact{}, errors.WithStack(&harnesserrors.ErrNotFound{
			Type:  "leader election line",
			Value: logPath,
		})
	}
	m := x.pattern.FindStringSubmatch(line)
	if m == nil {
		return LeaderFact{}, errors.Errorf("line %q did not match the leader election pattern", line)
	}
	ts, err := ParseLogTimestamp(m[1])
	if err != nil {
		return LeaderFact{}, err
	}
	return LeaderFact{
		BrokerID:  m[2],
		Topic:     m[3],
		Partition: m[4],
		Timestamp: ts,
		Line:      line,
	}, nil
}

// leaderTimestampLayout matches log timestamps of the form
// "2014-01-01 00:00:00,500", with up to microsecond precision after the
// comma.
const leaderTimestampLayout = "2006-01-02 15:04:05,999999"

// ParseLogTimestamp converts a log timestamp in the host's local time to
// floating-point Unix epoch seconds, keeping the fractional part exact.
func ParseLogTimestamp(s string) (float64, error) {
	t, err := time.ParseInLocation(leaderTimestampLayout, s, time.Local)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return float64(t.Unix()) + float64(t.Nanosecond())/float64(time.Second), nil
}
