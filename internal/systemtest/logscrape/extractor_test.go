package logscrape

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaoyaxin/kafka/internal/common/harnesserrors"
	"github.com/gaoyaxin/kafka/internal/systemtest/remote"
)

const (
	testMarker  = "completed the leader election"
	testPattern = `\[(.*?)\] .*Broker (\d+).*topic (\S+) partition (\d+)`
)

func TestParseLogTimestamp(t *testing.T) {
	ts, err := ParseLogTimestamp("2014-01-01 00:00:00,500")
	require.NoError(t, err)

	expected := time.Date(2014, 1, 1, 0, 0, 0, 500000000, time.Local)
	assert.Equal(t, float64(expected.Unix())+0.5, ts)
	assert.Equal(t, 0.5, ts-math.Floor(ts))
}

func TestParseLogTimestamp_MicrosecondPrecision(t *testing.T) {
	ts, err := ParseLogTimestamp("2014-01-01 00:00:00,000125")
	require.NoError(t, err)
	assert.InDelta(t, 0.000125, ts-math.Floor(ts), 1e-12)
}

func TestParseLogTimestamp_NoFraction(t *testing.T) {
	ts, err := ParseLogTimestamp("2014-01-01 00:00:00")
	require.NoError(t, err)
	assert.Equal(t, 0.0, ts-math.Floor(ts))
}

func TestParseLogTimestamp_Garbage(t *testing.T) {
	_, err := ParseLogTimestamp("not a timestamp")
	assert.Error(t, err)
}

func TestNewPatternExtractor_Validation(t *testing.T) {
	_, err := NewPatternExtractor("", testPattern)
	assert.Error(t, err)

	_, err = NewPatternExtractor(testMarker, `([`)
	assert.Error(t, err)

	_, err = NewPatternExtractor(testMarker, `\[(.*?)\] only (two) groups`)
	assert.Error(t, err)

	_, err = NewPatternExtractor(testMarker, testPattern)
	assert.NoError(t, err)
}

func TestPatternExtractor_Extract(t *testing.T) {
	x, err := NewPatternExtractor(testMarker, testPattern)
	require.NoError(t, err)

	line := "[2014-01-01 00:00:00,500] INFO completed the leader election: Broker 2 is leader for topic test_1 partition 0"
	fake := &remote.Fake{Scripts: []remote.Script{
		{Contains: "grep -i -h 'completed the leader election' /logs/broker-2/server_2.log", Result: remote.Result{Stdout: line + "\n"}},
	}}

	fact, err := x.Extract(context.Background(), fake, "host2", "/logs/broker-2/server_2.log")
	require.NoError(t, err)

	assert.False(t, fact.Empty())
	assert.Equal(t, "2", fact.BrokerID)
	assert.Equal(t, "test_1", fact.Topic)
	assert.Equal(t, "0", fact.Partition)
	assert.Equal(t, 0.5, fact.Timestamp-math.Floor(fact.Timestamp))
	assert.Equal(t, line, fact.Line)

	// the remote side sorts and keeps only the last line
	commands := fake.CommandsOf("run")
	require.Len(t, commands, 1)
	assert.Contains(t, commands[0], "| sort | tail -1")
}

func TestPatternExtractor_Extract_NoLine(t *testing.T) {
	x, err := NewPatternExtractor(testMarker, testPattern)
	require.NoError(t, err)

	fake := &remote.Fake{}
	fact, err := x.Extract(context.Background(), fake, "host2", "/logs/broker-2/server_2.log")
	require.Error(t, err)
	assert.True(t, fact.Empty())

	var notFound *harnesserrors.ErrNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestPatternExtractor_Extract_PatternMismatch(t *testing.T) {
	x, err := NewPatternExtractor(testMarker, testPattern)
	require.NoError(t, err)

	fake := &remote.Fake{Scripts: []remote.Script{
		{Contains: "grep", Result: remote.Result{Stdout: "completed the leader election but in an unexpected shape\n"}},
	}}

	fact, err := x.Extract(context.Background(), fake, "host2", "/logs/broker-2/server_2.log")
	require.Error(t, err)
	assert.True(t, fact.Empty())
}

func TestPatternExtractor_Extract_BadTimestamp(t *testing.T) {
	x, err := NewPatternExtractor(testMarker, testPattern)
	require.NoError(t, err)

	fake := &remote.Fake{Scripts: []remote.Script{
		{Contains: "grep", Result: remote.Result{Stdout: "[yesterday] completed the leader election Broker 2 for topic t partition 0\n"}},
	}}

	fact, err := x.Extract(context.Background(), fake, "host2", "/logs/broker-2/server_2.log")
	require.Error(t, err)
	assert.True(t, fact.Empty())
}
