package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaoyaxin/kafka/internal/common/logging"
	"github.com/gaoyaxin/kafka/internal/systemtest/logscrape"
	"github.com/gaoyaxin/kafka/internal/systemtest/testcase"
)

func newEnv(t *testing.T) *testcase.Env {
	t.Helper()
	return testcase.NewEnv(t.TempDir(), &testcase.Spec{Name: "validate_test"})
}

func electedFact() logscrape.LeaderFact {
	return logscrape.LeaderFact{
		EntityID:  "2",
		BrokerID:  "2",
		Topic:     "test_1",
		Partition: "0",
		Timestamp: 1388534400.5,
		Line:      "[2014-01-01 00:00:00,500] completed the leader election",
	}
}

func TestValidateLeaderElection_Passed(t *testing.T) {
	env := newEnv(t)
	env.RegisterPid("2", 4242)

	v := New(WithLogger(logging.NullEntry()))
	outcome := v.ValidateLeaderElection(env, electedFact())

	assert.Equal(t, testcase.OutcomePassed, outcome)
	results := env.ValidationResults()
	require.Len(t, results, 1)
	assert.Equal(t, CheckLeaderElection, results[0].Name)
	assert.Equal(t, testcase.OutcomePassed, results[0].Outcome)
}

func TestValidateLeaderElection_EmptyFact(t *testing.T) {
	env := newEnv(t)
	env.RegisterPid("2", 4242)

	v := New(WithLogger(logging.NullEntry()))
	outcome := v.ValidateLeaderElection(env, logscrape.LeaderFact{})

	assert.Equal(t, testcase.OutcomeFailed, outcome)
}

func TestValidateLeaderElection_NoPidRegistered(t *testing.T) {
	env := newEnv(t)

	v := New(WithLogger(logging.NullEntry()))
	outcome := v.ValidateLeaderElection(env, electedFact())

	assert.Equal(t, testcase.OutcomeFailed, outcome)
	results := env.ValidationResults()
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Detail, "entity 2")
}

func TestValidateDataMatched_Passed(t *testing.T) {
	env := newEnv(t)
	produced := logscrape.MessageIDSet{"1": true, "2": true}
	consumed := logscrape.MessageIDSet{"1": true, "2": true, "3": true}

	v := New(WithLogger(logging.NullEntry()))
	outcome := v.ValidateDataMatched(env, produced, consumed, filepath.Join(t.TempDir(), MissingIDsFilename))

	assert.Equal(t, testcase.OutcomePassed, outcome)
}

func TestValidateDataMatched_EmptyProducerNeverPasses(t *testing.T) {
	env := newEnv(t)

	v := New(WithLogger(logging.NullEntry()))
	outcome := v.ValidateDataMatched(env, logscrape.MessageIDSet{}, logscrape.MessageIDSet{}, filepath.Join(t.TempDir(), MissingIDsFilename))

	assert.Equal(t, testcase.OutcomeFailed, outcome)
	results := env.ValidationResults()
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Detail, "no message ids")
}

func TestValidateDataMatched_MissingIDsWrittenOnePerLine(t *testing.T) {
	env := newEnv(t)
	produced := logscrape.MessageIDSet{"1": true, "2": true, "3": true, "4": true}
	consumed := logscrape.MessageIDSet{"2": true, "4": true}
	missingLog := filepath.Join(t.TempDir(), MissingIDsFilename)

	v := New(WithLogger(logging.NullEntry()))
	outcome := v.ValidateDataMatched(env, produced, consumed, missingLog)

	assert.Equal(t, testcase.OutcomeFailed, outcome)

	data, err := os.ReadFile(missingLog)
	require.NoError(t, err)
	assert.Equal(t, "1\n3\n", string(data))
}

func TestValidationResults_RecordedInExecutionOrder(t *testing.T) {
	env := newEnv(t)
	env.RegisterPid("2", 4242)

	v := New(WithLogger(logging.NullEntry()))
	v.ValidateLeaderElection(env, electedFact())
	v.ValidateDataMatched(env, logscrape.MessageIDSet{"1": true}, logscrape.MessageIDSet{"1": true}, filepath.Join(t.TempDir(), MissingIDsFilename))

	results := env.ValidationResults()
	require.Len(t, results, 2)
	assert.Equal(t, CheckLeaderElection, results[0].Name)
	assert.Equal(t, CheckDataMatched, results[1].Name)
}
