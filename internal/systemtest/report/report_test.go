package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaoyaxin/kafka/internal/systemtest/testcase"
)

func envWithChecks(t *testing.T, checks ...testcase.CheckResult) (*testcase.Spec, *testcase.Env) {
	t.Helper()
	spec := &testcase.Spec{Name: "testcase_1", Description: "leader election"}
	env := testcase.NewEnv(t.TempDir(), spec)
	for _, c := range checks {
		env.RecordValidation(c.Name, c.Outcome, c.Detail)
	}
	return spec, env
}

func TestFromEnv_PassesWhenEveryCheckPassed(t *testing.T) {
	spec, env := envWithChecks(t,
		testcase.CheckResult{Name: "check a", Outcome: testcase.OutcomePassed},
		testcase.CheckResult{Name: "check b", Outcome: testcase.OutcomePassed},
	)

	r := FromEnv(spec, env)

	assert.Equal(t, testcase.OutcomePassed, r.Outcome)
	assert.Equal(t, "testcase_1", r.Name)
	assert.Equal(t, env.RunID, r.RunID)
	require.Len(t, r.Checks, 2)
	assert.Equal(t, "check a", r.Checks[0].Name)
}

func TestFromEnv_FailsOnAnyFailedCheck(t *testing.T) {
	spec, env := envWithChecks(t,
		testcase.CheckResult{Name: "check a", Outcome: testcase.OutcomePassed},
		testcase.CheckResult{Name: "check b", Outcome: testcase.OutcomeFailed, Detail: "missing ids"},
	)

	r := FromEnv(spec, env)

	assert.Equal(t, testcase.OutcomeFailed, r.Outcome)
}

func TestFromEnv_FailsWhenNothingWasValidated(t *testing.T) {
	spec, env := envWithChecks(t)

	r := FromEnv(spec, env)

	assert.Equal(t, testcase.OutcomeFailed, r.Outcome)
}

func TestAggregate_CountsOutcomes(t *testing.T) {
	suite := Aggregate([]*TestcaseReport{
		{Name: "a", Outcome: testcase.OutcomePassed},
		{Name: "b", Outcome: testcase.OutcomeFailed},
		{Name: "c", Outcome: testcase.OutcomePassed},
	})

	assert.Equal(t, 2, suite.Passed)
	assert.Equal(t, 1, suite.Failed)
}

func TestPrint_ListsChecksWithDetails(t *testing.T) {
	spec, env := envWithChecks(t,
		testcase.CheckResult{Name: "Validate leader election successful", Outcome: testcase.OutcomePassed},
		testcase.CheckResult{Name: "Validate for data matched", Outcome: testcase.OutcomeFailed, Detail: "3 message ids missing"},
	)
	var buf bytes.Buffer

	FromEnv(spec, env).Print(&buf)

	out := buf.String()
	assert.Contains(t, out, "Validation report testcase_1:")
	assert.Contains(t, out, "Validate leader election successful: PASSED")
	assert.Contains(t, out, "Validate for data matched: FAILED")
	assert.Contains(t, out, "3 message ids missing")
	assert.Contains(t, out, "outcome: FAILED")
}

func TestSuitePrint_SummarizesTotals(t *testing.T) {
	suite := Aggregate([]*TestcaseReport{
		{Name: "a", Outcome: testcase.OutcomePassed},
		{Name: "b", Outcome: testcase.OutcomeFailed},
	})
	var buf bytes.Buffer

	suite.Print(&buf)

	assert.Contains(t, buf.String(), "a: PASSED")
	assert.Contains(t, buf.String(), "b: FAILED")
	assert.Contains(t, buf.String(), "passed: 1, failed: 1")
}

func TestGenerate_DefaultsToYaml(t *testing.T) {
	spec, env := envWithChecks(t,
		testcase.CheckResult{Name: "check a", Outcome: testcase.OutcomePassed},
	)

	b, err := FromEnv(spec, env).Generate(nil)

	require.NoError(t, err)
	assert.Contains(t, string(b), "name: testcase_1")
	assert.Contains(t, string(b), "outcome: PASSED")
}

func TestGenerate_JSON(t *testing.T) {
	spec, env := envWithChecks(t,
		testcase.CheckResult{Name: "check a", Outcome: testcase.OutcomePassed},
	)

	b, err := FromEnv(spec, env).Generate(JSONFormatter)

	require.NoError(t, err)
	assert.Contains(t, string(b), `"name": "testcase_1"`)
}

func TestWriteFile_RoundTrips(t *testing.T) {
	spec, env := envWithChecks(t,
		testcase.CheckResult{Name: "check a", Outcome: testcase.OutcomePassed},
	)
	path := filepath.Join(t.TempDir(), DefaultFilename)

	require.NoError(t, FromEnv(spec, env).WriteFile(path, nil))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "outcome: PASSED")
}
