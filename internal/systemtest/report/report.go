// Package report renders the outcome of testcase runs: the validation checks
// in execution order, the per-testcase verdict, and suite-level totals.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/gaoyaxin/kafka/internal/systemtest/testcase"
)

// DefaultFilename is where a testcase report lands inside the run's base
// directory.
const DefaultFilename = "validation_report.yaml"

type TestcaseReport struct {
	Name        string                 `json:"name" yaml:"name"`
	RunID       string                 `json:"runId" yaml:"runId"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Outcome     testcase.Outcome       `json:"outcome" yaml:"outcome"`
	Checks      []testcase.CheckResult `json:"checks" yaml:"checks"`
	BaseDir     string                 `json:"baseDir" yaml:"baseDir"`
}

type SuiteReport struct {
	Reports []*TestcaseReport `json:"reports" yaml:"reports"`
	Passed  int               `json:"passed" yaml:"passed"`
	Failed  int               `json:"failed" yaml:"failed"`
}

// FromEnv builds a testcase report from the checks recorded on the env. A
// testcase passes only when every check passed; a run that recorded no checks
// validated nothing and fails.
func FromEnv(spec *testcase.Spec, env *testcase.Env) *TestcaseReport {
	checks := env.ValidationResults()
	outcome := testcase.OutcomePassed
	if len(checks) == 0 {
		outcome = testcase.OutcomeFailed
	}
	for _, c := range checks {
		if c.Outcome != testcase.OutcomePassed {
			outcome = testcase.OutcomeFailed
			break
		}
	}
	return &TestcaseReport{
		Name:        spec.Name,
		RunID:       env.RunID,
		Description: spec.Description,
		Outcome:     outcome,
		Checks:      checks,
		BaseDir:     env.BaseDir,
	}
}

// Aggregate combines testcase reports into a suite report with totals.
func Aggregate(reports []*TestcaseReport) *SuiteReport {
	suite := &SuiteReport{Reports: reports}
	for _, r := range reports {
		if r.Outcome == testcase.OutcomePassed {
			suite.Passed++
		} else {
			suite.Failed++
		}
	}
	return suite
}

func (r *TestcaseReport) Print(out io.Writer) {
	_, _ = fmt.Fprintf(out, "\nValidation report %s:\n", r.Name)
	for _, c := range r.Checks {
		_, _ = fmt.Fprintf(out, "\t%s: %s\n", c.Name, c.Outcome)
		if c.Detail != "" {
			_, _ = fmt.Fprintf(out, "\t\t - %s\n", c.Detail)
		}
	}
	_, _ = fmt.Fprintf(out, "\toutcome: %s\n", r.Outcome)
}

func (s *SuiteReport) Print(out io.Writer) {
	for _, r := range s.Reports {
		_, _ = fmt.Fprintf(out, "%s: %s\n", r.Name, r.Outcome)
	}
	_, _ = fmt.Fprintf(out, "\npassed: %d, failed: %d\n", s.Passed, s.Failed)
}

// Formatter serializes a report for writing to disk.
type Formatter func(interface{}) ([]byte, error)

func YamlFormatter(v interface{}) ([]byte, error) {
	b, err := yaml.Marshal(v)
	return b, errors.WithStack(err)
}

func JSONFormatter(v interface{}) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	return b, errors.WithStack(err)
}

func (r *TestcaseReport) Generate(formatter Formatter) ([]byte, error) {
	if formatter == nil {
		formatter = YamlFormatter
	}
	return formatter(r)
}

// WriteFile serializes the report to path, yaml by default.
func (r *TestcaseReport) WriteFile(path string, formatter Formatter) error {
	b, err := r.Generate(formatter)
	if err != nil {
		return err
	}
	return errors.WithStack(os.WriteFile(path, b, 0644))
}
