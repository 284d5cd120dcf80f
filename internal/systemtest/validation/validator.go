// Package validation decides PASSED or FAILED for the checks a testcase runs
// once its workload has finished. Validation failures are first-class
// outcomes recorded on the testcase env, never errors.
package validation

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/gaoyaxin/kafka/internal/systemtest/logscrape"
	"github.com/gaoyaxin/kafka/internal/systemtest/testcase"
)

// Check names as they appear in the final report.
const (
	CheckLeaderElection = "Validate leader election successful"
	CheckDataMatched    = "Validate for data matched"
)

// MissingIDsFilename is where the ids produced but never consumed are written
// when the data-matched check fails.
const MissingIDsFilename = "msg_id_missing_in_consumer.log"

type Option func(*Validator)

type Validator struct {
	log *log.Entry
}

func New(opts ...Option) *Validator {
	v := &Validator{log: log.WithField("service", "Validator")}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func WithLogger(entry *log.Entry) Option {
	return func(v *Validator) {
		v.log = entry
	}
}

// ValidateLeaderElection passes iff the fact is non-empty and a process id is
// on record for its entity. The specific failure is logged and recorded.
func (v *Validator) ValidateLeaderElection(env *testcase.Env, fact logscrape.LeaderFact) testcase.Outcome {
	outcome := testcase.OutcomeFailed
	detail := ""
	if fact.Empty() {
		detail = "no completed leader election was found in any broker log"
		v.log.Error(detail)
	} else if _, ok := env.Pid(fact.EntityID); !ok {
		detail = fmt.Sprintf("no process id on record for entity %s", fact.EntityID)
		v.log.Error(detail)
	} else {
		outcome = testcase.OutcomePassed
	}
	env.RecordValidation(CheckLeaderElection, outcome, detail)
	return outcome
}

// ValidateDataMatched passes iff every produced id was consumed and the
// producer emitted at least one id; a run that produced nothing can never
// pass. On failure the missing ids are written one per line to
// missingLogPath for operator inspection.
func (v *Validator) ValidateDataMatched(env *testcase.Env, produced, consumed logscrape.MessageIDSet, missingLogPath string) testcase.Outcome {
	outcome := testcase.OutcomeFailed
	detail := ""
	missing := produced.Difference(consumed)
	if len(produced) == 0 {
		detail = "producer log contains no message ids"
		v.log.Error(detail)
	} else if len(missing) == 0 {
		outcome = testcase.OutcomePassed
	} else {
		detail = fmt.Sprintf("%d message ids were produced but never consumed, see %s", len(missing), missingLogPath)
		v.log.WithField("missing", len(missing)).Error("data matched validation failed")
		if err := writeMissingIDs(missingLogPath, missing); err != nil {
			v.log.WithError(err).Error("could not write the missing message id log")
		}
	}
	env.RecordValidation(CheckDataMatched, outcome, detail)
	return outcome
}

func writeMissingIDs(path string, missing logscrape.MessageIDSet) error {
	contents := strings.Join(missing.Sorted(), "\n") + "\n"
	return os.WriteFile(path, []byte(contents), 0644)
}
