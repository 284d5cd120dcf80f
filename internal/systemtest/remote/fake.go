package remote

import (
	"context"
	"strings"
)

// Call records one gateway invocation for assertions.
type Call struct {
	Kind    string // "run", "detached", "copy", or "fetch"
	Host    string
	Command string // the command line, or "src -> dst" for transfers
}

// Script matches commands by substring and supplies a canned outcome.
type Script struct {
	Contains string
	Result   Result
	Err      error
}

// Fake is a scripted in-memory Gateway for orchestration tests. Unmatched
// commands succeed with an empty result, so tests only script what they
// assert on.
type Fake struct {
	Calls   []Call
	Scripts []Script
}

func (f *Fake) Run(_ context.Context, host, command string) (Result, error) {
	f.Calls = append(f.Calls, Call{Kind: "run", Host: host, Command: command})
	return f.match(command)
}

func (f *Fake) RunDetached(_ context.Context, host, command string) error {
	f.Calls = append(f.Calls, Call{Kind: "detached", Host: host, Command: command})
	_, err := f.match(command)
	return err
}

func (f *Fake) Copy(_ context.Context, localPath, host, remotePath string) error {
	f.Calls = append(f.Calls, Call{Kind: "copy", Host: host, Command: localPath + " -> " + remotePath})
	_, err := f.match(localPath + " -> " + remotePath)
	return err
}

func (f *Fake) Fetch(_ context.Context, host, remotePath, localPath string) error {
	f.Calls = append(f.Calls, Call{Kind: "fetch", Host: host, Command: remotePath + " -> " + localPath})
	_, err := f.match(remotePath + " -> " + localPath)
	return err
}

func (f *Fake) match(command string) (Result, error) {
	for _, s := range f.Scripts {
		if strings.Contains(command, s.Contains) {
			return s.Result, s.Err
		}
	}
	return Result{}, nil
}

// CommandsOf returns the command of every recorded call of the given kind.
func (f *Fake) CommandsOf(kind string) []string {
	var out []string
	for _, c := range f.Calls {
		if c.Kind == kind {
			out = append(out, c.Command)
		}
	}
	return out
}
