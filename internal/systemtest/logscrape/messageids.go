package logscrape

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var messageIDPattern = regexp.MustCompile(`MessageID:(.*?):`)

// MessageIDSet is the distinct message ids seen in one client's log.
type MessageIDSet map[string]bool

func (s MessageIDSet) Add(id string) {
	s[id] = true
}

func (s MessageIDSet) Contains(id string) bool {
	return s[id]
}

// Difference returns the ids in s that are not in other.
func (s MessageIDSet) Difference(other MessageIDSet) MessageIDSet {
	out := MessageIDSet{}
	for id := range s {
		if !other[id] {
			out.Add(id)
		}
	}
	return out
}

// Sorted returns the ids in lexicographic order for stable reporting.
func (s MessageIDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ExtractMessageIDs collects the distinct ids in r. An id is the text between
// "MessageID:" and the next ':' on a line; duplicates collapse, so an id
// emitted twice is indistinguishable from one emitted once.
func ExtractMessageIDs(r io.Reader) (MessageIDSet, error) {
	set := MessageIDSet{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "MessageID") {
			continue
		}
		if m := messageIDPattern.FindStringSubmatch(line); m != nil {
			set.Add(m[1])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	return set, nil
}

// ExtractMessageIDsFromFile reads a collected client log from disk.
func ExtractMessageIDsFromFile(path string) (MessageIDSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	return ExtractMessageIDs(f)
}
