package util

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid"
)

var (
	runIDEntropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	runIDMutex   sync.Mutex
)

// NewRunID returns a lexicographically sortable id for a testcase run, so
// that run directories list in start order.
func NewRunID() string {
	runIDMutex.Lock()
	defer runIDMutex.Unlock()
	return strings.ToLower(ulid.MustNew(ulid.Now(), runIDEntropy).String())
}
