// Package idx generates the ULID identifiers used for principals and login
// challenges.
package idx

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type ID string

var (
	once sync.Once
	gen  *generator
)

// generator hands out ULIDs from a monotonic entropy source so IDs minted in
// the same millisecond still sort in creation order.
type generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func (g *generator) at(t time.Time) ID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ID(ulid.MustNew(ulid.Timestamp(t), g.entropy).String())
}

func load() *generator {
	once.Do(func() {
		gen = &generator{entropy: ulid.Monotonic(rand.Reader, 0)}
	})
	return gen
}

// New returns a new ID stamped with the current UTC time.
func New() ID {
	return load().at(time.Now().UTC())
}

// NewAt returns an ID stamped with t. Services pass their injected clock.
func NewAt(t time.Time) ID {
	return load().at(t.UTC())
}

func (id ID) String() string { return string(id) }
