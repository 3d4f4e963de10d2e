package catalog

import (
	"errors"
	"math/rand/v2"
	"sync"
)

// ErrCodeSpaceExhausted is returned when every code is taken or reserved.
var ErrCodeSpaceExhausted = errors.New("catalog code space exhausted")

const defaultMaxDraws = 64

// Allocator draws unused codes uniformly from [0, 10^CodeDigits). Codes
// handed out but not yet inserted stay reserved until Release so two admin
// sessions never receive the same code.
type Allocator struct {
	mu       sync.Mutex
	rng      *rand.Rand
	maxDraws int
	reserved map[string]struct{}
}

// NewAllocator returns an allocator. A nil rng uses a randomly seeded PCG.
func NewAllocator(rng *rand.Rand) *Allocator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Allocator{rng: rng, maxDraws: defaultMaxDraws, reserved: make(map[string]struct{})}
}

// Space returns the number of distinct codes.
func Space() int {
	n := 1
	for i := 0; i < CodeDigits; i++ {
		n *= 10
	}
	return n
}

// Allocate reserves a code for which taken returns false. After a bounded
// number of random draws it scans the space from a random offset, so a nearly
// full catalog still terminates.
func (a *Allocator) Allocate(taken func(code string) bool) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	space := Space()
	free := func(code string) bool {
		if _, held := a.reserved[code]; held {
			return false
		}
		return !taken(code)
	}

	for i := 0; i < a.maxDraws; i++ {
		code := FormatCode(a.rng.IntN(space))
		if free(code) {
			a.reserved[code] = struct{}{}
			return code, nil
		}
	}

	offset := a.rng.IntN(space)
	for i := 0; i < space; i++ {
		code := FormatCode((offset + i) % space)
		if free(code) {
			a.reserved[code] = struct{}{}
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

// Release drops a reservation once the code is inserted or abandoned.
func (a *Allocator) Release(code string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.reserved, code)
}

// Reserved reports how many codes are currently held.
func (a *Allocator) Reserved() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.reserved)
}
