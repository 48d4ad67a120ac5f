package id

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ulidEncodedLen is the length of a Crockford Base32 encoded ULID.
const ulidEncodedLen = ulid.EncodedSize

// ULIDGenerator produces lexicographically sortable identifiers backed by
// oklog/ulid with monotonic entropy, so IDs created within the same
// millisecond still sort in generation order.
type ULIDGenerator struct {
	mu      sync.Mutex
	reader  io.Reader
	entropy *ulid.MonotonicEntropy
}

// ULIDOption is a functional option for ULIDGenerator.
type ULIDOption func(*ULIDGenerator)

// WithULIDReader sets a custom random source, mainly for deterministic tests.
func WithULIDReader(r io.Reader) ULIDOption {
	return func(g *ULIDGenerator) { g.reader = r }
}

// NewULIDGenerator creates a new ULID generator.
func NewULIDGenerator(opts ...ULIDOption) *ULIDGenerator {
	g := &ULIDGenerator{reader: rand.Reader}
	for _, opt := range opts {
		opt(g)
	}

	g.entropy = ulid.Monotonic(g.reader, 0)
	return g
}

// Generate creates a new ULID string.
func (g *ULIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := ulid.Now()
	u, err := ulid.New(now, g.entropy)
	if err != nil {
		// 单毫秒内随机部分溢出,重置熵源后重试
		g.entropy = ulid.Monotonic(g.reader, 0)
		u = ulid.MustNew(now, g.entropy)
	}
	return u.String()
}

// GenerateN creates n ULID strings.
func (g *ULIDGenerator) GenerateN(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = g.Generate()
	}
	return ids
}

// ULID is a parsed identifier.
type ULID struct {
	id ulid.ULID
}

// ParseULID parses a ULID string, rejecting wrong lengths and characters
// outside the Crockford alphabet.
func ParseULID(s string) (ULID, error) {
	parsed, err := ulid.ParseStrict(s)
	if err != nil {
		return ULID{}, ErrInvalidULID
	}
	return ULID{id: parsed}, nil
}

// String returns the canonical 26-character encoding.
func (u ULID) String() string {
	return u.id.String()
}

// Time returns the time when this ULID was generated.
func (u ULID) Time() time.Time {
	return ulid.Time(u.id.Time())
}

// Timestamp returns the Unix timestamp in milliseconds.
func (u ULID) Timestamp() int64 {
	return int64(u.id.Time())
}

// IsValidULID checks whether s is a well-formed ULID.
func IsValidULID(s string) bool {
	_, err := ParseULID(s)
	return err == nil
}
