package id

import (
	"sort"
	"testing"
	"time"
)

func TestULIDGenerator(t *testing.T) {
	gen := NewULIDGenerator()

	t.Run("Generate", func(t *testing.T) {
		id := gen.Generate()
		if len(id) != ulidEncodedLen {
			t.Errorf("expected length %d, got %d", ulidEncodedLen, len(id))
		}
		if !IsValidULID(id) {
			t.Errorf("generated invalid ULID: %s", id)
		}
	})

	t.Run("Uniqueness", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 1000; i++ {
			id := gen.Generate()
			if seen[id] {
				t.Fatalf("duplicate ULID: %s", id)
			}
			seen[id] = true
		}
	})

	t.Run("Monotonic", func(t *testing.T) {
		ids := gen.GenerateN(100)
		sorted := make([]string, len(ids))
		copy(sorted, ids)
		sort.Strings(sorted)

		for i := range ids {
			if ids[i] != sorted[i] {
				t.Fatalf("ULIDs not monotonically sortable at index %d", i)
			}
		}
	})

	t.Run("Timestamp", func(t *testing.T) {
		before := time.Now().Add(-time.Second)
		id := gen.Generate()
		after := time.Now().Add(time.Second)

		parsed, err := ParseULID(id)
		if err != nil {
			t.Fatalf("ParseULID failed: %v", err)
		}
		if parsed.Time().Before(before) || parsed.Time().After(after) {
			t.Errorf("ULID timestamp %v outside [%v, %v]", parsed.Time(), before, after)
		}
	})
}

func TestParseULID(t *testing.T) {
	gen := NewULIDGenerator()
	id := gen.Generate()

	parsed, err := ParseULID(id)
	if err != nil {
		t.Fatalf("ParseULID(%s) failed: %v", id, err)
	}
	if parsed.String() != id {
		t.Errorf("String() = %s, want %s", parsed.String(), id)
	}

	invalid := []string{
		"",
		"short",
		"01ARZ3NDEKTSV4RRFFQ69G5F",    // too short
		"01ARZ3NDEKTSV4RRFFQ69G5FAVU", // too long
		"!1ARZ3NDEKTSV4RRFFQ69G5FAV",  // bad character in timestamp
	}
	for _, s := range invalid {
		if IsValidULID(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestNewULID(t *testing.T) {
	id := NewULID()
	if !IsValidULID(id) {
		t.Errorf("NewULID returned invalid ULID: %s", id)
	}
}

func BenchmarkULID(b *testing.B) {
	gen := NewULIDGenerator()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		gen.Generate()
	}
}
