// Package idgen names the rows the relay writes. Captures and visits carry
// time-ordered UUIDv7 ids behind a short prefix so a log line shows which
// table an id belongs to.
package idgen

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	CapturePrefix = "cap_"
	VisitPrefix   = "vis_"
)

// Generator returns a new id on each call.
type Generator func() string

// UUIDv7 returns bare v7 UUIDs.
func UUIDv7() Generator {
	return func() string { return uuid.Must(uuid.NewV7()).String() }
}

// Prefixed prepends prefix to the ids of gen.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string { return prefix + gen() }
}

// Captures generates capture ids.
func Captures() Generator { return Prefixed(CapturePrefix, UUIDv7()) }

// Visits generates visit log ids.
func Visits() Generator { return Prefixed(VisitPrefix, UUIDv7()) }

// Created returns the instant encoded in a prefixed v7 id.
func Created(id string) (time.Time, error) {
	if i := strings.IndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	u, err := uuid.Parse(id)
	if err != nil {
		return time.Time{}, fmt.Errorf("idgen: %w", err)
	}
	if u.Version() != 7 {
		return time.Time{}, fmt.Errorf("idgen: version %d id has no timestamp", u.Version())
	}
	// The first 48 bits of a v7 UUID are Unix milliseconds.
	ms := binary.BigEndian.Uint64(u[:8]) >> 16
	return time.UnixMilli(int64(ms)), nil
}
