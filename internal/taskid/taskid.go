// Package taskid generates sortable task identifiers, grounded on the
// teacher's use of github.com/google/uuid for job identity (internal/app's
// job service) but made lexicographically time-sortable per spec.md §3's
// "ULID-like sortable string" requirement.
package taskid

import (
	"encoding/base32"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var encoding = base32.NewEncoding("0123456789ABCDEFGHJKMNPQRSTVWXYZ").WithPadding(base32.NoPadding)

// New returns a new task id: a millisecond timestamp prefix (sortable),
// followed by a random suffix derived from a uuid to avoid collisions
// between tasks created within the same millisecond.
func New() string {
	return NewAt(time.Now())
}

// NewAt generates a task id rooted at a specific instant. The timestamp
// prefix is fixed by t; the suffix is still random, so two calls with the
// same t return different ids that sort together.
func NewAt(t time.Time) string {
	ms := t.UTC().UnixMilli()
	var tsBuf [8]byte
	for i := 7; i >= 0; i-- {
		tsBuf[i] = byte(ms & 0xff)
		ms >>= 8
	}
	tsPart := encoding.EncodeToString(tsBuf[:])

	id := uuid.New()
	randPart := encoding.EncodeToString(id[:10])

	return fmt.Sprintf("%s%s", tsPart, randPart)
}
