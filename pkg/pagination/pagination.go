// Package pagination implements the opaque keyset cursors used by the
// audit trail listings. A cursor pins the (created_at, id) pair of the
// last row a page returned; the next query resumes strictly after it,
// so rows inserted mid-scan never shift earlier pages.
package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultLimit is the page size when the caller does not ask for one.
	DefaultLimit = 25
	// MaxLimit caps the rows a single trail query may return.
	MaxLimit = 100
)

// Params carries the raw paging inputs taken off the query string.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the decoded resume point: the last returned row's keyset.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// NormalizeLimit clamps a requested limit into [1, MaxLimit], falling
// back to DefaultLimit for zero or negative input.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// LimitWithBuffer adds the one extra row that tells a page whether a
// next page exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// Encode serializes the cursor as url-safe base64 over
// "<unix-nanos>:<uuid>". Unix nanos keep the timestamp exact across
// the round trip regardless of the database's stored precision.
func (c Cursor) Encode() string {
	payload := strconv.FormatInt(c.CreatedAt.UTC().UnixNano(), 10) + ":" + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// ParseCursor decodes a client-supplied cursor. A blank value means
// first page and yields (nil, nil); anything else that does not decode
// to a well-formed keyset is an error.
func ParseCursor(value string) (*Cursor, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	nanos, idRaw, found := strings.Cut(string(decoded), ":")
	if !found {
		return nil, fmt.Errorf("malformed cursor payload")
	}

	unixNanos, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor timestamp: %w", err)
	}
	id, err := uuid.Parse(idRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor id: %w", err)
	}
	return &Cursor{
		CreatedAt: time.Unix(0, unixNanos).UTC(),
		ID:        id,
	}, nil
}
