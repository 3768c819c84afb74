package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-5))
	assert.Equal(t, 10, NormalizeLimit(10))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+1))
	assert.Equal(t, NormalizeLimit(10)+1, LimitWithBuffer(10))
}

func TestCursorRoundTrip(t *testing.T) {
	cursor := Cursor{
		CreatedAt: time.Date(2026, 8, 29, 10, 30, 0, 123456789, time.UTC),
		ID:        uuid.New(),
	}

	encoded := cursor.Encode()
	require.NotEmpty(t, encoded)
	// Cursors travel in query strings, so the encoding must stay
	// url-safe without escaping.
	assert.NotContains(t, encoded, "+")
	assert.NotContains(t, encoded, "/")
	assert.NotContains(t, encoded, "=")

	decoded, err := ParseCursor(encoded)
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.True(t, decoded.CreatedAt.Equal(cursor.CreatedAt))
	assert.Equal(t, cursor.ID, decoded.ID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	blank, err := ParseCursor("   ")
	require.NoError(t, err)
	assert.Nil(t, blank)

	_, err = ParseCursor("not-base64!!")
	assert.Error(t, err)

	// Valid base64 of "no-separator": decodes but has no keyset.
	_, err = ParseCursor("bm8tc2VwYXJhdG9y")
	assert.Error(t, err)

	// Separator present but the timestamp is not numeric: "x:y".
	_, err = ParseCursor("eDp5")
	assert.Error(t, err)
}
