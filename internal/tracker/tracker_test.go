package tracker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkerRoundTrip(t *testing.T) {
	keys := []string{"task:P-003/T-1", "comment:TODO-1a2b3c4d@internal/a.go:12"}
	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			body := "some text\n\n" + Marker(key) + "\n"
			got, ok := ParseMarker(body)
			assert.True(t, ok)
			assert.Equal(t, key, got)
		})
	}
}

func TestParseMarker_Missing(t *testing.T) {
	for _, body := range []string{"", "no marker", "<!-- tracksync:source= -->", "<!-- tracksync:source=task:a/b"} {
		_, ok := ParseMarker(body)
		assert.False(t, ok, body)
	}
}

func TestError(t *testing.T) {
	base := errors.New("boom")

	err := &Error{Op: "update", Number: 4, Err: base}
	assert.Equal(t, "update issue #4: boom", err.Error())
	assert.ErrorIs(t, err, base)

	err = &Error{Op: "create", Err: base}
	assert.Equal(t, "create issue: boom", err.Error())
}
