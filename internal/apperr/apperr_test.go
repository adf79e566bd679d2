package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errSentinel = errors.New("sentinel")

func TestKindOf(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected Kind
		fatal    bool
	}{
		{name: "untagged", err: errSentinel, expected: Recoverable},
		{name: "fatal", err: NewFatal(errSentinel), expected: Fatal, fatal: true},
		{name: "recoverable", err: NewRecoverable(errSentinel), expected: Recoverable},
		{name: "wrapped fatal", err: fmt.Errorf("outer: %w", NewFatal(errSentinel)), expected: Fatal, fatal: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, KindOf(tc.err))
			assert.Equal(t, tc.fatal, IsFatal(tc.err))
			assert.ErrorIs(t, tc.err, errSentinel)
		})
	}
}

func TestNilStaysNil(t *testing.T) {
	assert.NoError(t, NewFatal(nil))
	assert.NoError(t, NewRecoverable(nil))
	assert.False(t, IsFatal(nil))
}

func TestErrorMessage(t *testing.T) {
	err := NewFatal(fmt.Errorf("bad key file %s", "/tmp/key.json"))
	assert.Equal(t, "bad key file /tmp/key.json", err.Error())
	assert.Equal(t, "fatal", KindOf(err).String())
}
