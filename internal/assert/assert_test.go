package assert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestThat(t *testing.T) {
	require.NotPanics(t, func() { That(true, "never") })
	require.PanicsWithValue(t, "assert.That: bad state 3", func() { That(false, "bad state %d", 3) })
}
