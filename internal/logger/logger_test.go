package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	for _, debug := range []bool{true, false} {
		l, err := New(debug)
		require.NoError(t, err)
		require.NotNil(t, l)
		l.Info("hello")
	}
}

func TestMust(t *testing.T) {
	require.NotNil(t, Must(false))
}
