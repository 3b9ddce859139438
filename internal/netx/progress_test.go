package netx

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressReader(t *testing.T) {
	var fractions []float64
	pr := newProgressReader(strings.NewReader("0123456789"), 10, func(f float64) {
		fractions = append(fractions, f)
	})

	var out bytes.Buffer
	n, err := io.CopyBuffer(&out, pr, make([]byte, 4))
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
	assert.Equal(t, "0123456789", out.String())

	require.NotEmpty(t, fractions)
	assert.Equal(t, 1.0, fractions[len(fractions)-1])
	for i := 1; i < len(fractions); i++ {
		assert.GreaterOrEqual(t, fractions[i], fractions[i-1], "progress never goes backwards")
	}
}

func TestProgressReader_ClampsOverrun(t *testing.T) {
	// total understated: the fraction still tops out at 1
	var last float64
	pr := newProgressReader(strings.NewReader("0123456789"), 4, func(f float64) { last = f })

	_, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Equal(t, 1.0, last)
}

func TestProgressReader_SilentWithoutTotal(t *testing.T) {
	calls := 0
	pr := newProgressReader(strings.NewReader("abc"), 0, func(float64) { calls++ })

	_, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Zero(t, calls, "unknown totals make no callbacks")
}

func TestProgressReader_NilCallback(t *testing.T) {
	pr := newProgressReader(strings.NewReader("abc"), 3, nil)
	got, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}
