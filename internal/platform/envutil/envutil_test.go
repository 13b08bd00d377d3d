package envutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLookups(t *testing.T) {
	t.Setenv("ENVUTIL_STR", "  hello ")
	t.Setenv("ENVUTIL_INT", "42")
	t.Setenv("ENVUTIL_BAD_INT", "forty")
	t.Setenv("ENVUTIL_BOOL", "off")
	t.Setenv("ENVUTIL_FLOAT", "0.25")
	t.Setenv("ENVUTIL_DUR", "45s")
	t.Setenv("ENVUTIL_DUR_SECS", "90")

	assert.Equal(t, "hello", String("ENVUTIL_STR", "x"))
	assert.Equal(t, "x", String("ENVUTIL_MISSING", "x"))
	assert.Equal(t, 42, Int("ENVUTIL_INT", 1))
	assert.Equal(t, 1, Int("ENVUTIL_BAD_INT", 1))
	assert.False(t, Bool("ENVUTIL_BOOL", true))
	assert.True(t, Bool("ENVUTIL_MISSING", true))
	assert.InDelta(t, 0.25, Float("ENVUTIL_FLOAT", 1), 1e-9)
	assert.Equal(t, 45*time.Second, Duration("ENVUTIL_DUR", time.Second))
	assert.Equal(t, 90*time.Second, Duration("ENVUTIL_DUR_SECS", time.Second))
	assert.Equal(t, time.Second, Duration("ENVUTIL_MISSING", time.Second))
}
