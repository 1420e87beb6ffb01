package envutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDuration(t *testing.T) {
	t.Setenv("X_TIMEOUT", "750ms")
	assert.Equal(t, 750*time.Millisecond, Duration("X_TIMEOUT", time.Second))

	t.Setenv("X_TIMEOUT", "1500")
	assert.Equal(t, 1500*time.Millisecond, Duration("X_TIMEOUT", time.Second))

	t.Setenv("X_TIMEOUT", "soon")
	assert.Equal(t, time.Second, Duration("X_TIMEOUT", time.Second))
}

func TestScalars(t *testing.T) {
	t.Setenv("X_INT", "12")
	t.Setenv("X_FLOAT", "nope")
	t.Setenv("X_BOOL", "off")
	t.Setenv("X_STR", "  qdrant ")

	assert.Equal(t, 12, Int("X_INT", 3))
	assert.Equal(t, 0.5, Float("X_FLOAT", 0.5))
	assert.False(t, Bool("X_BOOL", true))
	assert.Equal(t, "qdrant", String("X_STR", "memory"))
	assert.Equal(t, "memory", String("X_MISSING", "memory"))
}
