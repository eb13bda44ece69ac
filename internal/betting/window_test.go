package betting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindowStateAt(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	w := NewWindow(start.Unix(), 300*time.Second)

	assert.Equal(t, WindowOpen, w.StateAt(start))
	assert.Equal(t, WindowOpen, w.StateAt(start.Add(299*time.Second)))
	assert.Equal(t, WindowOpen, w.StateAt(start.Add(300*time.Second)))
	assert.Equal(t, WindowClosed, w.StateAt(start.Add(301*time.Second)))
}

func TestWindowOpenBeforeEstimatedStart(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	w := NewWindow(start.Unix(), 300*time.Second)

	// O refinamento pode empurrar o início para depois de "agora".
	assert.Equal(t, WindowOpen, w.StateAt(start.Add(-30*time.Second)))
}

func TestWindowRemaining(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	w := NewWindow(start.Unix(), 300*time.Second)

	assert.Equal(t, 300*time.Second, w.Remaining(start))
	assert.Equal(t, 100*time.Second, w.Remaining(start.Add(200*time.Second)))
	assert.Zero(t, w.Remaining(start.Add(400*time.Second)))
}
