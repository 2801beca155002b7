package notice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoard_PostThenAutoClear(t *testing.T) {
	t.Parallel()

	b := NewBoard(30 * time.Millisecond)
	_, ok := b.Current()
	assert.False(t, ok)

	b.Post("Order 1001 marked confirmed")

	msg, ok := b.Current()
	require.True(t, ok)
	assert.Equal(t, "Order 1001 marked confirmed", msg.Text)

	assert.Eventually(t, func() bool {
		_, ok := b.Current()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestBoard_NewPostRestartsTimer(t *testing.T) {
	t.Parallel()

	b := NewBoard(60 * time.Millisecond)
	b.Post("first")
	time.Sleep(40 * time.Millisecond)
	b.Post("second")
	time.Sleep(40 * time.Millisecond)

	msg, ok := b.Current()
	require.True(t, ok, "the first timer must not clear the second message")
	assert.Equal(t, "second", msg.Text)

	b.Close()
	_, ok = b.Current()
	assert.False(t, ok)
}

func TestNewBoard_DefaultTTL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultTTL, NewBoard(0).ttl)
}
