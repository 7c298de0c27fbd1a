package channel

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/pharmastock/internal/core/domain"
	"github.com/rl1809/pharmastock/internal/metrics"
)

func TestHub_PushToEveryChannel(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	hub := NewHub(nil, m)

	c1, c2 := newMockConn(), newMockConn()
	ch1 := New[ping](c1, echoHandler())
	ch2 := New[ping](c2, echoHandler())
	hub.Register("ana", ch1)
	hub.Register("ana", ch2)
	hub.Register("ana", ch2)

	assert.True(t, hub.Connected("ana"))
	assert.False(t, hub.Connected("bob"))
	assert.Equal(t, 2, hub.Count())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OpenChannels))

	require.NoError(t, hub.Push(context.Background(), "ana", pong{Type: "pong", N: 7}))
	assert.Equal(t, []string{`{"type":"pong","n":7}`}, c1.Written())
	assert.Equal(t, []string{`{"type":"pong","n":7}`}, c2.Written())
}

func TestHub_PushUnknownUser(t *testing.T) {
	hub := NewHub(nil, nil)

	err := hub.Push(context.Background(), "ghost", pong{})
	assert.True(t, domain.IsNotFound(err))
}

func TestHub_DropsClosedChannels(t *testing.T) {
	hub := NewHub(nil, nil)
	open := New[ping](newMockConn(), echoHandler())
	closed := New[ping](newMockConn(), echoHandler())
	hub.Register("ana", open)
	hub.Register("ana", closed)
	require.NoError(t, closed.Close())

	err := hub.Push(context.Background(), "ana", pong{})
	assert.True(t, domain.IsClosed(err))
	assert.Equal(t, 1, hub.Count())

	require.NoError(t, hub.Push(context.Background(), "ana", pong{}))
}

func TestHub_UnregisterAndCloseAll(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	hub := NewHub(nil, m)
	a := New[ping](newMockConn(), echoHandler())
	b := New[ping](newMockConn(), echoHandler())
	hub.Register("ana", a)
	hub.Register("bob", b)

	hub.Unregister("ana", a)
	hub.Unregister("ana", a)
	assert.False(t, hub.Connected("ana"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OpenChannels))

	hub.CloseAll()
	assert.Zero(t, hub.Count())
	assert.Equal(t, StateClosed, b.State())
	assert.Zero(t, testutil.ToFloat64(m.OpenChannels))
}
