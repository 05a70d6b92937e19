package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientAppliesTimeouts(t *testing.T) {
	srv := miniredis.RunT(t)
	client := NewClient(Options{Addr: srv.Addr(), Timeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })

	opts := client.Options()
	assert.Equal(t, 100*time.Millisecond, opts.ReadTimeout)
	assert.Equal(t, 400*time.Millisecond, opts.DialTimeout)
	require.NoError(t, client.Ping(context.Background()).Err())
}

func TestNewClientDoesNotDialEagerly(t *testing.T) {
	client := NewClient(Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = client.Close() })

	assert.Equal(t, 250*time.Millisecond, client.Options().WriteTimeout)
	assert.Error(t, client.Ping(context.Background()).Err())
}
