package state

import (
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmwangi/ethpesa/core/logger"
)

func TestMain(m *testing.M) {
	_ = logger.InitLogger(nil)
	os.Exit(m.Run())
}

func newRedisTestManager(t *testing.T, ttl time.Duration) (Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisManager(rdb, ttl), mr
}

// Both Manager implementations must behave identically from the state
// machine's point of view.
func TestManagerBehaviors(t *testing.T) {
	backends := map[string]func(t *testing.T) Manager{
		"memory": func(t *testing.T) Manager { return NewMemoryManager() },
		"redis": func(t *testing.T) Manager {
			mgr, _ := newRedisTestManager(t, 0)
			return mgr
		},
	}

	for name, build := range backends {
		t.Run(name, func(t *testing.T) {
			t.Run("state round-trip", func(t *testing.T) {
				m := build(t)
				assert.Equal(t, StateIdle, m.GetState(7))
				assert.False(t, m.InProgress(7))

				m.SetState(7, State("deposit_phone"))
				assert.Equal(t, State("deposit_phone"), m.GetState(7))
				assert.True(t, m.HasState(7))
				assert.True(t, m.InProgress(7))

				m.ClearState(7)
				assert.Equal(t, StateIdle, m.GetState(7))
				assert.False(t, m.InProgress(7))
			})

			t.Run("temp round-trip", func(t *testing.T) {
				m := build(t)
				_, found := m.GetTemp(7, "phone")
				assert.False(t, found)

				m.SetTemp(7, "phone", "0712345678")
				val, found := m.GetTemp(7, "phone")
				require.True(t, found)
				assert.Equal(t, "0712345678", val)

				m.ClearTemp(7, "phone")
				_, found = m.GetTemp(7, "phone")
				assert.False(t, found)
			})

			t.Run("temp int64 survives encoding", func(t *testing.T) {
				m := build(t)
				m.SetTemp(7, "count", int64(42))
				n, ok := m.GetTempInt64(7, "count")
				require.True(t, ok)
				assert.Equal(t, int64(42), n)

				_, ok = m.GetTempInt64(7, "missing")
				assert.False(t, ok)
			})

			t.Run("clear removes everything", func(t *testing.T) {
				m := build(t)
				m.SetState(7, State("deposit_amount"))
				m.SetTemp(7, "phone", "0712345678")
				m.Clear(7)

				assert.Equal(t, StateIdle, m.GetState(7))
				_, found := m.GetTemp(7, "phone")
				assert.False(t, found)
			})

			t.Run("identities are independent", func(t *testing.T) {
				m := build(t)
				m.SetState(1, State("deposit_phone"))
				assert.Equal(t, StateIdle, m.GetState(2))
				assert.False(t, m.InProgress(2))
			})

			t.Run("get returns idle default", func(t *testing.T) {
				m := build(t)
				sess := m.Get(7)
				require.NotNil(t, sess)
				assert.Equal(t, StateIdle, sess.State)
				assert.Empty(t, sess.TempData)
			})
		})
	}
}

func TestRedisManagerSharedBacking(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	first := NewRedisManager(rdb, 0)
	first.SetState(7, State("deposit_amount"))
	first.SetTemp(7, "phone", "0712345678")

	// A second manager over the same backing sees the session, so an
	// in-flight conversation survives a process restart.
	second := NewRedisManager(rdb, 0)
	assert.Equal(t, State("deposit_amount"), second.GetState(7))
	val, found := second.GetTemp(7, "phone")
	require.True(t, found)
	assert.Equal(t, "0712345678", val)
}

func TestRedisManagerTTLExpiry(t *testing.T) {
	m, mr := newRedisTestManager(t, time.Minute)

	m.SetState(7, State("deposit_phone"))
	assert.True(t, m.InProgress(7))

	mr.FastForward(2 * time.Minute)
	assert.Equal(t, StateIdle, m.GetState(7))
	assert.False(t, m.InProgress(7))
}
