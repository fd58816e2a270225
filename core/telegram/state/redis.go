package state

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"log/slog"

	"github.com/kmwangi/ethpesa/core/logger"
	tghelpers "github.com/kmwangi/ethpesa/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const redisOpTimeout = 2 * time.Second

type redisManager struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisManager constructs a Manager backed by Redis so conversation state
// survives process restarts and can be shared between instances. A zero ttl
// keeps sessions indefinitely, matching the in-memory manager.
func NewRedisManager(rdb *redis.Client, ttl time.Duration) Manager {
	return &redisManager{rdb: rdb, prefix: "fsm:", ttl: ttl}
}

type redisSession struct {
	State State                  `json:"state"`
	Temp  map[string]interface{} `json:"temp,omitempty"`
}

func (m *redisManager) key(userID int64) string {
	return m.prefix + strconv.FormatInt(userID, 10)
}

func (m *redisManager) load(userID int64) *redisSession {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	raw, err := m.rdb.Get(ctx, m.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		logger.TG.Warn("session load failed",
			slog.String("event", "fsm.redis"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return nil
	}
	var sess redisSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		logger.TG.Warn("session decode failed",
			slog.String("event", "fsm.redis"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return nil
	}
	return &sess
}

func (m *redisManager) save(userID int64, sess *redisSession) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	raw, err := json.Marshal(sess)
	if err == nil {
		err = m.rdb.Set(ctx, m.key(userID), raw, m.ttl).Err()
	}
	if err != nil {
		logger.TG.Warn("session save failed",
			slog.String("event", "fsm.redis"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
}

func (m *redisManager) mutate(userID int64, fn func(*redisSession)) {
	sess := m.load(userID)
	if sess == nil {
		sess = &redisSession{State: StateIdle}
	}
	if sess.Temp == nil {
		sess.Temp = make(map[string]interface{})
	}
	fn(sess)
	m.save(userID, sess)
}

// Get returns the session for a user, or a default idle session.
func (m *redisManager) Get(userID int64) *Session {
	sess := m.load(userID)
	if sess == nil {
		return &Session{State: StateIdle, TempData: make(map[string]interface{})}
	}
	temp := sess.Temp
	if temp == nil {
		temp = make(map[string]interface{})
	}
	return &Session{State: sess.State, TempData: temp}
}

// Set updates the state for a user.
func (m *redisManager) Set(userID int64, st State) { m.SetState(userID, st) }

// SetTemp stores a temporary key/value pair for the user session.
func (m *redisManager) SetTemp(userID int64, key string, value interface{}) {
	m.mutate(userID, func(s *redisSession) { s.Temp[key] = value })
}

// GetTemp retrieves a temporary value by key.
func (m *redisManager) GetTemp(userID int64, key string) (interface{}, bool) {
	sess := m.load(userID)
	if sess == nil || sess.Temp == nil {
		return nil, false
	}
	val, ok := sess.Temp[key]
	return val, ok
}

// GetTempInt64 retrieves a temporary value by key as int64. JSON round-trips
// numbers as float64, so both representations are accepted.
func (m *redisManager) GetTempInt64(userID int64, key string) (int64, bool) {
	val, found := m.GetTemp(userID, key)
	if !found {
		return 0, false
	}
	switch v := val.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	}
	return 0, false
}

// ClearTemp removes a temporary key/value pair.
func (m *redisManager) ClearTemp(userID int64, key string) {
	m.mutate(userID, func(s *redisSession) { delete(s.Temp, key) })
}

// Clear removes the entire session for a user.
func (m *redisManager) Clear(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := m.rdb.Del(ctx, m.key(userID)).Err(); err != nil {
		logger.TG.Warn("session clear failed",
			slog.String("event", "fsm.redis"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
}

// SetState sets the FSM state for the user.
func (m *redisManager) SetState(userID int64, st State) {
	m.mutate(userID, func(s *redisSession) { s.State = st })
}

// GetState returns the current FSM state, or StateIdle if none exists.
func (m *redisManager) GetState(userID int64) State {
	sess := m.load(userID)
	if sess == nil || sess.State == "" {
		return StateIdle
	}
	return sess.State
}

// ClearState resets the state to idle without removing temp data.
func (m *redisManager) ClearState(userID int64) {
	m.mutate(userID, func(s *redisSession) { s.State = StateIdle })
}

// HasState checks whether a user has an active non-idle state.
func (m *redisManager) HasState(userID int64) bool {
	return m.GetState(userID) != StateIdle
}

// InProgress reports whether the user currently has an active FSM state.
func (m *redisManager) InProgress(userID int64) bool {
	return m.HasState(userID)
}

// ManagerHandler executes the handler registered for the user's current state.
func (m *redisManager) ManagerHandler(c tele.Context) error {
	userID := c.Sender().ID
	current := m.GetState(userID)
	ctx := tghelpers.BuildContext(c)
	logger.Debug(ctx, "tg", "fsm.manager",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("state", string(current)),
	)

	if handler, ok := fsmHandlers[current]; ok {
		return handler(c)
	}
	return nil
}
