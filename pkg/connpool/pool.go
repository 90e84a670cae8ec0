// Package connpool holds a fixed set of independent database sessions.
//
// Slot i of the pool serves shard i of every object type, so at most one
// in-flight worker owns a slot at any time. Sessions are opened eagerly by
// Open and stay open for the whole run; there is no reconnection.
package connpool

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ajitpratap0/schemagit/pkg/errors"
)

// Session is one dedicated database session. *sql.Conn satisfies it.
type Session interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	Close() error
}

// Opener opens the session for one slot.
type Opener func(ctx context.Context, slot int) (Session, error)

// Pool is a fixed-size set of sessions indexed by slot.
type Pool struct {
	sessions []Session
	leased   []bool
	mu       sync.Mutex
	closed   bool
	logger   *zap.Logger
}

// Open opens size sessions with opener. If any slot fails, the sessions
// already opened are closed and a connection error is returned.
func Open(ctx context.Context, size int, opener Opener, logger *zap.Logger) (*Pool, error) {
	if size < 1 {
		return nil, errors.Newf(errors.ErrorTypeConfig, "pool size must be at least 1, got %d", size)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pool{
		sessions: make([]Session, 0, size),
		leased:   make([]bool, size),
		logger:   logger.With(zap.String("component", "connpool")),
	}

	for slot := 0; slot < size; slot++ {
		s, err := opener(ctx, slot)
		if err != nil {
			closeErr := p.closeAll()
			wrapped := errors.Wrap(multierr.Append(err, closeErr), errors.ErrorTypeConnection,
				fmt.Sprintf("failed to open session %d of %d", slot+1, size))
			return nil, wrapped.WithDetail("slot", slot)
		}
		p.sessions = append(p.sessions, s)
		p.logger.Debug("session opened", zap.Int("slot", slot))
	}

	p.logger.Info("connection pool ready", zap.Int("size", size))
	return p, nil
}

// Size returns the number of slots.
func (p *Pool) Size() int {
	return len(p.leased)
}

// Acquire leases the session of slot. A slot can be held by one caller at a
// time; Release returns it.
func (p *Pool) Acquire(slot int) (Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, errors.New(errors.ErrorTypeConnection, "connection pool is closed")
	}
	if slot < 0 || slot >= len(p.sessions) {
		return nil, errors.Newf(errors.ErrorTypeConfig, "slot %d out of range [0, %d)", slot, len(p.sessions))
	}
	if p.leased[slot] {
		return nil, errors.Newf(errors.ErrorTypeInternal, "slot %d is already in use", slot)
	}
	p.leased[slot] = true
	return p.sessions[slot], nil
}

// Release returns slot to the pool.
func (p *Pool) Release(slot int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if slot >= 0 && slot < len(p.leased) {
		p.leased[slot] = false
	}
}

// Close closes every session. It is safe to call more than once.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	err := p.closeAll()
	p.logger.Debug("connection pool closed", zap.Int("size", len(p.leased)))
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to close sessions")
	}
	return nil
}

func (p *Pool) closeAll() error {
	var err error
	for _, s := range p.sessions {
		err = multierr.Append(err, s.Close())
	}
	p.sessions = p.sessions[:0]
	return err
}

// FromDB returns an Opener that takes one dedicated connection per slot from
// db and pings it within timeout. db must allow at least as many open
// connections as the pool has slots.
func FromDB(db *sql.DB, timeout time.Duration) Opener {
	return func(ctx context.Context, slot int) (Session, error) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		conn, err := db.Conn(ctx)
		if err != nil {
			return nil, err
		}
		if err := conn.PingContext(ctx); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return conn, nil
	}
}
