package connpool

import (
	"context"
	"database/sql"
	stderrors "errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	_ "modernc.org/sqlite"

	"github.com/ajitpratap0/schemagit/pkg/errors"
)

type stubSession struct {
	slot   int
	closed *int32
}

func (s *stubSession) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, nil
}

func (s *stubSession) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, stderrors.New("not implemented")
}

func (s *stubSession) Close() error {
	atomic.AddInt32(s.closed, 1)
	return nil
}

func TestOpenAllSlots(t *testing.T) {
	var closed int32
	p, err := Open(context.Background(), 4, func(_ context.Context, slot int) (Session, error) {
		return &stubSession{slot: slot, closed: &closed}, nil
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 4, p.Size())

	for i := 0; i < 4; i++ {
		s, err := p.Acquire(i)
		require.NoError(t, err)
		assert.Equal(t, i, s.(*stubSession).slot)
	}

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, int32(4), atomic.LoadInt32(&closed))
}

func TestOpenFailureClosesOpenedSessions(t *testing.T) {
	var closed int32
	_, err := Open(context.Background(), 4, func(_ context.Context, slot int) (Session, error) {
		if slot == 2 {
			return nil, stderrors.New("ORA-12541: TNS:no listener")
		}
		return &stubSession{slot: slot, closed: &closed}, nil
	}, zaptest.NewLogger(t))

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))
	assert.Contains(t, err.Error(), "ORA-12541")
	slot, ok := errors.Detail(err, "slot")
	require.True(t, ok)
	assert.Equal(t, 2, slot)
	assert.Equal(t, int32(2), atomic.LoadInt32(&closed))
}

func TestOpenRejectsEmptyPool(t *testing.T) {
	_, err := Open(context.Background(), 0, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestAcquireRelease(t *testing.T) {
	var closed int32
	p, err := Open(context.Background(), 2, func(_ context.Context, slot int) (Session, error) {
		return &stubSession{slot: slot, closed: &closed}, nil
	}, nil)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Acquire(1)
	require.NoError(t, err)

	_, err = p.Acquire(1)
	assert.Error(t, err, "slot is owned by one worker at a time")

	p.Release(1)
	_, err = p.Acquire(1)
	assert.NoError(t, err)

	_, err = p.Acquire(2)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	_, err = p.Acquire(-1)
	assert.Error(t, err)
}

func TestAcquireAfterClose(t *testing.T) {
	var closed int32
	p, err := Open(context.Background(), 1, func(_ context.Context, slot int) (Session, error) {
		return &stubSession{slot: slot, closed: &closed}, nil
	}, nil)
	require.NoError(t, err)
	require.NoError(t, p.Close())

	_, err = p.Acquire(0)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))
}

func TestFromDBOpensDedicatedConnections(t *testing.T) {
	db, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "pool.db"))
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(3)

	p, err := Open(context.Background(), 3, FromDB(db, 5*time.Second), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer p.Close()

	for i := 0; i < 3; i++ {
		s, err := p.Acquire(i)
		require.NoError(t, err)
		rows, err := s.QueryContext(context.Background(), "SELECT 1")
		require.NoError(t, err)
		require.True(t, rows.Next())
		require.NoError(t, rows.Close())
	}
	assert.Equal(t, 3, db.Stats().InUse)
}
