package redisstore

import (
	"context"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studybunny/carrot/internal/domain"
)

func sampleSnapshot() domain.Snapshot {
	s := domain.NewSnapshot()
	s.Balance = decimal.RequireFromString("0.70")
	s.Counters[domain.ActivityQuizCorrect] = 12
	s.LastActiveDate = "2026-09-09"
	return s
}

func TestStore_Save(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := New(db, "test")
	snap := sampleSnapshot()

	rec, err := snap.Records()
	require.NoError(t, err)

	mock.ExpectTxPipeline()
	mock.ExpectDel("test:state").SetVal(1)
	mock.ExpectHSet("test:state", fieldValues(rec)...).SetVal(int64(len(rec)))
	mock.ExpectTxPipelineExec()

	require.NoError(t, store.Save(context.Background(), snap))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SaveError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := New(db, "test")

	rec, _ := sampleSnapshot().Records()
	mock.ExpectTxPipeline()
	mock.ExpectDel("test:state").SetErr(redis.TxFailedErr)
	mock.ExpectHSet("test:state", fieldValues(rec)...).SetErr(redis.TxFailedErr)
	mock.ExpectTxPipelineExec().SetErr(redis.TxFailedErr)

	assert.Error(t, store.Save(context.Background(), sampleSnapshot()))
}

func TestStore_Load(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := New(db, "")

	rec, err := sampleSnapshot().Records()
	require.NoError(t, err)
	mock.ExpectHGetAll("carrot:state").SetVal(rec)

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("0.7")))
	assert.Equal(t, int64(12), got.Counters[domain.ActivityQuizCorrect])
	assert.Equal(t, "2026-09-09", got.LastActiveDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_LoadEmpty(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := New(db, "test")
	mock.ExpectHGetAll("test:state").SetVal(map[string]string{})

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoSnapshot)
}

func TestStore_LoadCorrupt(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := New(db, "test")
	mock.ExpectHGetAll("test:state").SetVal(map[string]string{domain.KeyCounters: "{oops"})

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrCorruptSnapshot)
}

func TestStore_LoadError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := New(db, "test")
	mock.ExpectHGetAll("test:state").SetErr(redis.ErrClosed)

	_, err := store.Load(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNoSnapshot)
}

func TestFieldValues_Sorted(t *testing.T) {
	got := fieldValues(map[string]string{"b": "2", "a": "1"})
	assert.Equal(t, []interface{}{"a", "1", "b", "2"}, got)
}
