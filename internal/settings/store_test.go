package settings

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var settingCols = []string{"id", "key", "value", "type", "description", "updated_at"}

func TestPgStoreUpdateValue(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("UPDATE setting").
		WithArgs(KeySlotDuration, "45").
		WillReturnRows(pgxmock.NewRows(settingCols).
			AddRow(int64(4), KeySlotDuration, "45", TypeNumber, (*string)(nil), now))

	s, err := NewPgStore(mock).UpdateValue(context.Background(), KeySlotDuration, "45")
	require.NoError(t, err)
	assert.Equal(t, "45", s.Value)
	assert.Equal(t, TypeNumber, s.Type)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreGetMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM setting WHERE key").
		WithArgs("theme").
		WillReturnError(pgx.ErrNoRows)

	_, err = NewPgStore(mock).Get(context.Background(), "theme")
	assert.ErrorIs(t, err, ErrSettingNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreSeedSkipsExisting(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := Defaults()[:2]
	mock.ExpectExec("INSERT INTO setting").
		WithArgs(rows[0].Key, rows[0].Value, rows[0].Type, rows[0].Description).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectExec("INSERT INTO setting").
		WithArgs(rows[1].Key, rows[1].Value, rows[1].Type, rows[1].Description).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	added, err := NewPgStore(mock).Seed(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInMemoryStoreSeedIsIdempotent(t *testing.T) {
	store := NewInMemoryStore(Defaults()...)

	added, err := store.Seed(context.Background(), Defaults())
	require.NoError(t, err)
	assert.Zero(t, added)

	rows, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 6)
}
