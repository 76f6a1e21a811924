package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var serviceCols = []string{"id", "name", "description", "duration", "price", "active", "display_order", "created_at", "updated_at"}

func strPtr(v string) *string { return &v }

func TestPgRepositoryListActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT .+ FROM service\\s+WHERE active = true").
		WillReturnRows(pgxmock.NewRows(serviceCols).
			AddRow(int64(1), "Declaração de Imposto de Renda", strPtr("IRPF"), 60, (*int)(nil), true, 1, now, now).
			AddRow(int64(2), "Abertura de Empresa", (*string)(nil), 90, intPtr(50000), true, 2, now, now))

	repo := NewPgRepository(mock)
	services, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, "IRPF", *services[0].Description)
	assert.Nil(t, services[1].Description)
	assert.Equal(t, 50000, *services[1].Price)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepositoryGetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM service\\s+WHERE id = \\$1").
		WithArgs(int64(7)).
		WillReturnError(pgx.ErrNoRows)

	_, err = NewPgRepository(mock).GetByID(context.Background(), 7)
	assert.ErrorIs(t, err, ErrServiceNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepositoryCreateDuplicateName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	in := CreateInput{Name: "Consultoria Fiscal", Duration: 60}
	mock.ExpectQuery("INSERT INTO service").
		WithArgs(in.Name, in.Description, in.Duration, in.Price, in.DisplayOrder).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err = NewPgRepository(mock).Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrDuplicateName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepositorySoftDeleteUpdatesActiveOnly(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	inactive := false
	in := UpdateInput{Active: &inactive}
	now := time.Now().UTC()
	mock.ExpectQuery("UPDATE service").
		WithArgs(int64(3), in.Name, in.Description, in.Duration, in.Price, in.Active, in.DisplayOrder).
		WillReturnRows(pgxmock.NewRows(serviceCols).
			AddRow(int64(3), "Contabilidade Mensal", (*string)(nil), 45, (*int)(nil), false, 4, now, now))

	s, err := NewPgRepository(mock).Update(context.Background(), 3, in)
	require.NoError(t, err)
	assert.False(t, s.Active)
	assert.Equal(t, 45, s.Duration)
	require.NoError(t, mock.ExpectationsWereMet())
}
