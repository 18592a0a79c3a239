package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/danfe-xml-api/internal/domain/entity"
)

// fakeQuerier guarda la última sentencia ejecutada.
type fakeQuerier struct {
	sql  []string
	args [][]any
	err  error
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = append(f.sql, sql)
	f.args = append(f.args, args)
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func (f *fakeQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("no usado")
}

func (f *fakeQuerier) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

func TestRetrievalLogRepo_Record(t *testing.T) {
	q := &fakeQuerier{}
	repo := NewRetrievalLogRepository(q)
	at := time.Date(2024, 11, 5, 12, 0, 0, 0, time.UTC)

	err := repo.Record(context.Background(), &entity.RetrievalLog{
		ID: "b3f1", ChaveMasked: "3524***9067", Source: "http", Code: "OK",
		FileName: "nota.xml", Attempts: 1, DurationMs: 15300, CreatedAt: at,
	})
	require.NoError(t, err)
	require.Len(t, q.sql, 1)
	assert.Contains(t, q.sql[0], "INSERT INTO retrieval_log")
	assert.Equal(t, []any{"b3f1", "3524***9067", "http", "OK", "nota.xml", 1, int64(15300), at}, q.args[0])
}

func TestRetrievalLogRepo_IdDuplicadoSeIgnora(t *testing.T) {
	q := &fakeQuerier{err: &pgconn.PgError{Code: "23505"}}
	err := NewRetrievalLogRepository(q).Record(context.Background(), &entity.RetrievalLog{ID: "x"})
	assert.NoError(t, err)
}

func TestRetrievalLogRepo_ErrorSePropaga(t *testing.T) {
	q := &fakeQuerier{err: errors.New("conexión cerrada")}
	err := NewRetrievalLogRepository(q).Record(context.Background(), &entity.RetrievalLog{ID: "x"})
	assert.ErrorContains(t, err, "insert retrieval_log")
}

func TestRetrievalLogRepo_EnsureSchema(t *testing.T) {
	q := &fakeQuerier{}
	require.NoError(t, NewRetrievalLogRepository(q).EnsureSchema(context.Background()))
	assert.True(t, strings.Contains(q.sql[0], "CREATE TABLE IF NOT EXISTS retrieval_log"))
	assert.Empty(t, q.args[0], "sin argumentos para usar el protocolo simple")
}

func TestResolveIPv4_Literales(t *testing.T) {
	ip, err := resolveIPv4("10.0.0.7")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.7", ip)

	_, err = resolveIPv4("::1")
	assert.Error(t, err)
}

func TestDatabaseURLWithIPv4(t *testing.T) {
	assert.Equal(t, "postgres://u:p@127.0.0.1:5432/danfe?sslmode=disable",
		databaseURLWithIPv4("postgres://u:p@127.0.0.1/danfe?sslmode=disable"), "puerto por defecto")
	assert.Equal(t, "::not a url", databaseURLWithIPv4("::not a url"))
}
