package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "gap_records", []string{"a", "b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"gap_records"}, []string{"a", "b"}).WillReturnResult(3)

	rows := [][]any{{"x", 1}, {"y", 2}, {"z", 3}}
	n, err := CopyFrom(context.Background(), mock, "gap_records", []string{"a", "b"}, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"gap_records"}, []string{"a"}).WillReturnError(fmt.Errorf("copy failed"))

	rows := [][]any{{"x"}}
	_, err = CopyFrom(context.Background(), mock, "gap_records", []string{"a"}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO gap_records")
}
