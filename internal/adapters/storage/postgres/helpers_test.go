package postgres

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
)

// mockContext deja el mock en el contexto como si fuera la tx en curso.
func mockContext(mock pgxmock.PgxPoolIface) context.Context {
	return context.WithValue(context.Background(), txKey, mock)
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func intp(v int) *int { return &v }
