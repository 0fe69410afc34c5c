package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	values []string
	err    error
}

func (f fakeRow) Scan(dest ...any) error {
	if f.err != nil {
		return f.err
	}
	for i, d := range dest {
		*d.(*string) = f.values[i]
	}
	return nil
}

type fakeDB struct {
	rows map[int64]fakeRow
	args []any
}

func (f *fakeDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	f.args = args
	row, ok := f.rows[args[0].(int64)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return row
}

func TestPropertyRepository_Describe(t *testing.T) {
	db := &fakeDB{rows: map[int64]fakeRow{
		12: {values: []string{"Sunset Villa", "1 Ocean Drive"}},
		13: {err: fmt.Errorf("connection reset")},
	}}
	repo := NewPropertyRepository(logs.GetLoggerFromLevel(slog.LevelDebug), db)

	tests := []struct {
		name     string
		text     string
		expected string
		wantErr  bool
	}{
		{name: "found", text: "Tell me about property 12 please", expected: "Property 12: Sunset Villa, 1 Ocean Drive"},
		{name: "unknown id", text: "property 99?", expected: "I couldn't find any information on property 99."},
		{name: "no id", text: "Which property is free?", expected: "Database query for properties would happen here."},
		{name: "query failure", text: "property 13", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			answer, err := repo.Describe(context.Background(), tt.text)
			if tt.wantErr {
				req.Error(err)
				return
			}
			req.NoError(err)
			req.Equal(tt.expected, answer)
		})
	}
}
