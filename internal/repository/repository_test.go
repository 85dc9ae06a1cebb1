package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"projectflow/contracts/db"
)

type mockDB struct {
	ExecFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return m.ExecFunc(ctx, sql, args...)
}

func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return m.QueryFunc(ctx, sql, args...)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return m.QueryRowFunc(ctx, sql, args...)
}

type fakeRow struct {
	ScanFunc func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.ScanFunc(dest...) }

func TestNotificationRepository_Insert(t *testing.T) {
	var gotArgs []any
	tag := pgconn.NewCommandTag("INSERT 0 1")
	repo := NewNotificationRepository(&mockDB{
		ExecFunc: func(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
			gotArgs = args
			return tag, nil
		},
	})

	n := &db.Notification{
		ID:        "n1",
		UserID:    "h1",
		ProjectID: "p1",
		Type:      "milestone_proposed",
		Message:   "New milestone proposed: Foundation",
		Payload:   json.RawMessage(`{}`),
		CreatedAt: time.Now(),
	}
	inserted, err := repo.Insert(context.Background(), n)
	if err != nil || !inserted {
		t.Fatalf("Insert() = %v, %v", inserted, err)
	}
	if len(gotArgs) != 8 || gotArgs[0] != "n1" || gotArgs[1] != "h1" {
		t.Fatalf("args = %v", gotArgs)
	}

	tag = pgconn.NewCommandTag("INSERT 0 0")
	inserted, err = repo.Insert(context.Background(), n)
	if err != nil || inserted {
		t.Fatalf("duplicate Insert() = %v, %v", inserted, err)
	}
}

func TestNotificationRepository_InsertWrapsErrors(t *testing.T) {
	cause := errors.New("connection refused")
	repo := NewNotificationRepository(&mockDB{
		ExecFunc: func(context.Context, string, ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, cause
		},
	})
	if _, err := repo.Insert(context.Background(), &db.Notification{ID: "n1"}); !errors.Is(err, cause) {
		t.Fatalf("err = %v", err)
	}
}

func TestActivityRepository_Insert(t *testing.T) {
	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := NewActivityRepository(&mockDB{
		QueryRowFunc: func(_ context.Context, _ string, args ...any) pgx.Row {
			if args[0] != "p1" || args[2] != "milestone_accepted" {
				t.Errorf("args = %v", args)
			}
			return fakeRow{ScanFunc: func(dest ...any) error {
				*dest[0].(*int64) = 42
				*dest[1].(*time.Time) = created
				return nil
			}}
		},
	})

	a := &db.ActivityLog{ProjectID: "p1", Kind: "milestones", EventType: "milestone_accepted", Payload: json.RawMessage(`{}`)}
	if err := repo.Insert(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	if a.ID != 42 || !a.CreatedAt.Equal(created) {
		t.Fatalf("row = %+v", a)
	}
}
