package workflow

import (
	"context"
	"errors"
	"testing"
)

func TestRegistry_OpenIsIdempotent(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(&recordingBus{}, nil)
	var opened int
	r.OnOpen(func(context.Context, *Coordinator) error {
		opened++
		return nil
	})

	info := ProjectInfo{ID: "p1", ContractorID: "c1", HomeownerID: "h1"}
	a, err := r.Open(ctx, info)
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Open(ctx, info)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("second Open returned a different coordinator")
	}
	if opened != 1 {
		t.Fatalf("hook ran %d times, want 1", opened)
	}

	got, err := r.Get("p1")
	if err != nil || got != a {
		t.Fatalf("Get() = %v, %v", got, err)
	}
	if _, err := r.Get("p2"); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("Get(unknown) err = %v", err)
	}
}

func TestRegistry_OpenConflicts(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(&recordingBus{}, nil)
	if _, err := r.Open(ctx, ProjectInfo{ID: "p1", ContractorID: "c1", HomeownerID: "h1"}); err != nil {
		t.Fatal(err)
	}

	if _, err := r.Open(ctx, ProjectInfo{ID: "p1", ContractorID: "c2"}); !errors.Is(err, ErrProjectConflict) {
		t.Fatalf("different contractor: err = %v", err)
	}
	if _, err := r.Open(ctx, ProjectInfo{ID: "p1", ContractorID: "c1", HomeownerID: "h2"}); !errors.Is(err, ErrProjectConflict) {
		t.Fatalf("different homeowner: err = %v", err)
	}
	if _, err := r.Open(ctx, ProjectInfo{ContractorID: "c1"}); err == nil {
		t.Fatal("missing id accepted")
	}
}

func TestRegistry_LinkHomeownerRerunsHooks(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(&recordingBus{}, nil)
	var seen []string
	r.OnOpen(func(_ context.Context, c *Coordinator) error {
		seen = append(seen, c.Info().HomeownerID)
		return errors.New("hook errors are logged only")
	})

	if _, err := r.Open(ctx, ProjectInfo{ID: "p1", ContractorID: "c1"}); err != nil {
		t.Fatal(err)
	}
	c, err := r.Open(ctx, ProjectInfo{ID: "p1", ContractorID: "c1", HomeownerID: "h1"})
	if err != nil {
		t.Fatal(err)
	}
	if c.Info().HomeownerID != "h1" {
		t.Fatalf("homeowner = %q", c.Info().HomeownerID)
	}
	if len(seen) != 2 || seen[0] != "" || seen[1] != "h1" {
		t.Fatalf("hook calls = %q", seen)
	}
	if ids := r.IDs(); len(ids) != 1 || ids[0] != "p1" {
		t.Fatalf("IDs() = %v", ids)
	}
}
