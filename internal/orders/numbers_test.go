package orders

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeCounter struct {
	n   int64
	err error
}

func (f *fakeCounter) Next(ctx context.Context) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.n++
	return f.n, nil
}

type fakeIndex struct {
	taken map[string]bool
}

func (f *fakeIndex) NumberExists(ctx context.Context, number string) (bool, error) {
	return f.taken[number], nil
}

func TestCountingGeneratorFormat(t *testing.T) {
	g := NewCountingGenerator(&fakeCounter{}, &fakeIndex{})

	got, err := g.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got != "VK-000001" {
		t.Errorf("number = %s, want VK-000001", got)
	}
}

func TestCountingGeneratorSkipsCollisions(t *testing.T) {
	// A reset counter re-mints 1 and 2; both are taken already.
	g := NewCountingGenerator(&fakeCounter{}, &fakeIndex{taken: map[string]bool{
		"VK-000001": true,
		"VK-000002": true,
	}})

	got, err := g.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got != "VK-000003" {
		t.Errorf("number = %s, want VK-000003", got)
	}
}

func TestCountingGeneratorFailsClosed(t *testing.T) {
	taken := map[string]bool{}
	for _, n := range []string{"VK-000001", "VK-000002", "VK-000003", "VK-000004", "VK-000005"} {
		taken[n] = true
	}
	g := NewCountingGenerator(&fakeCounter{}, &fakeIndex{taken: taken})

	if _, err := g.Next(context.Background()); !errors.Is(err, ErrNumberExhausted) {
		t.Errorf("err = %v, want ErrNumberExhausted", err)
	}
}

func TestCountingGeneratorCounterError(t *testing.T) {
	g := NewCountingGenerator(&fakeCounter{err: errors.New("redis down")}, &fakeIndex{})
	if _, err := g.Next(context.Background()); err == nil {
		t.Error("expected error when the counter is unavailable")
	}
}

func TestTimeGeneratorFormat(t *testing.T) {
	g := NewTimeGenerator()
	g.now = func() time.Time { return time.UnixMilli(1750000000000) }

	got, err := g.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !strings.HasPrefix(got, "VKT-1750000000000") {
		t.Errorf("number = %s", got)
	}
	if len(got) != len("VKT-")+15 {
		t.Errorf("number %s has %d digits, want 15", got, len(got)-len("VKT-"))
	}
}

func TestGeneratorPrefixesNeverOverlap(t *testing.T) {
	counting := NewCountingGenerator(&fakeCounter{}, &fakeIndex{})
	timed := NewTimeGenerator()

	a, _ := counting.Next(context.Background())
	b, _ := timed.Next(context.Background())

	if strings.HasPrefix(a, "VKT-") || !strings.HasPrefix(b, "VKT-") {
		t.Errorf("prefixes overlap: %s vs %s", a, b)
	}
}
