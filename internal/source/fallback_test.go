package source

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"ranpulse/core-go/internal/notify"
)

func TestWithFallback_UsesSecondaryAndNotifiesOnTransition(t *testing.T) {
	fail := true
	primary := Func("json:primary", func(context.Context) ([]string, error) {
		if fail {
			return nil, ErrTransport
		}
		return []string{"primary"}, nil
	})
	secondary := Func("file:local", func(context.Context) ([]string, error) {
		return []string{"secondary"}, nil
	})

	center := notify.NewCenter(10, nil)
	src := WithFallback("anomalies", primary, secondary, FallbackOptions{Log: zerolog.Nop(), Notifier: center, Title: "Anomalies source unavailable"})

	for i := 0; i < 3; i++ {
		got, err := src.Fetch(context.Background())
		if err != nil || got[0] != "secondary" {
			t.Fatalf("expected secondary result, got %v err=%v", got, err)
		}
	}
	if n := len(center.List()); n != 1 {
		t.Fatalf("expected a single notification while failing, got %d", n)
	}

	fail = false
	got, err := src.Fetch(context.Background())
	if err != nil || got[0] != "primary" {
		t.Fatalf("expected primary after recovery, got %v err=%v", got, err)
	}

	fail = true
	_, _ = src.Fetch(context.Background())
	if n := len(center.List()); n != 2 {
		t.Fatalf("expected a new notification after a fresh failure, got %d", n)
	}

	if src.Name() != "json:primary > file:local" {
		t.Fatalf("unexpected name %q", src.Name())
	}
}

func TestWithFallback_SecondaryErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	src := WithFallback("towers",
		Func("a", func(context.Context) (int, error) { return 0, ErrSchema }),
		Func("b", func(context.Context) (int, error) { return 0, boom }),
		FallbackOptions{Log: zerolog.Nop()})

	if _, err := src.Fetch(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected secondary error, got %v", err)
	}
}

func TestEmpty(t *testing.T) {
	got, err := Empty[[]string]().Fetch(context.Background())
	if err != nil || got != nil {
		t.Fatalf("expected nil slice, got %v err=%v", got, err)
	}
}
