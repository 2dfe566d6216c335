package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"ranpulse/core-go/internal/chat"
)

type fakeAsker struct {
	answer chat.Answer
	err    error
	got    string
}

func (f *fakeAsker) Ask(_ context.Context, query string) (chat.Answer, error) {
	f.got = query
	return f.answer, f.err
}

func TestRunAsk(t *testing.T) {
	asker := &fakeAsker{answer: chat.Answer{Text: "Cell 12 shows low SINR."}}
	var out bytes.Buffer
	if err := runAsk(context.Background(), asker, "why is cell 12 degraded", &out); err != nil {
		t.Fatal(err)
	}
	if asker.got != "why is cell 12 degraded" || out.String() != "Cell 12 shows low SINR.\n" {
		t.Fatalf("unexpected exchange %q -> %q", asker.got, out.String())
	}

	asker.err = chat.ErrUpstream
	if err := runAsk(context.Background(), asker, "again", &out); !errors.Is(err, chat.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}
