package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/smarttask/backend/domain"
)

type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func fixed(response string) Generator {
	return generatorFunc(func(context.Context, string) (string, error) {
		return response, nil
	})
}

func newTestPipeline(gen Generator, now time.Time) *Pipeline {
	p := New(gen, time.Second, nil)
	p.now = func() time.Time { return now }
	return p
}

func TestExtract_ValidResponse(t *testing.T) {
	p := newTestPipeline(fixed(`{"task": "Send project report", "customer": "John", "due_date": "14-11-2024", "priority": "Medium"}`), time.Now())

	draft, err := p.Extract(context.Background(), "send the report to John by the 14th")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if draft.Description != "Send project report" {
		t.Errorf("unexpected description %q", draft.Description)
	}
	if draft.Customer != "John" {
		t.Errorf("unexpected customer %q", draft.Customer)
	}
	if draft.DueDate != "14-11-2024" {
		t.Errorf("unexpected due date %q", draft.DueDate)
	}
	if draft.Priority != domain.PriorityMedium {
		t.Errorf("unexpected priority %q", draft.Priority)
	}
}

func TestExtract_StripsCodeFences(t *testing.T) {
	record := `{"task": "Call supplier", "customer": "Acme", "due_date": "01-12-2030", "priority": "High"}`
	cases := []struct {
		name     string
		response string
	}{
		{"no fence", record},
		{"bare fence", "```\n" + record + "\n```"},
		{"json tag", "```json\n" + record + "\n```"},
		{"surrounding whitespace", "\n\n```json\n" + record + "\n```\n\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newTestPipeline(fixed(tc.response), time.Now())
			draft, err := p.Extract(context.Background(), "call acme")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if draft.Description != "Call supplier" {
				t.Errorf("unexpected description %q", draft.Description)
			}
		})
	}
}

func TestExtract_ResolvesLiteralTomorrow(t *testing.T) {
	now := time.Date(2024, 11, 14, 9, 0, 0, 0, time.UTC)
	want := "15-11-2024"

	for _, echo := range []string{"tomorrow", "Tomorrow", "TOMORROW"} {
		response := fmt.Sprintf(`{"task":"Write an email to David on ABC project","customer":"David","due_date":%q,"priority":"Medium"}`, echo)
		p := newTestPipeline(fixed(response), now)

		draft, err := p.Extract(context.Background(), "Write an email to David on ABC project by tomorrow")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", echo, err)
		}
		if draft.DueDate != want {
			t.Errorf("%s: due date = %q, want %q", echo, draft.DueDate, want)
		}
	}
}

func TestExtract_MissingFieldIsIncompleteRecord(t *testing.T) {
	p := newTestPipeline(fixed(`{"task": "Write an email", "customer": "David", "due_date": "15-11-2024"}`), time.Now())

	_, err := p.Extract(context.Background(), "write an email")
	if !errors.Is(err, domain.ErrIncompleteRecord) {
		t.Fatalf("expected ErrIncompleteRecord, got %v", err)
	}
	if !strings.Contains(err.Error(), "priority") {
		t.Errorf("error should name the missing field, got %q", err.Error())
	}
}

func TestExtract_MalformedResponses(t *testing.T) {
	cases := []struct {
		name     string
		response string
	}{
		{"not json", "I could not parse that note, sorry!"},
		{"truncated", `{"task": "x", "customer":`},
		{"invalid priority", `{"task":"x","customer":"y","due_date":"15-11-2024","priority":"Urgent"}`},
		{"invalid due date", `{"task":"x","customer":"y","due_date":"soonish","priority":"Low"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newTestPipeline(fixed(tc.response), time.Now())
			_, err := p.Extract(context.Background(), "note")
			if !errors.Is(err, domain.ErrMalformedCompletion) {
				t.Errorf("expected ErrMalformedCompletion, got %v", err)
			}
		})
	}
}

func TestExtract_EmptyResponse(t *testing.T) {
	p := newTestPipeline(fixed("   \n"), time.Now())
	_, err := p.Extract(context.Background(), "note")
	if !errors.Is(err, domain.ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}

func TestExtract_GeneratorFailureIsUnavailable(t *testing.T) {
	gen := generatorFunc(func(context.Context, string) (string, error) {
		return "", errors.New("connection refused")
	})
	p := newTestPipeline(gen, time.Now())

	_, err := p.Extract(context.Background(), "note")
	if !domain.IsDomainError(err, domain.ErrCodeUnavailable) {
		t.Fatalf("expected UNAVAILABLE classification, got %v", err)
	}
}

func TestExtract_DefaultsBlankCustomer(t *testing.T) {
	p := newTestPipeline(fixed(`{"task":"Buy stamps","customer":"  ","due_date":"15-11-2030","priority":"Low"}`), time.Now())

	draft, err := p.Extract(context.Background(), "buy stamps")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if draft.Customer != "Unspecified" {
		t.Errorf("customer = %q, want Unspecified", draft.Customer)
	}
}

func TestExtract_EmptyNoteRejected(t *testing.T) {
	p := newTestPipeline(fixed("{}"), time.Now())
	if _, err := p.Extract(context.Background(), "  "); err == nil {
		t.Fatal("expected error for blank note")
	}
}

func TestExtract_PromptCarriesNoteAndRules(t *testing.T) {
	var captured string
	gen := generatorFunc(func(_ context.Context, prompt string) (string, error) {
		captured = prompt
		return `{"task":"x","customer":"y","due_date":"15-11-2030","priority":"Low"}`, nil
	})
	p := newTestPipeline(gen, time.Now())

	if _, err := p.Extract(context.Background(), "fix the printer by Friday"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(captured, "fix the printer by Friday") {
		t.Error("prompt should contain the raw note")
	}
	if !strings.Contains(captured, "DD-MM-YYYY") {
		t.Error("prompt should carry the date format rule")
	}
}
