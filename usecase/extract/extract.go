// Package extract converts free-text notes into validated task drafts via an
// external text-generation model.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/smarttask/backend/domain"
)

// Generator is the single synchronous contract with the model collaborator.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// instructionBlock is the fixed prompt prefix. The note is appended raw, with
// no other substitution.
const instructionBlock = `You are a task parsing assistant. Extract structured information from notes and return it in JSON format.
Return only a valid JSON object without any additional text or formatting.

Format your response exactly like this example:
{"task": "Send project report", "customer": "John", "due_date": "14-11-2024", "priority": "Medium"}

Rules:
- Task should be very brief and to the point
- To whom the job intended should be the customer name
- Convert the dates from words like today or tomorrow carefully from current date and return in DD-MM-YYYY format
- Return ONLY the JSON object, no other text
- If no date is mentioned, use tomorrow's date
- If no priority indicators, use "Medium"
- If no person is mentioned, use "Unspecified"
- Priority can only be "High", "Medium", or "Low"
- Date format must be DD-MM-YYYY`

// defaultCustomer fills the customer field when the model leaves it blank.
const defaultCustomer = "Unspecified"

type Pipeline struct {
	gen     Generator
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// New builds the extraction pipeline. The timeout bounds each model call.
func New(gen Generator, timeout time.Duration, logger *zap.Logger) *Pipeline {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		gen:     gen,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Extract runs the full pipeline: prompt construction, model invocation,
// response unwrapping, parsing, normalization and validation. Nothing is
// persisted here; any failure short-circuits before a store write.
func (p *Pipeline) Extract(ctx context.Context, note string) (*domain.Draft, error) {
	if strings.TrimSpace(note) == "" {
		return nil, domain.NewError(domain.ErrCodeInvalid, "note is empty")
	}

	prompt := fmt.Sprintf("%s\n\nNote to parse: %s\n\nResponse (JSON only):", instructionBlock, note)

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	raw, err := p.gen.Generate(callCtx, prompt)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyCompletion) {
			return nil, err
		}
		// Cancellation and transport failures alike mean the collaborator
		// was unavailable for this call.
		return nil, domain.WrapError(domain.ErrCodeUnavailable, "model endpoint unavailable", err)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, domain.ErrEmptyCompletion
	}

	draft, err := p.parse(raw)
	if err != nil {
		p.logger.Warn("extraction failed", zap.Error(err), zap.Int("response_bytes", len(raw)))
		return nil, err
	}
	return draft, nil
}

func (p *Pipeline) parse(raw string) (*domain.Draft, error) {
	cleaned := stripFences(raw)

	// Pointer fields distinguish "absent" from "empty" so missing keys get
	// the incomplete-record failure rather than a format one.
	var record struct {
		Task     *string `json:"task"`
		Customer *string `json:"customer"`
		DueDate  *string `json:"due_date"`
		Priority *string `json:"priority"`
	}
	if err := json.Unmarshal([]byte(cleaned), &record); err != nil {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "model response is not a task record", errors.Join(domain.ErrMalformedCompletion, err))
	}

	var missing []string
	for _, f := range []struct {
		name  string
		value *string
	}{
		{"task", record.Task},
		{"customer", record.Customer},
		{"due_date", record.DueDate},
		{"priority", record.Priority},
	} {
		if f.value == nil {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, domain.WrapError(domain.ErrCodeInvalid,
			fmt.Sprintf("missing fields: %s", strings.Join(missing, ", ")), domain.ErrIncompleteRecord)
	}
	if strings.TrimSpace(*record.Task) == "" {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "empty task description", domain.ErrIncompleteRecord)
	}

	dueDate := strings.TrimSpace(*record.DueDate)
	// The model occasionally echoes the word instead of resolving it,
	// despite the prompt instructing otherwise.
	if strings.EqualFold(dueDate, "tomorrow") {
		dueDate = p.now().AddDate(0, 0, 1).Format(domain.DueDateLayout)
	}
	if _, err := domain.ParseDueDate(dueDate); err != nil {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "model response is not a task record", errors.Join(domain.ErrMalformedCompletion, err))
	}

	priority, err := domain.ParsePriority(*record.Priority)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "model response is not a task record", errors.Join(domain.ErrMalformedCompletion, err))
	}

	customer := strings.TrimSpace(*record.Customer)
	if customer == "" {
		customer = defaultCustomer
	}

	return &domain.Draft{
		Description: strings.TrimSpace(*record.Task),
		Customer:    customer,
		DueDate:     dueDate,
		Priority:    priority,
	}, nil
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag, before JSON parsing.
func stripFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	if idx := strings.Index(cleaned, "\n"); idx >= 0 {
		cleaned = cleaned[idx+1:]
	} else {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
	}
	if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
		cleaned = cleaned[:idx]
	}
	return strings.TrimSpace(cleaned)
}
