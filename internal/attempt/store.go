// Package attempt persists practice attempts: a reference sentence, what the
// learner actually said, and the resulting score and coaching feedback.
//
// Two [Store] implementations exist. [PostgresStore] is used when a database
// DSN is configured; [MemStore] keeps attempts in process memory otherwise.
package attempt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/mouthsync/internal/pronounce"
	"github.com/MrWong99/mouthsync/pkg/viseme"
)

// List limits.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Attempt is one evaluated recording of a reference sentence.
type Attempt struct {
	ID             string             `json:"id"`
	ReferenceText  string             `json:"reference_text"`
	ReferenceIPA   string             `json:"reference_ipa"`
	RecognizedText string             `json:"recognized_text"`
	Language       string             `json:"language"`
	Model          string             `json:"model"`
	Duration       float64            `json:"duration"`
	Words          []viseme.Span      `json:"words"`
	Report         pronounce.Report   `json:"report"`
	Feedback       pronounce.Feedback `json:"ai_feedback"`
	CreatedAt      time.Time          `json:"created_at"`
}

// Validate checks the fields a store requires.
func (a *Attempt) Validate() error {
	var errs []error
	if a.ReferenceText == "" {
		errs = append(errs, errors.New("attempt: reference_text must not be empty"))
	}
	if a.Duration < 0 {
		errs = append(errs, errors.New("attempt: duration must not be negative"))
	}
	for i, w := range a.Words {
		if w.End < w.Start {
			errs = append(errs, fmt.Errorf("attempt: word %d (%q) ends before it starts", i, w.Text))
		}
	}
	return errors.Join(errs...)
}

// Store persists attempts. Implementations must be safe for concurrent use.
type Store interface {
	// Create validates a, assigns an ID when empty and a creation time when
	// zero, and stores it.
	Create(ctx context.Context, a *Attempt) error

	// Get returns the attempt with the given ID, or (nil, nil) if none exists.
	Get(ctx context.Context, id string) (*Attempt, error)

	// List returns up to limit attempts, newest first. A limit <= 0 selects
	// DefaultListLimit; larger values are capped at MaxListLimit.
	List(ctx context.Context, limit int) ([]Attempt, error)
}

// Pinger is implemented by stores backed by a remote service. Callers check
// it before starting work whose result the store must accept.
type Pinger interface {
	Ping(ctx context.Context) error
}

// prepare fills in the ID and creation time of a new attempt.
func prepare(a *Attempt, now func() time.Time) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now().UTC()
	}
	if a.Words == nil {
		a.Words = []viseme.Span{}
	}
	return nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
