// Package wizard drives the four-step contract form: parties, contract
// details, special clauses and final review.
package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"contratos.app/internal/contract"
)

// Step is a position in the wizard, 1 through 4.
type Step int

const (
	StepParties Step = iota + 1
	StepDetails
	StepClauses
	StepReview
)

const (
	FirstStep = StepParties
	LastStep  = StepReview
)

var (
	// ErrIncomplete blocks a transition while the current step misses required fields.
	ErrIncomplete = errors.New("wizard: required fields missing")
	// ErrNotAtReview is returned by Finish before the review step.
	ErrNotAtReview = errors.New("wizard: finish is only available on the review step")
	// ErrClosed is returned by every change after a successful Finish.
	ErrClosed = errors.New("wizard: already finished")
)

// Title is the step heading shown to the user.
func (s Step) Title() string {
	switch s {
	case StepParties:
		return "Dados das Partes"
	case StepDetails:
		return "Detalhes do Contrato"
	case StepClauses:
		return "Cláusulas Especiais"
	case StepReview:
		return "Revisão Final"
	default:
		return ""
	}
}

// Saver persists a finished draft.
type Saver interface {
	Insert(ctx context.Context, rec contract.NewRecord) (contract.Record, error)
}

// Wizard holds one draft across the steps. It is safe for concurrent use.
// Finish holds the lock for the whole insert and closes the wizard once the
// insert succeeds, so a draft is saved at most once.
type Wizard struct {
	mu     sync.Mutex
	step   Step
	draft  contract.Draft
	closed bool
}

// New opens a wizard on the first step with an empty draft.
func New() *Wizard {
	return &Wizard{step: FirstStep}
}

// State is a point-in-time copy of the wizard.
type State struct {
	Step       Step           `json:"step"`
	StepTitle  string         `json:"step_title"`
	Draft      contract.Draft `json:"draft"`
	CanProceed bool           `json:"can_proceed"`
	Preview    string         `json:"preview"`
}

// State snapshots the wizard.
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked()
}

func (w *Wizard) stateLocked() State {
	return State{
		Step:       w.step,
		StepTitle:  w.step.Title(),
		Draft:      w.draft,
		CanProceed: CanProceed(w.step, w.draft),
		Preview:    contract.Preview(w.draft),
	}
}

// Update edits the draft through fn. Edits are allowed on any step; the
// draft is left untouched when fn or validation fails.
func (w *Wizard) Update(fn func(d *contract.Draft) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	next := w.draft
	if err := fn(&next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	w.draft = next
	return nil
}

// Next advances one step when the current step is complete. On the last
// step it is a successful no-op.
func (w *Wizard) Next() (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return w.stateLocked(), ErrClosed
	}
	if !CanProceed(w.step, w.draft) {
		return w.stateLocked(), fmt.Errorf("%w on step %d", ErrIncomplete, w.step)
	}
	if w.step < LastStep {
		w.step++
	}
	return w.stateLocked(), nil
}

// Back returns one step; on the first step it does nothing.
func (w *Wizard) Back() (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return w.stateLocked(), ErrClosed
	}
	if w.step > FirstStep {
		w.step--
	}
	return w.stateLocked(), nil
}

// Finish saves the draft for ownerID. Steps 1 and 2 are re-checked because
// fields stay editable after they were passed. On error the wizard keeps its
// draft and step so the caller can retry; on success it is closed.
func (w *Wizard) Finish(ctx context.Context, ownerID string, saver Saver) (contract.Record, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return contract.Record{}, ErrClosed
	}
	if w.step != LastStep {
		return contract.Record{}, ErrNotAtReview
	}
	for s := FirstStep; s < LastStep; s++ {
		if !CanProceed(s, w.draft) {
			return contract.Record{}, fmt.Errorf("%w on step %d", ErrIncomplete, s)
		}
	}
	rec, err := Package(ownerID, w.draft)
	if err != nil {
		return contract.Record{}, err
	}
	saved, err := saver.Insert(ctx, rec)
	if err != nil {
		return contract.Record{}, err
	}
	w.closed = true
	return saved, nil
}

// Package turns a draft into the record handed to the store.
func Package(ownerID string, d contract.Draft) (contract.NewRecord, error) {
	payload, err := json.Marshal(d)
	if err != nil {
		return contract.NewRecord{}, fmt.Errorf("encode draft: %w", err)
	}
	return contract.NewRecord{
		OwnerID: ownerID,
		Title:   contract.Title(d),
		Payload: payload,
	}, nil
}

// CanProceed reports whether step's required fields are filled in d.
func CanProceed(step Step, d contract.Draft) bool {
	switch step {
	case StepParties:
		return filled(d.ContractorName, d.ContractedName)
	case StepDetails:
		return filled(d.ContractType, d.ContractObject, d.Value)
	case StepClauses, StepReview:
		return true
	default:
		return false
	}
}

func filled(values ...string) bool {
	for _, v := range values {
		if v == "" {
			return false
		}
	}
	return true
}
