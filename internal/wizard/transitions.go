package wizard

import (
	"errors"
	"fmt"
	"time"

	"github.com/Simplici0/markup/internal/markup"
)

// ErrNotDisableable is returned when toggling a field that always applies.
var ErrNotDisableable = errors.New("field cannot be disabled")

// SetField stores the raw value of a field. Numeric fields are sanitized the
// way the input boxes do it; the field's previous error is cleared.
func SetField(s Session, f markup.Field, raw string) Session {
	if f != FieldLeadName && f != FieldLeadPhone {
		raw = markup.Sanitize(raw)
	}
	if !s.Form.set(f, raw) {
		return s
	}
	s.Errors = s.Errors.without(f)
	return s
}

// SetDisabled toggles whether a percentage category applies. The raw value is
// kept so re-enabling restores what the user typed.
func SetDisabled(s Session, f markup.Field, disabled bool) (Session, error) {
	if !Disableable(f) {
		return s, fmt.Errorf("%s: %w", f, ErrNotDisableable)
	}
	s.Disabled.set(f, disabled)
	s.Errors = s.Errors.without(f)
	return s, nil
}

// Advance validates the current step and moves one step forward. From the
// last input step it behaves as SubmitFinal.
func Advance(s Session) Session {
	switch {
	case s.Step == LastInputStep:
		return SubmitFinal(s, time.Now().UTC())
	case s.Step >= StepResult:
		return s
	}

	s.Errors = Validate(s, s.Step)
	if s.HasErrors() {
		return s
	}
	return moveTo(s, s.Step+1)
}

// Retreat moves one step back without validating or clearing any data.
func Retreat(s Session) Session {
	if s.Step <= FirstStep {
		return s
	}
	s.Errors = nil
	s.Step--
	return s
}

// JumpTo moves to target. Going back is always allowed. Going forward (or
// staying) requires the current step to be valid, and forward targets must
// have been reached before.
func JumpTo(s Session, target Step) Session {
	if !target.Valid() {
		return s
	}
	if target < s.Step {
		s.Errors = nil
		s.Step = target
		return s
	}

	s.Errors = Validate(s, s.Step)
	if s.HasErrors() || target == s.Step || target > s.Reached {
		return s
	}
	if target == StepResult {
		return reopenResult(s)
	}
	return moveTo(s, target)
}

// SubmitFinal validates the last input step, computes the markup and prices
// the cost basis, then shows the result. Any failure keeps the session on the
// current step with the errors set.
func SubmitFinal(s Session, now time.Time) Session {
	if s.Step != LastInputStep {
		s.Errors = Errors{}
		return s
	}

	s.Errors = Validate(s, s.Step)
	if s.HasErrors() {
		return s
	}

	s, ok := compute(s)
	if !ok {
		return s
	}
	s.SubmittedAt = now
	return moveTo(s, StepResult)
}

// Reprice applies the stored divisor to a new cost basis.
func Reprice(s Session, raw string) (Session, error) {
	if s.Result == nil {
		return s, ErrNoResult
	}

	raw = markup.Sanitize(raw)
	s.Form.CostBasis = raw
	s.Errors = Errors{}
	if fe := checkCost(raw); fe != nil {
		s.Errors.add(fe)
		return s, nil
	}

	sale, err := price(*s.Result, raw)
	if err != nil {
		return s, err
	}
	s.Sale = &sale
	return s, nil
}

// Restart discards everything and returns to the first step.
func Restart(s Session) Session {
	return New(s.ID)
}

// reopenResult goes back to the result screen after the user revisited earlier
// steps. Every input step is checked again and the result recomputed so it
// reflects any edits.
func reopenResult(s Session) Session {
	for _, step := range Steps() {
		if step == StepResult {
			break
		}
		if errs := Validate(s, step); len(errs) > 0 {
			s.Errors = errs
			s.Step = step
			return s
		}
	}

	s, ok := compute(s)
	if !ok {
		return s
	}
	return moveTo(s, StepResult)
}

func compute(s Session) (Session, bool) {
	result, err := markup.Compute(s.Inputs())
	if err != nil {
		s.Errors = Errors{}
		s.Errors.add(asFieldError(err))
		return s, false
	}

	sale, err := price(result, s.Form.CostBasis)
	if err != nil {
		s.Errors = Errors{}
		s.Errors.add(asFieldError(err))
		return s, false
	}

	s.Result = &result
	s.Sale = &sale
	return s, true
}

func price(r markup.Result, rawCost string) (Sale, error) {
	cost, err := markup.ParseCost(rawCost)
	if err != nil {
		return Sale{}, markup.NewFieldError(markup.FieldCostBasis, err)
	}
	p, err := markup.PriceFromCost(cost, r.Divisor())
	if err != nil {
		return Sale{}, err
	}
	return Sale{CostBasis: cost, Price: p}, nil
}

func moveTo(s Session, target Step) Session {
	s.Errors = nil
	s.Step = target
	if target > s.Reached {
		s.Reached = target
	}
	return s
}

func asFieldError(err error) *markup.FieldError {
	var fe *markup.FieldError
	if errors.As(err, &fe) {
		return fe
	}
	return markup.NewFieldError(markup.FieldTotal, err)
}

func (e Errors) without(f markup.Field) Errors {
	if _, ok := e[f]; !ok {
		return e
	}
	out := make(Errors, len(e))
	for k, v := range e {
		if k != f {
			out[k] = v
		}
	}
	return out
}
