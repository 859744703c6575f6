package wizard

import (
	"errors"
	"strings"

	"github.com/Simplici0/markup/internal/markup"
)

// ErrNoResult is returned when a result is needed before one was computed.
var ErrNoResult = errors.New("no result computed yet")

// Errors maps fields to their validation failure. An empty map means valid.
type Errors map[markup.Field]*markup.FieldError

// Message returns the text to display next to f, or "".
func (e Errors) Message(f markup.Field) string {
	if fe, ok := e[f]; ok && fe != nil {
		return fe.Message
	}
	return ""
}

func (e Errors) add(fe *markup.FieldError) {
	if fe != nil {
		e[fe.Field] = fe
	}
}

// rule validates the fields a step owns and nothing else.
type rule func(s Session) Errors

var rules = map[Step]rule{
	StepCosts: func(s Session) Errors {
		errs := Errors{}
		errs.add(checkPercent(s, markup.FieldTax))
		errs.add(checkPercent(s, markup.FieldCommission))
		errs.add(checkPercent(s, markup.FieldCardFee))
		return errs
	},
	StepOtherCost: func(s Session) Errors {
		errs := Errors{}
		errs.add(checkPercent(s, markup.FieldOtherCost))
		return errs
	},
	StepPricing: func(s Session) Errors {
		errs := Errors{}
		errs.add(checkPercent(s, markup.FieldProfitMargin))
		errs.add(checkCost(s.Form.CostBasis))
		if len(errs) == 0 {
			errs.add(checkTotal(s))
		}
		return errs
	},
	StepLead: func(s Session) Errors {
		errs := Errors{}
		errs.add(checkName(s.Form.LeadName))
		errs.add(checkPhone(s.Form.LeadPhone))
		return errs
	},
	StepResult: func(Session) Errors {
		return Errors{}
	},
}

// Validate runs the rule of the given step against the session.
func Validate(s Session, step Step) Errors {
	r, ok := rules[step]
	if !ok {
		return Errors{}
	}
	return r(s)
}

func checkPercent(s Session, f markup.Field) *markup.FieldError {
	if _, err := s.Entry(f).Resolve(); err != nil {
		return markup.NewFieldError(f, err)
	}
	return nil
}

func checkCost(raw string) *markup.FieldError {
	if _, err := markup.ParseCost(raw); err != nil {
		return markup.NewFieldError(markup.FieldCostBasis, err)
	}
	return nil
}

// checkTotal only reports on the sum; per-field problems of earlier steps are
// left to those steps.
func checkTotal(s Session) *markup.FieldError {
	_, err := markup.Compute(s.Inputs())
	var fe *markup.FieldError
	if errors.As(err, &fe) && fe.Field == markup.FieldTotal {
		return fe
	}
	return nil
}

func checkName(raw string) *markup.FieldError {
	if strings.TrimSpace(raw) == "" {
		return markup.NewFieldError(FieldLeadName, markup.ErrRequired)
	}
	return nil
}

func checkPhone(raw string) *markup.FieldError {
	if strings.TrimSpace(raw) == "" {
		return markup.NewFieldError(FieldLeadPhone, markup.ErrRequired)
	}
	if n := len(PhoneDigits(raw)); n != 10 && n != 11 {
		return &markup.FieldError{
			Field:   FieldLeadPhone,
			Err:     markup.ErrInvalidFormat,
			Message: "Informe um telefone com DDD (10 ou 11 dígitos)",
		}
	}
	return nil
}

// PhoneDigits strips everything but digits from a phone number.
func PhoneDigits(raw string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
}
