// Package wizard holds the multi-step lead-capture form: which fields each
// step owns, how they are validated, and the transitions between steps.
//
// Transitions are plain functions that take a Session and return the next
// one; nothing is kept outside the Session value.
package wizard

import (
	"time"

	"github.com/Simplici0/markup/internal/markup"
)

// Step identifies a screen of the wizard.
type Step int

const (
	StepCosts Step = iota + 1
	StepOtherCost
	StepPricing
	StepLead
	StepResult
)

const (
	FirstStep     = StepCosts
	LastInputStep = StepLead
)

// Lead capture fields.
const (
	FieldLeadName  markup.Field = "leadName"
	FieldLeadPhone markup.Field = "leadPhone"
)

var stepFields = map[Step][]markup.Field{
	StepCosts:     {markup.FieldTax, markup.FieldCommission, markup.FieldCardFee},
	StepOtherCost: {markup.FieldOtherCost},
	StepPricing:   {markup.FieldProfitMargin, markup.FieldCostBasis},
	StepLead:      {FieldLeadName, FieldLeadPhone},
}

var stepLabels = map[Step]string{
	StepCosts:     "Custos variáveis",
	StepOtherCost: "Outros custos",
	StepPricing:   "Margem e custo",
	StepLead:      "Seus dados",
	StepResult:    "Resultado",
}

var fieldLabels = map[markup.Field]string{
	markup.FieldTax:          "Impostos (%)",
	markup.FieldCommission:   "Comissão (%)",
	markup.FieldCardFee:      "Taxa do cartão (%)",
	markup.FieldOtherCost:    "Outro custo (%)",
	markup.FieldProfitMargin: "Margem de lucro (%)",
	markup.FieldCostBasis:    "Custo do produto (R$)",
	FieldLeadName:            "Seu nome",
	FieldLeadPhone:           "Telefone com DDD",
}

// FieldLabel is the caption shown next to an input.
func FieldLabel(f markup.Field) string {
	return fieldLabels[f]
}

// Steps lists every step in order.
func Steps() []Step {
	return []Step{StepCosts, StepOtherCost, StepPricing, StepLead, StepResult}
}

// Valid reports whether s is a known step.
func (s Step) Valid() bool {
	return s >= FirstStep && s <= StepResult
}

// Label is the title of the step.
func (s Step) Label() string {
	return stepLabels[s]
}

// Fields returns the inputs collected on the step, in display order.
func (s Step) Fields() []markup.Field {
	return stepFields[s]
}

// Disableable reports whether the user may declare the field inapplicable.
func Disableable(f markup.Field) bool {
	switch f {
	case markup.FieldCommission, markup.FieldCardFee, markup.FieldOtherCost:
		return true
	}
	return false
}

// Form holds the raw text of every input exactly as entered.
type Form struct {
	Tax          string `json:"tax"`
	Commission   string `json:"commission"`
	CardFee      string `json:"cardFee"`
	OtherCost    string `json:"otherCost"`
	ProfitMargin string `json:"profitMargin"`
	CostBasis    string `json:"costBasis"`
	LeadName     string `json:"leadName"`
	LeadPhone    string `json:"leadPhone"`
}

// Get returns the raw value of f.
func (f Form) Get(field markup.Field) string {
	switch field {
	case markup.FieldTax:
		return f.Tax
	case markup.FieldCommission:
		return f.Commission
	case markup.FieldCardFee:
		return f.CardFee
	case markup.FieldOtherCost:
		return f.OtherCost
	case markup.FieldProfitMargin:
		return f.ProfitMargin
	case markup.FieldCostBasis:
		return f.CostBasis
	case FieldLeadName:
		return f.LeadName
	case FieldLeadPhone:
		return f.LeadPhone
	}
	return ""
}

func (f *Form) set(field markup.Field, value string) bool {
	switch field {
	case markup.FieldTax:
		f.Tax = value
	case markup.FieldCommission:
		f.Commission = value
	case markup.FieldCardFee:
		f.CardFee = value
	case markup.FieldOtherCost:
		f.OtherCost = value
	case markup.FieldProfitMargin:
		f.ProfitMargin = value
	case markup.FieldCostBasis:
		f.CostBasis = value
	case FieldLeadName:
		f.LeadName = value
	case FieldLeadPhone:
		f.LeadPhone = value
	default:
		return false
	}
	return true
}

// Disabled marks the percentage categories the user declared inapplicable.
type Disabled struct {
	Commission bool `json:"commission"`
	CardFee    bool `json:"cardFee"`
	OtherCost  bool `json:"otherCost"`
}

// Has reports whether f is disabled.
func (d Disabled) Has(f markup.Field) bool {
	switch f {
	case markup.FieldCommission:
		return d.Commission
	case markup.FieldCardFee:
		return d.CardFee
	case markup.FieldOtherCost:
		return d.OtherCost
	}
	return false
}

func (d *Disabled) set(f markup.Field, on bool) {
	switch f {
	case markup.FieldCommission:
		d.Commission = on
	case markup.FieldCardFee:
		d.CardFee = on
	case markup.FieldOtherCost:
		d.OtherCost = on
	}
}

// Sale is a cost basis priced with the stored divisor.
type Sale struct {
	CostBasis float64 `json:"costBasis"`
	Price     float64 `json:"price"`
}

// Session is the complete state of one visitor's pass through the wizard.
type Session struct {
	ID       string   `json:"id"`
	Step     Step     `json:"step"`
	Reached  Step     `json:"reached"`
	Form     Form     `json:"form"`
	Disabled Disabled `json:"disabled"`
	Errors   Errors   `json:"errors,omitempty"`

	Result      *markup.Result `json:"result,omitempty"`
	Sale        *Sale          `json:"sale,omitempty"`
	SubmittedAt time.Time      `json:"submittedAt"`
}

// New returns an empty session positioned on the first step.
func New(id string) Session {
	return Session{ID: id, Step: FirstStep, Reached: FirstStep}
}

// Entry resolves a percentage field into an active or suppressed entry
// without touching the raw text.
func (s Session) Entry(f markup.Field) markup.Entry {
	raw := s.Form.Get(f)
	if s.Disabled.Has(f) {
		return markup.Suppress(raw)
	}
	return markup.Active(raw)
}

// Inputs collects the five percentage entries for the engine.
func (s Session) Inputs() markup.Inputs {
	return markup.Inputs{
		Tax:          s.Entry(markup.FieldTax),
		Commission:   s.Entry(markup.FieldCommission),
		CardFee:      s.Entry(markup.FieldCardFee),
		OtherCost:    s.Entry(markup.FieldOtherCost),
		ProfitMargin: s.Entry(markup.FieldProfitMargin),
	}
}

// HasErrors reports whether the last validation failed.
func (s Session) HasErrors() bool {
	return len(s.Errors) > 0
}

// Composition breaks the stored sale price down for the chart.
func (s Session) Composition() ([]markup.Slice, error) {
	if s.Result == nil || s.Sale == nil {
		return nil, ErrNoResult
	}
	return markup.CompositionBreakdown(*s.Result, s.Sale.Price)
}
