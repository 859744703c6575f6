package markup

import (
	"math"
)

// Category identifies one slice of a sale price.
type Category string

const (
	CategoryTax          Category = "tax"
	CategoryCommission   Category = "commission"
	CategoryCardFee      Category = "cardFee"
	CategoryOtherCost    Category = "otherCost"
	CategoryProfitMargin Category = "profitMargin"
	CategoryInputCost    Category = "inputCost"
)

// Labels holds the display name of every category.
var Labels = map[Category]string{
	CategoryTax:          "Impostos",
	CategoryCommission:   "Comissão",
	CategoryCardFee:      "Taxa Cartão",
	CategoryOtherCost:    "Outro Custo",
	CategoryProfitMargin: "Margem Lucro",
	CategoryInputCost:    "Custo do produto",
}

// Entry is a percentage as typed by the user. A suppressed entry keeps its raw
// text but always resolves to zero.
type Entry struct {
	Raw        string
	Suppressed bool
}

// Active returns an entry that takes part in the calculation.
func Active(raw string) Entry {
	return Entry{Raw: raw}
}

// Suppress returns an entry for a category the user declared inapplicable.
func Suppress(raw string) Entry {
	return Entry{Raw: raw, Suppressed: true}
}

// Resolve returns the numeric percentage of the entry.
func (e Entry) Resolve() (float64, error) {
	if e.Suppressed {
		return 0, nil
	}
	return ParsePercent(e.Raw)
}

// Inputs groups the five percentage entries. Tax and ProfitMargin always
// apply; their Suppressed flag is ignored.
type Inputs struct {
	Tax          Entry
	Commission   Entry
	CardFee      Entry
	OtherCost    Entry
	ProfitMargin Entry
}

// Percentages contains the resolved value of every category, in percent.
type Percentages struct {
	Tax          float64 `json:"tax"`
	Commission   float64 `json:"commission"`
	CardFee      float64 `json:"cardFee"`
	OtherCost    float64 `json:"otherCost"`
	ProfitMargin float64 `json:"profitMargin"`
}

// Sum adds the five percentages.
func (p Percentages) Sum() float64 {
	return p.Tax + p.Commission + p.CardFee + p.OtherCost + p.ProfitMargin
}

// Result is the outcome of Compute. It is never modified after creation.
type Result struct {
	Percentages Percentages `json:"percentages"`
	SumPercent  float64     `json:"sumPercent"`
	// MarkupDivisor keeps full precision; use Divisor for the displayed value.
	MarkupDivisor float64 `json:"markupDivisor"`
}

// Divisor is the markup divisor rounded to two decimals, the value shown to
// the user and applied to cost bases.
func (r Result) Divisor() float64 {
	return Round2(r.MarkupDivisor)
}

// DivisorText renders the divisor with exactly two decimals.
func (r Result) DivisorText() string {
	return Fixed2(r.MarkupDivisor)
}

// Fraction is the percentage sum expressed as a fraction of one.
func (r Result) Fraction() float64 {
	return r.SumPercent / 100
}

// Compute resolves the inputs and derives the markup divisor
// 1 / (1 - sum/100). A sum of 100 or more has no meaningful divisor and yields
// ErrUnsatisfiableMarkup on FieldTotal.
func Compute(in Inputs) (Result, error) {
	var (
		p   Percentages
		err error
	)

	if p.Tax, err = Active(in.Tax.Raw).Resolve(); err != nil {
		return Result{}, NewFieldError(FieldTax, err)
	}
	if p.Commission, err = in.Commission.Resolve(); err != nil {
		return Result{}, NewFieldError(FieldCommission, err)
	}
	if p.CardFee, err = in.CardFee.Resolve(); err != nil {
		return Result{}, NewFieldError(FieldCardFee, err)
	}
	if p.OtherCost, err = in.OtherCost.Resolve(); err != nil {
		return Result{}, NewFieldError(FieldOtherCost, err)
	}
	if p.ProfitMargin, err = Active(in.ProfitMargin.Raw).Resolve(); err != nil {
		return Result{}, NewFieldError(FieldProfitMargin, err)
	}

	return FromPercentages(p)
}

// FromPercentages derives a Result from already resolved percentages.
func FromPercentages(p Percentages) (Result, error) {
	sum := p.Sum()
	if sum >= 100 {
		return Result{}, NewFieldError(FieldTotal, ErrUnsatisfiableMarkup)
	}

	return Result{
		Percentages:   p,
		SumPercent:    sum,
		MarkupDivisor: 1 / (1 - sum/100),
	}, nil
}

// PriceFromCost applies a divisor to a cost basis and rounds the price to two
// decimals.
func PriceFromCost(costBasis, divisor float64) (float64, error) {
	if math.IsNaN(costBasis) || math.IsInf(costBasis, 0) || costBasis <= 0 {
		return 0, NewFieldError(FieldCostBasis, ErrInvalidCost)
	}
	if math.IsNaN(divisor) || math.IsInf(divisor, 0) || divisor <= 0 {
		return 0, NewFieldError(FieldTotal, ErrUnsatisfiableMarkup)
	}
	return Round2(costBasis * divisor), nil
}

// Slice is one component of a sale price.
type Slice struct {
	Category Category `json:"category"`
	Label    string   `json:"label"`
	Percent  float64  `json:"percent"`
	Amount   float64  `json:"amount"`
}

// CompositionBreakdown splits price into the five percentage categories plus
// the input cost, which takes whatever the percentages leave. The amounts
// always add up to price and the percentages to 100. When price is the cost
// basis times the full-precision divisor the input-cost slice equals the cost
// basis; with the rounded divisor it absorbs the rounding difference.
func CompositionBreakdown(r Result, price float64) ([]Slice, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return nil, NewFieldError(FieldCostBasis, ErrInvalidCost)
	}

	p := r.Percentages
	slices := []Slice{
		percentSlice(CategoryTax, p.Tax, price),
		percentSlice(CategoryCommission, p.Commission, price),
		percentSlice(CategoryCardFee, p.CardFee, price),
		percentSlice(CategoryOtherCost, p.OtherCost, price),
		percentSlice(CategoryProfitMargin, p.ProfitMargin, price),
	}

	remaining := price
	for _, s := range slices {
		remaining -= s.Amount
	}
	slices = append(slices, Slice{
		Category: CategoryInputCost,
		Label:    Labels[CategoryInputCost],
		Percent:  remaining / price * 100,
		Amount:   remaining,
	})
	return slices, nil
}

func percentSlice(c Category, percent, price float64) Slice {
	return Slice{
		Category: c,
		Label:    Labels[c],
		Percent:  percent,
		Amount:   (percent / 100) * price,
	}
}
