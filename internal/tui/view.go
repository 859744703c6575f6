package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Simplici0/markup/internal/markup"
	"github.com/Simplici0/markup/internal/wizard"
)

const barWidth = 30

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.stepsLine())
	b.WriteString("\n\n")
	b.WriteString(m.styles.Title.Render(m.session.Step.Label()))
	b.WriteString("\n")

	if m.session.Step == wizard.StepResult && m.session.Result != nil {
		b.WriteString(m.resultView())
	} else {
		b.WriteString(m.formView())
	}

	b.WriteString(m.styles.Help.Render(m.helpLine()))
	return m.styles.Box.Render(b.String())
}

func (m Model) stepsLine() string {
	parts := make([]string, 0, len(wizard.Steps()))
	for _, step := range wizard.Steps() {
		label := fmt.Sprintf("%d. %s", step, step.Label())
		switch {
		case step == m.session.Step:
			parts = append(parts, m.styles.StepCurrent.Render(label))
		case step <= m.session.Reached:
			parts = append(parts, m.styles.StepReached.Render(label))
		default:
			parts = append(parts, m.styles.StepPending.Render(label))
		}
	}
	return strings.Join(parts, "  ")
}

func (m Model) formView() string {
	var b strings.Builder
	for i, f := range m.fields {
		b.WriteString(m.styles.Label.Render(wizard.FieldLabel(f)))
		if m.session.Disabled.Has(f) {
			b.WriteString(" " + m.styles.Disabled.Render("(não se aplica)"))
		}
		b.WriteString("\n")
		b.WriteString(m.inputs[i].View())
		b.WriteString("\n")
		if msg := m.session.Errors.Message(f); msg != "" {
			b.WriteString(m.styles.Error.Render(msg))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if msg := m.session.Errors.Message(markup.FieldTotal); msg != "" {
		b.WriteString(m.styles.Error.Render(msg))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) resultView() string {
	r := m.session.Result
	var b strings.Builder

	b.WriteString("Markup divisor: " + m.styles.Divisor.Render(markup.BR(r.Divisor())) + "\n\n")

	rows := []struct {
		category markup.Category
		field    markup.Field
		value    float64
	}{
		{markup.CategoryTax, markup.FieldTax, r.Percentages.Tax},
		{markup.CategoryCommission, markup.FieldCommission, r.Percentages.Commission},
		{markup.CategoryCardFee, markup.FieldCardFee, r.Percentages.CardFee},
		{markup.CategoryOtherCost, markup.FieldOtherCost, r.Percentages.OtherCost},
		{markup.CategoryProfitMargin, markup.FieldProfitMargin, r.Percentages.ProfitMargin},
	}
	for _, row := range rows {
		value := markup.BRPercent(row.value)
		if m.session.Disabled.Has(row.field) {
			value = m.styles.Disabled.Render("não se aplica")
		}
		b.WriteString(fmt.Sprintf("%-14s %s\n", markup.Labels[row.category], value))
	}
	b.WriteString(fmt.Sprintf("%-14s %s\n\n", "Total", markup.BRPercent(r.SumPercent)))

	fraction := strings.Replace(markup.Fixed3(r.Fraction()), ".", ",", 1)
	b.WriteString(fmt.Sprintf("%s ÷ 100 = %s\n", markup.BRPercent(r.SumPercent), fraction))
	b.WriteString(fmt.Sprintf("1 ÷ (1 − %s) = %s\n\n", fraction, markup.BR(r.Divisor())))

	if sale := m.session.Sale; sale != nil {
		b.WriteString(fmt.Sprintf("Custo R$ %s × %s = %s\n\n",
			markup.BR(sale.CostBasis), markup.BR(r.Divisor()),
			m.styles.Price.Render("R$ "+markup.BR(sale.Price))))
		b.WriteString(m.compositionChart())
	}

	b.WriteString("\n" + m.styles.Label.Render("Calcular outro preço") + "\n")
	b.WriteString(m.reprice.View() + "\n")
	if msg := m.session.Errors.Message(markup.FieldCostBasis); msg != "" {
		b.WriteString(m.styles.Error.Render(msg) + "\n")
	}
	return b.String()
}

// compositionChart draws one horizontal bar per slice of the sale price.
func (m Model) compositionChart() string {
	slices, err := m.session.Composition()
	if err != nil {
		return ""
	}

	lines := make([]string, 0, len(slices))
	for _, s := range slices {
		n := int(math.Round(s.Percent / 100 * barWidth))
		if n < 0 {
			n = 0
		}
		bar := lipgloss.NewStyle().Foreground(sliceColor(s.Category)).Render(strings.Repeat("█", n))
		lines = append(lines, fmt.Sprintf("%-16s %s%s %s%%  R$ %s",
			s.Label, bar, strings.Repeat(" ", barWidth-min(n, barWidth)),
			strings.Replace(fmt.Sprintf("%.1f", s.Percent), ".", ",", 1), markup.BR(s.Amount)))
	}
	return strings.Join(lines, "\n") + "\n"
}

func sliceColor(c markup.Category) lipgloss.Color {
	switch c {
	case markup.CategoryTax:
		return lipgloss.Color("#E4572E")
	case markup.CategoryCommission:
		return lipgloss.Color("#F3A712")
	case markup.CategoryCardFee:
		return lipgloss.Color("#A8C686")
	case markup.CategoryOtherCost:
		return lipgloss.Color("#669BBC")
	case markup.CategoryProfitMargin:
		return lipgloss.Color("#7D56F4")
	}
	return muted
}

func (m Model) helpLine() string {
	parts := make([]string, 0, len(m.keys.ShortHelp()))
	for _, k := range m.keys.ShortHelp() {
		h := k.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}
