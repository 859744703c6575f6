package notify

import (
	"context"

	"github.com/Simplici0/markup/internal/leads"
	"github.com/Simplici0/markup/internal/markup"
)

// LeadWriter persists leads.
type LeadWriter interface {
	Insert(ctx context.Context, l leads.Lead) error
}

// LeadLog records every submission in the local leads table.
type LeadLog struct {
	store LeadWriter
}

func NewLeadLog(store LeadWriter) *LeadLog {
	return &LeadLog{store: store}
}

func (l *LeadLog) Name() string { return "leadlog" }

func (l *LeadLog) Notify(ctx context.Context, sub Submission) error {
	return l.store.Insert(ctx, leads.Lead{
		SubmissionID: sub.ID,
		CreatedAt:    sub.Timestamp,
		Name:         sub.Name,
		Phone:        sub.Phone,
		Percentages: markup.Percentages{
			Tax:          sub.Tax,
			Commission:   sub.Commission,
			CardFee:      sub.CardFee,
			OtherCost:    sub.OtherCost,
			ProfitMargin: sub.ProfitMargin,
		},
		SumPercent:    sub.SumPercent,
		MarkupDivisor: sub.MarkupDivisor,
		CostBasis:     sub.CostBasis,
		Price:         sub.Price,
	})
}
