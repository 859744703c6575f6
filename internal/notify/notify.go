// Package notify delivers completed wizard submissions to the configured
// channels. Delivery is best-effort: failures are logged and counted but never
// reach the visitor.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/markup/internal/metrics"
	"github.com/Simplici0/markup/internal/wizard"
)

// Submission is the payload sent for every captured lead.
type Submission struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	Tax           float64   `json:"tax"`
	Commission    float64   `json:"commission"`
	CardFee       float64   `json:"cardFee"`
	OtherCost     float64   `json:"otherCost"`
	ProfitMargin  float64   `json:"profitMargin"`
	SumPercent    float64   `json:"sumPercent"`
	MarkupDivisor float64   `json:"markupDivisor"`
	CostBasis     float64   `json:"costBasis"`
	Price         float64   `json:"price"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewSubmission builds the payload from a session that reached the result.
func NewSubmission(s wizard.Session) (Submission, error) {
	if s.Result == nil || s.Sale == nil {
		return Submission{}, wizard.ErrNoResult
	}

	r := s.Result
	ts := s.SubmittedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return Submission{
		ID:            uuid.NewString(),
		Name:          s.Form.LeadName,
		Phone:         s.Form.LeadPhone,
		Tax:           r.Percentages.Tax,
		Commission:    r.Percentages.Commission,
		CardFee:       r.Percentages.CardFee,
		OtherCost:     r.Percentages.OtherCost,
		ProfitMargin:  r.Percentages.ProfitMargin,
		SumPercent:    r.SumPercent,
		MarkupDivisor: r.Divisor(),
		CostBasis:     s.Sale.CostBasis,
		Price:         s.Sale.Price,
		Timestamp:     ts,
	}, nil
}

// Notifier delivers a submission to one channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, sub Submission) error
}

// Multi fans a submission out to several notifiers concurrently. Every
// notifier gets one attempt; their errors are joined.
type Multi []Notifier

func (m Multi) Name() string { return "multi" }

func (m Multi) Notify(ctx context.Context, sub Submission) error {
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		errs []error
	)

	for _, n := range m {
		wg.Add(1)
		go func(n Notifier) {
			defer wg.Done()
			if err := instrumented(ctx, n, sub); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
				mu.Unlock()
			}
		}(n)
	}
	wg.Wait()

	return errors.Join(errs...)
}

func instrumented(ctx context.Context, n Notifier, sub Submission) error {
	start := time.Now()
	err := n.Notify(ctx, sub)
	metrics.NotificationDuration.WithLabelValues(n.Name()).Observe(time.Since(start).Seconds())

	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.NotificationsSent.WithLabelValues(n.Name(), result).Inc()
	return err
}
