package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/Simplici0/markup/internal/markup"
)

// SESAPI is the part of the SES client used for lead e-mails.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SNSAPI is the part of the SNS client used for lead SMS.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Email sends a summary of each lead through SES.
type Email struct {
	client SESAPI
	from   string
	to     string
}

func NewEmail(client SESAPI, from, to string) *Email {
	return &Email{client: client, from: from, to: to}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Notify(ctx context.Context, sub Submission) error {
	input := &ses.SendEmailInput{
		Source: aws.String(e.from),
		Destination: &types.Destination{
			ToAddresses: []string{e.to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String("Novo lead: " + sub.Name),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(emailBody(sub)),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if _, err := e.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("send lead email: %w", err)
	}
	return nil
}

func emailBody(sub Submission) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Nome: %s\n", sub.Name)
	fmt.Fprintf(&b, "Telefone: %s\n\n", sub.Phone)
	fmt.Fprintf(&b, "%s: %s\n", markup.Labels[markup.CategoryTax], markup.BRPercent(sub.Tax))
	fmt.Fprintf(&b, "%s: %s\n", markup.Labels[markup.CategoryCommission], markup.BRPercent(sub.Commission))
	fmt.Fprintf(&b, "%s: %s\n", markup.Labels[markup.CategoryCardFee], markup.BRPercent(sub.CardFee))
	fmt.Fprintf(&b, "%s: %s\n", markup.Labels[markup.CategoryOtherCost], markup.BRPercent(sub.OtherCost))
	fmt.Fprintf(&b, "%s: %s\n", markup.Labels[markup.CategoryProfitMargin], markup.BRPercent(sub.ProfitMargin))
	fmt.Fprintf(&b, "Total: %s\n\n", markup.BRPercent(sub.SumPercent))
	fmt.Fprintf(&b, "Markup divisor: %s\n", markup.BR(sub.MarkupDivisor))
	fmt.Fprintf(&b, "Custo: R$ %s\n", markup.BR(sub.CostBasis))
	fmt.Fprintf(&b, "Preço de venda: R$ %s\n", markup.BR(sub.Price))
	return b.String()
}

// SMS publishes a one-line alert to a phone number through SNS.
type SMS struct {
	client SNSAPI
	to     string
}

func NewSMS(client SNSAPI, to string) *SMS {
	return &SMS{client: client, to: to}
}

func (s *SMS) Name() string { return "sms" }

func (s *SMS) Notify(ctx context.Context, sub Submission) error {
	msg := fmt.Sprintf("Novo lead %s (%s): markup %s, preço R$ %s",
		sub.Name, sub.Phone, markup.BR(sub.MarkupDivisor), markup.BR(sub.Price))

	if _, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(s.to),
		Message:     aws.String(msg),
	}); err != nil {
		return fmt.Errorf("publish lead sms: %w", err)
	}
	return nil
}
