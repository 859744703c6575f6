package notify

import (
	"context"
	"fmt"
	"net/http"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/Simplici0/markup/internal/config"
)

// FromConfig assembles the configured channels. leadLog may be nil when no
// database is available; the lead log channel is then skipped.
func FromConfig(ctx context.Context, cfg config.NotifyConfig, leadLog LeadWriter) (Multi, error) {
	var channels Multi

	if cfg.LeadLog && leadLog != nil {
		channels = append(channels, NewLeadLog(leadLog))
	}
	if cfg.WebhookURL != "" {
		channels = append(channels, NewWebhook(cfg.WebhookURL, &http.Client{Timeout: cfg.Timeout}))
	}

	if cfg.AWSEnabled() {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		if cfg.EmailTo != "" && cfg.EmailFrom != "" {
			channels = append(channels, NewEmail(ses.NewFromConfig(awsCfg), cfg.EmailFrom, cfg.EmailTo))
		}
		if cfg.SMSTo != "" {
			channels = append(channels, NewSMS(sns.NewFromConfig(awsCfg), cfg.SMSTo))
		}
	}

	return channels, nil
}

// Names lists the channel names, for logging.
func (m Multi) Names() []string {
	names := make([]string, 0, len(m))
	for _, n := range m {
		names = append(names, n.Name())
	}
	return names
}
