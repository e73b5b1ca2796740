package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/Pranshu2404/AsBrand-Backend/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/rs/zerolog"
)

// SNSService is the slice of the SNS client the sink needs, defined for
// mocking.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSSink delivers installment notifications by publishing to an SNS topic.
// Downstream consumers fan the message out to the user's channels; delivery
// past the topic is not tracked here.
type SNSSink struct {
	client   SNSService
	topicARN string
	logger   zerolog.Logger
}

// NewSNSSink creates an SNSSink against a real SNS client in the given region.
func NewSNSSink(ctx context.Context, region, topicARN string, logger zerolog.Logger) (*SNSSink, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewSNSSinkWithClient(sns.NewFromConfig(cfg), topicARN, logger), nil
}

// NewSNSSinkWithClient creates an SNSSink with an injected client.
func NewSNSSinkWithClient(client SNSService, topicARN string, logger zerolog.Logger) *SNSSink {
	return &SNSSink{
		client:   client,
		topicARN: topicARN,
		logger:   logger.With().Str("component", "sns_sink").Logger(),
	}
}

var templates = map[domain.NotificationType]string{
	domain.NotificationReminder3Days: "Your EMI installment {{installment}} of {{amount}} is due on {{dueDate}}.",
	domain.NotificationDueToday:      "Your EMI installment {{installment}} of {{amount}} is due today.",
	domain.NotificationOverdueDay1:   "Your EMI installment {{installment}} of {{amount}} was due on {{dueDate}}. Pay within the grace period to avoid penalties.",
	domain.NotificationGraceEnded:    "Your EMI installment {{installment}} is overdue. Total payable including penalty: {{payable}}.",
}

// Send publishes one notification to the topic. The template type and user ID
// travel as message attributes so consumers can route without parsing the
// body.
func (s *SNSSink) Send(ctx context.Context, n domain.Notification) (*domain.NotificationOutcome, error) {
	tmpl, ok := templates[n.TemplateType]
	if !ok {
		return nil, fmt.Errorf("no template for notification type %s", n.TemplateType)
	}

	out, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Message:  aws.String(renderTemplate(tmpl, n.Substitutions)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(n.TemplateType)),
			},
			"userId": {
				DataType:    aws.String("String"),
				StringValue: aws.String(n.UserID.String()),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("publish notification: %w", err)
	}

	providerID := ""
	if out.MessageId != nil {
		providerID = *out.MessageId
	}
	s.logger.Debug().
		Str("type", string(n.TemplateType)).
		Str("message_id", providerID).
		Msg("Notification published")

	return &domain.NotificationOutcome{
		Channel:    "sns",
		Delivered:  true,
		ProviderID: providerID,
	}, nil
}

// renderTemplate fills {{key}} placeholders and strips any left unfilled.
func renderTemplate(tmpl string, data map[string]string) string {
	result := tmpl
	for k, v := range data {
		result = strings.ReplaceAll(result, "{{"+k+"}}", v)
	}
	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}
	return result
}
