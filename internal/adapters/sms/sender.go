package sms

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"meetuphere/internal/domain"
)

// TwilioConfig holds Twilio REST credentials.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
}

// SenderConfig holds configuration for creating an SMS sender.
type SenderConfig struct {
	Provider string
	Twilio   TwilioConfig
	// AWS is used by the "sns" provider.
	AWS aws.Config
}

// NewSender creates an SMS sender from config. Provider "sns" uses AWS SNS,
// "twilio" uses the Twilio REST API; "noop" or unknown uses a no-op sender.
func NewSender(config SenderConfig) (domain.SMSSender, error) {
	switch config.Provider {
	case "sns":
		return &snsSender{client: sns.NewFromConfig(config.AWS)}, nil
	case "twilio":
		if config.Twilio.AccountSID == "" || config.Twilio.AuthToken == "" {
			return nil, fmt.Errorf("twilio account sid and auth token are required")
		}
		client := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: config.Twilio.AccountSID,
			Password: config.Twilio.AuthToken,
		})
		return &twilioSender{api: client.Api}, nil
	case "noop":
		return &noopSender{}, nil
	default:
		log.Printf("[SMS] Unknown sms provider %q, using noop", config.Provider)
		return &noopSender{}, nil
	}
}

// snsAPI is the subset of *sns.Client used here.
type snsAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type snsSender struct {
	client snsAPI
}

func (s *snsSender) Send(ctx context.Context, msg domain.NotificationMessage) (string, error) {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(msg.To),
		Message:     aws.String(msg.Body),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {
				DataType:    aws.String("String"),
				StringValue: aws.String("Transactional"),
			},
		},
	}
	if msg.From != "" {
		input.MessageAttributes["AWS.SNS.SMS.SenderID"] = snstypes.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(msg.From),
		}
	}
	result, err := s.client.Publish(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to send sms via SNS: %w", err)
	}
	return aws.ToString(result.MessageId), nil
}

// twilioAPI is the subset of the Twilio v2010 API used here.
type twilioAPI interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type twilioSender struct {
	api twilioAPI
}

func (s *twilioSender) Send(ctx context.Context, msg domain.NotificationMessage) (string, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(msg.To)
	params.SetFrom(msg.From)
	params.SetBody(msg.Body)
	result, err := s.api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("failed to send sms via Twilio: %w", err)
	}
	if result == nil || result.Sid == nil {
		return "", nil
	}
	return *result.Sid, nil
}

type noopSender struct{}

func (n *noopSender) Send(ctx context.Context, msg domain.NotificationMessage) (string, error) {
	log.Println("[SMS] SMS would be sent (noop)", "to", msg.To, "body", msg.Body)
	return "noop", nil
}
