package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/Berkaniis/survey-tool/internal/pkg/logger"
)

// SESProvider sends through AWS SES using the SDK v2. It implements the same
// contract as the SMTP relay so the pipeline is indifferent to the transport.
type SESProvider struct {
	senderName  string
	senderEmail string
	region      string
	client      *sesv2.Client
}

// NewSESProvider creates an SES provider. Initializes the SDK client if
// credentials are provided; otherwise Send returns an error until configured.
func NewSESProvider(accessKey, secretKey, region, senderName, senderEmail string) *SESProvider {
	if region == "" {
		region = "us-east-1"
	}

	p := &SESProvider{
		senderName:  senderName,
		senderEmail: senderEmail,
		region:      region,
	}

	if accessKey != "" && secretKey != "" {
		cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		)
		if err != nil {
			logger.Warn("ses client init failed", "error", err)
		} else {
			p.client = sesv2.NewFromConfig(cfg)
		}
	}

	return p
}

// Name identifies the provider.
func (p *SESProvider) Name() string { return "ses" }

// ValidateConnection checks the account is reachable with the configured
// credentials. Uses GetAccount, which costs nothing and sends nothing.
func (p *SESProvider) ValidateConnection(ctx context.Context) bool {
	if p.client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := p.client.GetAccount(ctx, &sesv2.GetAccountInput{})
	if err != nil {
		logger.Warn("ses connection validation failed", "error", err)
		return false
	}
	return true
}

// Send delivers one message through SES. Throttling and transport errors are
// classified RETRY; rejections (bad address, policy) are FAILED.
func (p *SESProvider) Send(ctx context.Context, msg *Message) (*SendOutcome, error) {
	if p.client == nil {
		return nil, fmt.Errorf("ses client not initialized, check credentials")
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", p.senderName, p.senderEmail)),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	if msg.CC != "" {
		input.Destination.CcAddresses = []string{msg.CC}
	}
	if msg.BCC != "" {
		input.Destination.BccAddresses = []string{msg.BCC}
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}

	result, err := p.client.SendEmail(ctx, input)
	if err != nil {
		status := StatusFailed
		if isTransientSESError(err) {
			status = StatusRetry
		}
		logger.Error("ses send failed", "recipient", msg.To, "status", string(status), "error", err)
		return &SendOutcome{Status: status, Error: err.Error()}, nil
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}
	logger.Info("ses send accepted", "recipient", msg.To, "message_id", messageID)
	return &SendOutcome{Status: StatusSuccess, MessageID: messageID}, nil
}

func isTransientSESError(err error) bool {
	s := strings.ToLower(err.Error())
	for _, pat := range []string{"throttl", "toomanyrequests", "limitexceeded", "sendingpaused", "timeout", "connection", "serviceunavailable"} {
		if strings.Contains(s, pat) {
			return true
		}
	}
	return false
}
