package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"
)

// CodeSender delivers a login code to a phone number as stored on the roster.
type CodeSender interface {
	SendCode(ctx context.Context, phone, code string) error
}

// LogSender writes codes to the log instead of sending them. For development
// and rehearsals only.
type LogSender struct{}

func (LogSender) SendCode(ctx context.Context, phone, code string) error {
	slog.WarnContext(ctx, "Login code not sent, SMS is disabled", "phone", phone, "code", code)
	return nil
}

// SNSSender sends codes as transactional SMS through Amazon SNS.
type SNSSender struct {
	client   snsiface.SNSAPI
	senderID string
}

// NewSNSSender creates an SNSSender. Static credentials are used when
// accessKeyID is set, otherwise the default AWS credential chain.
func NewSNSSender(region, accessKeyID, secretAccessKey, senderID string) (*SNSSender, error) {
	cfg := aws.Config{Region: aws.String(region)}
	if accessKeyID != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKeyID, secretAccessKey, "")
	}
	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return &SNSSender{client: sns.New(sess), senderID: senderID}, nil
}

func (s *SNSSender) SendCode(ctx context.Context, phone, code string) error {
	to, err := toE164(phone)
	if err != nil {
		return err
	}
	attrs := map[string]*sns.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {DataType: aws.String("String"), StringValue: aws.String("Transactional")},
	}
	if s.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = &sns.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(s.senderID)}
	}
	_, err = s.client.PublishWithContext(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(to),
		Message:           aws.String(fmt.Sprintf("[선거] 인증번호 %s", code)),
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("sns publish failed: %w", err)
	}
	return nil
}

// toE164 turns a Korean number like 010-1234-5678 into +821012345678.
func toE164(phone string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	switch {
	case strings.HasPrefix(phone, "+") && len(digits) >= 8:
		return "+" + digits, nil
	case strings.HasPrefix(digits, "0") && len(digits) >= 9:
		return "+82" + digits[1:], nil
	}
	return "", fmt.Errorf("invalid phone number %q", phone)
}
