package email

import (
	"context"
	"fmt"
	"html"
	"sync"
	"time"

	"github.com/archivesocial/archive/backend/internal/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"
)

// Sender delivers account emails
type Sender interface {
	SendConfirmation(ctx context.Context, toEmail, link string) error
}

// SESSender sends email via AWS SES
type SESSender struct {
	client    *ses.Client
	fromEmail string
	fromName  string
}

// NewSESSender creates a new email sender using AWS SES
func NewSESSender(region, fromEmail, fromName string) (*SESSender, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESSender{
		client:    ses.NewFromConfig(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
	}, nil
}

// SendConfirmation sends the signup confirmation link
func (e *SESSender) SendConfirmation(ctx context.Context, toEmail, link string) error {
	subject, htmlBody, textBody := confirmationMessage(link)

	from := e.fromEmail
	if e.fromName != "" {
		from = fmt.Sprintf("%s <%s>", e.fromName, e.fromEmail)
	}

	input := &ses.SendEmailInput{
		Source: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data:    aws.String(htmlBody),
					Charset: aws.String("UTF-8"),
				},
				Text: &types.Content{
					Data:    aws.String(textBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if _, err := e.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}
	return nil
}

func confirmationMessage(link string) (subject, htmlBody, textBody string) {
	subject = "Confirm your aRchive account"
	escaped := html.EscapeString(link)
	htmlBody = fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #222;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<h1>Welcome to aRchive</h1>
		<p>Confirm your email address to finish creating your account.</p>
		<a href="%s" style="display: inline-block; padding: 12px 24px; background-color: #111; color: #fff; text-decoration: none; border-radius: 6px;">Confirm email</a>
		<p>Or paste this link into your browser:</p>
		<p style="word-break: break-all; color: #666;">%s</p>
	</div>
</body>
</html>`, escaped, escaped)

	textBody = fmt.Sprintf(`Welcome to aRchive

Confirm your email address to finish creating your account:

%s
`, link)
	return subject, htmlBody, textBody
}

// LogSender logs the link instead of sending mail. It keeps the last links
// per address so tests can follow them.
type LogSender struct {
	mu   sync.Mutex
	sent map[string]string
}

// NewLogSender creates a LogSender
func NewLogSender() *LogSender {
	return &LogSender{sent: make(map[string]string)}
}

// SendConfirmation records and logs the link
func (l *LogSender) SendConfirmation(ctx context.Context, toEmail, link string) error {
	l.mu.Lock()
	l.sent[toEmail] = link
	l.mu.Unlock()

	logger.Log.Info("Confirmation email (not sent)",
		zap.String("to", toEmail),
		zap.String("link", link),
	)
	return nil
}

// LastLink returns the most recent link sent to toEmail
func (l *LogSender) LastLink(toEmail string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	link, ok := l.sent[toEmail]
	return link, ok
}
