// Package mail provides transports for delivering report e-mails.
package mail

import (
	"context"
	"fmt"
	"log"

	gomail "github.com/wneessen/go-mail"

	"example.com/fitnesstracker/internal/domain"
)

// SMTPConfig describes the outbound relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender delivers e-mails through an SMTP relay. Each Send dials its own connection so
// concurrent callers never share client state.
type SMTPSender struct {
	cfg  SMTPConfig
	opts []gomail.Option
}

// NewSMTPSender constructs an SMTPSender. Authentication is enabled when a username is set.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("sender address is required")
	}

	opts := []gomail.Option{gomail.WithPort(cfg.Port)}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
			gomail.WithTLSPolicy(gomail.TLSMandatory),
		)
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}
	return &SMTPSender{cfg: cfg, opts: opts}, nil
}

// Send implements report.Sender.
func (s *SMTPSender) Send(ctx context.Context, email domain.ReportEmail) error {
	msg, err := s.message(email)
	if err != nil {
		return err
	}

	client, err := gomail.NewClient(s.cfg.Host, s.opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) message(email domain.ReportEmail) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(email.To); err != nil {
		return nil, fmt.Errorf("recipient address: %w", err)
	}
	msg.Subject(email.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, email.Body)
	return msg, nil
}

// LogSender writes e-mails to a logger instead of delivering them. Used when no SMTP relay is configured.
type LogSender struct {
	logger *log.Logger
}

// NewLogSender constructs a LogSender.
func NewLogSender(logger *log.Logger) *LogSender {
	if logger == nil {
		logger = log.New(log.Writer(), "[mail] ", log.LstdFlags)
	}
	return &LogSender{logger: logger}
}

// Send implements report.Sender.
func (s *LogSender) Send(ctx context.Context, email domain.ReportEmail) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Printf("to=%s subject=%q\n%s", email.To, email.Subject, email.Body)
	return nil
}
