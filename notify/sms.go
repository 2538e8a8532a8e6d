// Package notify delivers session confirmations to employees.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/room4-2/FrontDesk/domain"
)

// SMSConfig identifies the sending account and the signature appended to every message.
type SMSConfig struct {
	AccountSID    string
	AuthToken     string
	FromNumber    string
	CountryPrefix string
	Org           string
	HRContact     string
}

// Enabled reports whether enough is configured to send.
func (c SMSConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.FromNumber != ""
}

type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// SMS sends notifications through Twilio's messaging API.
type SMS struct {
	cfg    SMSConfig
	api    messageCreator
	logger *zap.Logger
}

// NewSMS creates a Twilio-backed notifier.
func NewSMS(cfg SMSConfig, logger *zap.Logger) *SMS {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return newSMS(cfg, client.Api, logger)
}

func newSMS(cfg SMSConfig, api messageCreator, logger *zap.Logger) *SMS {
	if cfg.CountryPrefix == "" {
		cfg.CountryPrefix = "+91"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMS{cfg: cfg, api: api, logger: logger.Named("sms")}
}

// Send delivers n and reports success. Missing consent or phone skips delivery
// and reports false.
func (s *SMS) Send(ctx context.Context, n domain.Notification) bool {
	if !n.Consent || n.Phone == "" {
		s.logger.Debug("Skipping SMS without phone or consent", zap.String("employee", n.EmployeeName))
		return false
	}
	if ctx.Err() != nil {
		return false
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(s.recipient(n.Phone))
	params.SetFrom(s.cfg.FromNumber)
	params.SetBody(Body(n, s.cfg.HRContact, s.cfg.Org))

	msg, err := s.api.CreateMessage(params)
	if err != nil {
		s.logger.Error("Failed to send SMS", zap.String("employee", n.EmployeeName), zap.Error(err))
		return false
	}
	sid := ""
	if msg != nil && msg.Sid != nil {
		sid = *msg.Sid
	}
	s.logger.Info("SMS sent", zap.String("employee", n.EmployeeName), zap.String("sid", sid))
	return true
}

func (s *SMS) recipient(phone string) string {
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	return s.cfg.CountryPrefix + phone
}

// Body is the full SMS text: greeting, message and signature.
func Body(n domain.Notification, hrContact, org string) string {
	return fmt.Sprintf("Hi %s, %s Contact HR at %s for assistance. -%s HR", n.EmployeeName, n.Body, hrContact, org)
}
