package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/room4-2/FrontDesk/domain"
)

type fakeAPI struct {
	sent []*openapi.CreateMessageParams
	err  error
}

func (f *fakeAPI) CreateMessage(p *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error) {
	f.sent = append(f.sent, p)
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &openapi.ApiV2010Message{Sid: &sid}, nil
}

var cfg = SMSConfig{
	AccountSID: "AC1", AuthToken: "tok", FromNumber: "+15550001111",
	Org: "Regex Software", HRContact: "(555) 987-6543",
}

func TestSMSSend(t *testing.T) {
	api := &fakeAPI{}
	s := newSMS(cfg, api, zap.NewNop())

	ok := s.Send(context.Background(), domain.Notification{
		EmployeeName: "Asha", Phone: "9876543210", Consent: true,
		Body: "your offline counseling session at our office is scheduled for 2025-05-15 at 11:00.",
	})
	require.True(t, ok)
	require.Len(t, api.sent, 1)
	assert.Equal(t, "+919876543210", *api.sent[0].To)
	assert.Equal(t, "+15550001111", *api.sent[0].From)
	assert.Equal(t,
		"Hi Asha, your offline counseling session at our office is scheduled for 2025-05-15 at 11:00. Contact HR at (555) 987-6543 for assistance. -Regex Software HR",
		*api.sent[0].Body)
}

func TestSMSKeepsInternationalNumber(t *testing.T) {
	api := &fakeAPI{}
	s := newSMS(cfg, api, nil)
	require.True(t, s.Send(context.Background(), domain.Notification{EmployeeName: "Asha", Phone: "+447700900123", Consent: true}))
	assert.Equal(t, "+447700900123", *api.sent[0].To)
}

func TestSMSSkipsAndFailures(t *testing.T) {
	api := &fakeAPI{}
	s := newSMS(cfg, api, nil)

	assert.False(t, s.Send(context.Background(), domain.Notification{EmployeeName: "Asha", Phone: "9876543210"}))
	assert.False(t, s.Send(context.Background(), domain.Notification{EmployeeName: "Asha", Consent: true}))
	assert.Empty(t, api.sent)

	api.err = errors.New("unreachable")
	assert.False(t, s.Send(context.Background(), domain.Notification{EmployeeName: "Asha", Phone: "9876543210", Consent: true}))
}

func TestSMSConfigEnabled(t *testing.T) {
	assert.True(t, cfg.Enabled())
	assert.False(t, SMSConfig{AccountSID: "AC1"}.Enabled())
}

func TestLogNotifier(t *testing.T) {
	n := NewLog(nil)
	assert.True(t, n.Send(context.Background(), domain.Notification{EmployeeName: "Asha", Phone: "1", Consent: true}))
	assert.False(t, n.Send(context.Background(), domain.Notification{EmployeeName: "Asha"}))
}
