package dialogue

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/room4-2/FrontDesk/domain"
	"github.com/room4-2/FrontDesk/intent"
)

const (
	codePrompt  = "Do you have a unique code from a previous session? If yes, please say it. If not, say 'new user'."
	namePrompt  = "Please say your name."
	phonePrompt = "Please say your 10-digit phone number."

	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
)

var (
	codePattern     = regexp.MustCompile(`^[A-Z0-9]{6}$`)
	namePrefix      = regexp.MustCompile(`(?i)^(my name is|this is|i am|i'm)\s+`)
	nonDigitPattern = regexp.MustCompile(`\D`)
)

func (m *Machine) identify(ctx context.Context, c Context, text string) outcome {
	switch c.State {
	case AwaitingName:
		return m.captureName(ctx, c, text)
	case AwaitingPhone:
		return m.capturePhone(ctx, c, text)
	default:
		return m.captureCode(ctx, c, text)
	}
}

func (m *Machine) captureCode(ctx context.Context, c Context, text string) outcome {
	next := c
	if strings.Contains(strings.ToLower(text), "new user") {
		next.State, next.Attempts = AwaitingName, 0
		return outcome{next: next, reply: namePrompt, intent: intent.Unknown}
	}

	code := strings.ToUpper(strings.Join(strings.Fields(strings.Trim(text, ".!? ")), ""))
	if !codePattern.MatchString(code) {
		next.Attempts++
		if next.Attempts >= MaxAttempts {
			next.State, next.Attempts = AwaitingName, 0
			return outcome{next: next, reply: "Let's set you up as a new user. " + namePrompt, err: domain.ErrInputUnrecognized}
		}
		return outcome{next: next, reply: "Please say your unique code, or say 'new user'.", err: domain.ErrInputUnrecognized}
	}

	e, err := m.d.Store.FindEmployeeByCode(ctx, code)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			err = domain.Unavailable("find employee by code", err)
		}
		next.State, next.Attempts = AwaitingName, 0
		return outcome{next: next, reply: "I couldn't find that code, so let's set you up as a new user. " + namePrompt, err: err}
	}

	next = next.bind(e)
	next.State = Idle
	m.logger.Info("Returning caller identified", zap.Uint("employee_id", e.ID))
	return outcome{next: next, reply: "Welcome back, " + e.Name + "! How can I assist you today?"}
}

// CleanName strips lead-ins such as "my name is" from a spoken name.
func CleanName(text string) string {
	name := namePrefix.ReplaceAllString(strings.TrimSpace(text), "")
	return strings.TrimSpace(strings.Trim(name, ".!?, "))
}

func (m *Machine) captureName(ctx context.Context, c Context, text string) outcome {
	next := c
	name := CleanName(text)
	if name == "" {
		next.Attempts++
		if next.Attempts < MaxAttempts {
			return outcome{next: next, reply: "I didn't catch your name. Could you say it again?", err: domain.ErrInputUnrecognized}
		}
		name = "Guest"
	}

	e, created, err := m.getOrCreate(ctx, name)
	if err != nil {
		next.Attempts++
		return outcome{next: next, reply: "Sorry, I couldn't save your details right now. " + namePrompt, err: err}
	}

	next = next.bind(e)
	var reply string
	if created {
		reply = "Thanks, " + e.Name + ". Your unique code is " + spell(e.Code) + ". Please save it to reference your conversations later."
	} else {
		reply = "Welcome back, " + e.Name + ". Your unique code is " + spell(e.Code) + "."
	}
	if e.Phone == "" {
		next.State = AwaitingPhone
		return outcome{next: next, reply: reply + " " + phonePrompt}
	}
	next.State = Idle
	return outcome{next: next, reply: reply + " How can I assist you today?"}
}

func (m *Machine) capturePhone(ctx context.Context, c Context, text string) outcome {
	next := c
	digits := nonDigitPattern.ReplaceAllString(text, "")
	if len(digits) < 10 {
		next.Attempts++
		if next.Attempts >= MaxAttempts {
			next.State, next.Attempts = Idle, 0
			return outcome{next: next, reply: "I'll skip the phone number for now. How can I assist you today, " + c.Name + "?", err: domain.ErrInputUnrecognized}
		}
		return outcome{next: next, reply: "I need a 10-digit phone number. Could you say it again?", err: domain.ErrInputUnrecognized}
	}

	phone := digits[:10]
	if err := m.d.Store.UpdateEmployeeContact(ctx, c.EmployeeID, phone, c.Consent); err != nil {
		next.State, next.Attempts = Idle, 0
		return outcome{
			next:  next,
			reply: "Sorry, I couldn't save your phone number. How can I assist you today, " + c.Name + "?",
			err:   domain.Unavailable("update employee contact", err),
		}
	}
	next.Phone = phone
	next.State, next.Attempts = Idle, 0
	return outcome{next: next, reply: "Thanks, " + c.Name + "! How can I assist you today?"}
}

func (m *Machine) getOrCreate(ctx context.Context, name string) (*domain.Employee, bool, error) {
	e, err := m.d.Store.FindEmployeeByName(ctx, name)
	if err == nil {
		return e, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, domain.Unavailable("find employee by name", err)
	}

	// A generated code may collide with an existing one; retry a few times.
	var lastErr error
	for i := 0; i < 5; i++ {
		code, err := GenerateCode()
		if err != nil {
			return nil, false, err
		}
		if _, err := m.d.Store.FindEmployeeByCode(ctx, code); err == nil {
			continue
		}
		e := &domain.Employee{Name: name, Code: code, SMSConsent: true}
		if lastErr = m.d.Store.CreateEmployee(ctx, e); lastErr == nil {
			m.logger.Info("New employee registered", zap.Uint("employee_id", e.ID))
			return e, true, nil
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no free unique code")
	}
	return nil, false, domain.Unavailable("create employee", lastErr)
}

// GenerateCode returns a random 6-character uppercase alphanumeric code.
func GenerateCode() (string, error) {
	var b strings.Builder
	limit := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < codeLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// spell separates the characters of a code so it is read out one by one.
func spell(code string) string {
	return strings.Join(strings.Split(code, ""), " ")
}
