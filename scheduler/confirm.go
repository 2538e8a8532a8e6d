package scheduler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/room4-2/FrontDesk/domain"
)

// SMSBody is the notification text for a persisted session. The notifier adds
// the greeting and signature.
func SMSBody(cs domain.CounselingSession, rescheduled bool) string {
	return fmt.Sprintf("your %s counseling session %s is %s for %s at %s.",
		cs.Mode, cs.Mode.Location(), action(rescheduled), cs.Date, cs.Time)
}

// Confirmation is the spoken reply for a persisted session.
func Confirmation(name string, cs domain.CounselingSession, course *domain.Course, rescheduled bool) string {
	about := ""
	if course != nil && course.Name != "" {
		about = " for " + course.Name
	}
	return fmt.Sprintf("Okay %s, your %s counseling session %s%s is %s for %s at %s.",
		name, cs.Mode, cs.Mode.Location(), about, action(rescheduled), cs.Date, cs.Time)
}

func action(rescheduled bool) string {
	if rescheduled {
		return "rescheduled"
	}
	return "scheduled"
}

func (s *Scheduler) confirm(ctx context.Context, req Request, cs domain.CounselingSession, rescheduled bool) Booking {
	b := Booking{
		Session:      cs,
		Rescheduled:  rescheduled,
		Confirmation: Confirmation(req.Employee.Name, cs, req.Course, rescheduled),
	}

	wantsSMS := req.Employee.Phone != "" && req.Employee.SMSConsent
	if !wantsSMS || s.notifier == nil {
		return b
	}
	b.Notified = s.notifier.Send(ctx, domain.Notification{
		EmployeeName: req.Employee.Name,
		Phone:        req.Employee.Phone,
		Consent:      req.Employee.SMSConsent,
		Body:         SMSBody(cs, rescheduled),
	})
	if !b.Notified {
		s.logger.Warn("SMS confirmation not delivered", zap.Uint("session_id", cs.ID))
		b.Confirmation += " I couldn't send an SMS confirmation."
	}
	return b
}
