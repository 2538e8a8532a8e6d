// Package hr executes privileged commands for a caller who has logged in with
// the shared HR phrase. Every privileged action, including login attempts, is
// appended to the HR audit log whatever its outcome.
package hr

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/room4-2/FrontDesk/domain"
	"github.com/room4-2/FrontDesk/intent"
	"github.com/room4-2/FrontDesk/metrics"
)

const (
	DefaultPriceFloor       = 12000
	DefaultInteractionLimit = 5

	followUp = "What else can I help you with?"
)

// Store is the slice of the storage port the handler needs.
type Store interface {
	domain.SessionStore
	domain.CourseStore
	domain.AuditStore
}

// CachePurger drops memoized course details after an edit.
type CachePurger interface {
	Purge(ctx context.Context) error
}

// Config holds the business constants for HR commands.
type Config struct {
	Secret           string
	PriceFloor       float64
	InteractionLimit int
}

// Session is the caller state a command runs against.
type Session struct {
	Authenticated bool
	User          string
	EmployeeName  string
}

// Result is the outcome of one command. Err is set for a rejected command and
// matches one of the domain sentinels.
type Result struct {
	Reply         string
	Authenticated bool
	User          string
	Err           error
}

// Handler runs HR commands.
type Handler struct {
	cfg     Config
	store   Store
	cache   CachePurger
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewHandler creates a handler. cache and m may be nil.
func NewHandler(cfg Config, store Store, cache CachePurger, logger *zap.Logger, m *metrics.Metrics) *Handler {
	if cfg.PriceFloor <= 0 {
		cfg.PriceFloor = DefaultPriceFloor
	}
	if cfg.InteractionLimit <= 0 {
		cfg.InteractionLimit = DefaultInteractionLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{cfg: cfg, store: store, cache: cache, logger: logger.Named("hr"), metrics: m}
}

// Handles reports whether the intent belongs to the HR command surface.
func Handles(in intent.Intent) bool {
	return in == intent.HRLogin || in.Privileged()
}

// Handle executes the command named by in. Callers route only intents for
// which Handles is true.
func (h *Handler) Handle(ctx context.Context, s Session, in intent.Intent, transcript string) Result {
	res := Result{Authenticated: s.Authenticated, User: s.User}

	if in == intent.HRLogin {
		return h.login(ctx, s, transcript)
	}
	if !s.Authenticated {
		h.metrics.HRCommand("denied")
		res.Reply = "That command needs HR access. Say 'hr login' followed by the HR password."
		res.Err = domain.ErrPrivilegeDenied
		return res
	}

	switch in {
	case intent.ViewInteractions:
		res.Reply, res.Err = h.viewInteractions(ctx, s, transcript)
	case intent.UpdateCourse:
		res.Reply, res.Err = h.updateCourse(ctx, s, transcript)
	case intent.StatusReport:
		res.Reply, res.Err = h.statusReport(ctx, s)
	case intent.Logout:
		h.audit(ctx, "HR logout", s.User)
		h.metrics.HRCommand("logout")
		h.logger.Info("HR logout", zap.String("user", s.User))
		return Result{Reply: "HR logout successful. How can I assist you now?"}
	default:
		res.Reply = followUp
	}
	return res
}

func (h *Handler) login(ctx context.Context, s Session, transcript string) Result {
	who := s.EmployeeName
	if who == "" {
		who = "unknown"
	}
	if h.cfg.Secret == "" || !strings.Contains(strings.ToLower(transcript), strings.ToLower(h.cfg.Secret)) {
		h.audit(ctx, "HR login failed", who)
		h.metrics.HRCommand("login_failed")
		h.logger.Warn("HR login rejected", zap.String("user", who))
		return Result{
			Reply:         "Please say the correct HR password.",
			Authenticated: s.Authenticated,
			User:          s.User,
			Err:           domain.ErrPrivilegeDenied,
		}
	}

	h.audit(ctx, "HR login succeeded", who)
	h.metrics.HRCommand("login")
	h.logger.Info("HR login", zap.String("user", who))
	return Result{
		Reply:         "HR login successful. You can now view interactions, update courses, or generate reports. What would you like to do?",
		Authenticated: true,
		User:          who,
	}
}

var (
	codePattern = regexp.MustCompile(`(?i)code\s+([a-z0-9]{6})\b`)
	namePattern = regexp.MustCompile(`(?i)\bfor\s+(.+?)(?:\s+code\b|$)`)
)

func (h *Handler) viewInteractions(ctx context.Context, s Session, transcript string) (string, error) {
	var (
		filter     domain.InteractionFilter
		identifier string
	)
	text := strings.TrimSpace(transcript)
	if m := codePattern.FindStringSubmatch(text); m != nil {
		filter.Code = strings.ToUpper(m[1])
		identifier = "code " + filter.Code
	} else if m := namePattern.FindStringSubmatch(text); m != nil {
		filter.Name = strings.TrimRight(strings.TrimSpace(m[1]), ".?!")
		identifier = "name " + filter.Name
	} else {
		filter.Name = s.EmployeeName
		identifier = "name " + s.EmployeeName
	}

	h.metrics.HRCommand("view_interactions")
	records, err := h.store.RecentInteractions(ctx, filter, h.cfg.InteractionLimit)
	if err != nil {
		h.audit(ctx, "Failed to view interactions for "+identifier, s.User)
		return h.storeFailure("view interactions", err)
	}
	h.audit(ctx, "Viewed interactions for "+identifier, s.User)

	if len(records) == 0 {
		return fmt.Sprintf("No interactions found for %s.\n%s", identifier, followUp), nil
	}
	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = fmt.Sprintf("Query: %s, Response: %s, Time: %s", r.Query, r.Response, r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return fmt.Sprintf("Here are recent interactions for %s:\n%s\n%s", identifier, strings.Join(lines, "\n"), followUp), nil
}

var updatePattern = regexp.MustCompile(`(?i)update course\s+(.+?)\s+(\w+)\s+to\s+(.+)`)

var allowedFields = map[string]domain.CourseField{
	"price":       domain.FieldPrice,
	"description": domain.FieldDescription,
	"content":     domain.FieldContent,
}

func (h *Handler) updateCourse(ctx context.Context, s Session, transcript string) (string, error) {
	h.metrics.HRCommand("update_course")

	m := updatePattern.FindStringSubmatch(strings.TrimSpace(transcript))
	if m == nil {
		h.audit(ctx, "Rejected malformed course update", s.User)
		return "Please say 'update course [name] [price/description/content] to [value]', like 'update course Python price to 16000'.",
			fmt.Errorf("%w: malformed update command", domain.ErrValidation)
	}
	name, rawField, rawValue := strings.TrimSpace(m[1]), strings.ToLower(m[2]), strings.TrimSpace(m[3])

	field, ok := allowedFields[rawField]
	if !ok {
		h.audit(ctx, fmt.Sprintf("Rejected update of %s of %s: unknown field", rawField, name), s.User)
		return "Invalid field. Use price, description, or content. " + followUp,
			fmt.Errorf("%w: field %q", domain.ErrValidation, rawField)
	}

	var value any = strings.TrimRight(rawValue, ".")
	if field == domain.FieldPrice {
		price, err := ParsePrice(rawValue)
		if err != nil {
			h.audit(ctx, fmt.Sprintf("Rejected update of price of %s to %s: not a number", name, rawValue), s.User)
			return "Please say the price as a number, like 16000. " + followUp, err
		}
		if price <= h.cfg.PriceFloor {
			h.audit(ctx, fmt.Sprintf("Rejected update of price of %s to %s: at or below floor", name, formatAmount(price)), s.User)
			return fmt.Sprintf("Course price must be above %s INR. %s", formatAmount(h.cfg.PriceFloor), followUp),
				fmt.Errorf("%w: price %.2f at or below floor %.2f", domain.ErrValidation, price, h.cfg.PriceFloor)
		}
		value = price
	}

	rows, err := h.store.UpdateCourseField(ctx, name, field, value)
	if err != nil {
		h.audit(ctx, fmt.Sprintf("Failed to update %s of %s", field, name), s.User)
		if errors.Is(err, domain.ErrAmbiguousName) {
			return fmt.Sprintf("More than one course matches %s. Please say the full course name. %s", name, followUp),
				fmt.Errorf("%w: %w", domain.ErrValidation, err)
		}
		if errors.Is(err, domain.ErrValidation) {
			return "Invalid value for " + string(field) + ". " + followUp, err
		}
		return h.storeFailure("update course", err)
	}
	if rows == 0 {
		h.audit(ctx, fmt.Sprintf("Rejected update of %s of %s: course not found", field, name), s.User)
		return "Course not found. " + followUp, fmt.Errorf("course %q: %w", name, domain.ErrNotFound)
	}

	h.audit(ctx, fmt.Sprintf("Updated %s of %s to %v", field, name, display(value)), s.User)
	if h.cache != nil {
		if err := h.cache.Purge(ctx); err != nil {
			h.logger.Warn("Failed to purge course cache", zap.Error(err))
		}
	}
	h.logger.Info("Course updated", zap.String("course", name), zap.String("field", string(field)), zap.String("user", s.User))
	return fmt.Sprintf("Updated %s for %s successfully. %s", field, name, followUp), nil
}

func (h *Handler) statusReport(ctx context.Context, s Session) (string, error) {
	h.metrics.HRCommand("status_report")
	n, err := h.store.CountSessions(ctx)
	if err != nil {
		h.audit(ctx, "Failed to generate status report", s.User)
		return h.storeFailure("status report", err)
	}
	h.audit(ctx, "Generated status report", s.User)
	return fmt.Sprintf("Total counseling sessions: %d\n%s", n, followUp), nil
}

func (h *Handler) storeFailure(op string, err error) (string, error) {
	err = domain.Unavailable(op, err)
	h.logger.Error("HR command failed", zap.String("op", op), zap.Error(err))
	return "Sorry, I couldn't reach the records right now. Please try again. " + followUp, err
}

func (h *Handler) audit(ctx context.Context, text, user string) {
	if user == "" {
		user = "HR_Admin"
	}
	if err := h.store.InsertHRCommand(ctx, &domain.HRCommand{Text: text, ExecutedBy: user}); err != nil {
		h.logger.Error("Failed to save HR command", zap.String("command", text), zap.Error(err))
	}
}

var priceNoise = strings.NewReplacer(",", "", "inr", "", "rupees", "", "rs.", "", "₹", "", " ", "")

// ParsePrice reads a spoken price such as "16,000 INR" as a number.
func ParsePrice(raw string) (float64, error) {
	cleaned := strings.TrimRight(priceNoise.Replace(strings.ToLower(raw)), ".")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: price %q is not a number", domain.ErrValidation, raw)
	}
	return v, nil
}

func display(v any) any {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return v
}

// formatAmount renders whole rupees with thousands separators, e.g. 12,000.
func formatAmount(v float64) string {
	s := strconv.FormatFloat(v, 'f', 0, 64)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
