package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twilio/twilio-go/client"
	"github.com/twilio/twilio-go/twiml"
	"go.uber.org/zap"

	"github.com/room4-2/FrontDesk/config"
	"github.com/room4-2/FrontDesk/session"
)

const (
	gatherPath = "/gather"
	busyReply  = "All of our lines are busy right now. Please call again in a few minutes."
	slowReply  = "One moment please, could you say that again?"
)

// finishedCall lists the call statuses after which Twilio sends no more speech.
var finishedCall = map[string]bool{
	"completed": true,
	"busy":      true,
	"failed":    true,
	"no-answer": true,
	"canceled":  true,
}

// TwilioServer answers Twilio voice webhooks. Speech recognition and synthesis
// stay with Twilio; each gathered utterance is one conversation turn keyed by CallSid.
type TwilioServer struct {
	httpServer     *http.Server
	sessionManager *session.Manager
	config         *config.Config
	validator      *client.RequestValidator
	logger         *zap.Logger
}

func NewServerTwilio(cfg *config.Config, sessionManager *session.Manager, logger *zap.Logger) *TwilioServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &TwilioServer{
		sessionManager: sessionManager,
		config:         cfg,
		logger:         logger.Named("twilio"),
	}
	if cfg.PublicURL != "" && cfg.TwilioAuthToken != "" {
		v := client.NewRequestValidator(cfg.TwilioAuthToken)
		s.validator = &v
	}

	// Determine which port to use
	port := cfg.TwilioPort
	if cfg.ServerType == "twilio" {
		// When running as standalone Twilio server, use the main port
		port = cfg.Port
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return s
}

// Handler returns the webhook routes.
func (s *TwilioServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/voice", s.verified(s.handleVoiceCall))
	mux.HandleFunc(gatherPath, s.verified(s.handleGather))
	mux.HandleFunc("/status", s.verified(s.handleStatus))
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Start begins listening for webhooks
func (s *TwilioServer) Start() error {
	s.logger.Info("Twilio webhook server starting",
		zap.String("addr", s.httpServer.Addr),
		zap.Bool("signature_checks", s.validator != nil))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *TwilioServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down Twilio server")
	return s.httpServer.Shutdown(ctx)
}

// GetAddr returns the server's listen address (for logging in main)
func (s *TwilioServer) GetAddr() string {
	return s.httpServer.Addr
}

// verified parses the webhook form and, when configured, rejects requests
// whose X-Twilio-Signature does not match.
func (s *TwilioServer) verified(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if s.validator != nil {
			params := make(map[string]string, len(r.PostForm))
			for k := range r.PostForm {
				params[k] = r.PostForm.Get(k)
			}
			url := strings.TrimRight(s.config.PublicURL, "/") + r.URL.RequestURI()
			if !s.validator.Validate(url, params, r.Header.Get("X-Twilio-Signature")) {
				s.logger.Warn("Rejected unsigned webhook", zap.String("path", r.URL.Path))
				http.Error(w, "invalid signature", http.StatusForbidden)
				return
			}
		}
		next(w, r)
	}
}

func (s *TwilioServer) handleVoiceCall(w http.ResponseWriter, r *http.Request) {
	callSid := r.PostFormValue("CallSid")
	if callSid == "" {
		http.Error(w, "missing CallSid", http.StatusBadRequest)
		return
	}

	conv, _, err := s.sessionManager.Call(r.Context(), callSid)
	if err != nil {
		s.logger.Warn("Failed to start call", zap.String("call_sid", callSid), zap.Error(err))
		s.writeTwiML(w, &twiml.VoiceSay{Message: busyReply}, &twiml.VoiceHangup{})
		return
	}

	s.logger.Info("Call answered", zap.String("call_sid", callSid))
	s.writeTwiML(w, gather(conv.Greeting()))
}

func (s *TwilioServer) handleGather(w http.ResponseWriter, r *http.Request) {
	callSid := r.PostFormValue("CallSid")
	if callSid == "" {
		http.Error(w, "missing CallSid", http.StatusBadRequest)
		return
	}

	conv, created, err := s.sessionManager.Call(r.Context(), callSid)
	if err != nil {
		s.writeTwiML(w, &twiml.VoiceSay{Message: busyReply}, &twiml.VoiceHangup{})
		return
	}
	if created {
		s.logger.Info("Call resumed without a live conversation", zap.String("call_sid", callSid))
	}

	speech := r.PostFormValue("SpeechResult")
	turn, err := conv.Submit(r.Context(), speech)
	switch {
	case errors.Is(err, session.ErrRateLimited):
		s.writeTwiML(w, gather(slowReply))
		return
	case err != nil:
		s.logger.Warn("Turn not applied", zap.String("call_sid", callSid), zap.Error(err))
		s.writeTwiML(w, gather(slowReply))
		return
	}

	s.logger.Debug("Turn applied",
		zap.String("call_sid", callSid),
		zap.String("intent", string(turn.Intent)),
		zap.String("state", string(turn.Next.State)))
	s.writeTwiML(w, gather(turn.Reply))
}

func (s *TwilioServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	callSid := r.PostFormValue("CallSid")
	status := r.PostFormValue("CallStatus")
	if callSid != "" && finishedCall[status] {
		s.sessionManager.EndCall(r.Context(), callSid)
		s.logger.Info("Call ended", zap.String("call_sid", callSid), zap.String("status", status))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *TwilioServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","server":"twilio","sessions":%d}`, s.sessionManager.GetActiveSessionCount())
}

// gather speaks text and listens for the caller's next utterance. An empty
// result still posts back so silence counts as an unheard turn.
func gather(text string) twiml.Element {
	return &twiml.VoiceGather{
		Input:               "speech",
		Action:              gatherPath,
		Method:              http.MethodPost,
		SpeechTimeout:       "auto",
		ActionOnEmptyResult: "true",
		InnerElements:       []twiml.Element{&twiml.VoiceSay{Message: text}},
	}
}

func (s *TwilioServer) writeTwiML(w http.ResponseWriter, verbs ...twiml.Element) {
	doc, err := twiml.Voice(verbs)
	if err != nil {
		s.logger.Error("Failed to render TwiML", zap.Error(err))
		http.Error(w, "twiml error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	_, _ = w.Write([]byte(doc))
}
