// Package api exposes the HTTP surface: the gateway webhook and a small
// operator API for enrollment and session inspection.
package api

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/immuned/rheumabot/internal/middleware"
	"github.com/immuned/rheumabot/internal/services"
	"github.com/immuned/rheumabot/internal/session"
)

type Router struct {
	engine *services.ConversationService
	store  *session.Store
}

func NewRouter(engine *services.ConversationService, store *session.Store) *Router {
	return &Router{engine: engine, store: store}
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", rt.handleWebhook)                                            // POST
	mux.Handle("/api/enroll", middleware.RequireOps(http.HandlerFunc(rt.handleEnroll)))     // POST
	mux.Handle("/api/sessions", middleware.RequireOps(http.HandlerFunc(rt.handleSessions))) // GET
}

// webhookPayload mirrors the gateway callback body. The gateway posts either
// form-encoded or JSON with the same field names.
type webhookPayload struct {
	Body string `json:"Body"`
	From string `json:"From"`
}

func decodeWebhook(r *http.Request) webhookPayload {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		var p webhookPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		return p
	}
	_ = r.ParseForm()
	return webhookPayload{Body: r.PostFormValue("Body"), From: r.PostFormValue("From")}
}

// POST /webhook — always ACKs with 200 once the message has been applied or
// safely rejected; the gateway retries on anything else and duplicates are
// already tolerated downstream.
func (rt *Router) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	p := decodeWebhook(r)
	phone := strings.TrimPrefix(strings.TrimSpace(p.From), "whatsapp:")
	text := strings.TrimSpace(p.Body)
	if phone == "" || text == "" {
		// Unresolvable payload: acknowledged, no session side effects.
		w.WriteHeader(http.StatusOK)
		return
	}
	_ = rt.engine.HandleInbound(r.Context(), phone, text)
	w.WriteHeader(http.StatusOK)
}

var phonePattern = regexp.MustCompile(`^\d{1,15}$`)

// ValidPhone accepts 1-15 digits with an optional leading +.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(strings.TrimPrefix(phone, "+"))
}

// POST /api/enroll — {"phones": [...]}; enrolls each valid phone and reports
// a per-phone outcome.
func (rt *Router) handleEnroll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Phones []string `json:"phones"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Phones) == 0 {
		http.Error(w, "phones required", http.StatusBadRequest)
		return
	}
	outcome := make(map[string]string, len(req.Phones))
	for _, raw := range req.Phones {
		phone := strings.TrimSpace(raw)
		switch {
		case !ValidPhone(phone):
			outcome[raw] = "invalid"
		case rt.engine.Enroll(strings.TrimPrefix(phone, "+")):
			outcome[raw] = "enrolled"
		default:
			outcome[raw] = "already_active"
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "outcome": outcome})
}

// GET /api/sessions — snapshot of in-flight sessions for operators.
func (rt *Router) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	type sessionView struct {
		Phone     string `json:"phone"`
		Ordinal   int    `json:"ordinal"`
		Answered  int    `json:"answered"`
		IntroSent bool   `json:"intro_sent"`
		CreatedAt string `json:"created_at"`
	}
	snap := rt.store.Snapshot()
	out := make([]sessionView, 0, len(snap))
	for _, s := range snap {
		out = append(out, sessionView{
			Phone:     s.Phone,
			Ordinal:   s.Ordinal,
			Answered:  len(s.Answers),
			IntroSent: s.IntroSent,
			CreatedAt: s.CreatedAt.Format(time.RFC3339),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"count": len(out), "sessions": out})
}
