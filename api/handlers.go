package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/voocel/pilot/activity"
	"github.com/voocel/pilot/hitl"
	"github.com/voocel/pilot/logx"
	"github.com/voocel/pilot/schema"
	"github.com/voocel/pilot/secret"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func (s *server) record(kind activity.Kind, tool, summary string, data map[string]any) {
	if s.opts.Activity == nil {
		return
	}
	s.opts.Activity.Append(activity.Entry{Kind: kind, Tool: tool, Summary: summary, Data: data})
}

func (s *server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := map[string]any{
		"version":    s.opts.Version,
		"run_active": s.running.Load(),
		"protocol":   schema.ProtocolVersion,
	}
	if s.opts.Guest != nil {
		status["guest_connected"] = s.opts.Guest.Connected()
	}
	if s.opts.Center != nil {
		status["pending_interactions"] = s.opts.Center.PendingCount()
	}
	if s.opts.Todos != nil {
		status["todos"] = s.opts.Todos.Items()
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *server) handleActivity(w http.ResponseWriter, r *http.Request) {
	if s.opts.Activity == nil {
		writeJSON(w, http.StatusOK, []activity.Entry{})
		return
	}
	n := 50
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "n must be a positive integer")
			return
		}
		n = parsed
	}
	entries := s.opts.Activity.Recent(n)
	if entries == nil {
		entries = []activity.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// questionView flattens the question variants into one JSON shape for
// clients.
type questionView struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Prompt    string    `json:"prompt,omitempty"`
	Options   []string  `json:"options,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func viewQuestion(q hitl.Question) questionView {
	switch v := q.(type) {
	case hitl.TextQuestion:
		return questionView{ID: v.ID, Kind: v.Kind(), Prompt: v.Prompt, CreatedAt: v.CreatedAt}
	case hitl.ChoiceQuestion:
		return questionView{ID: v.ID, Kind: v.Kind(), Prompt: v.Prompt, Options: v.Options, CreatedAt: v.CreatedAt}
	case hitl.InterventionRequest:
		return questionView{ID: v.ID, Kind: v.Kind(), Reason: v.Reason, CreatedAt: v.CreatedAt}
	default:
		return questionView{ID: q.QuestionID(), Kind: q.Kind()}
	}
}

func (s *server) handlePending(w http.ResponseWriter, _ *http.Request) {
	if s.opts.Center == nil {
		writeError(w, http.StatusServiceUnavailable, "interactions are not configured")
		return
	}
	var pending struct {
		Question   *questionView           `json:"question"`
		Permission *hitl.PermissionRequest `json:"permission"`
	}
	if q, ok := s.opts.Center.PendingQuestion(); ok {
		view := viewQuestion(q)
		pending.Question = &view
	}
	if req, ok := s.opts.Center.PendingPermission(); ok {
		pending.Permission = &req
	}
	writeJSON(w, http.StatusOK, pending)
}

// interactionStatus maps resolution errors onto HTTP codes: a repeat
// resolution conflicts, an unknown id is not found.
func interactionStatus(err error) (int, string) {
	switch {
	case errors.Is(err, schema.ErrInteractionResolved):
		return http.StatusConflict, "interaction already resolved"
	case errors.Is(err, schema.ErrInteractionNotFound):
		return http.StatusNotFound, "no such pending interaction"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func (s *server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if s.opts.Center == nil {
		writeError(w, http.StatusServiceUnavailable, "interactions are not configured")
		return
	}
	id := chi.URLParam(r, "id")
	var body struct {
		Answer string `json:"answer"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	if err := s.opts.Center.Answer(id, body.Answer); err != nil {
		code, msg := interactionStatus(err)
		writeError(w, code, msg)
		return
	}
	s.record(activity.KindQuestionAnswered, "", "question answered", map[string]any{"question_id": id})
	logx.Log.Info().Str("question_id", id).Msg("question answered")
	writeJSON(w, http.StatusOK, map[string]string{"status": "answered"})
}

func (s *server) handleDecide(w http.ResponseWriter, r *http.Request) {
	if s.opts.Center == nil {
		writeError(w, http.StatusServiceUnavailable, "interactions are not configured")
		return
	}
	id := chi.URLParam(r, "id")
	var body struct {
		Approved bool   `json:"approved"`
		Reason   string `json:"reason"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	if err := s.opts.Center.Decide(id, hitl.Decision{Approved: body.Approved, Reason: body.Reason}); err != nil {
		code, msg := interactionStatus(err)
		writeError(w, code, msg)
		return
	}
	verdict := "denied"
	if body.Approved {
		verdict = "approved"
	}
	s.record(activity.KindPermissionDecided, "", "permission "+verdict, map[string]any{
		"permission_id": id,
		"approved":      body.Approved,
	})
	logx.Log.Info().Str("permission_id", id).Bool("approved", body.Approved).Msg("permission decided")
	writeJSON(w, http.StatusOK, map[string]string{"status": verdict})
}

func (s *server) handleListCredentials(w http.ResponseWriter, _ *http.Request) {
	if s.opts.Secrets == nil {
		writeError(w, http.StatusServiceUnavailable, "credentials are not configured")
		return
	}
	sites := s.opts.Secrets.Sites()
	pairs := make([]secret.TokenPair, 0, len(sites))
	for _, site := range sites {
		if pair, ok := s.opts.Secrets.Tokens(site); ok {
			pairs = append(pairs, pair)
		}
	}
	writeJSON(w, http.StatusOK, pairs)
}

func (s *server) handlePutCredential(w http.ResponseWriter, r *http.Request) {
	if s.opts.Secrets == nil {
		writeError(w, http.StatusServiceUnavailable, "credentials are not configured")
		return
	}
	var body struct {
		Site     string `json:"site"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	body.Site = strings.TrimSpace(body.Site)
	if body.Site == "" || body.Username == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "site, username, and password are all required")
		return
	}
	pair := s.opts.Secrets.Put(secret.Credential{Site: body.Site, Username: body.Username, Password: body.Password})
	logx.Log.Info().
		Str("site", body.Site).
		Str("username", secret.Mask(body.Username)).
		Msg("credential stored")
	writeJSON(w, http.StatusOK, pair)
}

func (s *server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.opts.Runner == nil {
		writeError(w, http.StatusServiceUnavailable, "no runner is configured")
		return
	}
	var body struct {
		Input string `json:"input"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Input) == "" {
		writeError(w, http.StatusBadRequest, "input is required")
		return
	}
	if !s.running.CompareAndSwap(false, true) {
		writeError(w, http.StatusConflict, "a run is already in progress")
		return
	}

	s.record(activity.KindRunStart, "", body.Input, nil)
	// The run outlives this request; its progress streams over /events.
	go func() {
		defer s.running.Store(false)
		answer, err := s.opts.Runner.Run(context.Background(), body.Input)
		if err != nil {
			s.record(activity.KindRunError, "", err.Error(), nil)
			logx.Log.Error().Err(err).Msg("run failed")
			return
		}
		s.record(activity.KindRunEnd, "", answer, nil)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
