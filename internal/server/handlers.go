// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/morales-javx/javxseek/internal/config"
	"github.com/morales-javx/javxseek/internal/model"
	"github.com/morales-javx/javxseek/internal/session"
	"github.com/morales-javx/javxseek/internal/storage"
	"github.com/morales-javx/javxseek/internal/telemetry"
)

// ============================================================================
// SESSION IDENTITY
// ============================================================================

const (
	// SessionHeader names the session explicitly.
	SessionHeader = "X-Session-ID"

	// SessionCookie holds the issued session token.
	SessionCookie = "javxseek_session"

	// maxSessionIDLength bounds client-supplied ids.
	maxSessionIDLength = 128

	// DefaultMemoryCount is how many memories /api/session/memory returns.
	DefaultMemoryCount = 5
)

// validSessionID accepts printable ASCII tokens of bounded length.
func validSessionID(id string) bool {
	if id == "" || len(id) > maxSessionIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if c := id[i]; c <= ' ' || c > '~' {
			return false
		}
	}
	return true
}

// sessionID resolves the caller's session: the X-Session-ID header, then
// the session cookie, then a freshly issued cookie. In remote_addr mode
// the client IP is the session.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	if s.cfg.SessionKey == config.SessionKeyRemoteAddr {
		return s.ips.ClientIP(r)
	}

	if id := strings.TrimSpace(r.Header.Get(SessionHeader)); validSessionID(id) {
		return id
	}
	if c, err := r.Cookie(SessionCookie); err == nil && validSessionID(c.Value) {
		return c.Value
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	w.Header().Set(SessionHeader, id)
	return id
}

// ============================================================================
// CHAT STREAM
// ============================================================================

// ChatRequest is the body of POST /api/chat/stream.
type ChatRequest struct {
	Message      string `json:"message"`
	ThinkingMode string `json:"thinking_mode,omitempty"`
	Style        string `json:"style,omitempty"`
	IsHumorous   *bool  `json:"is_humorous,omitempty"`
}

// FragmentEvent is one streamed piece of the reply.
type FragmentEvent struct {
	Content string `json:"content"`
}

// DoneEvent closes a finalized turn.
type DoneEvent struct {
	Partial      bool   `json:"partial"`
	Style        string `json:"style"`
	StyleLabel   string `json:"style_label"`
	StyleChanged bool   `json:"style_changed"`
	Model        string `json:"model"`
	ThinkingMode string `json:"thinking_mode"`
	SaveError    string `json:"save_error,omitempty"`
}

// ErrorEvent reports a turn that could not be finalized.
type ErrorEvent struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// sseWriter frames server-sent events.
type sseWriter struct {
	w       io.Writer
	flusher http.Flusher
}

func (e *sseWriter) send(event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if event != "" {
		fmt.Fprintf(e.w, "event: %s\n", event)
	}
	fmt.Fprintf(e.w, "data: %s\n\n", data)
	e.flusher.Flush()
}

func (e *sseWriter) done() {
	fmt.Fprint(e.w, "data: [DONE]\n\n")
	e.flusher.Flush()
}

// handleChatStream runs one turn and streams its fragments as SSE.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is empty", Kind: session.KindInput})
		return
	}
	if utf8.RuneCountInString(req.Message) > MaxMessageLength {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("message exceeds %d characters", MaxMessageLength),
			Kind:  session.KindInput,
		})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	opts := session.TurnOptions{Humor: req.IsHumorous}
	// A missing mode keeps the chat's own; an unknown one means deep.
	if req.ThinkingMode != "" {
		opts.Mode, _ = model.ParseThinkingMode(req.ThinkingMode)
	}
	if style, ok := model.ParseStyle(req.Style); ok {
		opts.Style = style
	}

	id := s.sessionID(w, r)
	chat := s.registry.Get(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := &sseWriter{w: w, flusher: flusher}
	res, err := chat.Turn(r.Context(), req.Message, opts, func(fragment string) {
		events.send("", FragmentEvent{Content: fragment})
	})
	if err != nil {
		s.logger.Debug("chat stream failed",
			zap.String("session", id),
			zap.String("kind", session.Kind(err)),
			zap.Error(err))
		events.send("error", ErrorEvent{Error: session.Describe(err), Kind: session.Kind(err)})
		events.done()
		return
	}

	done := DoneEvent{
		Partial:      res.Partial,
		Style:        string(res.Style),
		StyleLabel:   res.Style.Label(),
		StyleChanged: res.StyleChanged,
		Model:        res.Model,
		ThinkingMode: res.Mode.String(),
	}
	if res.SaveErr != nil {
		done.SaveError = session.Describe(res.SaveErr)
	}
	events.send("done", done)
	events.done()
}

// ============================================================================
// STATUS
// ============================================================================

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Sessions  int              `json:"sessions"`
	Version   string           `json:"version"`
	Totals    telemetry.Totals `json:"totals"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:    "running",
		Timestamp: s.now().Format(storage.TalkTimeLayout),
		Sessions:  s.registry.Len(),
		Version:   s.version,
		Totals:    s.rec.Totals(),
	})
}

// ============================================================================
// SESSION CONTROL
// ============================================================================

type resetResponse struct {
	Status  string `json:"status"`
	Session string `json:"session"`
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(w, r)
	if err := s.registry.Get(id).Reset(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: session.Describe(err), Kind: session.Kind(err)})
		return
	}
	writeJSON(w, http.StatusOK, resetResponse{Status: "reset", Session: id})
}

// StyleResponse is the body of GET /api/session/style.
type StyleResponse struct {
	Style     string `json:"style"`
	Label     string `json:"label"`
	UserCount int    `json:"user_count"`
	Next      string `json:"next,omitempty"`
	NextAt    int    `json:"next_at,omitempty"`
}

func (s *Server) handleStyle(w http.ResponseWriter, r *http.Request) {
	info := s.registry.Get(s.sessionID(w, r)).StyleInfo(r.Context())
	resp := StyleResponse{
		Style:     string(info.Style),
		Label:     info.Style.Label(),
		UserCount: info.UserCount,
	}
	if info.HasNext {
		resp.Next = string(info.Next)
		resp.NextAt = info.NextAt
	}
	writeJSON(w, http.StatusOK, resp)
}

// MemoryResponse is the body of GET /api/session/memory.
type MemoryResponse struct {
	LastTalkTime string              `json:"last_talk_time,omitempty"`
	Memories     []model.MemoryEntry `json:"memories"`
}

func (s *Server) handleMemory(w http.ResponseWriter, r *http.Request) {
	n := DefaultMemoryCount
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "n must be a positive integer", Kind: session.KindInput})
			return
		}
		n = min(v, storage.MaxMemories)
	}

	chat := s.registry.Get(s.sessionID(w, r))
	memories := chat.Memories(r.Context(), n)
	if memories == nil {
		memories = []model.MemoryEntry{}
	}
	writeJSON(w, http.StatusOK, MemoryResponse{
		LastTalkTime: chat.Session(r.Context()).LastTalkTime,
		Memories:     memories,
	})
}

type modelResponse struct {
	Model  string   `json:"model"`
	Models []string `json:"models"`
}

func (s *Server) handleRotateModel(w http.ResponseWriter, r *http.Request) {
	chat := s.registry.Get(s.sessionID(w, r))
	writeJSON(w, http.StatusOK, modelResponse{Model: chat.RotateModel(), Models: chat.Models()})
}

type modeRequest struct {
	ThinkingMode string `json:"thinking_mode"`
}

type modeResponse struct {
	ThinkingMode string `json:"thinking_mode"`
	SaveError    string `json:"save_error,omitempty"`
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	mode, ok := model.ParseThinkingMode(strings.ToLower(strings.TrimSpace(req.ThinkingMode)))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("unknown thinking mode %q", req.ThinkingMode),
			Kind:  session.KindInput,
		})
		return
	}

	// The mode applies in memory even when it cannot be persisted.
	chat := s.registry.Get(s.sessionID(w, r))
	resp := modeResponse{}
	if err := chat.SetThinkingMode(r.Context(), mode); err != nil {
		resp.SaveError = session.Describe(err)
	}
	resp.ThinkingMode = chat.ThinkingMode().String()
	writeJSON(w, http.StatusOK, resp)
}
