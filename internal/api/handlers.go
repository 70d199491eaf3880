package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fpang/brand-feed/internal/feed"
)

type createRequest struct {
	UserID string `json:"userId"`
}

type createResponse struct {
	SessionID string      `json:"sessionId"`
	Update    feed.Update `json:"update"`
	View      feed.View   `json:"view"`
}

type eventResponse struct {
	Update feed.Update `json:"update"`
	View   feed.View   `json:"view"`
}

// At is an optional client timestamp in Unix milliseconds; zero means the
// server clock.
type scrollRequest struct {
	Index int   `json:"index"`
	At    int64 `json:"at"`
}

type swipeRequest struct {
	Brand int `json:"brand"`
	Media int `json:"media"`
}

type timedRequest struct {
	At int64 `json:"at"`
}

type pressRequest struct {
	Brand int   `json:"brand"`
	Media int   `json:"media"`
	At    int64 `json:"at"`
}

type pressResponse struct {
	Press feed.PressResult `json:"press"`
	View  feed.View        `json:"view"`
}

type brandRequest struct {
	Brand string `json:"brand"`
}

type productRequest struct {
	Product string `json:"product"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": s.Len(),
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(r, &req); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, session, up, err := s.Open(r.Context(), req.UserID)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to load catalog", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, createResponse{SessionID: id, Update: up, View: session.View()})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, session.View())
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := uuid.Validate(id); err != nil {
		httpError(w, http.StatusBadRequest, "invalid session id: must be a UUID")
		return
	}
	if err := s.End(r.Context(), id); err != nil {
		httpError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleScroll(w http.ResponseWriter, r *http.Request) {
	var req scrollRequest
	session, ok := s.sessionWithBody(w, r, &req)
	if !ok {
		return
	}
	up := session.ScrollTo(req.Index, s.eventTime(req.At))
	if up.Rolled {
		session.Resolve(context.WithoutCancel(r.Context()))
	}
	respondJSON(w, http.StatusOK, eventResponse{Update: up, View: session.View()})
}

func (s *Server) handleSwipe(w http.ResponseWriter, r *http.Request) {
	var req swipeRequest
	session, ok := s.sessionWithBody(w, r, &req)
	if !ok {
		return
	}
	up := session.SwipeMedia(req.Brand, req.Media)
	respondJSON(w, http.StatusOK, eventResponse{Update: up, View: session.View()})
}

func (s *Server) handleBlur(w http.ResponseWriter, r *http.Request) {
	var req timedRequest
	session, ok := s.sessionWithBody(w, r, &req)
	if !ok {
		return
	}
	up := session.Blur(s.eventTime(req.At))
	respondJSON(w, http.StatusOK, eventResponse{Update: up, View: session.View()})
}

func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request) {
	var req timedRequest
	session, ok := s.sessionWithBody(w, r, &req)
	if !ok {
		return
	}
	up := session.Focus(s.eventTime(req.At))
	respondJSON(w, http.StatusOK, eventResponse{Update: up, View: session.View()})
}

func (s *Server) handleMute(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	up := session.ToggleMute()
	respondJSON(w, http.StatusOK, eventResponse{Update: up, View: session.View()})
}

func (s *Server) handlePress(w http.ResponseWriter, r *http.Request) {
	var req pressRequest
	session, ok := s.sessionWithBody(w, r, &req)
	if !ok {
		return
	}
	res, err := session.Press(r.Context(), req.Brand, req.Media, s.eventTime(req.At))
	if err != nil {
		httpError(w, http.StatusBadGateway, "failed to save brand", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, pressResponse{Press: res, View: session.View()})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req brandRequest
	session, ok := s.sessionWithBody(w, r, &req)
	if !ok {
		return
	}
	if req.Brand == "" {
		httpError(w, http.StatusBadRequest, "brand is required")
		return
	}
	if err := session.SaveBrand(r.Context(), req.Brand); err != nil {
		httpError(w, http.StatusBadGateway, "failed to save brand", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, session.View())
}

func (s *Server) handleUnsave(w http.ResponseWriter, r *http.Request) {
	var req brandRequest
	session, ok := s.sessionWithBody(w, r, &req)
	if !ok {
		return
	}
	if req.Brand == "" {
		httpError(w, http.StatusBadRequest, "brand is required")
		return
	}
	if err := session.UnsaveBrand(r.Context(), req.Brand); err != nil {
		httpError(w, http.StatusBadGateway, "failed to unsave brand", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, session.View())
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	s.handleProduct(w, r, true)
}

func (s *Server) handleUnlike(w http.ResponseWriter, r *http.Request) {
	s.handleProduct(w, r, false)
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request, like bool) {
	var req productRequest
	session, ok := s.sessionWithBody(w, r, &req)
	if !ok {
		return
	}
	if req.Product == "" {
		httpError(w, http.StatusBadRequest, "product is required")
		return
	}

	var err error
	if like {
		err = session.LikeProduct(r.Context(), req.Product)
	} else {
		err = session.UnlikeProduct(r.Context(), req.Product)
	}
	if err != nil {
		httpError(w, http.StatusBadGateway, "failed to update like", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"product": req.Product,
		"liked":   session.IsLiked(req.Product),
	})
}

// session looks up the {id} session, writing a 400 for malformed IDs and a
// 404 when it is missing.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*feed.Session, bool) {
	id := chi.URLParam(r, "id")
	if err := uuid.Validate(id); err != nil {
		httpError(w, http.StatusBadRequest, "invalid session id: must be a UUID")
		return nil, false
	}
	session, err := s.Lookup(id)
	if errors.Is(err, ErrSessionNotFound) {
		httpError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return session, true
}

func (s *Server) sessionWithBody(w http.ResponseWriter, r *http.Request, v interface{}) (*feed.Session, bool) {
	session, ok := s.session(w, r)
	if !ok {
		return nil, false
	}
	if err := decodeJSON(r, v); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return session, true
}

func (s *Server) eventTime(ms int64) time.Time {
	if ms <= 0 {
		return s.now()
	}
	return time.UnixMilli(ms)
}
