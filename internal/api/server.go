// Package api exposes feed sessions over HTTP. Each session lives in process
// memory keyed by a UUID; clients report scroll, swipe, focus and press events
// and execute the playback commands returned in the response.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/brand-feed/internal/engagement"
	"github.com/fpang/brand-feed/internal/feed"
	"github.com/fpang/brand-feed/internal/metrics"
	"github.com/fpang/brand-feed/internal/store"
)

// ErrSessionNotFound is returned for unknown or expired session IDs.
var ErrSessionNotFound = errors.New("session not found")

// Options tunes the sessions the server creates.
type Options struct {
	PersistScores      bool
	DoubleTapWindow    time.Duration
	ResolveConcurrency int
	SessionTTL         time.Duration
}

type sessionEntry struct {
	session  *feed.Session
	userID   string
	lastUsed time.Time
}

// Server holds the live feed sessions.
type Server struct {
	store    store.FeedStore
	resolver feed.MediaResolver
	opts     Options
	now      func() time.Time
	newID    func() string

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

// NewServer creates a server backed by st for catalog and saves and resolver
// for media.
func NewServer(st store.FeedStore, resolver feed.MediaResolver, opts Options) *Server {
	return &Server{
		store:    st,
		resolver: resolver,
		opts:     opts,
		now:      time.Now,
		newID:    uuid.NewString,
		sessions: make(map[string]*sessionEntry),
	}
}

// Router returns the chi router for the API. mw is applied to every route.
func (s *Server) Router(mw ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(mw...)

	r.Get("/api/health", s.handleHealth)
	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Delete("/", s.handleDelete)
			r.Post("/scroll", s.handleScroll)
			r.Post("/swipe", s.handleSwipe)
			r.Post("/blur", s.handleBlur)
			r.Post("/focus", s.handleFocus)
			r.Post("/mute", s.handleMute)
			r.Post("/press", s.handlePress)
			r.Post("/save", s.handleSave)
			r.Post("/unsave", s.handleUnsave)
			r.Post("/like", s.handleLike)
			r.Post("/unlike", s.handleUnlike)
		})
	})
	return r
}

// Open creates and starts a session for userID and begins resolving its
// media in the background.
func (s *Server) Open(ctx context.Context, userID string) (string, *feed.Session, feed.Update, error) {
	catalog, err := s.store.Catalog(ctx)
	if err != nil {
		return "", nil, feed.Update{}, err
	}

	scores := engagement.NewStore()
	var saved, liked []string
	if userID != "" {
		if saved, err = s.store.SavedBrands(ctx, userID); err != nil {
			log.Warn().Err(err).Str("userId", userID).Msg("Failed to load saved brands")
		}
		if liked, err = s.store.LikedProducts(ctx, userID); err != nil {
			log.Warn().Err(err).Str("userId", userID).Msg("Failed to load liked products")
		}
		if s.opts.PersistScores {
			persisted, err := s.store.LoadScores(ctx, userID)
			if err != nil {
				log.Warn().Err(err).Str("userId", userID).Msg("Failed to load engagement scores")
			}
			scores.Load(persisted)
		}
	}

	session := feed.NewSession(userID, catalog, scores, s.resolver,
		feed.WithSaver(s.store),
		feed.WithSaved(saved),
		feed.WithLiked(liked),
		feed.WithDoubleTapWindow(s.opts.DoubleTapWindow),
		feed.WithResolveConcurrency(s.opts.ResolveConcurrency),
		feed.WithClock(s.now),
	)
	up := session.Start(s.now())
	session.Resolve(context.Background())

	id := s.newID()
	s.mu.Lock()
	s.sessions[id] = &sessionEntry{session: session, userID: userID, lastUsed: s.now()}
	s.mu.Unlock()
	metrics.ActiveSessions.Inc()

	log.Info().Str("sessionId", id).Str("userId", userID).Int("brands", len(catalog)).Msg("Session opened")
	return id, session, up, nil
}

// Lookup returns a live session and refreshes its idle timer.
func (s *Server) Lookup(id string) (*feed.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.lastUsed = s.now()
	return e.session, nil
}

// End closes a session and persists its scores when enabled.
func (s *Server) End(ctx context.Context, id string) error {
	s.mu.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.finish(ctx, id, e)
	return nil
}

// Reap ends sessions idle for longer than the session TTL and returns how
// many were ended.
func (s *Server) Reap(ctx context.Context) int {
	if s.opts.SessionTTL <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.opts.SessionTTL)

	s.mu.Lock()
	expired := make(map[string]*sessionEntry)
	for id, e := range s.sessions {
		if e.lastUsed.Before(cutoff) {
			expired[id] = e
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for id, e := range expired {
		s.finish(ctx, id, e)
	}
	if len(expired) > 0 {
		log.Info().Int("expired", len(expired)).Msg("Reaped idle sessions")
	}
	return len(expired)
}

// Shutdown ends every session.
func (s *Server) Shutdown(ctx context.Context) {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*sessionEntry)
	s.mu.Unlock()
	for id, e := range all {
		s.finish(ctx, id, e)
	}
}

// Len returns the number of live sessions.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) finish(ctx context.Context, id string, e *sessionEntry) {
	metrics.ActiveSessions.Dec()
	scores := e.session.Close(s.now())
	if s.opts.PersistScores && e.userID != "" && len(scores) > 0 {
		if err := s.store.PutScores(ctx, e.userID, scores); err != nil {
			log.Error().Err(err).Str("sessionId", id).Str("userId", e.userID).Msg("Failed to persist engagement scores")
			return
		}
	}
	log.Info().Str("sessionId", id).Str("userId", e.userID).Int("scored", len(scores)).Msg("Session ended")
}
