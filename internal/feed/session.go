// Package feed runs one user's brand feed: it owns the current pass, the
// resolved media per brand, playback, linger tracking and the save/like
// actions, and applies asynchronous media results without letting stale ones
// back in.
package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/brand-feed/internal/engagement"
	"github.com/fpang/brand-feed/internal/linger"
	"github.com/fpang/brand-feed/internal/media"
	"github.com/fpang/brand-feed/internal/metrics"
	"github.com/fpang/brand-feed/internal/playback"
	"github.com/fpang/brand-feed/internal/recommend"
)

// DefaultResolveConcurrency bounds parallel manifest fetches per session.
const DefaultResolveConcurrency = 8

// MediaResolver turns a brand into its ordered media list. Failures resolve
// to an empty list.
type MediaResolver interface {
	ResolveBrandMedia(ctx context.Context, brand string) []media.Item
}

// Saver persists the user's saves and likes. A nil error means the write
// succeeded.
type Saver interface {
	SaveBrand(ctx context.Context, userID, brand string) error
	UnsaveBrand(ctx context.Context, userID, brand string) error
	LikeProduct(ctx context.Context, userID, product string) error
	UnlikeProduct(ctx context.Context, userID, product string) error
}

// Navigator opens detail screens on tap-through.
type Navigator interface {
	OpenBrand(brand string)
	OpenProduct(product string)
}

// HandleFactory creates the playback handle for a video once its media is
// resolved.
type HandleFactory func(key playback.Key, item media.Item) playback.Handle

// Entry is one brand row of the feed.
type Entry struct {
	Brand    string       `json:"brand"`
	Media    []media.Item `json:"media"`
	Resolved bool         `json:"resolved"`
	Saved    bool         `json:"saved"`
}

// Update describes what a session event changed.
type Update struct {
	Pass     int                `json:"pass"`
	Index    int                `json:"index"`
	Rolled   bool               `json:"rolled"`
	Commands []playback.Command `json:"commands"`
}

// Session is one user's feed. Methods are serialized by an internal mutex, so
// the HTTP layer and async fetch completions may call from any goroutine.
type Session struct {
	mu sync.Mutex

	userID   string
	engine   *recommend.Engine
	scores   *engagement.Store
	resolver MediaResolver
	saver    Saver
	nav      Navigator
	coord    *playback.Coordinator
	tracker  *linger.Tracker
	taps     *playback.DoubleTapDetector
	handles  HandleFactory

	now         func() time.Time
	concurrency int

	pass    recommend.Pass
	entries []Entry
	index   int
	saved   map[string]bool
	liked   map[string]bool
	closed  bool

	// ctx is cancelled by Close so fetches still in flight give up.
	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup
}

// Option configures a Session.
type Option func(*Session)

// WithSaver sets the persistence collaborator for saves and likes.
func WithSaver(s Saver) Option { return func(fs *Session) { fs.saver = s } }

// WithNavigator sets the tap-through collaborator.
func WithNavigator(n Navigator) Option { return func(fs *Session) { fs.nav = n } }

// WithClock overrides the clock used for shuffle seeds and Start.
func WithClock(now func() time.Time) Option { return func(fs *Session) { fs.now = now } }

// WithDoubleTapWindow overrides the double-tap window.
func WithDoubleTapWindow(d time.Duration) Option {
	return func(fs *Session) { fs.taps = playback.NewDoubleTapDetector(d) }
}

// WithHandleFactory overrides how video handles are created.
func WithHandleFactory(f HandleFactory) Option { return func(fs *Session) { fs.handles = f } }

// WithResolveConcurrency bounds parallel manifest fetches.
func WithResolveConcurrency(n int) Option {
	return func(fs *Session) {
		if n > 0 {
			fs.concurrency = n
		}
	}
}

// WithSaved seeds the brands the user has already saved.
func WithSaved(brands []string) Option {
	return func(fs *Session) {
		for _, b := range brands {
			fs.saved[b] = true
		}
	}
}

// WithLiked seeds the products the user has already liked.
func WithLiked(products []string) Option {
	return func(fs *Session) {
		for _, p := range products {
			fs.liked[p] = true
		}
	}
}

// NewSession creates a session for userID over catalog. scores is owned by the
// caller and may carry persisted engagement from earlier sessions.
func NewSession(userID string, catalog []string, scores *engagement.Store, resolver MediaResolver, opts ...Option) *Session {
	if scores == nil {
		scores = engagement.NewStore()
	}
	s := &Session{
		userID:      userID,
		scores:      scores,
		resolver:    resolver,
		saver:       nopSaver{},
		nav:         nopNavigator{},
		coord:       playback.NewCoordinator(playback.NewRegistry()),
		tracker:     linger.NewTracker(scores),
		taps:        playback.NewDoubleTapDetector(playback.DoubleTapWindow),
		handles:     trackedHandle,
		now:         time.Now,
		concurrency: DefaultResolveConcurrency,
		index:       playback.NoBrand,
		saved:       map[string]bool{},
		liked:       map[string]bool{},
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(s)
	}
	s.engine = recommend.NewEngine(catalog, userID, scores, recommend.WithClock(s.now))
	return s
}

// Start computes the first pass and settles on its first brand. Media is not
// fetched; call Resolve.
func (s *Session) Start(at time.Time) Update {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setPass(s.engine.Start())
	log.Info().
		Str("userId", s.userID).
		Int("pass", s.pass.Number).
		Int("brands", s.pass.Len()).
		Msg("Feed session started")

	up := Update{Pass: s.pass.Number, Index: playback.NoBrand}
	if s.pass.Len() > 0 {
		up.Commands = s.settle(0, at)
		up.Index = 0
	}
	return up
}

// Resolve fetches media for every unresolved brand of the current pass in the
// background. Results re-enter through Apply; Wait blocks until they land.
// Fetches are cancelled when either ctx or the session is done. Resolve does
// nothing after Close.
func (s *Session) Resolve(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	passNumber := s.pass.Number
	var pending []string
	for _, e := range s.entries {
		if !e.Resolved {
			pending = append(pending, e.Brand)
		}
	}
	if len(pending) == 0 {
		s.mu.Unlock()
		return
	}
	s.inflight.Add(len(pending))
	s.mu.Unlock()

	fetchCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	var batch sync.WaitGroup
	batch.Add(len(pending))
	go func() {
		batch.Wait()
		stop()
		cancel()
	}()

	sem := make(chan struct{}, s.concurrency)
	for _, brand := range pending {
		go func(brand string) {
			defer s.inflight.Done()
			defer batch.Done()
			select {
			case sem <- struct{}{}:
			case <-fetchCtx.Done():
				return
			}
			defer func() { <-sem }()

			items := s.resolver.ResolveBrandMedia(fetchCtx, brand)
			if fetchCtx.Err() != nil {
				return
			}
			s.Apply(passNumber, brand, items)
		}(brand)
	}
}

// Wait blocks until every fetch started by Resolve has finished. Tests and
// tools use it; request handlers never call it.
func (s *Session) Wait() {
	s.inflight.Wait()
}

// Apply installs resolved media for brand. Results for a brand that is no
// longer part of the current pass, or that were requested for an earlier pass,
// are dropped and Apply returns false.
func (s *Session) Apply(passNumber int, brand string, items []media.Item) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.pass.IndexOf(brand)
	if passNumber != s.pass.Number || i < 0 {
		metrics.StaleResultsDropped.Inc()
		log.Debug().
			Str("brand", brand).
			Int("pass", passNumber).
			Int("currentPass", s.pass.Number).
			Msg("Dropped stale media result")
		return false
	}

	if items == nil {
		items = []media.Item{}
	}
	s.entries[i].Media = items
	s.entries[i].Resolved = true

	reg := s.coord.Registry()
	for m, item := range items {
		if !item.IsVideo() {
			continue
		}
		key := playback.Key{Brand: brand, Media: m}
		if _, ok := reg.Get(key); !ok {
			reg.Register(key, s.handles(key, item))
		}
	}

	// The visible brand was activated before its handles existed.
	if st := s.coord.State(); st.Mode == playback.Focused && st.VisibleBrand == brand {
		s.coord.HorizontalSettle(brand, st.MediaIndex[brand])
	}
	return true
}

// ScrollTo handles the vertical list settling on index. Moving past the last
// entry starts the next pass and settles on its first brand.
func (s *Session) ScrollTo(index int, at time.Time) Update {
	s.mu.Lock()
	defer s.mu.Unlock()

	up := Update{Pass: s.pass.Number, Index: s.index}
	if s.pass.Len() == 0 || index < 0 || index == s.index {
		return up
	}

	if s.engine.ShouldRoll(index) {
		s.tracker.Leave(at)
		prev := s.entries
		s.setPass(s.engine.NextPass())
		s.carryMedia(prev)
		s.coord.Retain(brandSet(s.pass.Brands))
		s.index = playback.NoBrand
		log.Info().
			Str("userId", s.userID).
			Int("pass", s.pass.Number).
			Msg("Feed rolled over to next pass")

		up.Rolled = true
		up.Pass = s.pass.Number
		up.Commands = s.settle(0, at)
		up.Index = 0
		return up
	}

	up.Commands = s.settle(index, at)
	up.Index = index
	return up
}

// SwipeMedia handles the horizontal carousel of the brand at brandIndex
// settling on mediaIndex.
func (s *Session) SwipeMedia(brandIndex, mediaIndex int) Update {
	s.mu.Lock()
	defer s.mu.Unlock()

	up := Update{Pass: s.pass.Number, Index: s.index}
	brand := s.pass.At(brandIndex)
	if brand == "" || mediaIndex < 0 {
		return up
	}
	if e := s.entries[brandIndex]; e.Resolved && mediaIndex >= len(e.Media) {
		return up
	}
	up.Commands = s.coord.HorizontalSettle(brand, mediaIndex)
	return up
}

// Blur handles the feed screen losing focus.
func (s *Session) Blur(at time.Time) Update {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tracker.Leave(at)
	return Update{Pass: s.pass.Number, Index: s.index, Commands: s.coord.Blur()}
}

// Focus handles the feed screen regaining focus.
func (s *Session) Focus(at time.Time) Update {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmds := s.coord.Focus()
	if brand := s.pass.At(s.index); brand != "" {
		s.tracker.Enter(brand, at)
	}
	return Update{Pass: s.pass.Number, Index: s.index, Commands: cmds}
}

// ToggleMute flips the global mute flag.
func (s *Session) ToggleMute() Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Update{Pass: s.pass.Number, Index: s.index, Commands: s.coord.ToggleMute()}
}

// PressResult reports what a press on a media element did.
type PressResult struct {
	DoubleTap bool `json:"doubleTap"`
	Saved     bool `json:"saved"`
}

// Press handles a press on a media element. The second press on the same
// element within the double-tap window counts a double tap for the brand and
// saves it when it is not saved yet.
func (s *Session) Press(ctx context.Context, brandIndex, mediaIndex int, at time.Time) (PressResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	brand := s.pass.At(brandIndex)
	if brand == "" {
		return PressResult{}, nil
	}
	if !s.taps.Press(playback.Key{Brand: brand, Media: mediaIndex}, at) {
		return PressResult{Saved: s.saved[brand]}, nil
	}

	res := PressResult{DoubleTap: true, Saved: s.saved[brand]}
	if !res.Saved {
		// A failed save leaves the score as it was.
		if err := s.saveLocked(ctx, brand); err != nil {
			return res, err
		}
		res.Saved = true
	}
	s.scores.RecordDoubleTap(brand)
	return res, nil
}

// SaveBrand saves brand through the Saver. The saved flag and score change
// only when the write succeeds.
func (s *Session) SaveBrand(ctx context.Context, brand string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved[brand] {
		return nil
	}
	return s.saveLocked(ctx, brand)
}

// UnsaveBrand removes a save. The save count never drops below zero.
func (s *Session) UnsaveBrand(ctx context.Context, brand string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write("unsave", func() error { return s.saver.UnsaveBrand(ctx, s.userID, brand) }); err != nil {
		return fmt.Errorf("unsave brand %s: %w", brand, err)
	}
	s.saved[brand] = false
	s.scores.RecordUnsave(brand)
	s.markSaved(brand, false)
	return nil
}

// LikeProduct likes a product through the Saver.
func (s *Session) LikeProduct(ctx context.Context, product string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write("like", func() error { return s.saver.LikeProduct(ctx, s.userID, product) }); err != nil {
		return fmt.Errorf("like product %s: %w", product, err)
	}
	s.liked[product] = true
	return nil
}

// UnlikeProduct removes a product like through the Saver.
func (s *Session) UnlikeProduct(ctx context.Context, product string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write("unlike", func() error { return s.saver.UnlikeProduct(ctx, s.userID, product) }); err != nil {
		return fmt.Errorf("unlike product %s: %w", product, err)
	}
	delete(s.liked, product)
	return nil
}

// IsLiked reports whether the product is liked in this session.
func (s *Session) IsLiked(product string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liked[product]
}

// OpenBrand taps through to the brand at brandIndex.
func (s *Session) OpenBrand(brandIndex int) bool {
	s.mu.Lock()
	brand := s.pass.At(brandIndex)
	s.mu.Unlock()
	if brand == "" {
		return false
	}
	s.nav.OpenBrand(brand)
	return true
}

// OpenProduct taps through to a product.
func (s *Session) OpenProduct(product string) {
	s.nav.OpenProduct(product)
}

// View is a read-only snapshot of a session.
type View struct {
	UserID  string         `json:"userId"`
	Pass    int            `json:"pass"`
	Index   int            `json:"index"`
	Focused bool           `json:"focused"`
	Muted   bool           `json:"muted"`
	Active  *playback.Key  `json:"active,omitempty"`
	Playing []playback.Key `json:"playing"`
	Entries []Entry        `json:"entries"`
}

// View returns the current session state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.coord.State()
	v := View{
		UserID:  s.userID,
		Pass:    s.pass.Number,
		Index:   s.index,
		Focused: st.Mode == playback.Focused,
		Muted:   st.Muted,
		Playing: s.coord.Registry().Playing(),
		Entries: make([]Entry, len(s.entries)),
	}
	if active, ok := st.Active(); ok {
		v.Active = &active
	}
	if v.Playing == nil {
		v.Playing = []playback.Key{}
	}
	copy(v.Entries, s.entries)
	return v
}

// Scores returns a copy of the session's engagement scores.
func (s *Session) Scores() map[string]engagement.Score {
	return s.scores.Snapshot()
}

// Close ends the session: the open visit is closed, every handle paused and
// any outstanding fetch cancelled. It returns the final engagement scores.
func (s *Session) Close(at time.Time) map[string]engagement.Score {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.cancel()
	s.tracker.Leave(at)
	s.coord.Blur()
	return s.scores.Snapshot()
}

func (s *Session) saveLocked(ctx context.Context, brand string) error {
	if err := s.write("save", func() error { return s.saver.SaveBrand(ctx, s.userID, brand) }); err != nil {
		return fmt.Errorf("save brand %s: %w", brand, err)
	}
	s.saved[brand] = true
	s.scores.RecordSave(brand)
	s.markSaved(brand, true)
	return nil
}

// write runs one Saver call. Anonymous sessions keep their saves and likes in
// memory only.
func (s *Session) write(action string, fn func() error) error {
	if s.userID == "" {
		metrics.EngagementWrites.WithLabelValues(action, "local").Inc()
		log.Debug().Str("action", action).Msg("Anonymous engagement kept in memory")
		return nil
	}
	if err := fn(); err != nil {
		metrics.EngagementWrites.WithLabelValues(action, "error").Inc()
		log.Warn().Err(err).Str("userId", s.userID).Str("action", action).Msg("Engagement write failed")
		return err
	}
	metrics.EngagementWrites.WithLabelValues(action, "ok").Inc()
	return nil
}

// settle moves the visible brand to index; the caller holds the lock.
func (s *Session) settle(index int, at time.Time) []playback.Command {
	brand := s.pass.At(index)
	if s.coord.State().Mode == playback.Focused {
		s.tracker.Enter(brand, at)
	}
	s.index = index
	return s.coord.VerticalSettle(index, brand)
}

func (s *Session) setPass(p recommend.Pass) {
	s.pass = p
	s.entries = make([]Entry, len(p.Brands))
	for i, b := range p.Brands {
		s.entries[i] = Entry{Brand: b, Media: []media.Item{}, Saved: s.saved[b]}
	}
}

// carryMedia reuses media already resolved in the previous pass.
func (s *Session) carryMedia(prev []Entry) {
	byBrand := make(map[string]Entry, len(prev))
	for _, e := range prev {
		if e.Resolved {
			byBrand[e.Brand] = e
		}
	}
	for i := range s.entries {
		if e, ok := byBrand[s.entries[i].Brand]; ok {
			s.entries[i].Media = e.Media
			s.entries[i].Resolved = true
		}
	}
}

func (s *Session) markSaved(brand string, saved bool) {
	if i := s.pass.IndexOf(brand); i >= 0 {
		s.entries[i].Saved = saved
	}
}

func brandSet(brands []string) map[string]struct{} {
	out := make(map[string]struct{}, len(brands))
	for _, b := range brands {
		out[b] = struct{}{}
	}
	return out
}

type nopSaver struct{}

func (nopSaver) SaveBrand(context.Context, string, string) error     { return nil }
func (nopSaver) UnsaveBrand(context.Context, string, string) error   { return nil }
func (nopSaver) LikeProduct(context.Context, string, string) error   { return nil }
func (nopSaver) UnlikeProduct(context.Context, string, string) error { return nil }

type nopNavigator struct{}

func (nopNavigator) OpenBrand(string)   {}
func (nopNavigator) OpenProduct(string) {}

func trackedHandle(playback.Key, media.Item) playback.Handle {
	return playback.NewTrackedHandle()
}
