package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fpang/brand-feed/internal/engagement"
	"github.com/fpang/brand-feed/internal/feed"
	"github.com/fpang/brand-feed/internal/media"
)

// scriptEpoch is the session start when a script does not set one.
var scriptEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Script is a recorded feed session: a catalog, the media manifests of its
// brands and the client events to replay. Event times are milliseconds after
// Start.
type Script struct {
	UserID    string              `json:"userId"`
	Start     time.Time           `json:"start"`
	BaseURL   string              `json:"baseUrl"`
	Catalog   []string            `json:"catalog"`
	Manifests map[string][]string `json:"manifests"`
	Events    []Event             `json:"events"`
}

// Event is one client event. Type is scroll, swipe, blur, focus, mute, press,
// save, unsave, like or unlike.
type Event struct {
	Type    string `json:"type"`
	At      int64  `json:"at"`
	Index   int    `json:"index,omitempty"`
	Brand   int    `json:"brand,omitempty"`
	Media   int    `json:"media,omitempty"`
	Name    string `json:"name,omitempty"`
	Product string `json:"product,omitempty"`
}

// step is one line of replay output.
type step struct {
	Event  Event             `json:"event"`
	Update *feed.Update      `json:"update,omitempty"`
	Press  *feed.PressResult `json:"press,omitempty"`
	Error  string            `json:"error,omitempty"`
}

func readScript(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("read script: %w", err)
	}
	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return Script{}, fmt.Errorf("parse script %s: %w", path, err)
	}
	return s, nil
}

// manifestSource serves the script's manifests in the {"files": [...]} shape
// the resolver reads.
func (s Script) manifestSource() media.Source {
	byKey := make(map[string][]string, len(s.Manifests))
	for brand, files := range s.Manifests {
		byKey[media.BrandManifestKey(brand)] = files
	}
	return media.SourceFunc(func(ctx context.Context, key string) ([]byte, error) {
		files, ok := byKey[key]
		if !ok {
			return nil, media.ErrNotFound
		}
		return json.Marshal(map[string][]string{"files": files})
	})
}

// Replay runs the script against a fresh session, writing one JSON line per
// event, and returns the final engagement scores.
func Replay(ctx context.Context, s Script, out io.Writer) (map[string]engagement.Score, error) {
	start := s.Start
	if start.IsZero() {
		start = scriptEpoch
	}
	baseURL := s.BaseURL
	if baseURL == "" {
		baseURL = "https://media.invalid"
	}

	session := feed.NewSession(s.UserID, s.Catalog, engagement.NewStore(),
		media.NewResolver(s.manifestSource(), baseURL),
		feed.WithClock(func() time.Time { return start }),
	)
	enc := json.NewEncoder(out)

	up := session.Start(start)
	if err := enc.Encode(step{Event: Event{Type: "start"}, Update: &up}); err != nil {
		return nil, err
	}
	session.Resolve(ctx)
	session.Wait()

	var last time.Time
	for _, ev := range s.Events {
		at := start.Add(time.Duration(ev.At) * time.Millisecond)
		last = at
		st := step{Event: ev}

		var err error
		switch ev.Type {
		case "scroll":
			u := session.ScrollTo(ev.Index, at)
			st.Update = &u
			if u.Rolled {
				session.Resolve(ctx)
				session.Wait()
			}
		case "swipe":
			u := session.SwipeMedia(ev.Brand, ev.Media)
			st.Update = &u
		case "blur":
			u := session.Blur(at)
			st.Update = &u
		case "focus":
			u := session.Focus(at)
			st.Update = &u
		case "mute":
			u := session.ToggleMute()
			st.Update = &u
		case "press":
			var res feed.PressResult
			res, err = session.Press(ctx, ev.Brand, ev.Media, at)
			st.Press = &res
		case "save":
			err = session.SaveBrand(ctx, ev.Name)
		case "unsave":
			err = session.UnsaveBrand(ctx, ev.Name)
		case "like":
			err = session.LikeProduct(ctx, ev.Product)
		case "unlike":
			err = session.UnlikeProduct(ctx, ev.Product)
		default:
			return nil, fmt.Errorf("event %q: unknown type", ev.Type)
		}
		if err != nil {
			st.Error = err.Error()
		}
		if err := enc.Encode(st); err != nil {
			return nil, err
		}
	}

	if last.IsZero() {
		last = start
	}
	return session.Close(last), nil
}
