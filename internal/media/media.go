// Package media resolves the ordered media list of a brand or product from its
// manifest in object storage.
//
// A manifest is a small JSON document stored next to the media files:
//
//	{"files": ["look-1.jpg", {"name": "campaign.mp4"}, "notes.txt"]}
//
// Each entry is classified by extension; anything that is neither a supported
// video nor a supported image is dropped. The first video is promoted to the
// front so the feed opens on motion when a brand has any.
package media

import (
	"path"
	"strings"
)

// Kind classifies a media item.
type Kind string

const (
	KindVideo Kind = "video"
	KindImage Kind = "image"
)

// SupportedVideoExtensions maps playable video extensions to their MIME type.
var SupportedVideoExtensions = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
}

// SupportedImageExtensions maps displayable image extensions to their MIME type.
var SupportedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// Item is one resolved media file. Items are immutable once resolved.
type Item struct {
	Kind Kind   `json:"kind"`
	URL  string `json:"url"`
	Name string `json:"name"`
}

// IsVideo reports whether the item is a video.
func (i Item) IsVideo() bool {
	return i.Kind == KindVideo
}

// Classify returns the kind of a file name by its extension. ok is false for
// unsupported files.
func Classify(name string) (kind Kind, ok bool) {
	ext := strings.ToLower(path.Ext(name))
	if _, found := SupportedVideoExtensions[ext]; found {
		return KindVideo, true
	}
	if _, found := SupportedImageExtensions[ext]; found {
		return KindImage, true
	}
	return "", false
}

// IsImage returns true if the file extension corresponds to a supported image.
func IsImage(ext string) bool {
	_, ok := SupportedImageExtensions[strings.ToLower(ext)]
	return ok
}

// IsVideo returns true if the file extension corresponds to a supported video.
func IsVideo(ext string) bool {
	_, ok := SupportedVideoExtensions[strings.ToLower(ext)]
	return ok
}

// MIMEType returns the MIME type for a file name, or "" when unsupported.
func MIMEType(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if m, ok := SupportedVideoExtensions[ext]; ok {
		return m
	}
	return SupportedImageExtensions[ext]
}

// PromoteFirstVideo moves the first video to index 0 and keeps the relative
// order of everything else. The input is not modified.
func PromoteFirstVideo(items []Item) []Item {
	out := make([]Item, 0, len(items))
	videoAt := -1
	for i, it := range items {
		if it.IsVideo() {
			videoAt = i
			break
		}
	}
	if videoAt < 0 {
		return append(out, items...)
	}
	out = append(out, items[videoAt])
	out = append(out, items[:videoAt]...)
	return append(out, items[videoAt+1:]...)
}
