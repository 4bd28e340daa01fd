package models

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// Link is a titled URL saved inside a folder.
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Folder is a named, ordered group of links. Folder order and link order are
// user-controlled and must survive read/write round-trips unchanged.
type Folder struct {
	Name  string `json:"name"`
	Links []Link `json:"links"`
}

// LinkCollection is the one-per-user persisted document. Every mutation
// replaces the folder sequence wholesale; there is no per-folder endpoint.
type LinkCollection struct {
	UserID    string    `json:"userId"`
	Folders   []Folder  `json:"folders"`
	UpdatedAt time.Time `json:"updatedAt"`
}

var urlSchemeRe = regexp.MustCompile(`(?i)^https?://`)

// NormalizeURL prepends "https://" when the value carries no explicit
// http(s) scheme. Stored URLs always have a scheme.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || urlSchemeRe.MatchString(raw) {
		return raw
	}
	return "https://" + raw
}

// NormalizeFolders applies NormalizeURL to every link, in place.
func NormalizeFolders(folders []Folder) {
	for i := range folders {
		for j := range folders[i].Links {
			folders[i].Links[j].URL = NormalizeURL(folders[i].Links[j].URL)
		}
	}
}

// SortedLinks returns the folder's links sorted by title for display.
// Stored order (insertion order) is left untouched; display order and
// storage order are deliberately decoupled.
func (f Folder) SortedLinks() []Link {
	out := make([]Link, len(f.Links))
	copy(out, f.Links)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
	})
	return out
}

// CloneFolders deep-copies a folder sequence.
func CloneFolders(folders []Folder) []Folder {
	out := make([]Folder, len(folders))
	for i, f := range folders {
		out[i] = Folder{Name: f.Name, Links: make([]Link, len(f.Links))}
		copy(out[i].Links, f.Links)
	}
	return out
}

// MoveFolder returns a new sequence with the folder at oldIndex reinserted at
// newIndex, preserving the relative order of everything else.
func MoveFolder(folders []Folder, oldIndex, newIndex int) []Folder {
	moved := folders[oldIndex]
	out := make([]Folder, 0, len(folders))
	out = append(out, folders[:oldIndex]...)
	out = append(out, folders[oldIndex+1:]...)
	out = append(out, Folder{})
	copy(out[newIndex+1:], out[newIndex:])
	out[newIndex] = moved
	return out
}
