package services

import (
	"rekubricks/entities"
	"rekubricks/models"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const DefaultRevealCooldown = 300 * time.Millisecond

// FilterService decides which catalog entries are shown. Searching does not
// reset the category; any filter change resets the reveal count.
type FilterService struct {
	pieces   []entities.Piece
	state    entities.FilterState
	pageSize int
	cooldown time.Duration
	now      func() time.Time
	loaded   map[string]bool
	readyAt  time.Time
	lower    cases.Caser
}

type FilterOption func(*FilterService)

func WithPageSize(n int) FilterOption {
	return func(fs *FilterService) {
		if n > 0 {
			fs.pageSize = n
		}
	}
}

func WithCooldown(d time.Duration) FilterOption {
	return func(fs *FilterService) {
		fs.cooldown = d
	}
}

func WithClock(now func() time.Time) FilterOption {
	return func(fs *FilterService) {
		fs.now = now
	}
}

func NewFilterService(pieces []entities.Piece, opts ...FilterOption) *FilterService {
	fs := &FilterService{
		pieces:   pieces,
		pageSize: models.DefaultRevealPage,
		cooldown: DefaultRevealCooldown,
		now:      time.Now,
		loaded:   make(map[string]bool),
		lower:    cases.Lower(language.Und),
	}
	for _, opt := range opts {
		opt(fs)
	}
	fs.state = entities.FilterState{
		Category:     models.CategoryAll,
		VisibleCount: fs.pageSize,
	}
	return fs
}

func (fs *FilterService) State() entities.FilterState {
	return fs.state
}

func (fs *FilterService) SetSearchTerm(term string) entities.GridView {
	fs.state.SearchTerm = fs.lower.String(strings.TrimSpace(term))
	fs.state.VisibleCount = fs.pageSize
	return fs.View()
}

func (fs *FilterService) SetCategory(category string) entities.GridView {
	category = strings.TrimSpace(category)
	if category == "" {
		category = models.CategoryAll
	}
	fs.state.Category = category
	fs.state.VisibleCount = fs.pageSize
	return fs.View()
}

func (fs *FilterService) ClearAll() entities.GridView {
	fs.state = entities.FilterState{
		Category:     models.CategoryAll,
		VisibleCount: fs.pageSize,
	}
	return fs.View()
}

// ShowAtLeast restores a reveal count carried over from an earlier page,
// rounded up to whole pages. Counts past the catalog size are clamped.
func (fs *FilterService) ShowAtLeast(n int) {
	if n > len(fs.pieces) {
		n = len(fs.pieces)
	}
	if n <= fs.state.VisibleCount {
		return
	}
	pages := (n + fs.pageSize - 1) / fs.pageSize
	fs.state.VisibleCount = pages * fs.pageSize
}

// RevealMore raises the reveal count by one page. It returns false during
// the cooldown after a batch or when every match is already visible. The
// cooldown is tracked per FilterService, so callers that rebuild the filter
// per request do not share it.
func (fs *FilterService) RevealMore() bool {
	if fs.now().Before(fs.readyAt) {
		return false
	}
	if fs.state.VisibleCount >= fs.matchingCount() {
		return false
	}
	fs.state.VisibleCount = fs.state.VisibleCount + fs.pageSize
	fs.View()
	fs.readyAt = fs.now().Add(fs.cooldown)
	return true
}

func (fs *FilterService) Matches(p entities.Piece) bool {
	if fs.state.Category != models.CategoryAll && fs.state.Category != p.Category {
		return false
	}
	term := fs.state.SearchTerm
	if term == "" {
		return true
	}
	return strings.Contains(fs.lower.String(p.Name), term) ||
		strings.Contains(fs.lower.String(p.Color), term) ||
		strings.Contains(fs.lower.String(p.Id), term)
}

// View computes visibility for every entry and marks the shown ones loaded.
func (fs *FilterService) View() entities.GridView {
	view := entities.GridView{Entries: make([]entities.GridEntry, 0, len(fs.pieces))}
	for _, p := range fs.pieces {
		entry := entities.GridEntry{Piece: p}
		if fs.Matches(p) {
			view.Matching++
			if view.Matching <= fs.state.VisibleCount {
				entry.Visible = true
				fs.loaded[p.Id] = true
				view.Shown++
			}
		}
		entry.Loaded = fs.loaded[p.Id]
		view.Entries = append(view.Entries, entry)
	}
	view.HasMore = view.Matching > view.Shown
	return view
}

// Visible returns only the entries currently shown, in catalog order.
func (fs *FilterService) Visible() []entities.Piece {
	var out []entities.Piece
	for _, e := range fs.View().Entries {
		if e.Visible {
			out = append(out, e.Piece)
		}
	}
	return out
}

func (fs *FilterService) matchingCount() int {
	n := 0
	for _, p := range fs.pieces {
		if fs.Matches(p) {
			n++
		}
	}
	return n
}
