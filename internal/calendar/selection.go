package calendar

import (
	"slices"

	"edger/internal/service"
)

// Selection tracks which calendars contribute to an agenda.
// Calendars are selected when loaded.
type Selection struct {
	order    []string
	selected map[string]bool
}

// NewSelection selects every calendar in cals.
func NewSelection(cals []service.CalendarInfo) *Selection {
	s := &Selection{selected: make(map[string]bool, len(cals))}
	for _, c := range cals {
		s.order = append(s.order, c.ID)
		s.selected[c.ID] = true
	}
	return s
}

// Toggle flips the selection of id. Unknown ids are ignored.
func (s *Selection) Toggle(id string) {
	if _, ok := s.selected[id]; ok {
		s.selected[id] = !s.selected[id]
	}
}

// Only selects exactly ids. Unknown ids are ignored.
func (s *Selection) Only(ids ...string) {
	for id := range s.selected {
		s.selected[id] = slices.Contains(ids, id)
	}
}

// IsSelected reports whether id is selected.
func (s *Selection) IsSelected(id string) bool {
	return s.selected[id]
}

// Selected returns the selected ids in calendar list order.
func (s *Selection) Selected() []string {
	var ids []string
	for _, id := range s.order {
		if s.selected[id] {
			ids = append(ids, id)
		}
	}
	return ids
}
