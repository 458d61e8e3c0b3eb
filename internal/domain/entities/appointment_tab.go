package entities

import (
	"fmt"
	"time"
)

// Tab is a dashboard bucket of appointments
type Tab string

const (
	TabFuture      Tab = "future"
	TabPast        Tab = "past"
	TabNeedsReview Tab = "needs-review"
	TabCancelled   Tab = "cancelled"
)

// AllTabs lists tabs in display order
var AllTabs = []Tab{TabFuture, TabPast, TabNeedsReview, TabCancelled}

// ParseTab converts a query value to a Tab. Empty means no tab filter.
func ParseTab(s string) (*Tab, error) {
	if s == "" {
		return nil, nil
	}
	for _, t := range AllTabs {
		if string(t) == s {
			tab := t
			return &tab, nil
		}
	}
	return nil, fmt.Errorf("unknown tab %q", s)
}

// TabRow is the projection needed to place an appointment in tabs
type TabRow struct {
	ID                string
	Status            *string
	DateOfAppointment *time.Time
	ProcedureOrdered  *bool
}

// ClassifyTabs returns every tab the row belongs to relative to today.
// A cancelled row belongs only to TabCancelled. A row without a date is in no
// dated tab.
func ClassifyTabs(row TabRow, today time.Time) []Tab {
	if IsCancelledStatus(row.Status) {
		return []Tab{TabCancelled}
	}
	if row.DateOfAppointment == nil {
		return nil
	}

	date := DateOnly(*row.DateOfAppointment)
	today = DateOnly(today)
	if !date.Before(today) {
		return []Tab{TabFuture}
	}

	tabs := []Tab{TabPast}
	if row.Status == nil || row.ProcedureOrdered == nil {
		tabs = append(tabs, TabNeedsReview)
	}
	return tabs
}

// InTab reports whether row belongs to tab. A nil tab matches everything.
func InTab(row TabRow, tab *Tab, today time.Time) bool {
	if tab == nil {
		return true
	}
	for _, t := range ClassifyTabs(row, today) {
		if t == *tab {
			return true
		}
	}
	return false
}

// TabCounts aggregates rows per tab
type TabCounts struct {
	Future      int `json:"future"`
	Past        int `json:"past"`
	NeedsReview int `json:"needs_review"`
	Cancelled   int `json:"cancelled"`
	Total       int `json:"total"`
}

// Add places a row in its tabs and bumps the total
func (c *TabCounts) Add(row TabRow, today time.Time) {
	c.Total++
	for _, t := range ClassifyTabs(row, today) {
		switch t {
		case TabFuture:
			c.Future++
		case TabPast:
			c.Past++
		case TabNeedsReview:
			c.NeedsReview++
		case TabCancelled:
			c.Cancelled++
		}
	}
}
