package model

import "fmt"

// HashValue is a SHA-256 hash stored as hex string.
type HashValue string

// ItemStatus is the decision recorded for one checklist item.
type ItemStatus string

const (
	StatusUndecided     ItemStatus = "undecided"
	StatusPass          ItemStatus = "pass"
	StatusFail          ItemStatus = "fail"
	StatusNotApplicable ItemStatus = "not_applicable"
)

func (s ItemStatus) String() string { return string(s) }

// IsValid reports whether s is one of the four known statuses.
func (s ItemStatus) IsValid() bool {
	switch s {
	case StatusUndecided, StatusPass, StatusFail, StatusNotApplicable:
		return true
	}
	return false
}

// IsDecided reports whether s is a final decision (pass, fail or n/a).
func (s ItemStatus) IsDecided() bool {
	switch s {
	case StatusPass, StatusFail, StatusNotApplicable:
		return true
	}
	return false
}

// ParseItemStatus accepts the canonical names plus the short forms used on
// the command line ("na", "n/a").
func ParseItemStatus(v string) (ItemStatus, error) {
	switch v {
	case "undecided":
		return StatusUndecided, nil
	case "pass", "ok":
		return StatusPass, nil
	case "fail":
		return StatusFail, nil
	case "not_applicable", "na", "n/a":
		return StatusNotApplicable, nil
	}
	return "", fmt.Errorf("unknown item status %q", v)
}

// Outcome is the verdict of a submitted inspection.
type Outcome string

const (
	OutcomeSuccess           Outcome = "success"
	OutcomeSuccessWithIssues Outcome = "success_with_issues"
)

func (o Outcome) String() string { return string(o) }

func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeSuccess, OutcomeSuccessWithIssues:
		return true
	}
	return false
}

// CategorySummary counts item statuses within one category.
type CategorySummary struct {
	CategoryID    CategoryID `json:"category_id"`
	Pass          int        `json:"pass"`
	Fail          int        `json:"fail"`
	NotApplicable int        `json:"not_applicable"`
	Undecided     int        `json:"undecided"`
}

// Total returns the number of items counted.
func (c CategorySummary) Total() int {
	return c.Pass + c.Fail + c.NotApplicable + c.Undecided
}

// Complete is true when no item in the category is left undecided.
func (c CategorySummary) Complete() bool {
	return c.Undecided == 0
}
