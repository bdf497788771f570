// Package lead implements the Empire Pilot lead-qualification sequence.
//
// Fields are collected strictly in order: project type, location, budget,
// timeline, name, email, phone. Input that does not satisfy the current
// stage leaves the lead untouched.
package lead

import (
	"strings"
	"unicode/utf8"

	"empirepilot/internal/domain"
	"empirepilot/internal/keyword"
)

type Stage int

const (
	NotQualifying Stage = iota
	AwaitingProjectType
	AwaitingLocation
	AwaitingBudget
	AwaitingTimeline
	AwaitingName
	AwaitingEmail
	AwaitingPhone
	Qualified
)

var stageNames = map[Stage]string{
	NotQualifying:       "not_qualifying",
	AwaitingProjectType: "awaiting_project_type",
	AwaitingLocation:    "awaiting_location",
	AwaitingBudget:      "awaiting_budget",
	AwaitingTimeline:    "awaiting_timeline",
	AwaitingName:        "awaiting_name",
	AwaitingEmail:       "awaiting_email",
	AwaitingPhone:       "awaiting_phone",
	Qualified:           "qualified",
}

func (s Stage) String() string {
	if n, ok := stageNames[s]; ok {
		return n
	}
	return "unknown"
}

// StageOf returns the field the lead is waiting for.
func StageOf(l domain.Lead) Stage {
	switch {
	case l.Qualified():
		return Qualified
	case !l.Qualifying():
		return NotQualifying
	case l.ProjectType == "":
		return AwaitingProjectType
	case l.Location == "":
		return AwaitingLocation
	case l.Budget == "":
		return AwaitingBudget
	case l.Timeline == "":
		return AwaitingTimeline
	case l.ContactName == "":
		return AwaitingName
	case l.ContactEmail == "":
		return AwaitingEmail
	default:
		return AwaitingPhone
	}
}

// Advance applies one user turn. ok is false when the input does not fill the
// current stage; the returned lead is then identical to l.
func Advance(l domain.Lead, input string) (next domain.Lead, prompt string, ok bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return l, "", false
	}
	next = l

	switch StageOf(l) {
	case AwaitingProjectType:
		v, found := keyword.First(projectTypeRules, input)
		if !found {
			return l, "", false
		}
		next.ProjectType = v
		return next, locationPrompt(v), true

	case AwaitingLocation:
		loc, found := matchLocation(input)
		if !found {
			return l, "", false
		}
		next.Location = loc
		return next, budgetPrompt(loc), true

	case AwaitingBudget:
		v, found := keyword.First(budgetRules, input)
		if !found {
			return l, "", false
		}
		next.Budget = v
		return next, timelinePrompt, true

	case AwaitingTimeline:
		v, found := keyword.First(timelineRules, input)
		if !found {
			return l, "", false
		}
		next.Timeline = v
		return next, namePrompt, true

	case AwaitingName:
		next.ContactName = input
		return next, emailPrompt(input), true

	case AwaitingEmail:
		if !strings.Contains(input, "@") {
			return l, "", false
		}
		next.ContactEmail = input
		return next, phonePrompt, true

	case AwaitingPhone:
		next.ContactPhone = input
		if strings.EqualFold(input, "skip") {
			next.ContactPhone = PhoneNotProvided
		}
		next.Status = domain.LeadQualified
		return next, summaryPrompt(next), true
	}

	return l, "", false
}

func matchLocation(input string) (string, bool) {
	lower := strings.ToLower(input)
	for _, area := range portsmouthAreas {
		if strings.Contains(lower, area) {
			return strings.ToUpper(area[:1]) + area[1:], true
		}
	}
	if utf8.RuneCountInString(lower) > 2 {
		return input, true
	}
	return "", false
}
