package task

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ArogoClin/task-manager/domain/task"
)

const (
	maxTitleLength       = 255
	maxDescriptionLength = 1000
)

// Mode selects which rules apply to a payload.
type Mode int

const (
	// ModeCreate requires a title.
	ModeCreate Mode = iota
	// ModeUpdate only checks the keys that are present.
	ModeUpdate
)

var (
	msgTitleRequired   = "Title is required and must be a non-empty string"
	msgTitleTooLong    = fmt.Sprintf("Title must not exceed %d characters", maxTitleLength)
	msgDescTooLong     = fmt.Sprintf("Description must not exceed %d characters", maxDescriptionLength)
	msgInvalidStatus   = "Status must be one of: " + task.JoinValues(task.Statuses)
	msgInvalidPriority = "Priority must be one of: " + task.JoinValues(task.Priorities)
	msgInvalidDueDate  = "Due date must be a valid date"
	msgDescNotString   = "Description must be a string"
	msgInvalidTags     = "Tags must be a list of strings"
)

// dueDateLayouts are tried in order when parsing a due date.
var dueDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

var errInvalidDueDate = errors.New("invalid due date")

// Validate checks in against every rule and returns all violations. An empty
// result means the payload is acceptable.
func Validate(in TaskInput, mode Mode) []string {
	var errs []string

	switch {
	case in.Title.Invalid:
		errs = append(errs, msgTitleRequired)
	case mode == ModeCreate && !in.Title.Present():
		errs = append(errs, msgTitleRequired)
	case in.Title.Set && in.Title.Null:
		errs = append(errs, msgTitleRequired)
	case in.Title.Present():
		title := normalizeText(in.Title.Value)
		if title == "" {
			errs = append(errs, msgTitleRequired)
		} else if utf8.RuneCountInString(title) > maxTitleLength {
			errs = append(errs, msgTitleTooLong)
		}
	}

	if in.Description.Invalid {
		errs = append(errs, msgDescNotString)
	} else if in.Description.Present() && utf8.RuneCountInString(normalizeText(in.Description.Value)) > maxDescriptionLength {
		errs = append(errs, msgDescTooLong)
	}

	if !validEnum(in.Status, mode, func(v string) bool { return task.Status(v).Valid() }) {
		errs = append(errs, msgInvalidStatus)
	}
	if !validEnum(in.Priority, mode, func(v string) bool { return task.Priority(v).Valid() }) {
		errs = append(errs, msgInvalidPriority)
	}

	if in.Tags.Invalid {
		errs = append(errs, msgInvalidTags)
	}

	if in.DueDate.Invalid {
		errs = append(errs, msgInvalidDueDate)
	} else if in.DueDate.Present() && in.DueDate.Value != "" {
		if _, err := parseDueDate(in.DueDate.Value); err != nil {
			errs = append(errs, msgInvalidDueDate)
		}
	}

	return errs
}

// validEnum accepts an absent key and rejects a non-string one. On create,
// null and "" fall back to the default; on update they would clear a required
// column and are rejected.
func validEnum(v task.Optional[string], mode Mode, valid func(string) bool) bool {
	if !v.Set {
		return true
	}
	if v.Invalid {
		return false
	}
	if v.Null || v.Value == "" {
		return mode == ModeCreate
	}
	return valid(v.Value)
}

// normalizeText trims surrounding whitespace. Validation and writes share it.
func normalizeText(s string) string {
	return strings.TrimSpace(s)
}

// parseDueDate accepts RFC 3339 timestamps, local date-times and plain dates.
// Values without an offset are taken as UTC.
func parseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errInvalidDueDate
}
