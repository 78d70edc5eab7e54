package task

import (
	"strings"
	"testing"
	"time"

	"github.com/ArogoClin/task-manager/domain/task"
)

func TestValidate(t *testing.T) {
	long := strings.Repeat("x", maxTitleLength+1)

	tests := []struct {
		name string
		in   TaskInput
		mode Mode
		want []string
	}{
		{
			name: "minimal create",
			in:   TaskInput{Title: task.Some("Buy milk")},
			mode: ModeCreate,
		},
		{
			name: "create without title",
			in:   TaskInput{},
			mode: ModeCreate,
			want: []string{msgTitleRequired},
		},
		{
			name: "create with whitespace title",
			in:   TaskInput{Title: task.Some("   ")},
			mode: ModeCreate,
			want: []string{msgTitleRequired},
		},
		{
			name: "create with null title",
			in:   TaskInput{Title: task.Null[string]()},
			mode: ModeCreate,
			want: []string{msgTitleRequired},
		},
		{
			name: "title too long",
			in:   TaskInput{Title: task.Some(long)},
			mode: ModeCreate,
			want: []string{msgTitleTooLong},
		},
		{
			name: "title at limit after trimming",
			in:   TaskInput{Title: task.Some("  " + strings.Repeat("é", maxTitleLength) + "  ")},
			mode: ModeCreate,
		},
		{
			name: "every violation is collected",
			in: TaskInput{
				Title:       task.Some(""),
				Description: task.Some(strings.Repeat("d", maxDescriptionLength+1)),
				Status:      task.Some("done"),
				Priority:    task.Some("critical"),
				DueDate:     task.Some("next tuesday"),
			},
			mode: ModeCreate,
			want: []string{msgTitleRequired, msgDescTooLong, msgInvalidStatus, msgInvalidPriority, msgInvalidDueDate},
		},
		{
			name: "create treats empty enums as defaults",
			in:   TaskInput{Title: task.Some("t"), Status: task.Some(""), Priority: task.Null[string]()},
			mode: ModeCreate,
		},
		{
			name: "update with no fields",
			in:   TaskInput{},
			mode: ModeUpdate,
		},
		{
			name: "update rejects blank title",
			in:   TaskInput{Title: task.Some(" ")},
			mode: ModeUpdate,
			want: []string{msgTitleRequired},
		},
		{
			name: "update rejects null title",
			in:   TaskInput{Title: task.Null[string]()},
			mode: ModeUpdate,
			want: []string{msgTitleRequired},
		},
		{
			name: "update rejects unknown status",
			in:   TaskInput{Status: task.Some("archived")},
			mode: ModeUpdate,
			want: []string{msgInvalidStatus},
		},
		{
			name: "update rejects null priority",
			in:   TaskInput{Priority: task.Null[string]()},
			mode: ModeUpdate,
			want: []string{msgInvalidPriority},
		},
		{
			name: "update allows clearing optional fields",
			in: TaskInput{
				Description: task.Null[string](),
				Tags:        task.Null[[]string](),
				DueDate:     task.Null[string](),
			},
			mode: ModeUpdate,
		},
		{
			name: "wrong JSON types are reported per field",
			in: TaskInput{
				Title:       task.Optional[string]{Set: true, Invalid: true},
				Description: task.Optional[string]{Set: true, Invalid: true},
				Status:      task.Some("bogus"),
				Priority:    task.Optional[string]{Set: true, Invalid: true},
				Tags:        task.Optional[[]string]{Set: true, Invalid: true},
				DueDate:     task.Optional[string]{Set: true, Invalid: true},
			},
			mode: ModeCreate,
			want: []string{msgTitleRequired, msgDescNotString, msgInvalidStatus, msgInvalidPriority, msgInvalidTags, msgInvalidDueDate},
		},
		{
			name: "update rejects non-string title",
			in:   TaskInput{Title: task.Optional[string]{Set: true, Invalid: true}},
			mode: ModeUpdate,
			want: []string{msgTitleRequired},
		},
		{
			name: "empty due date clears",
			in:   TaskInput{DueDate: task.Some("")},
			mode: ModeUpdate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.in, tt.mode)
			if len(got) != len(tt.want) {
				t.Fatalf("Validate() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("error[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestValidationMessages(t *testing.T) {
	if msgInvalidStatus != "Status must be one of: pending, in_progress, completed" {
		t.Errorf("unexpected status message %q", msgInvalidStatus)
	}
	if msgInvalidPriority != "Priority must be one of: low, medium, high, urgent" {
		t.Errorf("unexpected priority message %q", msgInvalidPriority)
	}
}

func TestParseDueDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-04-01", time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)},
		{"2025-04-01T09:30:00Z", time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC)},
		{"2025-04-01T09:30:00.250Z", time.Date(2025, 4, 1, 9, 30, 0, 250_000_000, time.UTC)},
		{"2025-04-01T11:30:00+02:00", time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC)},
		{"2025-04-01T09:30", time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC)},
		{"2025-04-01 09:30:00", time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseDueDate(tt.in)
		if err != nil {
			t.Errorf("parseDueDate(%q) error = %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) || got.Location() != time.UTC {
			t.Errorf("parseDueDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "tomorrow", "2025-13-01", "2025-02-30"} {
		if _, err := parseDueDate(bad); err == nil {
			t.Errorf("parseDueDate(%q) expected error", bad)
		}
	}
}
