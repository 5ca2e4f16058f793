package markdown

import (
	"testing"

	"github.com/tndhk/No26-todo-md/internal/task"
)

func TestExtractTags(t *testing.T) {
	date := func(y, m, d int) *task.Date {
		dt := task.Date{Year: y, Month: m, Day: d}
		return &dt
	}

	tests := []struct {
		name       string
		input      string
		wantClean  string
		wantDue    *task.Date
		wantRepeat task.Repeat
		wantErr    bool
	}{
		{
			name:      "no tags",
			input:     "write report",
			wantClean: "write report",
		},
		{
			name:      "due at end",
			input:     "write report #due:2026-03-15",
			wantClean: "write report",
			wantDue:   date(2026, 3, 15),
		},
		{
			name:       "repeat at end",
			input:      "standup #repeat:daily",
			wantClean:  "standup",
			wantRepeat: task.RepeatDaily,
		},
		{
			name:       "both tags",
			input:      "pay rent #due:2026-04-01 #repeat:monthly",
			wantClean:  "pay rent",
			wantDue:    date(2026, 4, 1),
			wantRepeat: task.RepeatMonthly,
		},
		{
			name:      "tag mid-line collapses whitespace",
			input:     "call #due:2026-05-02 the vendor",
			wantClean: "call the vendor",
			wantDue:   date(2026, 5, 2),
		},
		{
			name:    "duplicate due",
			input:   "x #due:2026-01-01 #due:2026-01-02",
			wantErr: true,
		},
		{
			name:    "duplicate repeat",
			input:   "x #repeat:daily #repeat:weekly",
			wantErr: true,
		},
		{
			name:    "month out of range",
			input:   "x #due:2026-13-01",
			wantErr: true,
		},
		{
			name:    "day out of range",
			input:   "x #due:2026-01-32",
			wantErr: true,
		},
		{
			name:      "feb 30 passes digit-shape check",
			input:     "x #due:2025-02-30",
			wantClean: "x",
			wantDue:   date(2025, 2, 30),
		},
		{
			name:      "unknown repeat value is not a tag",
			input:     "x #repeat:yearly",
			wantClean: "x #repeat:yearly",
		},
		{
			name:      "malformed due shape is not a tag",
			input:     "x #due:tomorrow",
			wantClean: "x #due:tomorrow",
		},
		{
			name:      "empty after tag removal",
			input:     "#due:2026-03-15",
			wantClean: "",
			wantDue:   date(2026, 3, 15),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clean, due, repeat, err := ExtractTags(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ExtractTags(%q) succeeded, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractTags(%q) error: %v", tt.input, err)
			}
			if clean != tt.wantClean {
				t.Errorf("clean = %q, want %q", clean, tt.wantClean)
			}
			if repeat != tt.wantRepeat {
				t.Errorf("repeat = %q, want %q", repeat, tt.wantRepeat)
			}
			switch {
			case tt.wantDue == nil && due != nil:
				t.Errorf("due = %v, want nil", due)
			case tt.wantDue != nil && (due == nil || *due != *tt.wantDue):
				t.Errorf("due = %v, want %v", due, tt.wantDue)
			}
		})
	}
}
