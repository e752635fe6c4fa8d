package statusutil

import (
	"testing"

	"tasksync/internal/model"
)

func TestLabelRoundTrip_CoversEveryStatus(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range Statuses() {
		lbl := Label(s)
		if seen[lbl] {
			t.Fatalf("duplicate label %q", lbl)
		}
		seen[lbl] = true
		got, ok := ParseLabel(lbl)
		if !ok || got != s {
			t.Fatalf("ParseLabel(%q) = %q,%v; want %q", lbl, got, ok, s)
		}
	}
	if len(seen) != 6 {
		t.Fatalf("expected 6 labels; got %d", len(seen))
	}
}

func TestParseLabel_Aliases(t *testing.T) {
	cases := map[string]model.Status{
		"todo":        model.StatusTodo,
		"Backlog":     model.StatusTodo,
		"in_progress": model.StatusInProgress,
		" DONE ":      model.StatusDone,
	}
	for in, want := range cases {
		got, ok := ParseLabel(in)
		if !ok || got != want {
			t.Fatalf("ParseLabel(%q) = %q,%v; want %q", in, got, ok, want)
		}
	}
	if _, ok := ParseLabel("wat"); ok {
		t.Fatalf("expected unknown label to fail")
	}
}

func TestNormalizeStatus_DefaultsToTodo(t *testing.T) {
	if got := NormalizeStatus(""); got != model.StatusTodo {
		t.Fatalf("expected todo; got %q", got)
	}
	if got := NormalizeStatus("bogus"); got != model.StatusTodo {
		t.Fatalf("expected todo; got %q", got)
	}
	if got := NormalizeStatus("in-progress"); got != model.StatusInProgress {
		t.Fatalf("expected in_progress; got %q", got)
	}
}

func TestPriorities(t *testing.T) {
	if _, err := ParsePriority("critical"); err == nil {
		t.Fatalf("expected error for unknown priority")
	}
	p, err := ParsePriority("Urgent")
	if err != nil || p != model.PriorityUrgent {
		t.Fatalf("ParsePriority(Urgent) = %q, %v", p, err)
	}
	if NormalizePriority("") != model.PriorityMedium {
		t.Fatalf("expected absent priority to normalize to medium")
	}
	if PriorityRank(model.PriorityUrgent) >= PriorityRank(model.PriorityLow) {
		t.Fatalf("expected urgent to rank before low")
	}
}

func TestParseGroupBy(t *testing.T) {
	for _, in := range []string{"status", "priority", "assignee", "custom-group", "due-date-bucket", "group", "date"} {
		if _, err := ParseGroupBy(in); err != nil {
			t.Fatalf("ParseGroupBy(%q): %v", in, err)
		}
	}
	if _, err := ParseGroupBy("color"); err == nil {
		t.Fatalf("expected error")
	}
}
