package swarm

import "testing"

func TestTaskStatusIsTerminal(t *testing.T) {
	cases := []struct {
		status   TaskStatus
		terminal bool
	}{
		{TaskPending, false},
		{TaskInProgress, false},
		{TaskCompleted, true},
		{TaskFailed, true},
	}
	for _, c := range cases {
		if got := c.status.IsTerminal(); got != c.terminal {
			t.Errorf("%s.IsTerminal() = %v, want %v", c.status, got, c.terminal)
		}
	}
}

func TestValidPriority(t *testing.T) {
	for _, p := range []string{"low", "medium", "high", "critical"} {
		if !ValidPriority(p) {
			t.Errorf("%s must be a valid priority", p)
		}
	}
	if ValidPriority("urgent") {
		t.Error("unknown priority must be invalid")
	}
	if ValidPriority("") {
		t.Error("empty priority must be invalid")
	}
}
