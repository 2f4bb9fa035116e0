package model

import "testing"

// TestCrawlReportCompleted tests terminal state classification.
func TestCrawlReportCompleted(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		state string
		want  bool
	}{
		{name: "completed run", state: StateCompleted, want: true},
		{name: "aborted run", state: StateAborted, want: false},
		{name: "still running", state: StateRunning, want: false},
		{name: "never started", state: StateIdle, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := &CrawlReport{State: tt.state}
			if got := r.Completed(); got != tt.want {
				t.Errorf("Completed() = %v, want %v", got, tt.want)
			}
		})
	}
}
