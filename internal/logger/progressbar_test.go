package logger

import (
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
)

// TestProgressBarRender verifies bar fill, counter and percentage
func TestProgressBarRender(t *testing.T) {
	tests := []struct {
		name    string
		current int
		total   int
		want    string
	}{
		{"empty", 0, 10, "[          ] 0/10 (0%)"},
		{"half", 5, 10, "[=====     ] 5/10 (50%)"},
		{"full", 10, 10, "[==========] 10/10 (100%)"},
		{"overflow clamps", 15, 10, "[==========] 15/10 (100%)"},
		{"zero total", 0, 0, "[          ] 0/0 (0%)"},
		{"negative clamps", -3, 10, "[          ] -3/10 (0%)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb := NewProgressBar(tt.total, 10, false)
			pb.Update(tt.current)
			if got := pb.Render(); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestProgressBarWidthDefault falls back to width 10
func TestProgressBarWidthDefault(t *testing.T) {
	pb := NewProgressBar(4, 0, false)
	pb.Update(2)
	if got := pb.Render(); got != "[=====     ] 2/4 (50%)" {
		t.Errorf("Render() = %q", got)
	}
}

// TestProgressBarPrefix prepends a custom prefix
func TestProgressBarPrefix(t *testing.T) {
	pb := NewProgressBar(2, 4, false)
	pb.SetPrefix("jobs ")
	pb.Increment()
	if got := pb.Render(); got != "jobs [==  ] 1/2 (50%)" {
		t.Errorf("Render() = %q", got)
	}
	if pb.Percentage() != 50 || pb.Current() != 1 || pb.Total() != 2 {
		t.Errorf("unexpected state: %d%% %d/%d", pb.Percentage(), pb.Current(), pb.Total())
	}
}

// TestProgressBarColors tests color rendering
func TestProgressBarColors(t *testing.T) {
	saved := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = saved }()

	pb := NewProgressBar(10, 10, true)
	pb.Update(5)
	if result := pb.Render(); !strings.Contains(result, "\033[") {
		t.Errorf("Render() with color should contain ANSI codes, got: %q", result)
	}

	pb = NewProgressBar(10, 10, false)
	pb.Update(5)
	if result := pb.Render(); strings.Contains(result, "\033[") {
		t.Errorf("Render() without color should not contain ANSI codes, got: %q", result)
	}
}

// TestProgressBarConcurrency tests thread-safe concurrent updates
func TestProgressBarConcurrency(t *testing.T) {
	pb := NewProgressBar(100, 10, false)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pb.Increment()
			_ = pb.Render()
		}()
	}
	wg.Wait()

	if pb.Current() != 100 {
		t.Errorf("Current() = %d, want 100", pb.Current())
	}
}
