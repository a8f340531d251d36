package tui

import (
	"fmt"
	"time"

	"github.com/epalmerini/rmqtools/internal/feed"
)

const statsWindow = 30 * time.Second

// counterStats follows the in-flight counters pushed by the feed.
type counterStats struct {
	prev, cur  feed.Snapshot
	times      []time.Time
	updates    int64
	lastUpdate time.Time
}

// record stores a new snapshot, keeping the previous one for trends.
func (s *counterStats) record(t time.Time, snap feed.Snapshot) {
	s.prev = s.cur
	s.cur = snap
	s.times = append(s.times, t)
	s.updates++
	s.lastUpdate = t
}

// count returns the latest in-flight count for queue.
func (s *counterStats) count(queue string) (int64, bool) {
	n, ok := s.cur[queue]
	return n, ok
}

// trend compares the last two snapshots for queue: 1 growing, -1
// shrinking, 0 unchanged or unknown.
func (s *counterStats) trend(queue string) int {
	cur, ok := s.cur[queue]
	if !ok {
		return 0
	}
	prev, ok := s.prev[queue]
	if !ok {
		return 0
	}
	switch {
	case cur > prev:
		return 1
	case cur < prev:
		return -1
	}
	return 0
}

// perMinute returns the snapshot rate over the rolling window.
func (s *counterStats) perMinute(now time.Time) float64 {
	cutoff := now.Add(-statsWindow)

	i := 0
	for i < len(s.times) && s.times[i].Before(cutoff) {
		i++
	}
	s.times = s.times[i:]

	if len(s.times) == 0 {
		return 0
	}

	elapsed := now.Sub(s.times[0]).Minutes()
	if elapsed < 1.0/60 {
		elapsed = 1.0 / 60
	}
	return float64(len(s.times)) / elapsed
}

func trendArrow(t int) string {
	switch {
	case t > 0:
		return trendUpStyle.Render("↑")
	case t < 0:
		return trendDownStyle.Render("↓")
	}
	return " "
}

func formatRate(rate float64) string {
	return fmt.Sprintf("%.1f upd/min", rate)
}

func formatCount(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 10_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

func formatAge(d time.Duration) string {
	if d < time.Second {
		return "now"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}
