package events

import (
	"sort"
	"time"
)

type task struct {
	key string
	due time.Time
	fn  func()
}

// Scheduler holds best-effort delayed callbacks (mood decay, paced
// commentary). Nothing runs on its own: the owner calls RunDue from the
// goroutine that owns the game state. Pending tasks are dropped when the
// process exits.
type Scheduler struct {
	tasks []task
	now   func() time.Time
}

// NewScheduler creates a scheduler reading time from now.
func NewScheduler(now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{now: now}
}

// After schedules fn to run once d has elapsed. A pending task with the
// same key is replaced.
func (s *Scheduler) After(key string, d time.Duration, fn func()) {
	s.Cancel(key)
	s.tasks = append(s.tasks, task{key: key, due: s.now().Add(d), fn: fn})
}

// Cancel drops the pending task with the given key, if any.
func (s *Scheduler) Cancel(key string) bool {
	for i, t := range s.tasks {
		if t.key == key {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return true
		}
	}
	return false
}

// Pending reports whether a task with the given key is waiting.
func (s *Scheduler) Pending(key string) bool {
	for _, t := range s.tasks {
		if t.key == key {
			return true
		}
	}
	return false
}

// RunDue runs every task whose deadline has passed, earliest first, and
// returns how many ran.
func (s *Scheduler) RunDue() int {
	now := s.now()
	var due, keep []task
	for _, t := range s.tasks {
		if !now.Before(t.due) {
			due = append(due, t)
		} else {
			keep = append(keep, t)
		}
	}
	s.tasks = keep
	sort.SliceStable(due, func(i, j int) bool { return due[i].due.Before(due[j].due) })
	for _, t := range due {
		t.fn()
	}
	return len(due)
}
