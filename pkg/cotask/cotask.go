// Package cotask is a cooperative, single-threaded task scheduler.
//
// Each Task has a Body that is run to completion once per Period.  On every
// pass the scheduler walks the task list in priority order (lowest number
// first, ties in registration order) and runs each task that is due.  Bodies
// never run concurrently, which is what lets tasks talk through unlocked
// share.Share cells.
package cotask

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

type State int

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Task struct {
	Name     string
	Period   time.Duration
	Priority int
	Body     func()

	state   State
	nextRun time.Time
	runs    uint64
	lastRun time.Time
	maxLate time.Duration
}

type Stats struct {
	Name     string
	Priority int
	Period   time.Duration
	Runs     uint64
	LastRun  time.Time
	MaxLate  time.Duration
}

type Scheduler struct {
	clock Clock
	tasks []*Task
}

func New(clock Clock) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scheduler{clock: clock}
}

// Add registers a task.  A new task is due on the next pass.
func (s *Scheduler) Add(t *Task) error {
	if t == nil || t.Body == nil {
		return errors.New("cotask: task has no body")
	}
	if t.Period <= 0 {
		return errors.Errorf("cotask: task %q has non-positive period %v", t.Name, t.Period)
	}
	t.state = StateIdle
	t.nextRun = s.clock.Now()
	s.tasks = append(s.tasks, t)
	// Stable, so equal priorities keep registration order.
	slices.SortStableFunc(s.tasks, func(a, b *Task) int {
		return a.Priority - b.Priority
	})
	return nil
}

// RunPass runs every due task once and returns how many ran.
func (s *Scheduler) RunPass() int {
	now := s.clock.Now()
	ran := 0
	for _, t := range s.tasks {
		if now.Before(t.nextRun) {
			continue
		}
		s.runTask(t, now)
		ran++
	}
	return ran
}

func (s *Scheduler) runTask(t *Task, now time.Time) {
	if t.state != StateIdle {
		panic(fmt.Sprintf("cotask: task %q resumed in state %v", t.Name, t.state))
	}
	if late := now.Sub(t.nextRun); late > t.maxLate {
		t.maxLate = late
	}

	t.state = StateRunning
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("SCHED: task %q faulted: %v\n", t.Name, r)
			panic(r)
		}
	}()
	t.Body()
	t.state = StateIdle

	t.runs++
	t.lastRun = now
	t.nextRun = t.nextRun.Add(t.Period)
	if !t.nextRun.After(now) {
		// Fell more than a period behind; don't try to catch up with a burst.
		t.nextRun = now.Add(t.Period)
	}
}

// Run loops until the context is cancelled, ticking at the shortest task
// period.  A panic in any task body propagates out of Run.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.tasks) == 0 {
		return errors.New("cotask: no tasks registered")
	}
	tick := s.tasks[0].Period
	for _, t := range s.tasks {
		if t.Period < tick {
			tick = t.Period
		}
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	s.RunPass()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.RunPass()
		}
	}
}

// Tasks returns the task names in dispatch order.
func (s *Scheduler) Tasks() []string {
	names := make([]string, len(s.tasks))
	for i, t := range s.tasks {
		names[i] = t.Name
	}
	return names
}

func (s *Scheduler) Stats() []Stats {
	stats := make([]Stats, 0, len(s.tasks))
	for _, t := range s.tasks {
		stats = append(stats, Stats{
			Name:     t.Name,
			Priority: t.Priority,
			Period:   t.Period,
			Runs:     t.runs,
			LastRun:  t.lastRun,
			MaxLate:  t.maxLate,
		})
	}
	return stats
}

func (s *Scheduler) PrintStats() {
	fmt.Println("SCHED: task         pri  period    runs  max late")
	for _, st := range s.Stats() {
		fmt.Printf("SCHED: %-12s %3d  %-8v %6d  %v\n", st.Name, st.Priority, st.Period, st.Runs, st.MaxLate)
	}
}
