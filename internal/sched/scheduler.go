// Package sched runs delayed tasks on a director's tick.
package sched

import (
	"sort"
	"sync"
	"time"
)

// Task is a unit of delayed work. Tasks run on the goroutine that calls
// Tick, outside the scheduler lock, so a task may queue further tasks.
type Task func()

type entry struct {
	at   time.Time
	task Task
}

// Scheduler is a time-ordered task queue. The zero value is ready to use.
type Scheduler struct {
	mu      sync.Mutex
	entries []entry
}

// Queue schedules task to run on the first Tick at or after now+delay.
func (s *Scheduler) Queue(task Task, delay time.Duration) {
	s.QueueAt(task, time.Now().Add(delay))
}

// QueueAt schedules task to run on the first Tick at or after at.
func (s *Scheduler) QueueAt(task Task, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry{at: at, task: task})
	sort.SliceStable(s.entries, func(i, j int) bool {
		return s.entries[i].at.Before(s.entries[j].at)
	})
}

// Tick runs every task whose deadline has passed as of now. Tasks queued
// by a running task are not executed until a later Tick even when their
// delay is zero.
func (s *Scheduler) Tick(now time.Time) {
	s.mu.Lock()
	var due []Task
	for len(s.entries) > 0 && !s.entries[0].at.After(now) {
		due = append(due, s.entries[0].task)
		s.entries = s.entries[1:]
	}
	s.mu.Unlock()

	for _, task := range due {
		task()
	}
}

// Len reports the number of pending tasks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
