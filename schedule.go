// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

package waypoint

import (
	"sync"
	"time"
)

// scheduler coalesces rebuild requests received within a delay into a single run.
type scheduler struct {
	run       func()
	timer     *time.Timer
	delay     time.Duration
	mu        sync.Mutex
	scheduled bool
	stopped   bool
}

func newScheduler(delay time.Duration, run func()) *scheduler {
	return &scheduler{delay: delay, run: run}
}

// Request arms the timer unless a run is already pending. It reports whether a new run was scheduled.
func (s *scheduler) Request() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scheduled || s.stopped {
		return false
	}
	s.scheduled = true
	s.timer = time.AfterFunc(s.delay, s.fire)
	return true
}

// fire clears the pending flag before running, so a request received during the run schedules a new one.
func (s *scheduler) fire() {
	s.mu.Lock()
	if !s.scheduled || s.stopped {
		s.mu.Unlock()
		return
	}
	s.scheduled = false
	s.timer = nil
	s.mu.Unlock()

	s.run()
}

// Pending returns true if a run is scheduled and has not started yet.
func (s *scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduled
}

// Stop disarms any pending run. Subsequent requests are ignored.
func (s *scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.scheduled = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
