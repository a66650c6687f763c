package testutils

// ManualScheduler queues deferred tasks until the test pumps them,
// standing in for the host's next-tick facility. Not goroutine safe;
// tests drive it from one goroutine.
type ManualScheduler struct {
	tasks []func()
}

func (s *ManualScheduler) Defer(task func()) {
	s.tasks = append(s.tasks, task)
}

// Pending reports how many tasks are queued.
func (s *ManualScheduler) Pending() int { return len(s.tasks) }

// RunAll executes queued tasks in FIFO order, including tasks those
// tasks schedule, and returns how many ran.
func (s *ManualScheduler) RunAll() int {
	ran := 0
	for len(s.tasks) > 0 {
		task := s.tasks[0]
		s.tasks = s.tasks[1:]
		task()
		ran++
	}
	return ran
}
