package service

import (
	"sync/atomic"
	"time"
)

// State — живость бота для /healthz: последний круг проверки алертов
// и состояние websocket-стримов цен.
type State struct {
	ready     atomic.Bool
	startedAt time.Time

	streamsActive atomic.Int64
	lastCycleUnix atomic.Int64 // unix seconds
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) StreamOpened() { s.streamsActive.Add(1) }
func (s *State) StreamClosed() { s.streamsActive.Add(-1) }
func (s *State) ActiveStreams() int64 {
	return s.streamsActive.Load()
}

func (s *State) TouchCycle(t time.Time) { s.lastCycleUnix.Store(t.Unix()) }
func (s *State) LastCycle() time.Time {
	u := s.lastCycleUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
