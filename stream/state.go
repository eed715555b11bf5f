package stream

import "sync/atomic"

type State int32

const (
	StateOpen   State = 0
	StateFailed State = 1
	StateClosed State = 2
)

func (s *State) Load() State {
	return State(atomic.LoadInt32((*int32)(s)))
}

func (s *State) Store(value State) {
	atomic.StoreInt32((*int32)(s), int32(value))
}

func (s *State) CAS(old, new State) bool {
	return atomic.CompareAndSwapInt32((*int32)(s), int32(old), int32(new))
}
