package service

import "time"

// fakeScheduler records armed timers and fires them on demand
type fakeScheduler struct {
	armed    []*TurnTimer
	fires    map[*TurnTimer]func(TurnTimeout)
	canceled []*TurnTimer
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{fires: make(map[*TurnTimer]func(TurnTimeout))}
}

func (f *fakeScheduler) Arm(_ time.Duration, timeout TurnTimeout, fire func(TurnTimeout)) *TurnTimer {
	t := &TurnTimer{timeout: timeout}
	f.armed = append(f.armed, t)
	f.fires[t] = fire
	return t
}

func (f *fakeScheduler) Cancel(t *TurnTimer) {
	if t == nil {
		return
	}
	if t.state.CompareAndSwap(timerArmed, timerCanceled) {
		f.canceled = append(f.canceled, t)
	}
}

// fire runs a pending timer as if its deadline had passed
func (f *fakeScheduler) fire(t *TurnTimer) {
	if t.state.CompareAndSwap(timerArmed, timerFired) {
		f.fires[t](t.timeout)
	}
}

// last returns the most recently armed timer
func (f *fakeScheduler) last() *TurnTimer {
	if len(f.armed) == 0 {
		return nil
	}
	return f.armed[len(f.armed)-1]
}
