package threshold

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type ThresholdSuite struct {
	suite.Suite
	now time.Time
	cfg Config
}

func TestThresholdSuite(t *testing.T) {
	suite.Run(t, new(ThresholdSuite))
}

func (s *ThresholdSuite) SetupTest() {
	s.now = time.UnixMilli(1_700_000_000_000)
	s.cfg = Config{MaxAttempts: 3, Window: 300_000 * time.Millisecond}
}

func (s *ThresholdSuite) TestEvaluate() {
	s.Run("empty state allows with full budget", func() {
		res := Evaluate(State{}, s.cfg, s.now)
		s.True(res.Allow)
		s.Equal(3, res.Remaining)
	})

	s.Run("three attempts inside the window deny the next check", func() {
		var state State
		for i := range 3 {
			state = Record(state, s.now.Add(-time.Duration(i)*time.Minute))
		}
		res := Evaluate(state, s.cfg, s.now)
		s.False(res.Allow)
		s.Zero(res.Remaining)
	})

	s.Run("three attempts older than the window allow with full budget", func() {
		var state State
		for i := range 3 {
			state = Record(state, s.now.Add(-s.cfg.Window-time.Duration(i+1)*time.Millisecond))
		}
		res := Evaluate(state, s.cfg, s.now)
		s.True(res.Allow)
		s.Equal(3, res.Remaining)
	})

	s.Run("attempt exactly at the boundary counts", func() {
		state := Record(State{}, s.now.Add(-s.cfg.Window))
		res := Evaluate(state, s.cfg, s.now)
		s.Equal(2, res.Remaining)

		res = Evaluate(state, s.cfg, s.now.Add(time.Millisecond))
		s.Equal(3, res.Remaining)
	})
}

func (s *ThresholdSuite) TestRecordDoesNotMutateInput() {
	base := Record(State{}, s.now)
	a := Record(base, s.now.Add(time.Second))
	b := Record(base, s.now.Add(2*time.Second))

	s.Len(base.Attempts, 1)
	s.Equal(s.now.Add(time.Second), a.Attempts[1])
	s.Equal(s.now.Add(2*time.Second), b.Attempts[1])
}

func (s *ThresholdSuite) TestPrune() {
	state := State{Attempts: []time.Time{s.now.Add(-time.Hour), s.now.Add(-s.cfg.Window), s.now}}
	pruned := Prune(state, s.cfg.Window, s.now)
	s.Len(pruned.Attempts, 2)
	s.Equal(Evaluate(state, s.cfg, s.now), Evaluate(pruned, s.cfg, s.now))
}

func (s *ThresholdSuite) TestCooldown() {
	cfg := DefaultCooldownConfig()

	s.Run("below threshold never cools down", func() {
		state := RecordFailure(RecordFailure(FailureState{}, s.now), s.now)
		res := Cooldown(state, cfg, s.now)
		s.False(res.Active)
		s.True(res.Until.IsZero())
	})

	s.Run("third failure starts a five minute cooldown", func() {
		var state FailureState
		for range 3 {
			state = RecordFailure(state, s.now)
		}
		res := Cooldown(state, cfg, s.now.Add(4*time.Minute))
		s.True(res.Active)
		s.Equal(s.now.Add(5*time.Minute), res.Until)

		res = Cooldown(state, cfg, s.now.Add(5*time.Minute))
		s.False(res.Active, "cooldown ends at lastFailedAt+duration")
	})

	s.Run("success clears the streak", func() {
		state := FailureState{ConsecutiveFailures: 5, LastFailedAt: s.now}
		s.False(Cooldown(RecordSuccess(state), cfg, s.now).Active)
	})
}

func TestEjectionRisk(t *testing.T) {
	tests := []struct {
		name         string
		ejections    int
		participants int
		rate         float64
		high         bool
	}{
		{name: "no participants uses denominator one", ejections: 1, participants: 0, rate: 1, high: true},
		{name: "exactly at ratio is not high", ejections: 3, participants: 10, rate: 0.3, high: false},
		{name: "above ratio", ejections: 4, participants: 10, rate: 0.4, high: true},
		{name: "none", ejections: 0, participants: 50, rate: 0, high: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			risk := EjectionRisk(tt.ejections, tt.participants, DefaultEjectionRiskRatio)
			assert.InDelta(t, tt.rate, risk.Rate, 1e-9)
			assert.Equal(t, tt.high, risk.HighRisk)
		})
	}
}

func TestOverSignalLimit(t *testing.T) {
	assert.False(t, OverSignalLimit(10, DefaultSignalLimit))
	assert.True(t, OverSignalLimit(11, DefaultSignalLimit))
}

func TestAdmit(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	cfg := Config{MaxAttempts: 2, Window: time.Minute}

	adm, state := Admit(State{}, cfg, now)
	assert.True(t, adm.Allow)
	assert.Equal(t, 1, adm.Remaining)
	assert.Len(t, state.Attempts, 1)

	adm, state = Admit(state, cfg, now.Add(10*time.Second))
	assert.True(t, adm.Allow)
	assert.Equal(t, 0, adm.Remaining)

	denied, after := Admit(state, cfg, now.Add(20*time.Second))
	assert.False(t, denied.Allow)
	assert.Equal(t, now.Add(time.Minute), denied.RetryAt)
	assert.Equal(t, state, after, "a denial records nothing")

	adm, _ = Admit(state, cfg, now.Add(time.Minute+time.Millisecond))
	assert.True(t, adm.Allow, "first attempt has left the window")
}
