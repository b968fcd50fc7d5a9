// Package threshold holds the pure sliding-window, cooldown and risk rules of
// the check-in abuse gate. Callers own the state and persist it between calls;
// every function takes "now" explicitly.
package threshold

import "time"

const (
	DefaultCooldown          = 5 * time.Minute
	DefaultFailureThreshold  = 3
	DefaultEjectionRiskRatio = 0.3
	DefaultSignalLimit       = 10
)

// Config bounds attempts within a trailing window.
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

// State is the ordered list of attempt instants for one subject.
// Evaluate filters it by the window; nothing here prunes it.
type State struct {
	Attempts []time.Time
}

// Result of a window evaluation.
type Result struct {
	Allow     bool
	Remaining int
}

// Evaluate counts attempts at or after now-window. An attempt exactly on the
// boundary is still inside the window.
func Evaluate(state State, cfg Config, now time.Time) Result {
	recent := CountRecent(state, cfg.Window, now)
	if recent >= cfg.MaxAttempts {
		return Result{Allow: false, Remaining: 0}
	}
	return Result{Allow: true, Remaining: cfg.MaxAttempts - recent}
}

// CountRecent returns the number of attempts with ts >= now-window.
func CountRecent(state State, window time.Duration, now time.Time) int {
	cutoff := now.Add(-window)
	n := 0
	for _, ts := range state.Attempts {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// Record returns a new state with the attempt appended. The input is not modified.
func Record(state State, at time.Time) State {
	attempts := make([]time.Time, len(state.Attempts), len(state.Attempts)+1)
	copy(attempts, state.Attempts)
	return State{Attempts: append(attempts, at)}
}

// Admission is the result of one evaluate-and-record step. Remaining counts
// what is left after this attempt. RetryAt is set on denial: the moment the
// oldest in-window attempt leaves the window.
type Admission struct {
	Allow     bool
	Remaining int
	RetryAt   time.Time
}

// Admit evaluates the window and, when allowed, records now. Stores run it
// under whatever makes the step atomic for them; the returned state is the
// input unchanged on denial.
func Admit(state State, cfg Config, now time.Time) (Admission, State) {
	res := Evaluate(state, cfg, now)
	if !res.Allow {
		return Admission{RetryAt: OldestInWindow(state, cfg.Window, now).Add(cfg.Window)}, state
	}
	return Admission{Allow: true, Remaining: res.Remaining - 1}, Record(state, now)
}

// OldestInWindow returns the earliest attempt with ts >= now-window, or now
// when there is none.
func OldestInWindow(state State, window time.Duration, now time.Time) time.Time {
	cutoff := now.Add(-window)
	for _, ts := range state.Attempts {
		if !ts.Before(cutoff) {
			return ts
		}
	}
	return now
}

// Prune drops attempts older than the window. Stores call it to bound
// storage; rule evaluation never depends on it.
func Prune(state State, window time.Duration, now time.Time) State {
	cutoff := now.Add(-window)
	kept := make([]time.Time, 0, len(state.Attempts))
	for _, ts := range state.Attempts {
		if !ts.Before(cutoff) {
			kept = append(kept, ts)
		}
	}
	return State{Attempts: kept}
}

// FailureState tracks the consecutive failure streak for one subject.
type FailureState struct {
	ConsecutiveFailures int
	LastFailedAt        time.Time
}

// RecordFailure extends the streak.
func RecordFailure(state FailureState, at time.Time) FailureState {
	return FailureState{ConsecutiveFailures: state.ConsecutiveFailures + 1, LastFailedAt: at}
}

// RecordSuccess ends the streak.
func RecordSuccess(FailureState) FailureState {
	return FailureState{}
}

// CooldownConfig tunes the failure cooldown.
type CooldownConfig struct {
	FailureThreshold int
	Duration         time.Duration
}

// DefaultCooldownConfig is three failures and five minutes.
func DefaultCooldownConfig() CooldownConfig {
	return CooldownConfig{FailureThreshold: DefaultFailureThreshold, Duration: DefaultCooldown}
}

// CooldownResult reports whether the subject is cooling down and until when.
// Until is zero when the failure threshold has not been reached.
type CooldownResult struct {
	Active bool
	Until  time.Time
}

// Cooldown denies while now < lastFailedAt+duration once the streak reaches
// the threshold, independent of the window count.
func Cooldown(state FailureState, cfg CooldownConfig, now time.Time) CooldownResult {
	if state.ConsecutiveFailures < cfg.FailureThreshold || state.LastFailedAt.IsZero() {
		return CooldownResult{}
	}
	until := state.LastFailedAt.Add(cfg.Duration)
	return CooldownResult{Active: now.Before(until), Until: until}
}

// Risk is an informational signal; it never gates access.
type Risk struct {
	Rate     float64
	HighRisk bool
}

// EjectionRisk flags events where ejections/max(1, participants) exceeds ratio.
func EjectionRisk(ejections, participants int, ratio float64) Risk {
	rate := float64(ejections) / float64(max(1, participants))
	return Risk{Rate: rate, HighRisk: rate > ratio}
}

// OverSignalLimit reports whether count exceeds limit. Informational only.
func OverSignalLimit(count, limit int) bool {
	return count > limit
}
