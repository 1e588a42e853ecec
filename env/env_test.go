package env

import (
	"errors"
	"math"
	"testing"
	"time"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < eps }

var envelopes = []ADSR{
	Default(),
	{Attack: time.Second, Decay: time.Second, Sustain: 0.25, Release: time.Second},
	{Attack: 5 * time.Millisecond, Decay: 2 * time.Second, Sustain: 0.9, Release: 10 * time.Millisecond},
	{Attack: 300 * time.Millisecond, Decay: 20 * time.Millisecond, Sustain: 0.01, Release: 3 * time.Second},
}

func TestEvaluateHeld(t *testing.T) {
	for _, a := range envelopes {
		att, dec := a.Attack.Seconds(), a.Decay.Seconds()
		if got := a.Evaluate(0, 0, true); got != 0 {
			t.Errorf("%v.Evaluate(0) = %v, want: 0", a, got)
		}
		if got := a.Evaluate(att, 0, true); !near(got, 1) {
			t.Errorf("%v.Evaluate(attack) = %v, want: 1", a, got)
		}
		if got := a.Evaluate(att+dec, 0, true); !near(got, a.Sustain) {
			t.Errorf("%v.Evaluate(attack+decay) = %v, want: %v", a, got, a.Sustain)
		}
		for _, extra := range []float64{0.001, 1, 100, 1e5} {
			if got := a.Evaluate(att+dec+extra, 0, true); got != a.Sustain {
				t.Errorf("%v.Evaluate(attack+decay+%v) = %v, want: %v", a, extra, got, a.Sustain)
			}
		}
		if got, want := a.Evaluate(att/2, 0, true), 0.5; !near(got, want) {
			t.Errorf("%v.Evaluate(attack/2) = %v, want: %v", a, got, want)
		}
		if got, want := a.Evaluate(att+dec/2, 0, true), (1+a.Sustain)/2; !near(got, want) {
			t.Errorf("%v.Evaluate(attack+decay/2) = %v, want: %v", a, got, want)
		}
	}
}

func TestEvaluateReleaseContinuity(t *testing.T) {
	for _, a := range envelopes {
		for _, tr := range []float64{0, 0.001, 0.005, 0.2, 0.5, 1.5, 10} {
			held := a.Evaluate(tr, 0, true)
			released := a.Evaluate(tr, 0, false)
			if released != held {
				t.Errorf("%v: released at %v = %v, held = %v", a, tr, released, held)
			}
		}
	}
}

func TestEvaluateRelease(t *testing.T) {
	a := ADSR{Attack: time.Second, Decay: time.Second, Sustain: 0.5, Release: 2 * time.Second}
	for _, c := range []struct {
		t, t2 float64
		out   float64
	}{
		{t: 5, t2: 0, out: 0.5},
		{t: 5, t2: 1, out: 0.25},
		{t: 5, t2: 2, out: 0},
		// released halfway through the attack.
		{t: 0.5, t2: 1, out: 0.25},
		// past the end of the release the fraction clamps to 0.
		{t: 5, t2: 3, out: 0.5},
	} {
		if got := a.Evaluate(c.t, c.t2, false); !near(got, c.out) {
			t.Errorf("Evaluate(%v, %v, false) = %v, want: %v", c.t, c.t2, got, c.out)
		}
	}
}

func TestEvaluateZeroStages(t *testing.T) {
	a := ADSR{Sustain: 0.7}
	if got := a.Evaluate(0, 0, true); got != 0.7 {
		t.Errorf("zero attack/decay: Evaluate(0) = %v, want: 0.7", got)
	}
	if got := a.Evaluate(1, 0, false); got != 0 {
		t.Errorf("zero release: Evaluate(1, 0, false) = %v, want: 0", got)
	}
	if got := a.Evaluate(1, 0, false); math.IsNaN(got) {
		t.Errorf("zero release produced NaN")
	}
}

func TestStage(t *testing.T) {
	a := ADSR{Attack: time.Second, Decay: time.Second, Sustain: 0.5, Release: time.Second}
	for _, c := range []struct {
		t, t2 float64
		held  bool
		want  Stage
	}{
		{0, 0, true, Attack},
		{1.5, 0, true, Decay},
		{2, 0, true, Sustain},
		{2, 0.5, false, Release},
		{2, 1, false, Idle},
	} {
		if got := a.Stage(c.t, c.t2, c.held); got != c.want {
			t.Errorf("Stage(%v, %v, %v) = %v, want: %v", c.t, c.t2, c.held, got, c.want)
		}
	}
}

func TestValidate(t *testing.T) {
	for _, c := range []struct {
		a  ADSR
		ok bool
	}{
		{Default(), true},
		{ADSR{}, true},
		{ADSR{Attack: -1}, false},
		{ADSR{Decay: -1}, false},
		{ADSR{Release: -1}, false},
		{ADSR{Sustain: 1.01}, false},
		{ADSR{Sustain: -0.01}, false},
	} {
		err := c.a.Validate()
		if c.ok && err != nil {
			t.Errorf("%v.Validate() = %v, want: nil", c.a, err)
		}
		if !c.ok && !errors.Is(err, ErrInvalid) {
			t.Errorf("%v.Validate() = %v, want: %v", c.a, err, ErrInvalid)
		}
	}
}

func TestLerpClamp(t *testing.T) {
	for _, c := range []struct {
		c, out float64
	}{
		{-0.5, 2},
		{0, 2},
		{0.5, 3},
		{1, 4},
		{1.5, 2},
	} {
		if got := lerp(2.0, 4.0, c.c); got != c.out {
			t.Errorf("lerp(2, 4, %v) = %v, want: %v", c.c, got, c.out)
		}
	}
}
