package domain

import "testing"

func TestResultStateForGatesOnThreshold(t *testing.T) {
	const threshold = 0.8
	for c := 0.0; c <= 1.0; c += 0.01 {
		got := ResultStateFor(c, threshold)
		want := StateLowConfidenceResult
		if c >= threshold {
			want = StateHighConfidenceResult
		}
		if got != want {
			t.Fatalf("ResultStateFor(%.2f, %.2f) = %s, want %s", c, threshold, got, want)
		}
	}
}

func TestResultStateForBoundary(t *testing.T) {
	if ResultStateFor(0.8, 0.8) != StateHighConfidenceResult {
		t.Fatalf("confidence equal to threshold must accept")
	}
	if ResultStateFor(0.7999, 0.8) != StateLowConfidenceResult {
		t.Fatalf("confidence below threshold must route to review")
	}
}

func TestCanTransitionAllowsRetryFromResultStates(t *testing.T) {
	for _, from := range []SessionState{StateHighConfidenceResult, StateLowConfidenceResult, StateSaveFailed} {
		if !CanTransition(from, StateCapturing) {
			t.Fatalf("expected retry edge from %s to capturing", from)
		}
	}
}

func TestCanTransitionRejectsSaveFromLowConfidence(t *testing.T) {
	if CanTransition(StateLowConfidenceResult, StateConfirming) {
		t.Fatalf("save must not be offered from a low confidence result")
	}
}

func TestSavedIsTerminal(t *testing.T) {
	for _, to := range []SessionState{
		StateIdle, StateCapturing, StateClassifying, StateConfirming,
		StateSaving, StateSaveFailed, StateHighConfidenceResult, StateLowConfidenceResult,
	} {
		if CanTransition(StateSaved, to) {
			t.Fatalf("saved must be terminal, allowed transition to %s", to)
		}
	}
}
