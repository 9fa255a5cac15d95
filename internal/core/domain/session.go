package domain

// SessionState is the live scan pipeline state. The view layer renders it;
// it never drives it.
type SessionState string

const (
	StateIdle                 SessionState = "idle"
	StateCapturing            SessionState = "capturing"
	StateClassifying          SessionState = "classifying"
	StateHighConfidenceResult SessionState = "high_confidence_result"
	StateLowConfidenceResult  SessionState = "low_confidence_result"
	StateConfirming           SessionState = "confirming"
	StateSaving               SessionState = "saving"
	StateSaved                SessionState = "saved"
	StateSaveFailed           SessionState = "save_failed"
)

var sessionTransitions = map[SessionState][]SessionState{
	StateIdle:                 {StateCapturing},
	StateCapturing:            {StateClassifying, StateIdle},
	StateClassifying:          {StateHighConfidenceResult, StateLowConfidenceResult, StateIdle},
	StateHighConfidenceResult: {StateConfirming, StateCapturing},
	StateLowConfidenceResult:  {StateCapturing},
	StateConfirming:           {StateSaving, StateCapturing},
	StateSaving:               {StateSaved, StateSaveFailed},
	StateSaveFailed:           {StateSaving, StateCapturing},
	StateSaved:                {},
}

// CanTransition reports whether the state machine allows moving from one
// state to another. StateSaved is terminal.
func CanTransition(from, to SessionState) bool {
	for _, next := range sessionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ResultStateFor routes a prediction by confidence. The gate uses a single
// configured threshold for both live and gallery scans.
func ResultStateFor(confidence, threshold float64) SessionState {
	if confidence >= threshold {
		return StateHighConfidenceResult
	}
	return StateLowConfidenceResult
}
