package controller

type State int

const (
	StateNone State = iota
	StateInit
	StateIdle
	StateStart
	StateStarting
	StateStabilize
	StateRun
	StateOvershoot
	StateStall
	StateWait
	StateHotWater
	StateDefrost
	StateAfterrun
)

var stateNames = [...]string{"NONE", "INIT", "IDLE", "START", "STARTING", "STABILIZE", "RUN", "OVERSHOOT", "STALL", "WAIT", "SWW", "DEFROST", "AFTERRUN"}

var stateFriendlyNames = [...]string{"None", "Initialiseren", "Uit", "Start", "Opstarten", "Aan (stabiliseren)", "Aan (verwarmen)", "Aan (overshoot)", "Aan (stall)", "Pauze (Uit)", "Aan (Warm Water)", "Ontdooien", "Nadraaien"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return stateNames[StateNone]
	}
	return stateNames[s]
}

// FriendlyName is the display name shown to the household.
func (s State) FriendlyName() string {
	if s < 0 || int(s) >= len(stateFriendlyNames) {
		return stateFriendlyNames[StateNone]
	}
	return stateFriendlyNames[s]
}
