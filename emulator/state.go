package emulator

// State is the run state of the emulator.
type State int

const (
	STATE_EMPTY   = State(0) // No program loaded.
	STATE_READY   = State(1) // Loaded, labels resolved, not yet started.
	STATE_RUNNING = State(2) // Program counter is in range.
	STATE_HALTED  = State(3) // Program counter ran off the end. Terminal.
)

var _state_names = [...]string{
	STATE_EMPTY:   "empty",
	STATE_READY:   "ready",
	STATE_RUNNING: "running",
	STATE_HALTED:  "halted",
}

func (st State) String() string {
	if st < 0 || int(st) >= len(_state_names) {
		return f("state(%d)", int(st))
	}
	return _state_names[st]
}
