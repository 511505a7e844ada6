// Package jtag implements the serial scan transport that carries DMI
// frames: the test access port state machine, the target-side debug
// transport module, and the client-side framer that drives it.
package jtag

// State is a TAP controller state.
type State uint8

// The sixteen TAP controller states.
const (
	StateTestLogicReset State = iota
	StateRunTestIdle
	StateSelectDRScan
	StateCaptureDR
	StateShiftDR
	StateExit1DR
	StatePauseDR
	StateExit2DR
	StateUpdateDR
	StateSelectIRScan
	StateCaptureIR
	StateShiftIR
	StateExit1IR
	StatePauseIR
	StateExit2IR
	StateUpdateIR
)

// tapNext is the TMS transition table: [state][tms].
var tapNext = [16][2]State{
	StateTestLogicReset: {StateRunTestIdle, StateTestLogicReset},
	StateRunTestIdle:    {StateRunTestIdle, StateSelectDRScan},
	StateSelectDRScan:   {StateCaptureDR, StateSelectIRScan},
	StateCaptureDR:      {StateShiftDR, StateExit1DR},
	StateShiftDR:        {StateShiftDR, StateExit1DR},
	StateExit1DR:        {StatePauseDR, StateUpdateDR},
	StatePauseDR:        {StatePauseDR, StateExit2DR},
	StateExit2DR:        {StateShiftDR, StateUpdateDR},
	StateUpdateDR:       {StateRunTestIdle, StateSelectDRScan},
	StateSelectIRScan:   {StateCaptureIR, StateTestLogicReset},
	StateCaptureIR:      {StateShiftIR, StateExit1IR},
	StateShiftIR:        {StateShiftIR, StateExit1IR},
	StateExit1IR:        {StatePauseIR, StateUpdateIR},
	StatePauseIR:        {StatePauseIR, StateExit2IR},
	StateExit2IR:        {StateShiftIR, StateUpdateIR},
	StateUpdateIR:       {StateRunTestIdle, StateSelectDRScan},
}

// Next returns the state after one TCK edge with the given TMS level.
func (s State) Next(tms bool) State {
	if tms {
		return tapNext[s][1]
	}
	return tapNext[s][0]
}

// String returns the state name.
func (s State) String() string {
	names := [...]string{
		"TestLogicReset",
		"RunTestIdle",
		"SelectDRScan",
		"CaptureDR",
		"ShiftDR",
		"Exit1DR",
		"PauseDR",
		"Exit2DR",
		"UpdateDR",
		"SelectIRScan",
		"CaptureIR",
		"ShiftIR",
		"Exit1IR",
		"PauseIR",
		"Exit2IR",
		"UpdateIR",
	}
	if int(s) < len(names) {
		return names[s]
	}
	return "Unknown"
}
