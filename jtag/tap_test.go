package jtag

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		name string
		from State
		tms  bool
		want State
	}{
		{"reset holds under tms high", StateTestLogicReset, true, StateTestLogicReset},
		{"reset releases to idle", StateTestLogicReset, false, StateRunTestIdle},
		{"idle holds under tms low", StateRunTestIdle, false, StateRunTestIdle},
		{"idle enters dr scan", StateRunTestIdle, true, StateSelectDRScan},
		{"select dr to capture", StateSelectDRScan, false, StateCaptureDR},
		{"select dr to select ir", StateSelectDRScan, true, StateSelectIRScan},
		{"capture dr to shift", StateCaptureDR, false, StateShiftDR},
		{"capture dr skips shift", StateCaptureDR, true, StateExit1DR},
		{"shift dr holds", StateShiftDR, false, StateShiftDR},
		{"shift dr exits", StateShiftDR, true, StateExit1DR},
		{"exit1 dr to pause", StateExit1DR, false, StatePauseDR},
		{"exit1 dr to update", StateExit1DR, true, StateUpdateDR},
		{"pause dr holds", StatePauseDR, false, StatePauseDR},
		{"pause dr to exit2", StatePauseDR, true, StateExit2DR},
		{"exit2 dr back to shift", StateExit2DR, false, StateShiftDR},
		{"exit2 dr to update", StateExit2DR, true, StateUpdateDR},
		{"update dr to idle", StateUpdateDR, false, StateRunTestIdle},
		{"update dr chains scans", StateUpdateDR, true, StateSelectDRScan},
		{"select ir to capture", StateSelectIRScan, false, StateCaptureIR},
		{"select ir to reset", StateSelectIRScan, true, StateTestLogicReset},
		{"capture ir to shift", StateCaptureIR, false, StateShiftIR},
		{"shift ir holds", StateShiftIR, false, StateShiftIR},
		{"shift ir exits", StateShiftIR, true, StateExit1IR},
		{"exit1 ir to update", StateExit1IR, true, StateUpdateIR},
		{"pause ir to exit2", StatePauseIR, true, StateExit2IR},
		{"exit2 ir back to shift", StateExit2IR, false, StateShiftIR},
		{"update ir to idle", StateUpdateIR, false, StateRunTestIdle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.from.Next(tt.tms)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Next(%v) from %v mismatch (-want +got):\n%s",
					tt.tms, tt.from, diff)
			}
		})
	}
}

func TestFiveTMSHighEdgesReset(t *testing.T) {
	// From any state, five TMS-high edges must land in
	// test-logic-reset.
	for s := StateTestLogicReset; s <= StateUpdateIR; s++ {
		cur := s
		for i := 0; i < 5; i++ {
			cur = cur.Next(true)
		}
		if cur != StateTestLogicReset {
			t.Errorf("from %v: got %v after five TMS-high edges", s, cur)
		}
	}
}
