/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 *
 * Session Type Tests
 */
package session

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPhaseBusy(t *testing.T) {
	busy := map[Phase]bool{
		PhaseDisconnected: false,
		PhaseConnecting:   true,
		PhaseConnected:    false,
		PhaseReconnecting: true,
	}
	for phase, expected := range busy {
		if phase.Busy() != expected {
			t.Errorf("Phase %s: expected Busy=%v", phase, expected)
		}
	}
}

func TestSnapshotCloneIsDeep(t *testing.T) {
	original := Snapshot{
		Phase: PhaseConnected,
		Participants: []Participant{
			{Identity: "alice", IsLocal: true},
			{Identity: "bob"},
		},
		Local:   &Participant{Identity: "alice", IsLocal: true},
		Channel: &Channel{ID: "ch-1", Name: "General"},
	}

	clone := original.Clone()
	clone.Participants[0].Identity = "mallory"
	clone.Local.IsMuted = true
	clone.Channel.ID = "ch-2"

	if original.Participants[0].Identity != "alice" {
		t.Error("Clone shares the participants slice")
	}
	if original.Local.IsMuted {
		t.Error("Clone shares the local participant pointer")
	}
	if original.Channel.ID != "ch-1" {
		t.Error("Clone shares the channel pointer")
	}
}

func TestSnapshotWireFieldNames(t *testing.T) {
	// 字段名是与对端窗口的兼容面，不能改
	snap := Snapshot{
		Phase:   PhaseConnecting,
		Channel: &Channel{ID: "ch-1"},
		Local:   &Participant{Identity: "alice", IsLocal: true},
	}

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	wire := string(data)
	for _, key := range []string{
		`"connectionPhase":"connecting"`,
		`"activeChannel"`,
		`"localParticipant"`,
		`"devicePreferences"`,
		`"isMuted"`,
	} {
		if !strings.Contains(wire, key) {
			t.Errorf("Wire format missing %s in %s", key, wire)
		}
	}
}

func TestEmptySnapshot(t *testing.T) {
	snap := EmptySnapshot()
	if snap.Phase != PhaseDisconnected {
		t.Errorf("Expected disconnected, got %s", snap.Phase)
	}
	if snap.Channel != nil || snap.Participants != nil {
		t.Error("Empty snapshot should carry no channel or participants")
	}
}
