/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 *
 * Message Envelope Tests
 */
package bus

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/maiguangyang/voice_core/pkg/session"
)

func TestNewMessageEnvelope(t *testing.T) {
	before := time.Now()
	msg := NewMessage(KindHeartbeat, "instance-1")

	if msg.Kind != KindHeartbeat {
		t.Errorf("Expected heartbeat, got %s", msg.Kind)
	}
	if msg.From != "instance-1" {
		t.Errorf("Expected instance-1, got %s", msg.From)
	}
	if msg.MessageID == "" {
		t.Error("MessageID should be generated")
	}
	if msg.SentAt().Before(before.Truncate(time.Millisecond)) {
		t.Errorf("SentAt %v earlier than construction time %v", msg.SentAt(), before)
	}
}

func TestMessageIDsAreUnique(t *testing.T) {
	a := NewHeartbeat("instance-1")
	b := NewHeartbeat("instance-1")

	if a.MessageID == b.MessageID {
		t.Error("Consecutive messages must get distinct ids")
	}
}

func TestMessageWireFieldNames(t *testing.T) {
	// 信封字段名是跨进程兼容面
	msg := NewCommand("instance-1", Command{Type: CommandToggleMute})

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	wire := string(data)
	for _, key := range []string{
		`"kind":"command"`,
		`"from":"instance-1"`,
		`"timestamp"`,
		`"messageId"`,
		`"type":"toggleMute"`,
	} {
		if !strings.Contains(wire, key) {
			t.Errorf("Wire format missing %s in %s", key, wire)
		}
	}
}

func TestMessageRoundTrip(t *testing.T) {
	original := NewState("instance-1", session.Snapshot{
		Phase:   session.PhaseConnected,
		IsMuted: true,
		Channel: &session.Channel{ID: "ch-1", Kind: session.ChannelKindVoice},
	})

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded.MessageID != original.MessageID {
		t.Errorf("MessageID mismatch: %s != %s", decoded.MessageID, original.MessageID)
	}
	if decoded.State == nil || decoded.State.Phase != session.PhaseConnected {
		t.Error("Snapshot payload lost in transit")
	}
	if !decoded.State.IsMuted {
		t.Error("IsMuted lost in transit")
	}
}

func TestNewInstanceIDUnique(t *testing.T) {
	if NewInstanceID() == NewInstanceID() {
		t.Error("Instance ids must be unique")
	}
}
