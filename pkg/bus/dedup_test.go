/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 *
 * Dedup Tests
 */
package bus

import (
	"fmt"
	"testing"
)

func TestDedupFirstTimeNotSeen(t *testing.T) {
	d := NewDedup(16)

	if d.Seen("msg-1") {
		t.Error("First sighting should not be seen")
	}
	if !d.Seen("msg-1") {
		t.Error("Second sighting should be seen")
	}
}

func TestDedupIndependentIDs(t *testing.T) {
	d := NewDedup(16)

	d.Seen("msg-1")
	if d.Seen("msg-2") {
		t.Error("Different id should not be seen")
	}
	if d.Len() != 2 {
		t.Errorf("Expected 2 entries, got %d", d.Len())
	}
}

func TestDedupFIFOEviction(t *testing.T) {
	d := NewDedup(3)

	d.Seen("a")
	d.Seen("b")
	d.Seen("c")
	// 超出容量，最老的 a 被淘汰
	d.Seen("d")

	if d.Len() != 3 {
		t.Errorf("Expected 3 entries after eviction, got %d", d.Len())
	}
	if d.Seen("a") {
		t.Error("Evicted id should count as unseen again")
	}
	if !d.Seen("d") {
		t.Error("Recent id should still be seen")
	}
}

func TestDedupDefaultCapacity(t *testing.T) {
	d := NewDedup(0)

	for i := 0; i < DefaultDedupCapacity+10; i++ {
		d.Seen(fmt.Sprintf("msg-%d", i))
	}
	if d.Len() != DefaultDedupCapacity {
		t.Errorf("Expected %d entries, got %d", DefaultDedupCapacity, d.Len())
	}
}
