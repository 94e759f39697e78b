/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 *
 * Role Resolution Tests
 */
package session

import (
	"testing"
)

func TestResolveMainSurface(t *testing.T) {
	r := &RoleResolver{}

	role := r.Resolve(SurfaceMain)
	if role != RoleOwner {
		t.Errorf("Expected owner for main surface, got %s", role)
	}
}

func TestResolveOverlaySurface(t *testing.T) {
	r := &RoleResolver{}

	role := r.Resolve(SurfaceOverlay)
	if role != RoleFollower {
		t.Errorf("Expected follower for overlay surface, got %s", role)
	}
}

func TestResolveLatchesFirstResult(t *testing.T) {
	r := &RoleResolver{}

	first := r.Resolve(SurfaceOverlay)
	// 之后换标记也不改变已锁定的角色
	second := r.Resolve(SurfaceMain)

	if first != RoleFollower {
		t.Errorf("Expected follower, got %s", first)
	}
	if second != first {
		t.Errorf("Role changed after latch: %s -> %s", first, second)
	}
}

func TestResolvedBeforeResolve(t *testing.T) {
	r := &RoleResolver{}

	if _, ok := r.Resolved(); ok {
		t.Error("Resolved should report false before first Resolve")
	}

	r.Resolve(SurfaceMain)

	role, ok := r.Resolved()
	if !ok {
		t.Error("Resolved should report true after Resolve")
	}
	if role != RoleOwner {
		t.Errorf("Expected owner, got %s", role)
	}
}

func TestRoleString(t *testing.T) {
	if RoleOwner.String() != "owner" {
		t.Errorf("Expected owner, got %s", RoleOwner.String())
	}
	if RoleFollower.String() != "follower" {
		t.Errorf("Expected follower, got %s", RoleFollower.String())
	}
}
