/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 *
 * Role resolution - 进程角色判定
 *
 * 角色在进程启动时由外部显式传入（主窗口 = Owner，悬浮窗 = Follower），
 * 首次解析后锁定，进程生命周期内不再变化。
 */
package session

import "sync"

// SurfaceKind is the static marker the embedding shell knows at startup
type SurfaceKind int

const (
	// SurfaceMain is the primary application window
	SurfaceMain SurfaceKind = iota
	// SurfaceOverlay is the borderless overlay window
	SurfaceOverlay
)

// RoleResolver latches the process role on first resolution.
// Subsequent calls return the latched role regardless of the marker.
type RoleResolver struct {
	mu      sync.Mutex
	latched bool
	role    Role
}

// Resolve maps the surface marker to a role. There is no error path:
// a default role is always producible (the main surface owns the call).
func (r *RoleResolver) Resolve(surface SurfaceKind) Role {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.latched {
		return r.role
	}

	r.role = RoleOwner
	if surface == SurfaceOverlay {
		r.role = RoleFollower
	}
	r.latched = true
	return r.role
}

// Resolved returns the latched role and whether Resolve has run
func (r *RoleResolver) Resolved() (Role, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.role, r.latched
}
