/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 *
 * Backend selection - 总线后端一次性选择
 *
 * 优先使用同进程的低延迟 MemoryBus；两个窗口是独立进程、
 * 没有共享 Group 时退回 WebSocket 中继。选择只做一次，
 * 使用方对后端无感知。
 */
package bus

// Options describes what is reachable from this process
type Options struct {
	// InstanceID tags every published message
	InstanceID string
	// Group is non-nil when both windows share this process context
	Group *Group
	// RelayAddr is the host:port of the cross-process relay, used
	// when no Group is available
	RelayAddr string
}

// Select picks the backend once. It prefers the in-context primitive
// and falls back to the cross-process relay when unavailable.
func Select(opts Options) Bus {
	if opts.Group != nil {
		return opts.Group.Join(opts.InstanceID)
	}
	return NewRelayBus(opts.RelayAddr, opts.InstanceID)
}
