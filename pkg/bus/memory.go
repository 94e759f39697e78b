/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 *
 * MemoryBus - 同进程广播后端
 *
 * 当两个窗口共享同一进程上下文时使用的低延迟后端。
 * Group 维护成员列表，Publish 异步投递到每个成员的收件通道，
 * 通道满则丢弃（尽力而为语义）。
 */
package bus

import (
	"sync"

	"github.com/maiguangyang/voice_core/pkg/utils"
)

// memoryInboxSize bounds each member's pending inbound messages.
// Overflow is dropped; the protocol tolerates loss.
const memoryInboxSize = 64

// Group is the shared registry of in-process bus members. Both windows
// hold a reference to the same Group when they run in one process.
type Group struct {
	mu      sync.RWMutex
	members map[string]*MemoryBus
	closed  bool

	logger *utils.Logger
}

// NewGroup creates an empty in-process broadcast group
func NewGroup() *Group {
	return &Group{
		members: make(map[string]*MemoryBus),
		logger:  utils.NewLogger("bus.memory"),
	}
}

// Join adds a member and returns its bus endpoint. Joining twice with
// the same instance id replaces the previous member.
func (g *Group) Join(instanceID string) *MemoryBus {
	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.members[instanceID]; ok {
		existing.shutdown()
	}

	m := &MemoryBus{
		group:      g,
		instanceID: instanceID,
		inbox:      make(chan Message, memoryInboxSize),
		stopCh:     make(chan struct{}),
	}
	g.members[instanceID] = m

	go m.runLoop()
	return m
}

// Size returns the current member count
func (g *Group) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.members)
}

// broadcast delivers to every member's inbox without blocking.
// The sender's own copy is filtered by the receiving side.
func (g *Group) broadcast(msg Message) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.closed {
		return
	}

	for _, m := range g.members {
		select {
		case m.inbox <- msg:
		default:
			// inbox full, drop
			g.logger.Warn("member %s inbox full, dropping %s message", m.instanceID, msg.Kind)
		}
	}
}

func (g *Group) leave(instanceID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.members, instanceID)
}

// Close shuts down all members
func (g *Group) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	members := make([]*MemoryBus, 0, len(g.members))
	for _, m := range g.members {
		members = append(members, m)
	}
	g.members = make(map[string]*MemoryBus)
	g.mu.Unlock()

	for _, m := range members {
		m.shutdown()
	}
}

// MemoryBus is one member's endpoint on a Group
type MemoryBus struct {
	mu         sync.RWMutex
	group      *Group
	instanceID string
	handler    Handler
	inbox      chan Message
	stopCh     chan struct{}
	closed     bool
}

// Publish broadcasts to the whole group, itself included; receivers
// drop their own echoes
func (b *MemoryBus) Publish(msg Message) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return
	}
	b.group.broadcast(msg)
}

// Subscribe installs the inbound handler, replacing any previous one
func (b *MemoryBus) Subscribe(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = handler
}

// runLoop pumps the inbox into the handler
func (b *MemoryBus) runLoop() {
	for {
		select {
		case <-b.stopCh:
			return
		case msg := <-b.inbox:
			if msg.From == b.instanceID {
				// own echo, receiver-side filtering
				continue
			}
			b.mu.RLock()
			handler := b.handler
			b.mu.RUnlock()
			if handler != nil {
				handler(msg)
			}
		}
	}
}

func (b *MemoryBus) shutdown() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	close(b.stopCh)
}

// Close removes this member from the group
func (b *MemoryBus) Close() {
	b.shutdown()
	b.group.leave(b.instanceID)
}
