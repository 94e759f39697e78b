/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 *
 * Bus - 窗口间广播总线抽象
 *
 * 传输语义：尽力而为、至少一次、无顺序保证。
 * Publish 永不阻塞、永不向调用方抛错；传输失败直接吞掉。
 * 自己发出的消息由接收方按 from 过滤，发送方无需感知传输细节。
 */
package bus

import "errors"

var (
	// ErrClosed is returned by Close paths after the bus shuts down
	ErrClosed = errors.New("bus: closed")
)

// Handler receives messages published by other processes on the bus
type Handler func(msg Message)

// Bus is the best-effort broadcast channel connecting the processes of
// one application instance. At most one handler may be active per
// process; a second Subscribe replaces the first.
type Bus interface {
	// Publish is fire-and-forget: it never blocks and never surfaces
	// transport failures to the caller
	Publish(msg Message)
	// Subscribe installs the handler for inbound messages. Messages
	// whose envelope From equals this process's instance id are
	// filtered before the handler runs.
	Subscribe(handler Handler)
	// Close releases the transport. Idempotent.
	Close()
}
