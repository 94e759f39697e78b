/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 */
package voice

import "errors"

var (
	// ErrOwnerUnavailable means no live owner window was seen within
	// the staleness threshold; the command was not sent
	ErrOwnerUnavailable = errors.New("voice: owner window not available")

	// ErrNoChannel is returned when a connect command carries no channel
	ErrNoChannel = errors.New("voice: no channel specified")

	// ErrClosed is returned from operations on a closed store
	ErrClosed = errors.New("voice: store closed")
)

// OwnerUnavailableMessage is the user-visible error surfaced on the
// follower when commands cannot be relayed
const OwnerUnavailableMessage = "voice host not available"
