/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 *
 * Buffer Pool - 字节切片缓存池
 * 中继总线读帧时复用缓冲，减少高频小消息带来的分配和 GC 压力
 */
package utils

import (
	"sync"
)

// 默认缓冲区大小，覆盖绝大多数 JSON 总线帧（快照含参会者列表）
const defaultBufferSize = 4096

// 超过此大小的缓冲不放回池中，防止内存占用过高
const maxPooledSize = 16384

var bufferPool = sync.Pool{
	New: func() interface{} {
		return make([]byte, defaultBufferSize)
	},
}

// GetBuffer 获取一个长度为 length 的切片，可能是复用的
func GetBuffer(length int) []byte {
	buf := bufferPool.Get().([]byte)

	// cap 不够时直接分配新的，不从池中取
	if cap(buf) < length {
		bufferPool.Put(buf)
		return make([]byte, length)
	}

	return buf[:length]
}

// PutBuffer 将切片放回池中。太小或太大的碎片不回收。
func PutBuffer(buf []byte) {
	if cap(buf) < defaultBufferSize || cap(buf) > maxPooledSize {
		return
	}
	bufferPool.Put(buf[:cap(buf)])
}
