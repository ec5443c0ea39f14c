package hub

import "sync"

// outbound 单个连接的有界发送队列
// Hub 持有发送端，连接的 writer 持有接收端；关闭只发生一次，且不会与发送并发
type outbound struct {
	mu     sync.Mutex
	ch     chan []byte
	closed bool
	reason CloseReason
}

// CloseReason 发送队列被关闭的原因，writer 据此选择关闭码
type CloseReason uint8

const (
	// CloseNone 队列仍然打开
	CloseNone CloseReason = iota
	// CloseDisconnected 连接自行断开
	CloseDisconnected
	// CloseShutdown 进程退出
	CloseShutdown
	// CloseEvicted 队列满，按慢消费者驱逐
	CloseEvicted
)

func (r CloseReason) String() string {
	switch r {
	case CloseDisconnected:
		return "disconnected"
	case CloseShutdown:
		return "shutdown"
	case CloseEvicted:
		return "evicted"
	}
	return "none"
}

func newOutbound(size int) *outbound {
	return &outbound{ch: make(chan []byte, size)}
}

// enqueueResult 非阻塞入队的结果
type enqueueResult uint8

const (
	enqueued enqueueResult = iota
	queueFull
	queueClosed
)

func (o *outbound) trySend(msg []byte) enqueueResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return queueClosed
	}
	select {
	case o.ch <- msg:
		return enqueued
	default:
		return queueFull
	}
}

// close 返回是否由本次调用关闭，原因只记录第一次
func (o *outbound) close(reason CloseReason) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return false
	}
	o.closed = true
	o.reason = reason
	close(o.ch)
	return true
}

func (o *outbound) closeReason() CloseReason {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reason
}
