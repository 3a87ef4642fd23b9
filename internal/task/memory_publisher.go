package task

import (
	"context"
	"errors"
	"sync"
)

// MemoryPublisher 使用 channel 暂存事件，主要用于测试和单机运行。
type MemoryPublisher struct {
	ch     chan Event
	mu     sync.Mutex
	closed bool
}

// NewMemoryPublisher 创建一个内存事件通道。
func NewMemoryPublisher(size int) *MemoryPublisher {
	if size <= 0 {
		size = 64
	}
	return &MemoryPublisher{ch: make(chan Event, size)}
}

// Publish 将事件写入通道。缓冲区已满时直接丢弃最旧的事件。
func (p *MemoryPublisher) Publish(ctx context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("事件通道已关闭")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for {
		select {
		case p.ch <- event:
			return nil
		default:
		}
		select {
		case <-p.ch:
		default:
		}
	}
}

// Events 返回只读事件通道。
func (p *MemoryPublisher) Events() <-chan Event {
	return p.ch
}

// Close 关闭事件通道。
func (p *MemoryPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		close(p.ch)
		p.closed = true
	}
	return nil
}

var _ Publisher = (*MemoryPublisher)(nil)
