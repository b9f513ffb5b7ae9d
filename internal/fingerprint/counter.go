package fingerprint

import "sync"

// State 为指纹的三态计数。
type State uint8

const (
	Unseen State = iota
	SeenOnce
	SeenMultiple
)

func (s State) String() string {
	switch s {
	case SeenOnce:
		return "seen-once"
	case SeenMultiple:
		return "seen-multiple"
	default:
		return "unseen"
	}
}

// Counter 记录每个指纹的三态计数。
// 约束：
//  1. Observe 只会使状态前进（unseen → seen-once → seen-multiple），顺序无关；
//  2. Consume 将指纹复位为 unseen 并返回复位前的状态；
//  3. 全部方法并发安全（单把锁）。
type Counter struct {
	mu sync.Mutex
	m  map[FP]State
}

// NewCounter 创建计数器；hint 为预估容量。
func NewCounter(hint int) *Counter {
	return &Counter{m: make(map[FP]State, hint)}
}

// ObserveAll 并入一批观测。
func (c *Counter) ObserveAll(fps []FP) {
	c.mu.Lock()
	for _, fp := range fps {
		if c.m[fp] == Unseen {
			c.m[fp] = SeenOnce
		} else {
			c.m[fp] = SeenMultiple
		}
	}
	c.mu.Unlock()
}

// State 返回 fp 当前状态。
func (c *Counter) State(fp FP) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m[fp]
}

// Consume 复位 fp 并返回复位前的状态。
func (c *Counter) Consume(fp FP) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.m[fp]
	delete(c.m, fp)
	return st
}

// Len 返回仍被计数的指纹数。
func (c *Counter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}
