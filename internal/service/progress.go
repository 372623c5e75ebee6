package service

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// ProgressFunc 接收 0 到 100 之间的进度百分比。只用于展示，不影响流程。
type ProgressFunc func(percent int)

// progressReporter 保证进度单调递增，并吞掉回调中的 panic
type progressReporter struct {
	mu   sync.Mutex
	fn   ProgressFunc
	last int
}

func newProgressReporter(fn ProgressFunc) *progressReporter {
	return &progressReporter{fn: fn, last: -1}
}

func (p *progressReporter) report(percent int) {
	if p == nil || p.fn == nil {
		return
	}

	if percent > 100 {
		percent = 100
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if percent <= p.last {
		return
	}
	p.last = percent

	defer func() {
		if r := recover(); r != nil {
			log.Warnf("进度回调出错: %v", r)
		}
	}()
	p.fn(percent)
}
