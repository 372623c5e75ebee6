package background

import (
	"fmt"
	"sync"
)

// backgroundServerStatus 保证一个后台服务不会被重复启动或停止
type backgroundServerStatus struct {
	mu         sync.RWMutex
	name       string
	isStarting bool
	isStarted  bool
	isStopping bool
}

func newBackgroundServerStatus(name string) *backgroundServerStatus {
	return &backgroundServerStatus{
		mu:   sync.RWMutex{},
		name: name,
	}
}

// beginStart 标记服务正在启动。服务正在启动或已启动时返回错误。
func (s *backgroundServerStatus) beginStart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isStarting {
		return fmt.Errorf("%v正在启动", s.name)
	} else if s.isStarted {
		return fmt.Errorf("%v已启动", s.name)
	}

	s.isStarting = true
	return nil
}

// finishStart 结束启动过程。ok 为 false 表示启动失败。
func (s *backgroundServerStatus) finishStart(ok bool) {
	s.mu.Lock()
	s.isStarting = false
	s.isStarted = ok
	s.mu.Unlock()
}

// beginStop 标记服务正在停止。服务正在停止或未启动时返回错误。
func (s *backgroundServerStatus) beginStop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isStopping {
		return fmt.Errorf("%v正在停止", s.name)
	} else if !s.isStarted {
		return fmt.Errorf("%v未启动", s.name)
	}

	s.isStopping = true
	return nil
}

func (s *backgroundServerStatus) finishStop() {
	s.mu.Lock()
	s.isStopping = false
	s.isStarted = false
	s.mu.Unlock()
}

func (s *backgroundServerStatus) getIsStarted() bool {
	s.mu.RLock()
	ret := s.isStarted
	s.mu.RUnlock()
	return ret
}
