package eventmgr

import (
	"fmt"
	"sync"
)

// IEventManager 用于监听链码事件。事件来源（链码）由事件管理器的上下文决定。
type IEventManager interface {
	// RegisterEvent 监听名称为 `eventID` 的链码事件。
	//
	// Returns:
	//   the registration (used to unregister the event)
	//   the event channel, closed after the registration is released
	RegisterEvent(eventID string) (IEventRegistration, <-chan IEvent, error)

	// UnregisterEvent 注销由同一个事件管理器产生的注册。
	UnregisterEvent(reg IEventRegistration) error
}

type IEventRegistration interface {
	GetEventID() string
}

type IEvent interface {
	GetEventName() string
	GetPayload() []byte
	GetBlockNumber() uint64
	GetTxID() string
}

// RegistrationTable 记录每个注册对应的退出通道，供事件管理器的实现复用。
type RegistrationTable struct {
	lock      sync.Mutex
	quitChans map[IEventRegistration]chan struct{}
}

func NewRegistrationTable() *RegistrationTable {
	return &RegistrationTable{quitChans: make(map[IEventRegistration]chan struct{})}
}

// Track 记录注册并返回其退出通道。
func (t *RegistrationTable) Track(reg IEventRegistration) <-chan struct{} {
	t.lock.Lock()
	defer t.lock.Unlock()

	quitChan := make(chan struct{})
	t.quitChans[reg] = quitChan
	return quitChan
}

// Release 关闭注册的退出通道并移除记录。`beforeClose` 在关闭前调用，用于注销底层的监听。
func (t *RegistrationTable) Release(reg IEventRegistration, beforeClose func()) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	quitChan, ok := t.quitChans[reg]
	if !ok {
		return fmt.Errorf("事件 '%v' 未注册", reg.GetEventID())
	}

	if beforeClose != nil {
		beforeClose()
	}
	close(quitChan)
	delete(t.quitChans, reg)

	return nil
}

// Len 返回当前的注册数
func (t *RegistrationTable) Len() int {
	t.lock.Lock()
	defer t.lock.Unlock()

	return len(t.quitChans)
}
