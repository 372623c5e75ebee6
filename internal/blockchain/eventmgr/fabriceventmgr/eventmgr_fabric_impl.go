package fabriceventmgr

import (
	"fmt"

	"github.com/JasonRUAN/SecureFileShare/internal/blockchain/eventmgr"
	"github.com/hyperledger/fabric-sdk-go/pkg/client/event"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/fab"
)

// EventRegistrar 为能够注册链码事件的 Fabric 客户端。`channel.Client` 直接满足，`event.Client` 经 `FromEventClient` 包装后满足。
type EventRegistrar interface {
	RegisterChaincodeEvent(chainCodeID string, eventFilter string) (fab.Registration, <-chan *fab.CCEvent, error)
	UnregisterChaincodeEvent(registration fab.Registration)
}

type eventClientRegistrar struct {
	*event.Client
}

func (r eventClientRegistrar) UnregisterChaincodeEvent(registration fab.Registration) {
	r.Unregister(registration)
}

// FromEventClient 将事件客户端包装为 EventRegistrar。
func FromEventClient(client *event.Client) EventRegistrar {
	return eventClientRegistrar{Client: client}
}

// FabricEventManager 监听一个链码的事件。
type FabricEventManager struct {
	registrar     EventRegistrar
	chaincodeID   string
	registrations *eventmgr.RegistrationTable
}

func NewFabricEventManager(registrar EventRegistrar, chaincodeID string) *FabricEventManager {
	return &FabricEventManager{
		registrar:     registrar,
		chaincodeID:   chaincodeID,
		registrations: eventmgr.NewRegistrationTable(),
	}
}

func (m *FabricEventManager) RegisterEvent(eventID string) (eventmgr.IEventRegistration, <-chan eventmgr.IEvent, error) {
	rawReg, rawNotifier, err := m.registrar.RegisterChaincodeEvent(m.chaincodeID, eventID)
	if err != nil {
		return nil, nil, fmt.Errorf("无法监听链码事件 '%v': %v", eventID, err)
	}

	fabricReg := &FabricEventRegistration{
		reg:     rawReg,
		eventID: eventID,
	}

	notifier := make(chan eventmgr.IEvent)
	quitChan := m.registrations.Track(fabricReg)
	// 后台将收到的 Fabric 事件转为 `eventmgr.IEvent`
	go func() {
		defer close(notifier)
		for {
			select {
			case event, ok := <-rawNotifier:
				if !ok {
					return
				}
				select {
				case notifier <- (*FabricEvent)(event):
				case <-quitChan:
					return
				}
			case <-quitChan:
				return
			}
		}
	}()

	return fabricReg, notifier, nil
}

func (m *FabricEventManager) UnregisterEvent(reg eventmgr.IEventRegistration) error {
	fabricReg, ok := reg.(*FabricEventRegistration)
	if !ok {
		return fmt.Errorf("不是由 Fabric 事件管理器产生的注册")
	}

	// 先停止接收，再结束后台转换
	return m.registrations.Release(fabricReg, func() {
		m.registrar.UnregisterChaincodeEvent(fabricReg.reg)
	})
}

type FabricEventRegistration struct {
	reg     fab.Registration
	eventID string
}

func (r *FabricEventRegistration) GetEventID() string {
	return r.eventID
}

type FabricEvent fab.CCEvent

func (e *FabricEvent) GetEventName() string {
	return e.EventName
}

func (e *FabricEvent) GetPayload() []byte {
	return e.Payload
}

func (e *FabricEvent) GetBlockNumber() uint64 {
	return e.BlockNumber
}

func (e *FabricEvent) GetTxID() string {
	return e.TxID
}
