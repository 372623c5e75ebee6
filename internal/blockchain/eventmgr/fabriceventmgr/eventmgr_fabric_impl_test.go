package fabriceventmgr

import (
	"testing"
	"time"

	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/fab"
	"github.com/stretchr/testify/assert"
)

type fakeRegistrar struct {
	events       chan *fab.CCEvent
	chaincodeID  string
	eventFilter  string
	unregistered bool
}

func (r *fakeRegistrar) RegisterChaincodeEvent(chainCodeID string, eventFilter string) (fab.Registration, <-chan *fab.CCEvent, error) {
	r.chaincodeID = chainCodeID
	r.eventFilter = eventFilter
	return "reg", r.events, nil
}

func (r *fakeRegistrar) UnregisterChaincodeEvent(registration fab.Registration) {
	r.unregistered = true
}

func TestRegisterAndUnregisterEvent(t *testing.T) {
	registrar := &fakeRegistrar{events: make(chan *fab.CCEvent, 1)}
	m := NewFabricEventManager(registrar, "filereg")

	reg, notifier, err := m.RegisterEvent("file_created")
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, "filereg", registrar.chaincodeID)
	assert.Equal(t, "file_created", reg.GetEventID())
	assert.Equal(t, 1, m.registrations.Len())

	registrar.events <- &fab.CCEvent{TxID: "tx1", EventName: "file_created", Payload: []byte("{}"), BlockNumber: 7}
	select {
	case event := <-notifier:
		assert.Equal(t, "tx1", event.GetTxID())
		assert.Equal(t, uint64(7), event.GetBlockNumber())
		assert.Equal(t, []byte("{}"), event.GetPayload())
	case <-time.After(time.Second):
		t.Fatal("没有收到事件")
	}

	assert.NoError(t, m.UnregisterEvent(reg))
	assert.True(t, registrar.unregistered)
	assert.Equal(t, 0, m.registrations.Len())

	// 注销后通知通道被关闭
	select {
	case _, ok := <-notifier:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("通知通道没有关闭")
	}

	assert.Error(t, m.UnregisterEvent(reg))
}
