package global

import (
	"github.com/hyperledger/fabric-sdk-go/pkg/client/channel"
	"github.com/hyperledger/fabric-sdk-go/pkg/client/event"
	"github.com/hyperledger/fabric-sdk-go/pkg/client/ledger"
	"github.com/hyperledger/fabric-sdk-go/pkg/client/msp"
	"github.com/hyperledger/fabric-sdk-go/pkg/client/resmgmt"
	"github.com/hyperledger/fabric-sdk-go/pkg/fabsdk"
)

// Fabric SDK 实例及由其创建的客户端。组织级客户端按 `orgName`、`username` 查找，通道级客户端按 `channelID`、`orgName`、`username` 查找。
var (
	SDKInstance            *fabsdk.FabricSDK
	ResMgmtClientInstances map[string]map[string]*resmgmt.Client
	MSPClientInstances     map[string]map[string]*msp.Client
	ChannelClientInstances map[string]map[string]map[string]*channel.Client
	EventClientInstances   map[string]map[string]map[string]*event.Client
	LedgerClientInstances  map[string]map[string]map[string]*ledger.Client
)

// ShowTimingLogs 控制是否以 debug 级别输出操作耗时
var ShowTimingLogs bool

// CloseSDK 关闭 SDK 实例并清空由它创建的客户端。
func CloseSDK() {
	if SDKInstance != nil {
		SDKInstance.Close()
	}

	SDKInstance = nil
	ResMgmtClientInstances = nil
	MSPClientInstances = nil
	ChannelClientInstances = nil
	EventClientInstances = nil
	LedgerClientInstances = nil
}
