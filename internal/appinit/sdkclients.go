package appinit

import (
	"fmt"

	"github.com/JasonRUAN/SecureFileShare/internal/global"
	"github.com/hyperledger/fabric-sdk-go/pkg/client/channel"
	"github.com/hyperledger/fabric-sdk-go/pkg/client/event"
	"github.com/hyperledger/fabric-sdk-go/pkg/client/ledger"
	"github.com/hyperledger/fabric-sdk-go/pkg/client/msp"
	"github.com/hyperledger/fabric-sdk-go/pkg/client/resmgmt"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/context"
	"github.com/hyperledger/fabric-sdk-go/pkg/fabsdk"
	errors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// orgClients 为按 `orgName`、`username` 查找的客户端表
type orgClients[T any] map[string]map[string]*T

// channelClients 为按 `channelID`、`orgName`、`username` 查找的客户端表
type channelClients[T any] map[string]map[string]map[string]*T

// put 存入客户端，若已存在则返回 false。
func (m orgClients[T]) put(orgName, userID string, client *T) bool {
	if m[orgName] == nil {
		m[orgName] = make(map[string]*T)
	}

	if m[orgName][userID] != nil {
		return false
	}

	m[orgName][userID] = client
	return true
}

func (m channelClients[T]) put(channelID, orgName, userID string, client *T) bool {
	if m[channelID] == nil {
		m[channelID] = make(map[string]map[string]*T)
	}

	return orgClients[T](m[channelID]).put(orgName, userID, client)
}

// InstantiateResMgmtClient creates a resource management client for the user of the org as specified. The client will be available as singletons in `global.ResMgmtClientInstances`.
//
// Parameters:
//   organization name
//   user ID
func InstantiateResMgmtClient(orgName, userID string) error {
	if global.ResMgmtClientInstances == nil {
		global.ResMgmtClientInstances = make(map[string]map[string]*resmgmt.Client)
	}

	if global.ResMgmtClientInstances[orgName][userID] != nil {
		return fmt.Errorf("%v@%v 的资源管理客户端已实例化", userID, orgName)
	}

	resMgmtClient, err := resmgmt.New(global.SDKInstance.Context(fabsdk.WithUser(userID), fabsdk.WithOrg(orgName)))
	if err != nil {
		return errors.Wrapf(err, "无法为 %v@%v 创建资源管理客户端", userID, orgName)
	}

	orgClients[resmgmt.Client](global.ResMgmtClientInstances).put(orgName, userID, resMgmtClient)
	return nil
}

// InstantiateMSPClient creates an MSP client for the user of the org as specified. The MSP client will be available as singletons in `global.MSPClientInstances`.
//
// Parameters:
//   organization name
//   user ID
func InstantiateMSPClient(orgName, userID string) error {
	if global.MSPClientInstances == nil {
		global.MSPClientInstances = make(map[string]map[string]*msp.Client)
	}

	if global.MSPClientInstances[orgName][userID] != nil {
		return fmt.Errorf("%v@%v 的 MSP 客户端已实例化", userID, orgName)
	}

	mspClient, err := msp.New(global.SDKInstance.Context(fabsdk.WithUser(userID), fabsdk.WithOrg(orgName)), msp.WithOrg(orgName))
	if err != nil {
		return errors.Wrapf(err, "无法为 %v@%v 创建 MSP 客户端", userID, orgName)
	}

	orgClients[msp.Client](global.MSPClientInstances).put(orgName, userID, mspClient)
	return nil
}

// InstantiateChannelClient creates a channel client on the specified channel for the specified user in the specified org. The channel client will be available as singletons in `global.ChannelClientInstances`.
// Channel clients query chaincode, execute chaincode and register chaincode events on the channel.
func InstantiateChannelClient(sdk *fabsdk.FabricSDK, channelID, orgName, userID string) error {
	if global.ChannelClientInstances == nil {
		global.ChannelClientInstances = make(map[string]map[string]map[string]*channel.Client)
	}

	return instantiateChannelScopedClient(channelClients[channel.Client](global.ChannelClientInstances), "通道客户端", sdk, channelID, orgName, userID, channel.New)
}

// InstantiateLedgerClient creates a ledger client for the specified channel, org and user ID. The ledger client will be available as singletons in `global.LedgerClientInstances`.
// Ledger clients query blocks and transactions on the channel.
func InstantiateLedgerClient(sdk *fabsdk.FabricSDK, channelID, orgName, userID string) error {
	if global.LedgerClientInstances == nil {
		global.LedgerClientInstances = make(map[string]map[string]map[string]*ledger.Client)
	}

	return instantiateChannelScopedClient(channelClients[ledger.Client](global.LedgerClientInstances), "账本客户端", sdk, channelID, orgName, userID, ledger.New)
}

// InstantiateEventClient creates an event client for the specified channel, org and user ID. The event client will be available as singletons in `global.EventClientInstances`.
func InstantiateEventClient(sdk *fabsdk.FabricSDK, channelID, orgName, userID string) error {
	if global.EventClientInstances == nil {
		global.EventClientInstances = make(map[string]map[string]map[string]*event.Client)
	}

	// Full block events are needed so that chaincode events come with their payloads.
	newEventClient := func(channelProvider context.ChannelProvider, opts ...event.ClientOption) (*event.Client, error) {
		return event.New(channelProvider, append(opts, event.WithBlockEvents())...)
	}

	return instantiateChannelScopedClient(channelClients[event.Client](global.EventClientInstances), "事件客户端", sdk, channelID, orgName, userID, newEventClient)
}

func instantiateChannelScopedClient[T any, O any](clients channelClients[T], kind string, sdk *fabsdk.FabricSDK, channelID, orgName, userID string,
	newClient func(context.ChannelProvider, ...O) (*T, error)) error {
	if clients[channelID][orgName][userID] != nil {
		return fmt.Errorf("%v@%v 在通道 '%v' 上的%v已实例化", userID, orgName, channelID, kind)
	}

	client, err := newClient(sdk.ChannelContext(channelID, fabsdk.WithUser(userID), fabsdk.WithOrg(orgName)))
	if err != nil {
		return errors.Wrapf(err, "无法在通道 '%v' 上为 %v@%v 创建%v", channelID, userID, orgName, kind)
	}
	clients.put(channelID, orgName, userID, client)

	log.Printf("已在通道 '%v' 上为 %v@%v 创建%v。", channelID, userID, orgName, kind)

	return nil
}
