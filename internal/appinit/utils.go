package appinit

import (
	"fmt"
	"sort"

	"github.com/JasonRUAN/SecureFileShare/internal/blockchain/chaincodectx"
	"github.com/JasonRUAN/SecureFileShare/internal/global"
	"github.com/hyperledger/fabric-sdk-go/pkg/core/config"
	"github.com/hyperledger/fabric-sdk-go/pkg/fabsdk"
	errors "github.com/pkg/errors"
)

// SetupSDK creates a Fabric SDK instance from the specified config file. The SDK instance will be available as `global.SDKInstance`.
//
// Parameters:
//   the path to the config file
func SetupSDK(configFilePath string) error {
	configProvider := config.FromFile(configFilePath)
	sdk, err := fabsdk.New(configProvider)
	if err != nil {
		return errors.Wrap(err, "初始化 Fabric SDK 失败")
	}
	global.SDKInstance = sdk

	return nil
}

// InitApp 按初始化配置创建客户端、配置通道并部署链码。各步骤可重复执行。
func InitApp(initInfo *InitInfo) error {
	sdk := global.SDKInstance
	if sdk == nil {
		return fmt.Errorf("无法初始化应用: Fabric SDK 未实例化")
	}

	if err := initInfo.Validate(); err != nil {
		return err
	}

	err := forEachIdentity(initInfo.Users, func(orgName, userID string) error {
		if err := InstantiateResMgmtClient(orgName, userID); err != nil {
			return err
		}
		return InstantiateMSPClient(orgName, userID)
	})
	if err != nil {
		return err
	}

	channelIDs := sortedKeys(initInfo.Channels)
	for _, channelID := range channelIDs {
		if err := configureChannel(channelID, initInfo.Channels[channelID]); err != nil {
			return err
		}
	}

	// 通道配置完成后才能创建通道级客户端
	for _, channelID := range channelIDs {
		err := forEachIdentity(initInfo.Users, func(orgName, userID string) error {
			if err := InstantiateChannelClient(sdk, channelID, orgName, userID); err != nil {
				return err
			}
			return InstantiateLedgerClient(sdk, channelID, orgName, userID)
		})
		if err != nil {
			return err
		}
	}

	for _, ccID := range sortedKeys(initInfo.Chaincodes) {
		if err := configureChaincode(ccID, initInfo.Chaincodes[ccID]); err != nil {
			return err
		}
	}

	return nil
}

// InstantiateServerClients creates the clients the operating user of server.yaml needs on each of the channels.
func InstantiateServerClients(serverInfo *ServerInfo) error {
	sdk := global.SDKInstance
	if sdk == nil {
		return fmt.Errorf("Fabric SDK 未实例化")
	}

	orgName := serverInfo.User.OrgName
	userID := serverInfo.User.UserID

	if err := InstantiateResMgmtClient(orgName, userID); err != nil {
		return err
	}

	if err := InstantiateMSPClient(orgName, userID); err != nil {
		return err
	}

	for _, channelID := range serverInfo.Channels {
		if err := InstantiateChannelClient(sdk, channelID, orgName, userID); err != nil {
			return err
		}

		if err := InstantiateLedgerClient(sdk, channelID, orgName, userID); err != nil {
			return err
		}

		if err := InstantiateEventClient(sdk, channelID, orgName, userID); err != nil {
			return err
		}
	}

	return nil
}

// NewChaincodeCtx collects the clients created by `InstantiateServerClients` into a chaincode context.
func NewChaincodeCtx(serverInfo *ServerInfo) (*chaincodectx.FabricChaincodeCtx, error) {
	channelID := serverInfo.ChannelID()
	orgName := serverInfo.User.OrgName
	userID := serverInfo.User.UserID

	channelClient := global.ChannelClientInstances[channelID][orgName][userID]
	if channelClient == nil {
		return nil, fmt.Errorf("%v@%v 在通道 '%v' 上的通道客户端未实例化", userID, orgName, channelID)
	}

	return &chaincodectx.FabricChaincodeCtx{
		ChannelID:     channelID,
		OrgName:       orgName,
		Username:      userID,
		ChaincodeID:   serverInfo.ChaincodeID,
		ChannelClient: channelClient,
		LedgerClient:  global.LedgerClientInstances[channelID][orgName][userID],
	}, nil
}

// forEachIdentity 依次对各组织的管理员与普通用户调用 fn。
func forEachIdentity(users map[string]*OrgInfo, fn func(orgName, userID string) error) error {
	for _, orgName := range sortedKeys(users) {
		orgInfo := users[orgName]
		userIDs := append(append([]string{}, orgInfo.AdminIDs...), orgInfo.UserIDs...)
		for _, userID := range userIDs {
			if err := fn(orgName, userID); err != nil {
				return err
			}
		}
	}

	return nil
}

// configureChannel 按顺序应用通道配置，再将参与组织的节点加入通道。
func configureChannel(channelID string, channelInfo *ChannelInfo) error {
	for _, channelConfigInfo := range channelInfo.Configs {
		if err := ApplyChannelConfigTx(channelID, channelConfigInfo); err != nil {
			return err
		}
	}

	for _, orgName := range sortedKeys(channelInfo.Participants) {
		if err := JoinChannel(channelID, orgName, channelInfo.Participants[orgName]); err != nil {
			return err
		}
	}

	return nil
}

func configureChaincode(ccID string, chaincodeInfo *ChaincodeInfo) error {
	for _, orgName := range sortedKeys(chaincodeInfo.Installations) {
		if err := InstallCC(chaincodeInfo, ccID, orgName, chaincodeInfo.Installations[orgName]); err != nil {
			return err
		}
	}

	for _, channelID := range sortedKeys(chaincodeInfo.Instantiations) {
		if err := DeployCC(chaincodeInfo, ccID, channelID, chaincodeInfo.Instantiations[channelID]); err != nil {
			return err
		}
	}

	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}
