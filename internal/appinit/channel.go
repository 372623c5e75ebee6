package appinit

import (
	"fmt"
	"strings"

	"github.com/JasonRUAN/SecureFileShare/internal/global"
	"github.com/hyperledger/fabric-sdk-go/pkg/client/resmgmt"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/errors/retry"
	providersmsp "github.com/hyperledger/fabric-sdk-go/pkg/common/providers/msp"
	errors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// 节点已加入通道时 peer 返回的错误信息
const alreadyJoinedMsg = "already exists"

// ApplyChannelConfigTx 应用通道配置交易文件，用于创建通道或更新通道配置（如锚节点）。
//
// 参数：
//   通道 ID
//   通道配置信息
func ApplyChannelConfigTx(channelID string, info *ChannelConfigInfo) error {
	mspClient := global.MSPClientInstances[info.OrgName][info.UserID]
	if mspClient == nil {
		return fmt.Errorf("%v@%v 的 MSP 客户端未实例化", info.UserID, info.OrgName)
	}

	resMgmtClient, err := resMgmtClientOf(info.OrgName, info.UserID)
	if err != nil {
		return err
	}

	signingIdentity, err := mspClient.GetSigningIdentity(info.UserID)
	if err != nil {
		return errors.Wrapf(err, "无法获取 %v@%v 的签名身份", info.UserID, info.OrgName)
	}

	channelReq := resmgmt.SaveChannelRequest{
		ChannelID:         channelID,
		ChannelConfigPath: info.Path,
		SigningIdentities: []providersmsp.SigningIdentity{signingIdentity},
	}

	if _, err = resMgmtClient.SaveChannel(channelReq, resmgmt.WithRetry(retry.DefaultResMgmtOpts)); err != nil {
		return errors.Wrapf(err, "为通道 '%v' 应用通道配置交易文件 '%v' 失败", channelID, info.Path)
	}

	log.Printf("已为通道 '%v' 应用通道配置交易文件 '%v'。\n", channelID, info.Path)

	return nil
}

// JoinChannel 将组织的所有节点加入通道。节点已在通道中时视为成功，以便重复执行初始化。
//
// 参数：
//   通道 ID
//   组织名称
//   执行操作的身份
func JoinChannel(channelID, orgName string, operatingIdentity *OperatingIdentity) error {
	resMgmtClient, err := resMgmtClientOf(operatingIdentity.OrgName, operatingIdentity.UserID)
	if err != nil {
		return err
	}

	// 未指定节点，SDK 会选择该客户端所属 MSP 的全部节点
	err = resMgmtClient.JoinChannel(channelID, resmgmt.WithRetry(retry.DefaultResMgmtOpts))
	if err != nil {
		if strings.Contains(err.Error(), alreadyJoinedMsg) {
			log.Warnf("组织 '%v' 的节点已在通道 '%v' 中。", orgName, channelID)
			return nil
		}

		return errors.Wrapf(err, "无法将 '%v' 的节点加入通道 '%v'", orgName, channelID)
	}

	log.Printf("已将 '%v' 的节点加入通道 '%v'。\n", orgName, channelID)

	return nil
}
