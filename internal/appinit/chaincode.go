package appinit

import (
	"fmt"

	"github.com/JasonRUAN/SecureFileShare/internal/global"
	"github.com/hyperledger/fabric-sdk-go/pkg/client/resmgmt"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/errors/retry"
	"github.com/hyperledger/fabric-sdk-go/pkg/fab/ccpackager/gopackager"
	"github.com/hyperledger/fabric-sdk-go/third_party/github.com/hyperledger/fabric/common/policydsl"
	errors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// InstallCC 将链码安装到组织的所有节点上。已安装相同版本的节点会被 SDK 跳过。
//
// 参数：
//   链码信息
//   链码 ID
//   组织名称
//   执行操作的身份
func InstallCC(chaincodeInfo *ChaincodeInfo, chaincodeID, orgName string, operatingIdentity *OperatingIdentity) error {
	resMgmtClient, err := resMgmtClientOf(operatingIdentity.OrgName, operatingIdentity.UserID)
	if err != nil {
		return err
	}

	log.Printf("开始为组织 '%v' 的节点安装链码 '%v' (%v)...\n", orgName, chaincodeID, chaincodeInfo.Version)

	ccPkg, err := gopackager.NewCCPackage(chaincodeInfo.Path, chaincodeInfo.GoPath)
	if err != nil {
		return errors.Wrapf(err, "为链码 '%v' 创建链码包失败", chaincodeID)
	}

	installCCReq := resmgmt.InstallCCRequest{
		Name:    chaincodeID,
		Path:    chaincodeInfo.Path,
		Version: chaincodeInfo.Version,
		Package: ccPkg,
	}

	if _, err = resMgmtClient.InstallCC(installCCReq, resmgmt.WithRetry(retry.DefaultResMgmtOpts)); err != nil {
		return errors.Wrapf(err, "为组织 '%v' 的节点安装链码 '%v' 失败", orgName, chaincodeID)
	}

	log.Printf("已为组织 '%v' 的节点安装链码 '%v'。\n", orgName, chaincodeID)

	return nil
}

// DeployCC 在通道上部署链码。通道上尚无该链码时实例化，已有其他版本时升级，已有相同版本时跳过。
//
// 参数：
//   链码信息
//   链码 ID
//   通道 ID
//   实例化信息
func DeployCC(chaincodeInfo *ChaincodeInfo, chaincodeID, channelID string, info *ChaincodeInstantiationInfo) error {
	resMgmtClient, err := resMgmtClientOf(info.OrgName, info.UserID)
	if err != nil {
		return err
	}

	deployedVersion, err := queryDeployedVersion(resMgmtClient, channelID, chaincodeID)
	if err != nil {
		return err
	}

	if deployedVersion == chaincodeInfo.Version {
		log.Printf("通道 '%v' 上已部署链码 '%v' (%v)，跳过。\n", channelID, chaincodeID, deployedVersion)
		return nil
	}

	ccPolicy, err := policydsl.FromString(info.Policy)
	if err != nil {
		return errors.Wrapf(err, "无法解析链码 '%v' 的背书策略", chaincodeID)
	}

	var initArgsOfBytes [][]byte
	for _, arg := range info.InitArgs {
		initArgsOfBytes = append(initArgsOfBytes, []byte(arg))
	}

	if deployedVersion == "" {
		log.Printf("开始在通道 '%v' 上实例化链码 '%v'...\n", channelID, chaincodeID)

		_, err = resMgmtClient.InstantiateCC(channelID, resmgmt.InstantiateCCRequest{
			Name:    chaincodeID,
			Path:    chaincodeInfo.Path,
			Version: chaincodeInfo.Version,
			Args:    initArgsOfBytes,
			Policy:  ccPolicy,
		}, resmgmt.WithRetry(retry.DefaultResMgmtOpts))
		if err != nil {
			return errors.Wrapf(err, "在通道 '%v' 上实例化链码 '%v' 失败", channelID, chaincodeID)
		}

		log.Printf("已在通道 '%v' 上实例化链码 '%v'。\n", channelID, chaincodeID)
		return nil
	}

	log.Printf("开始将通道 '%v' 上的链码 '%v' 从 %v 升级到 %v...\n", channelID, chaincodeID, deployedVersion, chaincodeInfo.Version)

	_, err = resMgmtClient.UpgradeCC(channelID, resmgmt.UpgradeCCRequest{
		Name:    chaincodeID,
		Path:    chaincodeInfo.Path,
		Version: chaincodeInfo.Version,
		Args:    initArgsOfBytes,
		Policy:  ccPolicy,
	}, resmgmt.WithRetry(retry.DefaultResMgmtOpts))
	if err != nil {
		return errors.Wrapf(err, "在通道 '%v' 上升级链码 '%v' 失败", channelID, chaincodeID)
	}

	log.Printf("已将通道 '%v' 上的链码 '%v' 升级到 %v。\n", channelID, chaincodeID, chaincodeInfo.Version)

	return nil
}

// queryDeployedVersion 返回通道上已部署的链码版本，未部署时返回空字符串。
func queryDeployedVersion(resMgmtClient *resmgmt.Client, channelID, chaincodeID string) (string, error) {
	resp, err := resMgmtClient.QueryInstantiatedChaincodes(channelID, resmgmt.WithRetry(retry.DefaultResMgmtOpts))
	if err != nil {
		return "", errors.Wrapf(err, "无法查询通道 '%v' 上已部署的链码", channelID)
	}

	for _, cc := range resp.Chaincodes {
		if cc.Name == chaincodeID {
			return cc.Version, nil
		}
	}

	return "", nil
}

func resMgmtClientOf(orgName, userID string) (*resmgmt.Client, error) {
	resMgmtClient := global.ResMgmtClientInstances[orgName][userID]
	if resMgmtClient == nil {
		return nil, fmt.Errorf("%v@%v 的资源管理客户端未实例化", userID, orgName)
	}

	return resMgmtClient, nil
}
