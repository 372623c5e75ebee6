package appinit

import (
	"fmt"
	"io/ioutil"

	errors "github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// InitInfo 对应 init.yaml 的内容。
type InitInfo struct {
	Users      map[string]*OrgInfo       `yaml:"users"`
	Channels   map[string]*ChannelInfo   `yaml:"channels"`
	Chaincodes map[string]*ChaincodeInfo `yaml:"chaincodes"`
}

// OperatingIdentity 为执行操作的身份
type OperatingIdentity struct {
	OrgName string `yaml:"orgName"`
	UserID  string `yaml:"userID"`
}

func (i *OperatingIdentity) String() string {
	return fmt.Sprintf("%v@%v", i.UserID, i.OrgName)
}

// OrgInfo 列出组织中需要创建资源管理客户端、MSP 客户端与通道客户端的用户。
type OrgInfo struct {
	Name     string   `yaml:"name"`
	AdminIDs []string `yaml:"adminIDs"`
	UserIDs  []string `yaml:"userIDs"`
}

// ChannelInfo 描述一个通道：参与的组织（组织名 -> 执行加入操作的身份），以及按顺序应用的通道配置。
type ChannelInfo struct {
	Participants map[string]*OperatingIdentity `yaml:"participants"`
	Configs      []*ChannelConfigInfo          `yaml:"configs"`
}

// ChannelConfigInfo 为一个通道配置交易文件及应用它的身份
type ChannelConfigInfo struct {
	Path    string `yaml:"path"`
	OrgName string `yaml:"orgName"`
	UserID  string `yaml:"userID"`
}

// ChaincodeInfo 描述链码及其安装、部署方案。链码源码位于 ${GoPath}/src/${Path}。
type ChaincodeInfo struct {
	ID             string                                 `yaml:"id"`
	Version        string                                 `yaml:"version"`
	Path           string                                 `yaml:"path"`
	GoPath         string                                 `yaml:"goPath"`
	Installations  map[string]*OperatingIdentity          `yaml:"installations"`  // 组织名 -> 执行安装的身份
	Instantiations map[string]*ChaincodeInstantiationInfo `yaml:"instantiations"` // 通道 ID -> 部署信息
}

// ChaincodeInstantiationInfo 为在一个通道上部署链码所需的信息
type ChaincodeInstantiationInfo struct {
	Policy   string   `yaml:"policy"` // 背书策略，如 "OR('Org1MSP.member')"
	InitArgs []string `yaml:"initArgs"`
	OrgName  string   `yaml:"orgName"`
	UserID   string   `yaml:"userID"`
}

// LoadInitInfo 读取并检查初始化配置文件。
func LoadInitInfo(configFilePath string) (ret InitInfo, err error) {
	yamlStr, err := ioutil.ReadFile(configFilePath)
	if err != nil {
		err = errors.Wrap(err, "读取初始化配置文件失败")
		return
	}

	err = yaml.Unmarshal(yamlStr, &ret)
	if err != nil {
		err = errors.Wrap(err, "解析 YAML 文件时出现错误")
		return
	}

	err = ret.Validate()
	return
}

// Validate 检查配置中引用的每个身份都在 `users` 中声明过。客户端只为声明过的身份创建。
func (info *InitInfo) Validate() error {
	for channelID, channelInfo := range info.Channels {
		for orgName, identity := range channelInfo.Participants {
			if err := info.checkDeclared(identity); err != nil {
				return errors.Wrapf(err, "通道 '%v' 中组织 '%v' 的参与身份无效", channelID, orgName)
			}
		}

		for _, config := range channelInfo.Configs {
			if config.Path == "" {
				return fmt.Errorf("通道 '%v' 的配置交易文件路径不能为空", channelID)
			}
			if err := info.checkDeclared(&OperatingIdentity{OrgName: config.OrgName, UserID: config.UserID}); err != nil {
				return errors.Wrapf(err, "通道 '%v' 的配置 '%v' 无效", channelID, config.Path)
			}
		}
	}

	for ccID, ccInfo := range info.Chaincodes {
		if ccInfo.Version == "" || ccInfo.Path == "" {
			return fmt.Errorf("链码 '%v' 须指定版本与路径", ccID)
		}

		for orgName, identity := range ccInfo.Installations {
			if err := info.checkDeclared(identity); err != nil {
				return errors.Wrapf(err, "链码 '%v' 在组织 '%v' 的安装身份无效", ccID, orgName)
			}
		}

		for channelID, instantiation := range ccInfo.Instantiations {
			if _, ok := info.Channels[channelID]; !ok && info.Channels != nil {
				return fmt.Errorf("链码 '%v' 的部署通道 '%v' 未在 channels 中声明", ccID, channelID)
			}
			if err := info.checkDeclared(&OperatingIdentity{OrgName: instantiation.OrgName, UserID: instantiation.UserID}); err != nil {
				return errors.Wrapf(err, "链码 '%v' 在通道 '%v' 的部署身份无效", ccID, channelID)
			}
		}
	}

	return nil
}

func (info *InitInfo) checkDeclared(identity *OperatingIdentity) error {
	if identity == nil {
		return fmt.Errorf("未指定身份")
	}

	orgInfo := info.Users[identity.OrgName]
	if orgInfo == nil {
		return fmt.Errorf("组织 '%v' 未在 users 中声明", identity.OrgName)
	}

	for _, id := range orgInfo.AdminIDs {
		if id == identity.UserID {
			return nil
		}
	}
	for _, id := range orgInfo.UserIDs {
		if id == identity.UserID {
			return nil
		}
	}

	return fmt.Errorf("身份 %v 未在 users 中声明", identity)
}
