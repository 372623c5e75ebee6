package appinit

import (
	"fmt"
	"io/ioutil"
	"time"

	"github.com/JasonRUAN/SecureFileShare/internal/blobstore"
	"github.com/JasonRUAN/SecureFileShare/internal/keyserver"
	errors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"
)

// ServerInfo is the Go struct for contents in server.yaml.
type ServerInfo struct {
	User           *OperatingIdentity      `yaml:"user"`
	Channels       []string                `yaml:"channels"`
	ChaincodeID    string                  `yaml:"chaincodeID"`
	Port           int                     `yaml:"port"`
	LogLevel       string                  `yaml:"logLevel"`
	ShowTimingLogs bool                    `yaml:"showTimingLogs"`
	Wallet         *KeyPairLocation        `yaml:"wallet"`     // Optional. Without a wallet the gateway only serves public reads.
	BlobStore      *blobstore.Config       `yaml:"blobStore"`
	KeyServers     *keyserver.ClientConfig `yaml:"keyServers"`
	KeyServer      *KeyServerInfo          `yaml:"keyServer"` // Only needed by the `keyserver` command
	Upload         *UploadInfo             `yaml:"upload"`
	DB             *DBInfo                 `yaml:"db"`         // Optional. Without a DB, blob uploads are not tracked.
	SessionTTL     time.Duration           `yaml:"sessionTTL"`
}

// KeyPairLocation records the paths to a key pair.
type KeyPairLocation struct {
	PrivateKey string `yaml:"privateKey"` // The path to the private key
	PublicKey  string `yaml:"publicKey"`  // The path to the public key. Optional.
}

// KeyServerInfo contains what a key server process needs.
type KeyServerInfo struct {
	Index      int    `yaml:"index"`      // The index of this key server (starting from 1)
	PrivateKey string `yaml:"privateKey"` // The path to the file holding the hex encoded private key
	Port       int    `yaml:"port"`       // The port the key server listens on
}

// UploadInfo tunes the upload pipeline.
type UploadInfo struct {
	MaxConcurrentPuts int `yaml:"maxConcurrentPuts"`
}

// DBInfo locates the local database.
type DBInfo struct {
	DSN string `yaml:"dsn"`
}

// LoadServerInfo loads the server config file (in YAML) which contains info needed to start a server.
//
// Parameters:
//   the path to the config file
//
// Returns:
//   the `ServerInfo` struct containing the info needed to start a server
func LoadServerInfo(configFilePath string) (ret ServerInfo, err error) {
	yamlStr, err := ioutil.ReadFile(configFilePath)
	if err != nil {
		err = errors.Wrap(err, "读取服务器配置文件失败")
		return
	}

	err = yaml.Unmarshal(yamlStr, &ret)
	if err != nil {
		err = errors.Wrap(err, "解析 YAML 文件时出现错误")
		return
	}

	err = ret.validate()
	return
}

func (info *ServerInfo) validate() error {
	if info.User == nil || info.User.OrgName == "" || info.User.UserID == "" {
		return fmt.Errorf("未指定操作用户")
	}

	if len(info.Channels) == 0 {
		return fmt.Errorf("未指定通道")
	}

	if info.ChaincodeID == "" {
		return fmt.Errorf("未指定链码 ID")
	}

	return nil
}

// ChannelID returns the channel the app serves on. Only the first channel in the list is used.
func (info *ServerInfo) ChannelID() string {
	return info.Channels[0]
}

// MaxConcurrentPuts returns the configured limit or 0 if it's not configured.
func (info *ServerInfo) MaxConcurrentPuts() int {
	if info.Upload == nil {
		return 0
	}

	return info.Upload.MaxConcurrentPuts
}

// SetupLogger applies the log level in the config. An empty level keeps the default.
func (info *ServerInfo) SetupLogger() error {
	if info.LogLevel == "" {
		return nil
	}

	level, err := log.ParseLevel(info.LogLevel)
	if err != nil {
		return errors.Wrapf(err, "无法解析日志级别 '%v'", info.LogLevel)
	}

	log.SetLevel(level)
	return nil
}
