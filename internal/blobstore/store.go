// Package blobstore puts and gets opaque byte payloads on a content-addressed store.
package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/JasonRUAN/SecureFileShare/pkg/errorcode"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Store 为内容寻址存储。不做任何重试。
type Store interface {
	// Put 存入数据。
	//
	// 参数：
	//   数据
	//
	// 返回：
	//   内容 ID
	Put(ctx context.Context, data []byte) (string, error)

	// Get 获取数据。未知的 ID 返回 `errorcode.ErrorBlobNotFound`，网络或服务故障返回 `errorcode.ErrorStoreUnavailable`，内容与 ID 不符返回 `errorcode.ErrorIntegrityCheckFailed`。
	//
	// 参数：
	//   内容 ID
	//
	// 返回：
	//   数据
	Get(ctx context.Context, id string) ([]byte, error)
}

// Type 为存储后端类型
type Type string

const (
	TypeIPFS   Type = "ipfs"
	TypeWalrus Type = "walrus"
	TypeS3     Type = "s3"
	TypeBadger Type = "badger"
)

// Config 为存储后端的配置。Options 按后端类型解析。
type Config struct {
	Type    Type                   `yaml:"type"`
	Options map[string]interface{} `yaml:"options"`
}

// New 按配置创建存储后端。
func New(ctx context.Context, conf *Config) (Store, error) {
	switch conf.Type {
	case TypeIPFS:
		var opts IPFSOptions
		if err := decodeOptions(conf.Options, &opts); err != nil {
			return nil, err
		}
		return NewIPFSStore(&opts)
	case TypeWalrus:
		var opts WalrusOptions
		if err := decodeOptions(conf.Options, &opts); err != nil {
			return nil, err
		}
		return NewWalrusStore(&opts)
	case TypeS3:
		var opts S3Options
		if err := decodeOptions(conf.Options, &opts); err != nil {
			return nil, err
		}
		return NewS3Store(ctx, &opts)
	case TypeBadger:
		var opts BadgerOptions
		if err := decodeOptions(conf.Options, &opts); err != nil {
			return nil, err
		}
		return NewBadgerStore(&opts)
	default:
		return nil, fmt.Errorf("不支持的存储后端类型 '%v'", conf.Type)
	}
}

func decodeOptions(input map[string]interface{}, output interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           output,
	})
	if err != nil {
		return err
	}

	if err := decoder.Decode(input); err != nil {
		return errors.Wrap(err, "无法解析存储后端选项")
	}

	return nil
}

// ContentID 返回内容的 SHA-256（hex）。以此作为 ID 的后端在读取时用 VerifyContentID 校验内容。
func ContentID(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// VerifyContentID 检查内容是否与 ID 相符。
func VerifyContentID(id string, data []byte) error {
	if ContentID(data) != id {
		return errors.Wrapf(errorcode.ErrorIntegrityCheckFailed, "内容 '%v' 的哈希与 ID 不符", id)
	}

	return nil
}

func wrapUnavailable(err error, msg string) error {
	return errors.Wrap(errorcode.ErrorStoreUnavailable, fmt.Sprintf("%v: %v", msg, err))
}
