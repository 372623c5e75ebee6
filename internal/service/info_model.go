package service

import (
	"time"

	"github.com/JasonRUAN/SecureFileShare/internal/blobstore"
	"github.com/JasonRUAN/SecureFileShare/internal/blockchain/bcao"
	"github.com/JasonRUAN/SecureFileShare/internal/encryption"
	"github.com/JasonRUAN/SecureFileShare/internal/keyserver"
	"github.com/JasonRUAN/SecureFileShare/internal/session"
	"github.com/JasonRUAN/SecureFileShare/internal/wallet"
	"gorm.io/gorm"
)

// DefaultMaxConcurrentPuts 为一批上传中同时写入存储的默认数量
const DefaultMaxConcurrentPuts = 4

// Info needed for a service to know which `chaincodeID` it's serving and which collaborators it's using.
type Info struct {
	ChaincodeID       string
	Registry          bcao.IFileRegistryBCAO
	BlobStore         blobstore.Store
	BlobStoreType     blobstore.Type
	Engine            *encryption.Engine
	KeyClient         *keyserver.Client
	Authenticator     *session.Authenticator
	Signer            wallet.Signer // 为空表示未连接钱包
	SessionTTL        time.Duration
	MaxConcurrentPuts int
	DB                *gorm.DB // 可为空，为空时不记录上传的内容
}

func (info *Info) maxConcurrentPuts() int {
	if info.MaxConcurrentPuts <= 0 {
		return DefaultMaxConcurrentPuts
	}

	return info.MaxConcurrentPuts
}
