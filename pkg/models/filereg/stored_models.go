package filereg

import "time"

// FileRecord 包含从链码中读出的文件记录
type FileRecord struct {
	ID          string    `json:"id"`          // 文件 ID
	Owner       string    `json:"owner"`       // 所有者地址
	Name        string    `json:"name"`        // 文件名
	Description string    `json:"description"` // 文件描述
	BlobID      string    `json:"fileBlobId"`  // 内容 ID
	FileType    string    `json:"fileType"`    // 声明的内容类型
	FileSize    uint64    `json:"fileSize"`    // 明文大小
	Price       uint64    `json:"price"`       // 价格（最小货币单位）
	IsEncrypted bool      `json:"isEncrypt"`   // 是否加密
	PolicyID    string    `json:"policyId"`    // 访问策略 ID（hex）
	ContentHash string    `json:"contentHash"` // 所存内容的 SHA-256（Base64）
	StoredSize  uint64    `json:"storedSize"`  // 所存内容的大小
	CreatedAt   time.Time `json:"createdAt"`   // 创建时间（交易时间戳）
	AccessList  []string  `json:"accessList"`  // 被授权者地址列表，保持插入顺序
}

// IsOwnerOrGrantee 判断地址是否为文件所有者或在访问列表中。
func (r *FileRecord) IsOwnerOrGrantee(address string) bool {
	if r.Owner == address {
		return true
	}

	for _, grantee := range r.AccessList {
		if grantee == address {
			return true
		}
	}

	return false
}

// IsListedOnMarket 判断文件是否上架出售。
func (r *FileRecord) IsListedOnMarket() bool {
	return r.Price > 0
}

// FileCreatedEvent 为 `createFiles` 成功后发出的事件内容
type FileCreatedEvent struct {
	FileIDs    []string `json:"fileIds"`
	Owner      string   `json:"owner"`
	RelayMSPID string   `json:"relayMspId"` // 提交该交易的网关所属组织
}

// AccessChangedEvent 为访问列表发生变化（授权、购买、添加公开文件）后发出的事件内容
type AccessChangedEvent struct {
	FileID    string   `json:"fileId"`
	Addresses []string `json:"addresses"`
}
