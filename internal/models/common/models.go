package common

import (
	"fmt"
	"time"
)

// BlobUpload 表示上传流程中写入存储的一个内容
type BlobUpload struct {
	BatchID    string           // 上传批次 ID
	FileID     string           // 文件 ID
	BlobID     string           // 内容 ID
	Backend    string           // 存储类型
	StoredSize uint64           // 所存内容的大小
	Status     BlobUploadStatus // 状态
	Reason     string           // 成为孤立内容的原因
	TimeStored time.Time
}

// BlobUploadStatus 表示已写入存储的内容与链上记录的关系
type BlobUploadStatus int

const (
	// BlobRegistered 表示内容已被链上记录引用
	BlobRegistered BlobUploadStatus = iota
	// BlobOrphaned 表示内容已写入存储但未被链上记录引用，可被回收
	BlobOrphaned
)

func (s BlobUploadStatus) String() string {
	switch s {
	case BlobRegistered:
		return "registered"
	case BlobOrphaned:
		return "orphaned"
	default:
		return fmt.Sprintf("%d", int(s))
	}
}

// NewBlobUploadStatusFromString 从 enum 名称获得 BlobUploadStatus enum。
func NewBlobUploadStatusFromString(enumString string) (ret BlobUploadStatus, err error) {
	switch enumString {
	case "registered":
		ret = BlobRegistered
		return
	case "orphaned":
		ret = BlobOrphaned
		return
	default:
		err = fmt.Errorf("不正确的 enum 字符串")
		return
	}
}
