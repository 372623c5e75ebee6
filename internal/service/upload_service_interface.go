package service

import (
	"context"

	"github.com/JasonRUAN/SecureFileShare/pkg/models/filereg"
)

// UploadRequest 为一个待上传的文件
type UploadRequest struct {
	Name        string
	Description string
	ContentType string
	Data        []byte
	Mode        filereg.AccessMode
	Grantees    []string // 仅 Shared 方式使用
	Price       uint64   // 以代币为单位，仅 Purchasable 方式使用
}

// UploadResult 为一批文件上传的结果
type UploadResult struct {
	BatchID       string   `json:"batchId"`
	FileIDs       []string `json:"fileIds"` // 与请求顺序一致
	TransactionID string   `json:"transactionId"`
	BlockID       string   `json:"blockId,omitempty"`
}

// UploadServiceInterface 定义了上传文件的服务的接口。
type UploadServiceInterface interface {
	// 上传一批文件。每个文件按需加密后写入存储，所有记录在一个交易中写入账本。
	//
	// 参数：
	//   文件列表
	//   进度回调（可为空）
	//
	// 返回：
	//   上传结果
	UploadFiles(ctx context.Context, files []*UploadRequest, progress ProgressFunc) (*UploadResult, error)
}
