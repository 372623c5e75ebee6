package service

import (
	"context"

	"github.com/JasonRUAN/SecureFileShare/pkg/models/filereg"
)

// DownloadedFile 为取回的文件
type DownloadedFile struct {
	Record *filereg.FileRecord
	Data   []byte
}

// RetrievalServiceInterface 定义了取回文件的服务的接口。
type RetrievalServiceInterface interface {
	// 取回文件。加密文件会向密钥服务器证明授权、收集份额并解密。
	//
	// 参数：
	//   文件 ID
	//   进度回调（可为空）
	//
	// 返回：
	//   文件记录与明文
	DownloadFile(ctx context.Context, fileID string, progress ProgressFunc) (*DownloadedFile, error)
}
