package service

import (
	"context"

	"github.com/JasonRUAN/SecureFileShare/internal/blockchain/bcao"
	"github.com/JasonRUAN/SecureFileShare/pkg/models/filereg"
)

// ListScope 表示文件列表的范围
type ListScope string

const (
	ScopeMine   ListScope = "mine"   // 调用者上传的文件
	ScopeShared ListScope = "shared" // 共享给调用者的文件
	ScopeMarket ListScope = "market" // 上架出售的文件
)

// RegistryServiceInterface 定义了查询文件注册表与余额的服务的接口。
type RegistryServiceInterface interface {
	// 获取文件记录
	GetFile(ctx context.Context, fileID string) (*filereg.FileRecord, error)

	// 按范围列出文件记录
	//
	// 参数：
	//   范围
	//
	// 返回：
	//   文件记录列表
	ListFiles(ctx context.Context, scope ListScope) ([]*filereg.FileRecord, error)

	// 获取文件总数
	GetTotalFiles(ctx context.Context) (uint64, error)

	// 存入代币（以代币为单位）
	Deposit(ctx context.Context, amount uint64) (*bcao.TransactionCreationInfo, error)

	// 获取余额（最小货币单位）。地址为空时查询当前钱包。
	GetBalance(ctx context.Context, address string) (uint64, error)
}
