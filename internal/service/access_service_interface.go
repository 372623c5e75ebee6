package service

import (
	"context"

	"github.com/JasonRUAN/SecureFileShare/internal/blockchain/bcao"
)

// AccessServiceInterface 定义了修改文件访问策略的服务的接口。每个操作都是一个由钱包签名的交易。
type AccessServiceInterface interface {
	// 为文件追加被授权者。只有所有者可以调用。
	//
	// 参数：
	//   文件 ID
	//   被授权者地址列表
	//
	// 返回：
	//   交易信息
	GrantAccess(ctx context.Context, fileID string, grantees []string) (*bcao.TransactionCreationInfo, error)

	// 购买文件。价格从调用者余额转给所有者，调用者加入访问列表。
	BuyFile(ctx context.Context, fileID string) (*bcao.TransactionCreationInfo, error)

	// 将免费的公开文件加入调用者“共享给我”的列表。
	AddPublicFile(ctx context.Context, fileID string) (*bcao.TransactionCreationInfo, error)
}
