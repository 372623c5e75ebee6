package bcao

import (
	"context"

	"github.com/JasonRUAN/SecureFileShare/pkg/models/filereg"
	"github.com/JasonRUAN/SecureFileShare/pkg/models/keyserver"
)

// IFileRegistryBCAO 定义了访问链上文件注册表的接口。需修改状态的调用以当前钱包的身份签名。
type IFileRegistryBCAO interface {
	// 在一个交易中创建一批文件记录
	//
	// 参数：
	//   文件信息列表
	//
	// 返回：
	//   交易信息
	CreateFiles(ctx context.Context, files []*filereg.FileInfo) (*TransactionCreationInfo, error)

	// 获取文件记录。每次调用都从账本读取当前状态。
	GetFile(ctx context.Context, fileID string) (*filereg.FileRecord, error)

	// 为文件追加被授权者（仅所有者）
	GrantAccess(ctx context.Context, fileID string, grantees []string) (*TransactionCreationInfo, error)

	// 购买文件
	BuyFile(ctx context.Context, fileID string) (*TransactionCreationInfo, error)

	// 将公开文件加入“共享给我”的列表
	AddPublicFile(ctx context.Context, fileID string) (*TransactionCreationInfo, error)

	// 以只读方式模拟授权交易。拒绝时返回 `errorcode.ErrorForbidden`，找不到文件时返回 `errorcode.ErrorNotFound`。
	SimulateSealApprove(ctx context.Context, authTx *keyserver.AuthTx) error

	ListFileIDsByOwner(ctx context.Context, owner string) ([]string, error)
	ListFileIDsSharedTo(ctx context.Context, address string) ([]string, error)
	ListMarketFileIDs(ctx context.Context) ([]string, error)
	GetTotalFiles(ctx context.Context) (uint64, error)

	// 向当前钱包的余额存入代币（最小货币单位）
	Deposit(ctx context.Context, amount uint64) (*TransactionCreationInfo, error)
	GetBalance(ctx context.Context, address string) (uint64, error)
}
