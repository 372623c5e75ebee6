package service

import (
	"context"
	"math"
	"strings"

	"github.com/JasonRUAN/SecureFileShare/internal/blockchain/bcao"
	"github.com/JasonRUAN/SecureFileShare/pkg/errorcode"
	"github.com/JasonRUAN/SecureFileShare/pkg/models/filereg"
	"github.com/pkg/errors"
)

// RegistryService 用于查询文件注册表与余额。
type RegistryService struct {
	ServiceInfo *Info
}

func (s *RegistryService) GetFile(ctx context.Context, fileID string) (*filereg.FileRecord, error) {
	if strings.TrimSpace(fileID) == "" {
		return nil, newBadRequest("文件 ID 不能为空")
	}

	return s.ServiceInfo.Registry.GetFile(ctx, fileID)
}

// ListFiles 按范围列出文件记录。mine 与 shared 需要连接钱包。
func (s *RegistryService) ListFiles(ctx context.Context, scope ListScope) ([]*filereg.FileRecord, error) {
	var ids []string
	var err error

	switch scope {
	case ScopeMine, ScopeShared:
		if s.ServiceInfo.Signer == nil {
			return nil, errorcode.ErrorWalletNotConnected
		}
		if scope == ScopeMine {
			ids, err = s.ServiceInfo.Registry.ListFileIDsByOwner(ctx, s.ServiceInfo.Signer.Address())
		} else {
			ids, err = s.ServiceInfo.Registry.ListFileIDsSharedTo(ctx, s.ServiceInfo.Signer.Address())
		}
	case ScopeMarket:
		ids, err = s.ServiceInfo.Registry.ListMarketFileIDs(ctx)
	default:
		return nil, newBadRequest("未知的列表范围 '%v'", scope)
	}

	if err != nil {
		return nil, err
	}

	records := make([]*filereg.FileRecord, 0, len(ids))
	for _, id := range ids {
		record, err := s.ServiceInfo.Registry.GetFile(ctx, id)
		if err != nil {
			return nil, errors.Wrapf(err, "无法获取文件 '%v'", id)
		}
		records = append(records, record)
	}

	return records, nil
}

func (s *RegistryService) GetTotalFiles(ctx context.Context) (uint64, error) {
	return s.ServiceInfo.Registry.GetTotalFiles(ctx)
}

// Deposit 存入代币。amount 以代币为单位。
func (s *RegistryService) Deposit(ctx context.Context, amount uint64) (*bcao.TransactionCreationInfo, error) {
	if amount == 0 {
		return nil, newBadRequest("存入数量必须大于 0")
	}

	if amount > math.MaxUint64/filereg.TokenUnit {
		return nil, newBadRequest("存入数量 %v 过大", amount)
	}

	txInfo, err := s.ServiceInfo.Registry.Deposit(ctx, amount*filereg.TokenUnit)
	return txInfo, asRejection(err)
}

func (s *RegistryService) GetBalance(ctx context.Context, address string) (uint64, error) {
	if address == "" {
		if s.ServiceInfo.Signer == nil {
			return 0, errorcode.ErrorWalletNotConnected
		}
		address = s.ServiceInfo.Signer.Address()
	}

	return s.ServiceInfo.Registry.GetBalance(ctx, address)
}
