package service

import (
	"context"
	"strings"

	"github.com/JasonRUAN/SecureFileShare/internal/blockchain/bcao"
	"github.com/JasonRUAN/SecureFileShare/pkg/errorcode"
	"github.com/pkg/errors"
)

// AccessService 用于修改文件的访问策略。
type AccessService struct {
	ServiceInfo *Info
}

// GrantAccess 为文件追加被授权者。
func (s *AccessService) GrantAccess(ctx context.Context, fileID string, grantees []string) (*bcao.TransactionCreationInfo, error) {
	if strings.TrimSpace(fileID) == "" {
		return nil, newBadRequest("文件 ID 不能为空")
	}

	if len(grantees) == 0 {
		return nil, newBadRequest("被授权者列表不能为空")
	}

	for _, grantee := range grantees {
		if strings.TrimSpace(grantee) == "" {
			return nil, newBadRequest("被授权者地址不能为空")
		}
	}

	txInfo, err := s.ServiceInfo.Registry.GrantAccess(ctx, fileID, grantees)
	return txInfo, asRejection(err)
}

// BuyFile 购买文件。
func (s *AccessService) BuyFile(ctx context.Context, fileID string) (*bcao.TransactionCreationInfo, error) {
	if strings.TrimSpace(fileID) == "" {
		return nil, newBadRequest("文件 ID 不能为空")
	}

	txInfo, err := s.ServiceInfo.Registry.BuyFile(ctx, fileID)
	return txInfo, asRejection(err)
}

// AddPublicFile 将公开文件加入“共享给我”的列表。
func (s *AccessService) AddPublicFile(ctx context.Context, fileID string) (*bcao.TransactionCreationInfo, error) {
	if strings.TrimSpace(fileID) == "" {
		return nil, newBadRequest("文件 ID 不能为空")
	}

	txInfo, err := s.ServiceInfo.Registry.AddPublicFile(ctx, fileID)
	return txInfo, asRejection(err)
}

// asRejection 将账本的拒绝统一为 `errorcode.ErrorTransactionRejected`，保留账本给出的信息
func asRejection(err error) error {
	if err == nil {
		return nil
	}

	switch errors.Cause(err) {
	case errorcode.ErrorForbidden, errorcode.ErrorNotFound:
		return errors.Wrap(errorcode.ErrorTransactionRejected, err.Error())
	default:
		return err
	}
}
