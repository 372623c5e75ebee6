package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/JasonRUAN/SecureFileShare/internal/encryption"
	"github.com/JasonRUAN/SecureFileShare/internal/envelope"
	"github.com/JasonRUAN/SecureFileShare/internal/utils/timingutils"
	"github.com/JasonRUAN/SecureFileShare/pkg/errorcode"
	"github.com/JasonRUAN/SecureFileShare/pkg/models/filereg"
	"github.com/JasonRUAN/SecureFileShare/pkg/models/keyserver"
	"github.com/pkg/errors"
)

// RetrievalService 用于取回文件。
type RetrievalService struct {
	ServiceInfo *Info
}

// DownloadFile 取回文件。不做自动重试，失败时返回标明阶段的 `*StageError`。
//
// 参数：
//   文件 ID
//   进度回调（可为空）
//
// 返回：
//   文件记录与明文
func (s *RetrievalService) DownloadFile(ctx context.Context, fileID string, progress ProgressFunc) (*DownloadedFile, error) {
	defer timingutils.GetDeferrableTimingLogger(fmt.Sprintf("取回文件 '%v'", fileID))()

	if strings.TrimSpace(fileID) == "" {
		return nil, newBadRequest("文件 ID 不能为空")
	}

	reporter := newProgressReporter(progress)
	reporter.report(0)

	record, err := s.ServiceInfo.Registry.GetFile(ctx, fileID)
	if err != nil {
		return nil, newStageError(StageGetRecord, fileID, err)
	}

	payload, err := s.ServiceInfo.BlobStore.Get(ctx, record.BlobID)
	if err != nil {
		return nil, newStageError(StageGetBlob, fileID, err)
	}
	reporter.report(25)

	if err := checkSizeAndHashForStoredData(payload, record).toError(record); err != nil {
		return nil, newStageError(StageVerifyIntegrity, fileID, err)
	}

	// 未加密的文件直接返回，不访问密钥服务器
	if !record.IsEncrypted {
		reporter.report(75)
		if err := checkSizeForPlainData(payload, record).toError(record); err != nil {
			return nil, newStageError(StageVerifyIntegrity, fileID, err)
		}
		reporter.report(100)
		return &DownloadedFile{Record: record, Data: payload}, nil
	}
	reporter.report(40)

	env, err := envelope.Parse(payload)
	if err != nil {
		return nil, newStageError(StageParseEnvelope, fileID, err)
	}
	reporter.report(50)

	credential, err := s.ServiceInfo.Authenticator.NewSession(ctx, s.ServiceInfo.Signer, s.ServiceInfo.ChaincodeID, s.ServiceInfo.SessionTTL)
	if err != nil {
		return nil, newStageError(StageBeginSession, fileID, err)
	}
	reporter.report(60)

	authTx, err := s.buildAuthTx(ctx, fileID, env)
	if err != nil {
		return nil, newStageError(StageBuildAuthTx, fileID, err)
	}

	key, err := s.ServiceInfo.KeyClient.FetchKeyShares(ctx, env, authTx, credential, 0)
	if err != nil {
		return nil, newStageError(StageFetchKeyShares, fileID, err)
	}
	reporter.report(75)

	plaintext, err := encryption.Open(env, key)
	if err != nil {
		return nil, newStageError(StageOpen, fileID, err)
	}

	if err := checkSizeForPlainData(plaintext, record).toError(record); err != nil {
		return nil, newStageError(StageOpen, fileID, err)
	}
	reporter.report(90)

	reporter.report(100)
	return &DownloadedFile{Record: record, Data: plaintext}, nil
}

// buildAuthTx 重新读取当前的文件记录，确认其策略与信封一致后构造授权交易
func (s *RetrievalService) buildAuthTx(ctx context.Context, fileID string, env *envelope.Envelope) (*keyserver.AuthTx, error) {
	record, err := s.ServiceInfo.Registry.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	if !record.IsEncrypted {
		return nil, errors.Wrapf(errorcode.ErrorSchemaMismatch, "文件 '%v' 的记录已不再标记为加密", fileID)
	}

	if record.PolicyID != env.PolicyIDHex() {
		return nil, errors.Wrapf(errorcode.ErrorMalformedEnvelope, "文件 '%v' 的策略 ID 与信封不符", fileID)
	}

	return newAuthTx(s.ServiceInfo.ChaincodeID, record, s.ServiceInfo.Signer.Address()), nil
}

func newAuthTx(chaincodeID string, record *filereg.FileRecord, caller string) *keyserver.AuthTx {
	return &keyserver.AuthTx{
		ChaincodeID: chaincodeID,
		Fcn:         keyserver.SealApproveFcn,
		Args:        []string{record.PolicyID, record.ID, caller},
	}
}
