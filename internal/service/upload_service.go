package service

import (
	"context"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/JasonRUAN/SecureFileShare/internal/db"
	"github.com/JasonRUAN/SecureFileShare/internal/envelope"
	"github.com/JasonRUAN/SecureFileShare/internal/models/common"
	"github.com/JasonRUAN/SecureFileShare/internal/utils/idutils"
	"github.com/JasonRUAN/SecureFileShare/internal/utils/timingutils"
	"github.com/JasonRUAN/SecureFileShare/pkg/errorcode"
	"github.com/JasonRUAN/SecureFileShare/pkg/models/filereg"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// UploadService 用于上传文件。
type UploadService struct {
	ServiceInfo *Info
}

// preparedFile 为已写入存储、待写入账本的文件
type preparedFile struct {
	request *UploadRequest
	info    *filereg.FileInfo
	stored  bool
}

// UploadFiles 上传一批文件。任一文件写入存储失败时取消其余写入并放弃整批；已写入的内容不会删除，而是记为孤立内容。
//
// 参数：
//   文件列表
//   进度回调（可为空）
//
// 返回：
//   上传结果
func (s *UploadService) UploadFiles(ctx context.Context, files []*UploadRequest, progress ProgressFunc) (*UploadResult, error) {
	defer timingutils.GetDeferrableTimingLogger("上传一批文件")()

	reporter := newProgressReporter(progress)
	reporter.report(0)

	if len(files) == 0 {
		return nil, newBadRequest("上传列表不能为空")
	}

	if s.ServiceInfo.Signer == nil {
		return nil, &StageError{Stage: StageBuildRecord, Kind: errorcode.ErrorUploadFailed, Err: errorcode.ErrorWalletNotConnected}
	}

	batchID, err := idutils.GenerateSnowflakeId()
	if err != nil {
		return nil, err
	}

	prepared := make([]*preparedFile, 0, len(files))
	for _, file := range files {
		info, err := s.buildFileInfo(file)
		if err != nil {
			return nil, err
		}
		prepared = append(prepared, &preparedFile{request: file, info: info})
	}

	// 各文件的加密与写入并发进行，第一个错误会取消其余的写入
	var done int32
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.ServiceInfo.maxConcurrentPuts())
	for _, file := range prepared {
		file := file
		group.Go(func() error {
			if err := s.storeFile(groupCtx, file); err != nil {
				return err
			}

			finished := atomic.AddInt32(&done, 1)
			reporter.report(int(5 + 80*finished/int32(len(prepared))))
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		s.recordOrphans(batchID, prepared, err)
		return nil, err
	}

	infos := make([]*filereg.FileInfo, 0, len(prepared))
	fileIDs := make([]string, 0, len(prepared))
	for _, file := range prepared {
		infos = append(infos, file.info)
		fileIDs = append(fileIDs, file.info.ID)
	}

	txInfo, err := s.ServiceInfo.Registry.CreateFiles(ctx, infos)
	if err != nil {
		err = &StageError{Stage: StageSubmitRecords, Kind: errorcode.ErrorUploadFailed, Err: err}
		s.recordOrphans(batchID, prepared, err)
		return nil, err
	}

	s.recordUploads(batchID, prepared, common.BlobRegistered, "")
	reporter.report(100)

	return &UploadResult{
		BatchID:       batchID,
		FileIDs:       fileIDs,
		TransactionID: txInfo.TransactionID,
		BlockID:       txInfo.BlockID,
	}, nil
}

// buildFileInfo 检查请求并生成除内容相关字段以外的文件信息
func (s *UploadService) buildFileInfo(file *UploadRequest) (*filereg.FileInfo, error) {
	if strings.TrimSpace(file.Name) == "" {
		return nil, newBadRequest("文件名不能为空")
	}

	if len(file.Grantees) != 0 && file.Mode != filereg.Shared {
		return nil, newBadRequest("只有 shared 方式可以指定被授权者")
	}

	if file.Price != 0 && file.Mode != filereg.Purchasable {
		return nil, newBadRequest("只有 purchasable 方式可以指定价格")
	}

	if file.Mode == filereg.Purchasable && file.Price == 0 {
		return nil, newBadRequest("purchasable 方式的价格必须大于 0")
	}

	if file.Price > math.MaxUint64/filereg.TokenUnit {
		return nil, newBadRequest("价格 %v 过大", file.Price)
	}

	id, err := idutils.GenerateSnowflakeId()
	if err != nil {
		return nil, err
	}

	info := &filereg.FileInfo{
		ID:               id,
		Name:             file.Name,
		Description:      file.Description,
		FileType:         file.ContentType,
		FileSize:         uint64(len(file.Data)),
		IsEncrypted:      file.Mode.IsEncrypted(),
		GranteeAddresses: []string{},
	}

	if file.Mode == filereg.Shared {
		info.GranteeAddresses = append(info.GranteeAddresses, file.Grantees...)
	}

	if file.Mode == filereg.Purchasable {
		info.Price = file.Price * filereg.TokenUnit
	}

	return info, nil
}

// storeFile 按需加密，然后写入存储
func (s *UploadService) storeFile(ctx context.Context, file *preparedFile) error {
	payload := file.request.Data
	if file.info.IsEncrypted {
		policyID, err := s.ServiceInfo.Engine.NewPolicyID()
		if err != nil {
			return &StageError{Stage: StageEncryptIfRequested, Subject: file.request.Name, Kind: errorcode.ErrorUploadFailed, Err: err}
		}

		env, err := s.ServiceInfo.Engine.Seal(payload, policyID)
		if err != nil {
			return &StageError{Stage: StageEncryptIfRequested, Subject: file.request.Name, Kind: errorcode.ErrorUploadFailed, Err: err}
		}

		if payload, err = envelope.Serialize(env); err != nil {
			return &StageError{Stage: StageEncryptIfRequested, Subject: file.request.Name, Kind: errorcode.ErrorUploadFailed, Err: err}
		}

		file.info.PolicyID = env.PolicyIDHex()
	}

	blobID, err := s.ServiceInfo.BlobStore.Put(ctx, payload)
	if err != nil {
		return &StageError{Stage: StagePutBlob, Subject: file.request.Name, Kind: errorcode.ErrorUploadFailed, Err: err}
	}

	file.info.BlobID = blobID
	file.info.ContentHash = hashBase64(payload)
	file.info.StoredSize = uint64(len(payload))
	file.stored = true

	return nil
}

// recordOrphans 记录已写入存储但未被账本引用的内容
func (s *UploadService) recordOrphans(batchID string, prepared []*preparedFile, cause error) {
	for _, file := range prepared {
		if file.stored {
			log.Warnf("批次 '%v' 失败，内容 '%v'（文件 '%v'）已成为孤立内容", batchID, file.info.BlobID, file.request.Name)
		}
	}

	s.recordUploads(batchID, prepared, common.BlobOrphaned, cause.Error())
}

func (s *UploadService) recordUploads(batchID string, prepared []*preparedFile, status common.BlobUploadStatus, reason string) {
	if s.ServiceInfo.DB == nil {
		return
	}

	now := time.Now()
	var uploads []*common.BlobUpload
	for _, file := range prepared {
		if !file.stored {
			continue
		}

		uploads = append(uploads, &common.BlobUpload{
			BatchID:    batchID,
			FileID:     file.info.ID,
			BlobID:     file.info.BlobID,
			Backend:    string(s.ServiceInfo.BlobStoreType),
			StoredSize: file.info.StoredSize,
			Status:     status,
			Reason:     reason,
			TimeStored: now,
		})
	}

	if err := db.SaveBlobUploadsToLocalDB(uploads, s.ServiceInfo.DB); err != nil {
		log.Errorf("%v", errors.Wrapf(err, "无法记录批次 '%v' 的上传", batchID))
	}
}
