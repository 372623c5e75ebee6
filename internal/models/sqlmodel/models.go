package sqlmodel

import (
	"strings"
	"time"

	"github.com/JasonRUAN/SecureFileShare/internal/models/common"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// BlobUpload 定义了数据库表 blob_uploads，记录每次写入存储的内容，用于回收孤立内容。
type BlobUpload struct {
	gorm.Model
	BatchID    int64     `gorm:"index;not null"`
	FileID     int64     `gorm:"not null"`
	BlobID     string    `gorm:"type:VARCHAR(255) NOT NULL;index"`
	Backend    string    `gorm:"type:VARCHAR(32) NOT NULL"`
	StoredSize uint64    `gorm:"not null"`
	Status     string    `gorm:"type:ENUM('REGISTERED', 'ORPHANED') NOT NULL;index"`
	Reason     string    `gorm:"type:TEXT"`
	TimeStored time.Time `gorm:"not null"`
}

// 自定义 BlobUpload 的表名。
func (BlobUpload) TableName() string {
	return "blob_uploads"
}

// ToModel 将一个 `sqlmodel.BlobUpload` 对象转为 `common.BlobUpload` 对象。
func (u *BlobUpload) ToModel() (*common.BlobUpload, error) {
	status, err := common.NewBlobUploadStatusFromString(strings.ToLower(u.Status))
	if err != nil {
		return nil, errors.Wrapf(err, "数据库中的上传状态 '%v' 不合法", u.Status)
	}

	return &common.BlobUpload{
		BatchID:    parseInt64ToSnowflakeString(u.BatchID),
		FileID:     parseInt64ToSnowflakeString(u.FileID),
		BlobID:     u.BlobID,
		Backend:    u.Backend,
		StoredSize: u.StoredSize,
		Status:     status,
		Reason:     u.Reason,
		TimeStored: u.TimeStored,
	}, nil
}

// NewBlobUploadFromModel 从 `common.BlobUpload` 创建 `sqlmodel.BlobUpload`。
func NewBlobUploadFromModel(upload *common.BlobUpload) (*BlobUpload, error) {
	batchID, err := parseSnowflakeStringToInt64(upload.BatchID)
	if err != nil {
		return nil, errors.Wrap(err, "无法解析批次 ID")
	}

	fileID, err := parseSnowflakeStringToInt64(upload.FileID)
	if err != nil {
		return nil, errors.Wrap(err, "无法解析文件 ID")
	}

	return &BlobUpload{
		BatchID:    batchID,
		FileID:     fileID,
		BlobID:     upload.BlobID,
		Backend:    upload.Backend,
		StoredSize: upload.StoredSize,
		Status:     strings.ToUpper(upload.Status.String()),
		Reason:     upload.Reason,
		TimeStored: upload.TimeStored,
	}, nil
}
