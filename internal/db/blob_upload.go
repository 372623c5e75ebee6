package db

import (
	"github.com/JasonRUAN/SecureFileShare/internal/models/common"
	"github.com/JasonRUAN/SecureFileShare/internal/models/sqlmodel"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Migrate 创建或更新本地数据库中的表。
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&sqlmodel.BlobUpload{}); err != nil {
		return errors.Wrap(err, "无法迁移数据库表")
	}

	return nil
}

// SaveBlobUploadsToLocalDB 在一个交易中将一批上传记录存入 blob_uploads 表。
func SaveBlobUploadsToLocalDB(uploads []*common.BlobUpload, db *gorm.DB) error {
	if len(uploads) == 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		rows := make([]*sqlmodel.BlobUpload, 0, len(uploads))
		for _, upload := range uploads {
			row, err := sqlmodel.NewBlobUploadFromModel(upload)
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}

		if dbResult := tx.Create(rows); dbResult.Error != nil {
			return errors.Wrap(dbResult.Error, "无法将上传记录存入数据库")
		}

		return nil
	})
}

// ListOrphanedBlobUploadsFromLocalDB 列出所有孤立的内容，供回收。
func ListOrphanedBlobUploadsFromLocalDB(db *gorm.DB) ([]*common.BlobUpload, error) {
	var rows []sqlmodel.BlobUpload
	dbResult := db.Where("status = ?", "ORPHANED").Order("id").Find(&rows)
	if dbResult.Error != nil {
		return nil, errors.Wrap(dbResult.Error, "无法从数据库中读取孤立内容")
	}

	ret := make([]*common.BlobUpload, 0, len(rows))
	for i := range rows {
		upload, err := rows[i].ToModel()
		if err != nil {
			return nil, err
		}
		ret = append(ret, upload)
	}

	return ret, nil
}

// MarkBlobUploadsRegisteredInLocalDB 将属于指定文件的孤立内容标记为已登记。用于提交超时但实际已上链的批次。
//
// 返回：
//   被更新的行数
func MarkBlobUploadsRegisteredInLocalDB(fileIDs []string, db *gorm.DB) (int64, error) {
	if len(fileIDs) == 0 {
		return 0, nil
	}

	ids, err := sqlmodel.ParseSnowflakeStrings(fileIDs)
	if err != nil {
		return 0, errors.Wrap(err, "无法解析文件 ID")
	}

	dbResult := db.Model(&sqlmodel.BlobUpload{}).
		Where("file_id IN ? AND status = ?", ids, "ORPHANED").
		Updates(map[string]interface{}{"status": "REGISTERED", "reason": ""})
	if dbResult.Error != nil {
		return 0, errors.Wrap(dbResult.Error, "无法更新上传记录")
	}

	return dbResult.RowsAffected, nil
}
