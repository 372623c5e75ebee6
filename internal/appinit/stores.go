package appinit

import (
	"context"
	"fmt"

	"github.com/JasonRUAN/SecureFileShare/internal/blobstore"
	"github.com/JasonRUAN/SecureFileShare/internal/db"
	errors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenBlobStore creates the blob store described in the config.
func OpenBlobStore(ctx context.Context, conf *blobstore.Config) (blobstore.Store, error) {
	if conf == nil || conf.Type == "" {
		return nil, fmt.Errorf("未配置存储后端")
	}

	store, err := blobstore.New(ctx, conf)
	if err != nil {
		return nil, errors.Wrapf(err, "无法创建 '%v' 存储后端", conf.Type)
	}

	log.Infof("已连接 '%v' 存储后端。", conf.Type)
	return store, nil
}

// OpenDB connects to the local MySQL database and migrates the tables. Returns nil if no DB is configured.
func OpenDB(info *DBInfo) (*gorm.DB, error) {
	if info == nil || info.DSN == "" {
		log.Infoln("未配置本地数据库，将不记录上传的内容。")
		return nil, nil
	}

	conn, err := gorm.Open(mysql.Open(info.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "无法连接本地数据库")
	}

	if err := db.Migrate(conn); err != nil {
		return nil, err
	}

	return conn, nil
}
