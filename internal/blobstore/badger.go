package blobstore

import (
	"context"
	"fmt"

	"github.com/JasonRUAN/SecureFileShare/pkg/errorcode"
	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

const badgerKeyPrefix = "blob:"

// BadgerOptions 为嵌入式 Badger 后端的选项。InMemory 为 true 时忽略 Dir。
type BadgerOptions struct {
	Dir      string `mapstructure:"dir"`
	InMemory bool   `mapstructure:"inMemory"`
}

// BadgerStore 将数据存入本地的 Badger 数据库，键为内容的 SHA-256。
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore 打开（或创建）Badger 数据库。
func NewBadgerStore(opts *BadgerOptions) (*BadgerStore, error) {
	var badgerOpts badger.Options
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Dir == "" {
			return nil, fmt.Errorf("Badger 数据目录不能为空")
		}
		badgerOpts = badger.DefaultOptions(opts.Dir)
	}
	badgerOpts = badgerOpts.WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, errors.Wrap(err, "无法打开 Badger 数据库")
	}

	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Put(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", wrapUnavailable(err, "操作被取消")
	}

	id := ContentID(data)
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerKeyPrefix+id), data)
	})
	if err != nil {
		return "", wrapUnavailable(err, "无法将数据写入 Badger")
	}

	return id, nil
}

func (s *BadgerStore) Get(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrapUnavailable(err, "操作被取消")
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + id))
		if err != nil {
			return err
		}

		data, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, errors.Wrapf(errorcode.ErrorBlobNotFound, "Badger 中不存在 '%v'", id)
	} else if err != nil {
		return nil, wrapUnavailable(err, "无法从 Badger 读取数据")
	}

	if err := VerifyContentID(id, data); err != nil {
		return nil, err
	}

	return data, nil
}

// Close 关闭数据库。
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
