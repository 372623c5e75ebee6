package bcao

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/JasonRUAN/SecureFileShare/pkg/errorcode"
	"github.com/JasonRUAN/SecureFileShare/pkg/models/filereg"
	"github.com/pkg/errors"
)

// DecodeFileRecord 按固定结构解析链码返回的文件记录。存在未知字段、缺少必需字段或字段不一致时返回 `errorcode.ErrorSchemaMismatch`。
func DecodeFileRecord(b []byte) (*filereg.FileRecord, error) {
	var record filereg.FileRecord
	if err := decodeStrict(b, &record); err != nil {
		return nil, err
	}

	switch {
	case record.ID == "":
		return nil, errors.Wrap(errorcode.ErrorSchemaMismatch, "文件记录缺少 ID")
	case record.Owner == "":
		return nil, errors.Wrapf(errorcode.ErrorSchemaMismatch, "文件记录 '%v' 缺少所有者", record.ID)
	case record.BlobID == "":
		return nil, errors.Wrapf(errorcode.ErrorSchemaMismatch, "文件记录 '%v' 缺少内容 ID", record.ID)
	case record.ContentHash == "":
		return nil, errors.Wrapf(errorcode.ErrorSchemaMismatch, "文件记录 '%v' 缺少内容哈希", record.ID)
	case record.IsEncrypted && record.PolicyID == "":
		return nil, errors.Wrapf(errorcode.ErrorSchemaMismatch, "加密文件记录 '%v' 缺少策略 ID", record.ID)
	case !record.IsEncrypted && record.PolicyID != "":
		return nil, errors.Wrapf(errorcode.ErrorSchemaMismatch, "未加密文件记录 '%v' 不应带有策略 ID", record.ID)
	}

	if record.AccessList == nil {
		record.AccessList = []string{}
	}

	return &record, nil
}

// DecodeIDList 解析链码返回的 ID 列表
func DecodeIDList(b []byte) ([]string, error) {
	var ids []string
	if err := decodeStrict(b, &ids); err != nil {
		return nil, err
	}

	if ids == nil {
		ids = []string{}
	}

	return ids, nil
}

func decodeStrict(b []byte, v interface{}) error {
	decoder := json.NewDecoder(bytes.NewReader(b))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return errors.Wrap(errorcode.ErrorSchemaMismatch, err.Error())
	}

	// 只允许一个 JSON 值
	if _, err := decoder.Token(); err != io.EOF {
		return errors.Wrap(errorcode.ErrorSchemaMismatch, "记录之后存在多余的数据")
	}

	return nil
}
