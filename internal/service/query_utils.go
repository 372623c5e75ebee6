package service

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/JasonRUAN/SecureFileShare/pkg/errorcode"
	"github.com/JasonRUAN/SecureFileShare/pkg/models/filereg"
	"github.com/pkg/errors"
)

type integrityCheckResult int

const (
	matched integrityCheckResult = iota
	storedSizeNotMatched
	storedHashNotMatched
	plainSizeNotMatched
)

func (r integrityCheckResult) toError(record *filereg.FileRecord) error {
	switch r {
	case matched:
		return nil
	case storedSizeNotMatched:
		return errors.Wrapf(errorcode.ErrorIntegrityCheckFailed, "获取的内容大小与文件 '%v' 的记录不符", record.ID)
	case storedHashNotMatched:
		return errors.Wrapf(errorcode.ErrorIntegrityCheckFailed, "获取的内容哈希与文件 '%v' 的记录不符", record.ID)
	case plainSizeNotMatched:
		return errors.Wrapf(errorcode.ErrorDecryptionFailed, "文件 '%v' 解密后的大小不正确", record.ID)
	}

	panic(fmt.Sprintf("未知的检查结果类型 %d", r))
}

// hashBase64 计算数据的 SHA-256 并以 Base64 表示
func hashBase64(dataBytes []byte) string {
	hash := sha256.Sum256(dataBytes)
	return base64.StdEncoding.EncodeToString(hash[:])
}

// 检查所存内容的大小和哈希是否与记录匹配。
func checkSizeAndHashForStoredData(dataBytes []byte, record *filereg.FileRecord) integrityCheckResult {
	if uint64(len(dataBytes)) != record.StoredSize {
		return storedSizeNotMatched
	}

	if hashBase64(dataBytes) != record.ContentHash {
		return storedHashNotMatched
	}

	return matched
}

// 检查明文或解密后的内容的大小是否匹配。
func checkSizeForPlainData(dataBytes []byte, record *filereg.FileRecord) integrityCheckResult {
	if uint64(len(dataBytes)) != record.FileSize {
		return plainSizeNotMatched
	}

	return matched
}
