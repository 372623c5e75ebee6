package bcao

import (
	"strings"

	"github.com/JasonRUAN/SecureFileShare/pkg/errorcode"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/errors/status"
	"github.com/pkg/errors"
)

// GetClassifiedError is a general error handler that converts some errors returned from the chaincode to the predefined errors.
// Refusals carrying an error code suffix become `ErrorForbidden`, `ErrorNotFound` or `ErrorNotImplemented`,
// other refusals from the chaincode become `ErrorTransactionRejected`. The chaincode message is kept.
func GetClassifiedError(chaincodeFcn string, err error) error {
	if err == nil {
		return nil
	}

	msg := chaincodeMessage(err)
	if strings.HasSuffix(msg, errorcode.CodeForbidden) {
		return errors.Wrap(errorcode.ErrorForbidden, strings.TrimSuffix(msg, errorcode.CodeForbidden))
	} else if strings.HasSuffix(msg, errorcode.CodeNotFound) {
		return errors.Wrap(errorcode.ErrorNotFound, strings.TrimSuffix(msg, errorcode.CodeNotFound))
	} else if strings.HasSuffix(msg, errorcode.CodeNotImplemented) {
		return errorcode.ErrorNotImplemented
	}

	if s, ok := status.FromError(err); ok && (s.Group == status.ChaincodeStatus || s.Group == status.EndorserServerStatus) {
		return errors.Wrapf(errorcode.ErrorTransactionRejected, "链码函数 '%v' 拒绝了交易: %v", chaincodeFcn, s.Message)
	}

	return errors.Wrapf(err, "无法调用链码函数 '%v'", chaincodeFcn)
}

// chaincodeMessage 取出 SDK 错误中链码返回的信息
func chaincodeMessage(err error) string {
	if s, ok := status.FromError(err); ok && s.Message != "" {
		return s.Message
	}

	return err.Error()
}
