package keyserver

import (
	"net/http"

	"github.com/JasonRUAN/SecureFileShare/pkg/errorcode"
	"github.com/JasonRUAN/SecureFileShare/pkg/models/keyserver"
	"github.com/pkg/errors"
)

// errBadRequest 表示请求本身不合法（无法解析、与会话不符等）
var errBadRequest = errors.New("请求不合法")

// RefusalFromError 将服务端错误转换为对外的拒绝信息。
func RefusalFromError(err error) *keyserver.Refusal {
	code := keyserver.RefusalServerError
	switch errors.Cause(err) {
	case errorcode.ErrorUnauthorized:
		code = keyserver.RefusalUnauthorized
	case errorcode.ErrorPolicyNotFound:
		code = keyserver.RefusalPolicyNotFound
	case errorcode.ErrorInvalidSignature:
		code = keyserver.RefusalInvalidSession
	case errBadRequest:
		code = keyserver.RefusalBadRequest
	}

	return &keyserver.Refusal{Code: code, Msg: err.Error()}
}

// ErrorFromRefusal 将拒绝信息还原为错误。
func ErrorFromRefusal(refusal *keyserver.Refusal) error {
	var sentinel error
	switch refusal.Code {
	case keyserver.RefusalUnauthorized:
		sentinel = errorcode.ErrorUnauthorized
	case keyserver.RefusalPolicyNotFound:
		sentinel = errorcode.ErrorPolicyNotFound
	case keyserver.RefusalInvalidSession:
		sentinel = errorcode.ErrorInvalidSignature
	case keyserver.RefusalBadRequest:
		sentinel = errBadRequest
	default:
		sentinel = errorcode.ErrorServerError
	}

	return errors.Wrap(sentinel, refusal.Msg)
}

// HTTPStatusOfRefusal 返回拒绝代码对应的 HTTP 状态码。
func HTTPStatusOfRefusal(code string) int {
	switch code {
	case keyserver.RefusalUnauthorized:
		return http.StatusForbidden
	case keyserver.RefusalPolicyNotFound:
		return http.StatusNotFound
	case keyserver.RefusalInvalidSession:
		return http.StatusUnauthorized
	case keyserver.RefusalBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// TransportError 表示未能与密钥服务器完成一次往返。它不算作服务器的响应。
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "无法连接密钥服务器: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
