package controller

import (
	"net/http"

	"github.com/JasonRUAN/SecureFileShare/internal/service"
	"github.com/JasonRUAN/SecureFileShare/pkg/errorcode"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// statusOfError 按错误类别得到 HTTP 状态码。
func statusOfError(err error) int {
	var badRequest *service.ErrorBadRequest
	if errors.As(err, &badRequest) {
		return http.StatusBadRequest
	}

	cause := errors.Cause(err)

	// 上传失败时按引起失败的原因决定状态码
	if cause == errorcode.ErrorUploadFailed {
		var stageErr *service.StageError
		if errors.As(err, &stageErr) && stageErr.Err != nil {
			cause = errors.Cause(stageErr.Err)
		}
	}

	switch cause {
	case errorcode.ErrorNotFound, errorcode.ErrorBlobNotFound, errorcode.ErrorPolicyNotFound:
		return http.StatusNotFound
	case errorcode.ErrorForbidden, errorcode.ErrorUnauthorized:
		return http.StatusForbidden
	case errorcode.ErrorWalletNotConnected, errorcode.ErrorInvalidSignature:
		return http.StatusUnauthorized
	case errorcode.ErrorTransactionRejected:
		return http.StatusBadRequest
	case errorcode.ErrorInsufficientShares, errorcode.ErrorServerError, errorcode.ErrorSchemaMismatch,
		errorcode.ErrorMalformedEnvelope, errorcode.ErrorDecryptionFailed, errorcode.ErrorIntegrityCheckFailed:
		return http.StatusBadGateway
	case errorcode.ErrorStoreUnavailable:
		return http.StatusServiceUnavailable
	case errorcode.ErrorNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError 结束请求并以 JSON 返回错误信息。
func abortWithError(c *gin.Context, err error) {
	status := statusOfError(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("%v %v 失败: %v", c.Request.Method, c.Request.URL.Path, err)
	}

	c.AbortWithStatusJSON(status, NewFromMsg(err.Error()))
}

func abortWithParameterErrors(c *gin.Context, pel *ParameterErrorList) {
	c.AbortWithStatusJSON(http.StatusBadRequest, NewFromErrors(pel))
}
