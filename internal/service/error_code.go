package service

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorBadRequest 表示调用参数不合法
type ErrorBadRequest struct {
	errMsg string
}

func (e *ErrorBadRequest) Error() string {
	return e.errMsg
}

func newBadRequest(format string, args ...interface{}) *ErrorBadRequest {
	return &ErrorBadRequest{errMsg: fmt.Sprintf(format, args...)}
}

// 流程中的阶段
const (
	StageReadBytes          = "ReadBytes"
	StageEncryptIfRequested = "EncryptIfRequested"
	StagePutBlob            = "PutBlob"
	StageBuildRecord        = "BuildRecord"
	StageSubmitRecords      = "SubmitRecords"

	StageGetRecord       = "GetRecord"
	StageGetBlob         = "GetBlob"
	StageVerifyIntegrity = "VerifyIntegrity"
	StageParseEnvelope   = "ParseEnvelope"
	StageBeginSession    = "BeginSession"
	StageBuildAuthTx     = "BuildAuthTx"
	StageFetchKeyShares  = "FetchKeyShares"
	StageOpen            = "Open"
)

// StageError 标明流程在哪个阶段失败。
// `errors.Cause` 得到错误类别：Kind 不为空时为 Kind，否则为 Err 的根因。`errors.Is` 可沿 Err 找到原始错误。
type StageError struct {
	Stage   string
	Subject string // 文件名或文件 ID
	Kind    error
	Err     error
}

func (e *StageError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("%v 阶段失败: %v", e.Stage, e.Err)
	}

	return fmt.Sprintf("'%v' 在 %v 阶段失败: %v", e.Subject, e.Stage, e.Err)
}

func (e *StageError) Cause() error {
	if e.Kind != nil {
		return e.Kind
	}

	return errors.Cause(e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func newStageError(stage string, subject string, err error) *StageError {
	return &StageError{Stage: stage, Subject: subject, Err: err}
}
