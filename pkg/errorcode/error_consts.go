package errorcode

import "fmt"

const (
	// CodeNotFound 表示资源未找到。Service 层收到的错误中若是这样的错误信息则表示是资源未找到，而非链码运行出错。
	CodeNotFound = "~NOTFOUND~"
	// CodeForbidden 表示参数被理解，但无权进行操作。Service 层收到的错误中若是这样的错误信息则表示是操作权限的问题，而非链码运行出错。
	CodeForbidden = "~FORBIDDEN~"
	// CodeNotImplemented 是个在这个项目中约定俗成的代号。Service 层收到错误中若是这样的错误信息则表示是暂时未实现的功能而非链码运行出错。
	CodeNotImplemented = "~NOTIMPLEMENTED~"
)

// ErrorNotFound 为使用了 `CodeNotFound` 的 error 实例
var ErrorNotFound = fmt.Errorf(CodeNotFound)

// ErrorForbidden 为使用了 `CodeForbidden` 的 error 实例
var ErrorForbidden = fmt.Errorf(CodeForbidden)

// ErrorNotImplemented 为使用了 `CodeNotImplemented` 的 error 实例
var ErrorNotImplemented = fmt.Errorf(CodeNotImplemented)

// 以下错误构成加密上传与解密下载流程的错误分类。上层用 `errors.Cause(err) == errorcode.ErrorXxx` 判别。
var (
	// ErrorStoreUnavailable 表示无法访问内容寻址存储（网络或服务故障），调用者可重试。
	ErrorStoreUnavailable = fmt.Errorf("存储服务不可用")
	// ErrorIntegrityCheckFailed 表示取回的内容与 ID 或账本记录的大小、哈希不符。重试不会改变结果。
	ErrorIntegrityCheckFailed = fmt.Errorf("内容完整性校验未通过")
	// ErrorBlobNotFound 表示存储中不存在指定内容 ID。
	ErrorBlobNotFound = fmt.Errorf("未找到指定的内容")
	// ErrorMalformedEnvelope 表示密文信封格式不正确或版本不受支持。
	ErrorMalformedEnvelope = fmt.Errorf("密文信封格式不正确")
	// ErrorWalletNotConnected 表示没有可用于签名的钱包。
	ErrorWalletNotConnected = fmt.Errorf("未连接钱包")
	// ErrorInvalidSignature 表示签名验证未通过或会话凭证已失效。
	ErrorInvalidSignature = fmt.Errorf("签名无效")
	// ErrorInsufficientShares 表示收集到的有效份额不足门限。
	ErrorInsufficientShares = fmt.Errorf("有效份额不足")
	// ErrorUnauthorized 表示调用者无权获取解密密钥。
	ErrorUnauthorized = fmt.Errorf("无权访问")
	// ErrorPolicyNotFound 表示密钥服务器找不到对应的策略或文件。
	ErrorPolicyNotFound = fmt.Errorf("未找到访问策略")
	// ErrorServerError 表示密钥服务器内部出错。
	ErrorServerError = fmt.Errorf("密钥服务器内部错误")
	// ErrorDecryptionFailed 表示解密失败（密钥错误或密文被篡改）。
	ErrorDecryptionFailed = fmt.Errorf("解密失败")
	// ErrorTransactionRejected 表示账本拒绝了交易。
	ErrorTransactionRejected = fmt.Errorf("交易被拒绝")
	// ErrorUploadFailed 表示上传流程中某个文件失败。
	ErrorUploadFailed = fmt.Errorf("上传失败")
	// ErrorSchemaMismatch 表示账本返回的记录不符合预期结构。
	ErrorSchemaMismatch = fmt.Errorf("记录结构不匹配")
)
