package keyserver

// SealApproveFcn 为授权检查所用的链码函数名。
const SealApproveFcn = "sealApprove"

// AuthTx 为交给密钥服务器进行只读模拟的授权交易。
// Args 依次为：策略 ID（hex）、文件 ID、调用者地址。
type AuthTx struct {
	ChaincodeID string   `json:"chaincodeId"`
	Fcn         string   `json:"fcn"`
	Args        []string `json:"args"`
}

// SessionCredential 为会话凭证在网络上传输时的形式
type SessionCredential struct {
	Address    string `json:"address"`    // 会话所属地址
	PublicKey  string `json:"publicKey"`  // 钱包 SM2 公钥（[64]byte 的 Base64 编码）
	Scope      string `json:"scope"`      // 适用范围（链码 ID）
	IssuedAt   int64  `json:"issuedAt"`   // 签发时间（Unix 秒）
	ExpiresAt  int64  `json:"expiresAt"`  // 过期时间（Unix 秒）
	SessionKey string `json:"sessionKey"` // 会话临时公钥（Base64 编码），包含在钱包签名的消息中
	Signature  string `json:"signature"`  // 对挑战消息的签名（Base64 编码）
}

// ShareRequest 为向单个密钥服务器请求份额的参数
type ShareRequest struct {
	PolicyID       string            `json:"policyId"`       // 策略 ID（hex）
	AuthTx         []byte            `json:"authTx"`         // 序列化的 AuthTx
	Session        SessionCredential `json:"session"`        // 会话凭证
	EncryptedShare string            `json:"encryptedShare"` // 信封中发给该服务器的加密份额 K||C（Base64 编码）
	ShareProof     string            `json:"shareProof"`     // 加密份额所附的证明（Base64 编码）
	RequesterKey   string            `json:"requesterKey"`   // 请求者公钥（Base64 编码），必须为会话公钥
	Signature      string            `json:"signature"`      // 会话私钥对请求的 Schnorr 签名（Base64 编码）
}

// ShareResponse 为密钥服务器返回的份额
type ShareResponse struct {
	Index     int    `json:"index"`     // 服务器序号（从 1 开始）
	Share     string `json:"share"`     // 置换到请求者公钥下的份额 K'||C'（Base64 编码）
	Signature string `json:"signature"` // 服务器对响应的 Schnorr 签名（Base64 编码）
}

// 拒绝代码
const (
	RefusalUnauthorized   = "UNAUTHORIZED"
	RefusalPolicyNotFound = "POLICY_NOT_FOUND"
	RefusalInvalidSession = "INVALID_SESSION"
	RefusalBadRequest     = "BAD_REQUEST"
	RefusalServerError    = "SERVER_ERROR"
)

// Refusal 为密钥服务器拒绝提供份额时的响应
type Refusal struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// ServerInfo 为密钥服务器对外公布的信息
type ServerInfo struct {
	Index     int    `json:"index"`
	PublicKey string `json:"publicKey"` // hex
}
