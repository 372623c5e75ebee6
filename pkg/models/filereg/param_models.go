package filereg

import "fmt"

// TokenUnit 为 1 个代币对应的最小货币单位数量（价格以最小单位记账）。
const TokenUnit uint64 = 1_000_000_000

// AccessMode 用于标志一个文件上传时选择的访问方式
type AccessMode int

const (
	// Public 表示文件公开，不加密，任何人都可读取。
	Public AccessMode = iota
	// Private 表示文件加密，仅所有者可解密。
	Private
	// Shared 表示文件加密，所有者与指定的被授权者可解密。
	Shared
	// Purchasable 表示文件加密并上架出售，购买者可解密。
	Purchasable
)

func (m AccessMode) String() string {
	switch m {
	case Public:
		return "public"
	case Private:
		return "private"
	case Shared:
		return "shared"
	case Purchasable:
		return "purchasable"
	default:
		return fmt.Sprintf("%d", int(m))
	}
}

// IsEncrypted 返回该访问方式下文件是否需要加密。除 Public 以外均需加密。
func (m AccessMode) IsEncrypted() bool {
	return m != Public
}

// NewAccessModeFromString 从 enum 名称获得 AccessMode enum。
func NewAccessModeFromString(enumString string) (ret AccessMode, err error) {
	switch enumString {
	case "public":
		ret = Public
		return
	case "private":
		ret = Private
		return
	case "shared":
		ret = Shared
		return
	case "purchasable":
		ret = Purchasable
		return
	default:
		err = fmt.Errorf("不正确的 enum 字符串")
		return
	}
}

// FileInfo 表示要传入链码 `createFiles` 的单个文件的信息
type FileInfo struct {
	ID               string   `json:"id"`               // 文件 ID
	Name             string   `json:"name"`             // 文件名
	Description      string   `json:"description"`      // 文件描述
	BlobID           string   `json:"fileBlobId"`       // 内容寻址存储返回的内容 ID
	FileType         string   `json:"fileType"`         // 声明的内容类型
	FileSize         uint64   `json:"fileSize"`         // 明文大小
	Price            uint64   `json:"price"`            // 价格（最小货币单位），为 0 表示不可购买
	IsEncrypted      bool     `json:"isEncrypt"`        // 是否加密
	PolicyID         string   `json:"policyId"`         // 访问策略 ID（hex），未加密时为空
	ContentHash      string   `json:"contentHash"`      // 所存内容的 SHA-256（Base64）
	StoredSize       uint64   `json:"storedSize"`       // 所存内容的大小
	GranteeAddresses []string `json:"granteeAddresses"` // 初始被授权者地址列表
}

// CallerProof 为钱包对一次链码调用的签名证明。它作为最后一个参数附在需修改状态的链码调用后。
type CallerProof struct {
	Address   string `json:"address"`   // 调用者地址
	PublicKey string `json:"publicKey"` // 调用者 SM2 公钥（[64]byte 的 Base64 编码）
	Nonce     string `json:"nonce"`     // 一次性随机数，防止重放
	Signature string `json:"signature"` // 对调用摘要的签名（Base64 编码）
}
