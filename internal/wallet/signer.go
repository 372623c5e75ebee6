// Package wallet holds the signing identity of the current user.
package wallet

import (
	"context"

	"github.com/JasonRUAN/SecureFileShare/pkg/sm2keyutils"
	"github.com/pkg/errors"
	"github.com/tjfoc/gmsm/sm2"
)

// Signer 为钱包签名者。签名可能需要用户确认，因此接受 ctx。
type Signer interface {
	// Address 返回钱包地址。
	Address() string
	// PublicKey 返回序列化的公钥（64 字节）。
	PublicKey() []byte
	// Sign 对消息签名。
	Sign(ctx context.Context, msg []byte) ([]byte, error)
}

// SM2Signer 为持有 SM2 私钥的本地钱包
type SM2Signer struct {
	privateKey     *sm2.PrivateKey
	publicKeyBytes []byte
	address        string
}

// NewSM2Signer 用私钥创建钱包。
func NewSM2Signer(privateKey *sm2.PrivateKey) *SM2Signer {
	publicKeyBytes := sm2keyutils.SerializePublicKey(&privateKey.PublicKey)
	return &SM2Signer{
		privateKey:     privateKey,
		publicKeyBytes: publicKeyBytes,
		address:        sm2keyutils.AddressFromPublicKey(publicKeyBytes),
	}
}

// NewSM2SignerFromPEM 从 PEM 格式的私钥创建钱包。若给出公钥，则检查它与私钥是否匹配。
func NewSM2SignerFromPEM(privateKeyPEM []byte, publicKeyPEM []byte) (*SM2Signer, error) {
	privateKey, err := sm2keyutils.ConvertPEMToPrivateKey(privateKeyPEM)
	if err != nil {
		return nil, errors.Wrap(err, "无法解析钱包私钥")
	}

	if len(publicKeyPEM) != 0 {
		publicKey, err := sm2keyutils.ConvertPEMToPublicKey(publicKeyPEM)
		if err != nil {
			return nil, errors.Wrap(err, "无法解析钱包公钥")
		}

		if publicKey.X.Cmp(privateKey.PublicKey.X) != 0 || publicKey.Y.Cmp(privateKey.PublicKey.Y) != 0 {
			return nil, errors.New("钱包公钥与私钥不匹配")
		}
	}

	return NewSM2Signer(privateKey), nil
}

func (s *SM2Signer) Address() string {
	return s.address
}

func (s *SM2Signer) PublicKey() []byte {
	ret := make([]byte, len(s.publicKeyBytes))
	copy(ret, s.publicKeyBytes)
	return ret
}

func (s *SM2Signer) Sign(ctx context.Context, msg []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return sm2keyutils.SignMessage(s.privateKey, msg)
}
