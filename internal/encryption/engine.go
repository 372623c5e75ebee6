// Package encryption seals file bytes into envelopes whose key only a quorum of key servers can release.
package encryption

import (
	"fmt"

	"github.com/JasonRUAN/SecureFileShare/internal/envelope"
	"github.com/JasonRUAN/SecureFileShare/internal/keyserver"
	"github.com/JasonRUAN/SecureFileShare/internal/utils/cipherutils"
	"github.com/JasonRUAN/SecureFileShare/internal/utils/timingutils"
	"github.com/JasonRUAN/SecureFileShare/pkg/errorcode"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Engine 负责加密与解密
type Engine struct {
	servers   []*keyserver.ServerKey
	threshold int
}

// NewEngine 创建加密引擎。
//
// 参数：
//   密钥服务器列表
//   门限
func NewEngine(servers []*keyserver.ServerKey, threshold int) (*Engine, error) {
	if len(servers) == 0 || len(servers) > 255 {
		return nil, fmt.Errorf("密钥服务器数量 %v 不合法", len(servers))
	}

	if threshold <= 0 || threshold > len(servers) {
		return nil, fmt.Errorf("门限 %v 不合法，应在 1 到 %v 之间", threshold, len(servers))
	}

	return &Engine{servers: servers, threshold: threshold}, nil
}

// NewPolicyID 生成新的策略 ID（16 个随机字节）。
func (e *Engine) NewPolicyID() ([]byte, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, errors.Wrap(err, "无法生成策略 ID")
	}

	return id[:], nil
}

// Seal 加密明文。对称密钥由一个随机点秘密导出，该秘密以 t-of-n 的方式封装给各密钥服务器。
//
// 参数：
//   明文
//   策略 ID
//
// 返回：
//   信封
func (e *Engine) Seal(plaintext []byte, policyID []byte) (*envelope.Envelope, error) {
	defer timingutils.GetDeferrableTimingLogger(fmt.Sprintf("加密 %v 字节的数据", len(plaintext)))()

	s, secret := cipherutils.GenerateSecret()

	// 份额序号与服务器序号对应，序号不连续时多余的份额不使用
	maxIndex := 0
	for _, server := range e.servers {
		if server.Endpoint.Index > maxIndex {
			maxIndex = server.Endpoint.Index
		}
	}

	pubShares, err := cipherutils.SplitSecret(s, e.threshold, maxIndex)
	if err != nil {
		return nil, err
	}

	env := &envelope.Envelope{
		PolicyID:  policyID,
		Threshold: uint8(e.threshold),
	}

	for _, server := range e.servers {
		index := uint8(server.Endpoint.Index - 1)
		cipherText, proof, err := cipherutils.EncryptPointWithProof(server.PublicKey, pubShares[index].V, envelope.ShareLabel(policyID, index))
		if err != nil {
			return nil, errors.Wrap(err, "无法封装份额")
		}

		k, err := cipherutils.SerializePoint(cipherText.K)
		if err != nil {
			return nil, err
		}
		c, err := cipherutils.SerializePoint(cipherText.C)
		if err != nil {
			return nil, err
		}

		env.Shares = append(env.Shares, envelope.EncapsulatedShare{Index: index, K: k, C: c, Proof: proof})
	}

	if env.Nonce, err = cipherutils.GenerateNonce(); err != nil {
		return nil, errors.Wrap(err, "无法生成随机数")
	}

	header, err := env.Header()
	if err != nil {
		return nil, err
	}

	key, err := cipherutils.DeriveSymmetricKeyBytesFromCurvePoint(secret, policyID)
	if err != nil {
		return nil, err
	}

	env.Ciphertext, err = cipherutils.EncryptBytesUsingAESKey(plaintext, key, env.Nonce, header)
	if err != nil {
		return nil, errors.Wrap(err, "无法加密数据")
	}

	return env, nil
}

// Open 使用恢复的对称密钥解密信封。密钥错误或密文被篡改时返回 `errorcode.ErrorDecryptionFailed`。
func Open(env *envelope.Envelope, key []byte) ([]byte, error) {
	defer timingutils.GetDeferrableTimingLogger(fmt.Sprintf("解密 %v 字节的数据", len(env.Ciphertext)))()

	header, err := env.Header()
	if err != nil {
		return nil, err
	}

	plaintext, err := cipherutils.DecryptBytesUsingAESKey(env.Ciphertext, key, env.Nonce, header)
	if err != nil {
		return nil, errors.Wrap(errorcode.ErrorDecryptionFailed, err.Error())
	}

	return plaintext, nil
}
