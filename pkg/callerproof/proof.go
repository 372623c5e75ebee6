// Package callerproof builds and checks the wallet signatures attached to state-changing chaincode calls.
// Both the client side (bcao) and the chaincode use it so the signed message is computed the same way.
package callerproof

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/JasonRUAN/SecureFileShare/pkg/models/filereg"
	"github.com/JasonRUAN/SecureFileShare/pkg/sm2keyutils"
)

const messagePrefix = "SecureFileShare transaction "

// Digest 计算一次链码调用的摘要：SHA-256(fcn 0x00 arg0 0x00 ... argN 0x00 nonce)。
func Digest(fcn string, args []string, nonce string) []byte {
	h := sha256.New()
	h.Write([]byte(fcn))
	h.Write([]byte{0x00})
	for _, arg := range args {
		h.Write([]byte(arg))
		h.Write([]byte{0x00})
	}
	h.Write([]byte(nonce))
	return h.Sum(nil)
}

// Message 返回钱包需要签名的消息。
func Message(fcn string, args []string, nonce string) []byte {
	return []byte(messagePrefix + hex.EncodeToString(Digest(fcn, args, nonce)))
}

// Verify 检查调用证明：公钥与地址对应，且签名对本次调用的消息有效。
//
// 参数：
//   调用证明
//   链码函数名
//   除调用证明以外的链码参数
func Verify(proof *filereg.CallerProof, fcn string, args []string) error {
	if proof == nil {
		return fmt.Errorf("缺少调用证明")
	}

	if proof.Nonce == "" {
		return fmt.Errorf("调用证明中的随机数不能为空")
	}

	publicKeyBytes, err := base64.StdEncoding.DecodeString(proof.PublicKey)
	if err != nil {
		return fmt.Errorf("无法解析调用者公钥: %v", err)
	}

	if sm2keyutils.AddressFromPublicKey(publicKeyBytes) != proof.Address {
		return fmt.Errorf("调用者公钥与地址不匹配")
	}

	signature, err := base64.StdEncoding.DecodeString(proof.Signature)
	if err != nil {
		return fmt.Errorf("无法解析调用者签名: %v", err)
	}

	if !sm2keyutils.VerifyMessage(publicKeyBytes, Message(fcn, args, proof.Nonce), signature) {
		return fmt.Errorf("调用者签名验证未通过")
	}

	return nil
}
