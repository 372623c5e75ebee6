// Package envelope defines the self-describing format of encrypted payloads kept in the blob store.
//
// Layout (version 1):
//
//	magic "SFSE" (4) | version (1) | policyIdLen (1) | policyId
//	| threshold (1) | shareCount (1) | shareCount x [ index (1) | K (32) | C (32) | proof (64) ]
//	| nonceLen (1) | nonce | ciphertext
//
// The policy id sits at a fixed offset so it can be read without touching the rest.
// Everything before the ciphertext is the header and is bound to the ciphertext as AEAD associated data.
package envelope

import (
	"bytes"
	"encoding/hex"

	"github.com/JasonRUAN/SecureFileShare/pkg/errorcode"
	"github.com/pkg/errors"
)

const (
	// Version 为当前信封格式版本。任何布局变更都必须提升版本号。
	Version byte = 0x01
	// PointLen 为封装份额中每个曲线点的长度。
	PointLen = 32
	// ProofLen 为封装份额所附证明的长度。
	ProofLen = 64

	shareEntryLen  = 1 + 2*PointLen + ProofLen
	magicLen       = 4
	policyIDOffset = magicLen + 2
	maxPolicyIDLen = 255
	maxShareCount  = 255
	maxNonceLen    = 255
)

var magic = []byte("SFSE")

const shareLabelPrefix = "SecureFileShare/share/"

// EncapsulatedShare 为加密给某个密钥服务器的份额，(K, C) 为 ElGamal 密文。
// Proof 证明加密者知道 K 的随机数，并把该份额绑定到策略 ID 与序号上。
type EncapsulatedShare struct {
	Index uint8 // 份额序号（从 0 开始，对应第 Index+1 个密钥服务器）
	K     []byte
	C     []byte
	Proof []byte
}

// Envelope 为加密对象。
type Envelope struct {
	PolicyID   []byte
	Threshold  uint8
	Shares     []EncapsulatedShare
	Nonce      []byte
	Ciphertext []byte
}

// PolicyIDHex 返回策略 ID 的 hex 表示。
func (e *Envelope) PolicyIDHex() string {
	return hex.EncodeToString(e.PolicyID)
}

// ShareFor 返回指定序号的封装份额。
func (e *Envelope) ShareFor(index uint8) (*EncapsulatedShare, bool) {
	for i := range e.Shares {
		if e.Shares[i].Index == index {
			return &e.Shares[i], true
		}
	}

	return nil, false
}

// ShareLabel 返回封装份额的证明所绑定的标签。
func ShareLabel(policyID []byte, index uint8) []byte {
	label := make([]byte, 0, len(shareLabelPrefix)+len(policyID)+1)
	label = append(label, shareLabelPrefix...)
	label = append(label, policyID...)
	return append(label, index)
}

// Header 返回信封头部（密文之前的所有字节），用作 AEAD 的关联数据。
func (e *Envelope) Header() ([]byte, error) {
	if err := e.validateHeader(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(magic)
	buf.WriteByte(Version)
	buf.WriteByte(byte(len(e.PolicyID)))
	buf.Write(e.PolicyID)
	buf.WriteByte(e.Threshold)
	buf.WriteByte(byte(len(e.Shares)))
	for _, share := range e.Shares {
		buf.WriteByte(share.Index)
		buf.Write(share.K)
		buf.Write(share.C)
		buf.Write(share.Proof)
	}
	buf.WriteByte(byte(len(e.Nonce)))
	buf.Write(e.Nonce)

	return buf.Bytes(), nil
}

func (e *Envelope) validate() error {
	if err := e.validateHeader(); err != nil {
		return err
	}

	if len(e.Ciphertext) == 0 {
		return errors.Wrap(errorcode.ErrorMalformedEnvelope, "密文不能为空")
	}

	return nil
}

func (e *Envelope) validateHeader() error {
	if len(e.PolicyID) == 0 || len(e.PolicyID) > maxPolicyIDLen {
		return errors.Wrapf(errorcode.ErrorMalformedEnvelope, "策略 ID 长度 %v 不合法", len(e.PolicyID))
	}

	if len(e.Shares) == 0 || len(e.Shares) > maxShareCount {
		return errors.Wrapf(errorcode.ErrorMalformedEnvelope, "份额数量 %v 不合法", len(e.Shares))
	}

	if e.Threshold == 0 || int(e.Threshold) > len(e.Shares) {
		return errors.Wrapf(errorcode.ErrorMalformedEnvelope, "门限 %v 不合法", e.Threshold)
	}

	seen := make(map[uint8]bool)
	for _, share := range e.Shares {
		if len(share.K) != PointLen || len(share.C) != PointLen || len(share.Proof) != ProofLen {
			return errors.Wrapf(errorcode.ErrorMalformedEnvelope, "份额 #%v 的长度不正确", share.Index)
		}
		if seen[share.Index] {
			return errors.Wrapf(errorcode.ErrorMalformedEnvelope, "份额序号 %v 重复", share.Index)
		}
		seen[share.Index] = true
	}

	if len(e.Nonce) == 0 || len(e.Nonce) > maxNonceLen {
		return errors.Wrapf(errorcode.ErrorMalformedEnvelope, "随机数长度 %v 不合法", len(e.Nonce))
	}

	return nil
}

// Serialize 将信封序列化为字节切片。
func Serialize(e *Envelope) ([]byte, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}

	header, err := e.Header()
	if err != nil {
		return nil, err
	}

	ret := make([]byte, 0, len(header)+len(e.Ciphertext))
	ret = append(ret, header...)
	ret = append(ret, e.Ciphertext...)
	return ret, nil
}

// PeekPolicyID 只读取前缀，返回其中的策略 ID。
func PeekPolicyID(b []byte) ([]byte, error) {
	if len(b) < policyIDOffset {
		return nil, errors.Wrap(errorcode.ErrorMalformedEnvelope, "数据长度不足以包含信封头部")
	}

	if !bytes.Equal(b[:len(magic)], magic) {
		return nil, errors.Wrap(errorcode.ErrorMalformedEnvelope, "缺少信封标识")
	}

	if b[len(magic)] != Version {
		return nil, errors.Wrapf(errorcode.ErrorMalformedEnvelope, "不支持的信封版本 %v", b[len(magic)])
	}

	policyIDLen := int(b[len(magic)+1])
	if policyIDLen == 0 {
		return nil, errors.Wrap(errorcode.ErrorMalformedEnvelope, "策略 ID 不能为空")
	}

	if len(b) < policyIDOffset+policyIDLen {
		return nil, errors.Wrap(errorcode.ErrorMalformedEnvelope, "策略 ID 被截断")
	}

	policyID := make([]byte, policyIDLen)
	copy(policyID, b[policyIDOffset:policyIDOffset+policyIDLen])
	return policyID, nil
}

// Parse 解析字节切片，得到信封。格式标识缺失、版本未知或长度字段不一致时返回 `errorcode.ErrorMalformedEnvelope`。
func Parse(b []byte) (*Envelope, error) {
	policyID, err := PeekPolicyID(b)
	if err != nil {
		return nil, err
	}

	r := &reader{buf: b, pos: policyIDOffset + len(policyID)}

	threshold, err := r.byte("门限")
	if err != nil {
		return nil, err
	}

	shareCount, err := r.byte("份额数量")
	if err != nil {
		return nil, err
	}

	shares := make([]EncapsulatedShare, 0, shareCount)
	for i := 0; i < int(shareCount); i++ {
		entry, err := r.next(shareEntryLen, "份额列表")
		if err != nil {
			return nil, err
		}

		shares = append(shares, EncapsulatedShare{
			Index: entry[0],
			K:     append([]byte{}, entry[1:1+PointLen]...),
			C:     append([]byte{}, entry[1+PointLen:1+2*PointLen]...),
			Proof: append([]byte{}, entry[1+2*PointLen:]...),
		})
	}

	nonceLen, err := r.byte("随机数长度")
	if err != nil {
		return nil, err
	}

	nonce, err := r.next(int(nonceLen), "随机数")
	if err != nil {
		return nil, err
	}

	env := &Envelope{
		PolicyID:   policyID,
		Threshold:  threshold,
		Shares:     shares,
		Nonce:      append([]byte{}, nonce...),
		Ciphertext: append([]byte{}, b[r.pos:]...),
	}

	if err := env.validate(); err != nil {
		return nil, err
	}

	return env, nil
}

type reader struct {
	buf []byte
	pos int
}

func (r *reader) byte(field string) (byte, error) {
	b, err := r.next(1, field)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

func (r *reader) next(n int, field string) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, errors.Wrapf(errorcode.ErrorMalformedEnvelope, "%v被截断", field)
	}

	ret := r.buf[r.pos : r.pos+n]
	r.pos += n
	return ret, nil
}
