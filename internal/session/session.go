// Package session issues short-lived, wallet-signed credentials that key servers accept as proof of identity.
package session

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/JasonRUAN/SecureFileShare/internal/utils/cipherutils"
	"github.com/JasonRUAN/SecureFileShare/internal/wallet"
	"github.com/JasonRUAN/SecureFileShare/pkg/errorcode"
	"github.com/JasonRUAN/SecureFileShare/pkg/models/keyserver"
	"github.com/JasonRUAN/SecureFileShare/pkg/sm2keyutils"
	"github.com/pkg/errors"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/sign/schnorr"
)

// DefaultTTL 为会话的默认有效期
const DefaultTTL = 10 * time.Minute

// Challenge 为等待钱包签名的会话挑战。挑战附带一对临时会话密钥，其公钥包含在签名消息中。
type Challenge struct {
	Address    string
	Scope      string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	SessionKey *cipherutils.KeyPair
	Message    []byte // 需要签名的消息
}

// Credential 为签名后的会话凭证
type Credential struct {
	Address    string
	PublicKey  []byte
	Scope      string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	SessionKey []byte // 会话公钥
	Signature  []byte

	sessionPrivateKey kyber.Scalar // 仅本地创建的凭证持有
}

// Authenticator 签发与校验会话。
type Authenticator struct {
	now func() time.Time
}

// NewAuthenticator 创建 Authenticator。now 为 nil 时使用 time.Now。
func NewAuthenticator(now func() time.Time) *Authenticator {
	if now == nil {
		now = time.Now
	}

	return &Authenticator{now: now}
}

// ChallengeMessage 返回会话挑战的消息。相同的输入总是得到相同的消息。
func ChallengeMessage(address, scope string, issuedAt, expiresAt time.Time, sessionKey []byte) []byte {
	return []byte(fmt.Sprintf("SecureFileShare session\naddress: %v\nscope: %v\nissued at: %v\nexpires at: %v\nsession key: %v",
		address, scope, issuedAt.UTC().Format(time.RFC3339), expiresAt.UTC().Format(time.RFC3339), hex.EncodeToString(sessionKey)))
}

// BeginSession 生成会话挑战。
//
// 参数：
//   钱包地址
//   适用范围（链码 ID）
//   有效期（<= 0 时使用默认值）
//
// 返回：
//   会话挑战
func (a *Authenticator) BeginSession(address, scope string, ttl time.Duration) (*Challenge, error) {
	if address == "" {
		return nil, errors.Wrap(errorcode.ErrorWalletNotConnected, "地址不能为空")
	}

	if scope == "" {
		return nil, fmt.Errorf("会话适用范围不能为空")
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	// 凭证以秒为精度传输
	issuedAt := time.Unix(a.now().Unix(), 0).UTC()
	expiresAt := issuedAt.Add(ttl.Truncate(time.Second))

	sessionKey := cipherutils.GenerateKeyPair()
	sessionKeyBytes, err := cipherutils.SerializePoint(sessionKey.Public)
	if err != nil {
		return nil, err
	}

	return &Challenge{
		Address:    address,
		Scope:      scope,
		IssuedAt:   issuedAt,
		ExpiresAt:  expiresAt,
		SessionKey: sessionKey,
		Message:    ChallengeMessage(address, scope, issuedAt, expiresAt, sessionKeyBytes),
	}, nil
}

// CompleteSession 用钱包对挑战的签名完成会话。
//
// 参数：
//   会话挑战
//   钱包公钥（64 字节）
//   签名
//
// 返回：
//   会话凭证
func (a *Authenticator) CompleteSession(challenge *Challenge, publicKey []byte, signature []byte) (*Credential, error) {
	if challenge.SessionKey == nil {
		return nil, fmt.Errorf("会话挑战缺少会话密钥")
	}

	sessionKeyBytes, err := cipherutils.SerializePoint(challenge.SessionKey.Public)
	if err != nil {
		return nil, err
	}

	credential := &Credential{
		Address:           challenge.Address,
		PublicKey:         append([]byte{}, publicKey...),
		Scope:             challenge.Scope,
		IssuedAt:          challenge.IssuedAt,
		ExpiresAt:         challenge.ExpiresAt,
		SessionKey:        sessionKeyBytes,
		Signature:         append([]byte{}, signature...),
		sessionPrivateKey: challenge.SessionKey.Private,
	}

	if err := credential.verifySignature(); err != nil {
		return nil, err
	}

	return credential, nil
}

// NewSession 请钱包签名并返回会话凭证。
func (a *Authenticator) NewSession(ctx context.Context, signer wallet.Signer, scope string, ttl time.Duration) (*Credential, error) {
	if signer == nil {
		return nil, errors.Wrap(errorcode.ErrorWalletNotConnected, "无法创建会话")
	}

	challenge, err := a.BeginSession(signer.Address(), scope, ttl)
	if err != nil {
		return nil, err
	}

	signature, err := signer.Sign(ctx, challenge.Message)
	if err != nil {
		return nil, errors.Wrap(err, "钱包未能签名会话挑战")
	}

	return a.CompleteSession(challenge, signer.PublicKey(), signature)
}

// Validate 检查会话是否仍然有效：未过期，且签名与地址相符。
func (c *Credential) Validate(now time.Time) error {
	if !now.Before(c.ExpiresAt) {
		return errors.Wrapf(errorcode.ErrorInvalidSignature, "会话已于 %v 过期", c.ExpiresAt.UTC().Format(time.RFC3339))
	}

	if now.Add(time.Minute).Before(c.IssuedAt) {
		return errors.Wrap(errorcode.ErrorInvalidSignature, "会话签发时间晚于当前时间")
	}

	return c.verifySignature()
}

func (c *Credential) verifySignature() error {
	if sm2keyutils.AddressFromPublicKey(c.PublicKey) != c.Address {
		return errors.Wrap(errorcode.ErrorInvalidSignature, "公钥与会话地址不匹配")
	}

	if len(c.SessionKey) == 0 {
		return errors.Wrap(errorcode.ErrorInvalidSignature, "会话缺少会话公钥")
	}

	msg := ChallengeMessage(c.Address, c.Scope, c.IssuedAt, c.ExpiresAt, c.SessionKey)
	if !sm2keyutils.VerifyMessage(c.PublicKey, msg, c.Signature) {
		return errors.Wrap(errorcode.ErrorInvalidSignature, "会话签名验证未通过")
	}

	return nil
}

// SessionPrivateKey 返回会话私钥。由网络解析得到的凭证没有私钥，返回 nil。
func (c *Credential) SessionPrivateKey() kyber.Scalar {
	return c.sessionPrivateKey
}

// SignWithSessionKey 用会话私钥签名。
func (c *Credential) SignWithSessionKey(msg []byte) ([]byte, error) {
	if c.sessionPrivateKey == nil {
		return nil, fmt.Errorf("会话凭证不含会话私钥")
	}

	return schnorr.Sign(cipherutils.Suite, c.sessionPrivateKey, msg)
}

// VerifySessionSignature 检查签名是否由会话私钥产生。
func (c *Credential) VerifySessionSignature(msg []byte, signature []byte) error {
	sessionKey, err := cipherutils.DeserializePoint(c.SessionKey)
	if err != nil {
		return errors.Wrap(errorcode.ErrorInvalidSignature, "无法解析会话公钥")
	}

	if err := schnorr.Verify(cipherutils.Suite, sessionKey, msg, signature); err != nil {
		return errors.Wrap(errorcode.ErrorInvalidSignature, "请求未由会话密钥签名")
	}

	return nil
}

// ToWire 转换为网络传输形式。
func (c *Credential) ToWire() keyserver.SessionCredential {
	return keyserver.SessionCredential{
		Address:    c.Address,
		PublicKey:  base64.StdEncoding.EncodeToString(c.PublicKey),
		Scope:      c.Scope,
		IssuedAt:   c.IssuedAt.Unix(),
		ExpiresAt:  c.ExpiresAt.Unix(),
		SessionKey: base64.StdEncoding.EncodeToString(c.SessionKey),
		Signature:  base64.StdEncoding.EncodeToString(c.Signature),
	}
}

// FromWire 解析网络传输形式的会话凭证。只做格式解析，有效性由 Validate 检查。
func FromWire(wire *keyserver.SessionCredential) (*Credential, error) {
	publicKey, err := base64.StdEncoding.DecodeString(wire.PublicKey)
	if err != nil {
		return nil, errors.Wrap(errorcode.ErrorInvalidSignature, "无法解析会话公钥")
	}

	signature, err := base64.StdEncoding.DecodeString(wire.Signature)
	if err != nil {
		return nil, errors.Wrap(errorcode.ErrorInvalidSignature, "无法解析会话签名")
	}

	sessionKey, err := base64.StdEncoding.DecodeString(wire.SessionKey)
	if err != nil {
		return nil, errors.Wrap(errorcode.ErrorInvalidSignature, "无法解析会话公钥")
	}

	return &Credential{
		Address:    wire.Address,
		PublicKey:  publicKey,
		Scope:      wire.Scope,
		IssuedAt:   time.Unix(wire.IssuedAt, 0).UTC(),
		ExpiresAt:  time.Unix(wire.ExpiresAt, 0).UTC(),
		SessionKey: sessionKey,
		Signature:  signature,
	}, nil
}
