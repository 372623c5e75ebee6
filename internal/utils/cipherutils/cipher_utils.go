// This package contains helper functions that can be used within the entire app.
// On one hand, it includes the threshold primitives on top of `kyber`:
// splitting a point secret into t-of-n shares, ElGamal encapsulation of each share to a key server,
// key switching on the server side and recovery on the requester side.
// On the other hand, it includes other handy tools for symmetric encryption and decryption using AES keys, etc..
package cipherutils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/group/edwards25519"
	"go.dedis.ch/kyber/v3/share"
	"golang.org/x/crypto/hkdf"
)

// Suite 为应用内使用的密码学套件
var Suite = edwards25519.NewBlakeSHA256Ed25519()

// PointLen 为序列化后曲线点的长度
var PointLen = Suite.PointLen()

// ScalarLen 为序列化后标量的长度
var ScalarLen = Suite.ScalarLen()

// CipherTextLen 为序列化后 ElGamal 密文的长度
var CipherTextLen = 2 * PointLen

const (
	symmetricKeyInfo = "SecureFileShare/dem"
	gcmNonceSize     = 12
)

// CipherText 为曲线点的 ElGamal 密文 (K, C) = (r·G, M + r·X)
type CipherText struct {
	K kyber.Point
	C kyber.Point
}

// KeyPair 为一对 kyber 密钥
type KeyPair struct {
	Private kyber.Scalar
	Public  kyber.Point
}

// GenerateKeyPair 生成一对新的密钥。
func GenerateKeyPair() *KeyPair {
	priv := Suite.Scalar().Pick(Suite.RandomStream())
	return &KeyPair{
		Private: priv,
		Public:  Suite.Point().Mul(priv, nil),
	}
}

// SerializePoint serializes a point into a byte slice of length of `PointLen`.
func SerializePoint(p kyber.Point) ([]byte, error) {
	return p.MarshalBinary()
}

// DeserializePoint parses a byte slice into a point. Bytes that do not encode a valid point are rejected.
func DeserializePoint(b []byte) (kyber.Point, error) {
	if len(b) != PointLen {
		return nil, fmt.Errorf("曲线点长度不正确，应为 %v 字节，得到 %v 字节", PointLen, len(b))
	}

	p := Suite.Point()
	if err := p.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("无法解析曲线点: %v", err)
	}

	return p, nil
}

// SerializeScalar serializes a scalar into a byte slice of length of `ScalarLen`.
func SerializeScalar(s kyber.Scalar) ([]byte, error) {
	return s.MarshalBinary()
}

// DeserializeScalar parses a byte slice into a scalar.
func DeserializeScalar(b []byte) (kyber.Scalar, error) {
	if len(b) != ScalarLen {
		return nil, fmt.Errorf("标量长度不正确，应为 %v 字节，得到 %v 字节", ScalarLen, len(b))
	}

	s := Suite.Scalar()
	if err := s.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("无法解析标量: %v", err)
	}

	return s, nil
}

// SerializeCipherText serializes a `CipherText` object into a byte slice of length of `CipherTextLen`.
func SerializeCipherText(cipherText *CipherText) ([]byte, error) {
	// 将左侧点 K 装入前半部分，将右侧点 C 装入后半部分
	kBytes, err := SerializePoint(cipherText.K)
	if err != nil {
		return nil, err
	}

	cBytes, err := SerializePoint(cipherText.C)
	if err != nil {
		return nil, err
	}

	return append(kBytes, cBytes...), nil
}

// DeserializeCipherText parses a byte slice of length of `CipherTextLen` into a `CipherText` object.
func DeserializeCipherText(b []byte) (*CipherText, error) {
	if len(b) != CipherTextLen {
		return nil, fmt.Errorf("密文长度不正确，应为 %v 字节，得到 %v 字节", CipherTextLen, len(b))
	}

	k, err := DeserializePoint(b[:PointLen])
	if err != nil {
		return nil, err
	}

	c, err := DeserializePoint(b[PointLen:])
	if err != nil {
		return nil, err
	}

	return &CipherText{K: k, C: c}, nil
}

// EncryptPoint 用公钥加密一个曲线点。
func EncryptPoint(publicKey kyber.Point, m kyber.Point) *CipherText {
	r := Suite.Scalar().Pick(Suite.RandomStream())
	return &CipherText{
		K: Suite.Point().Mul(r, nil),
		C: Suite.Point().Add(m, Suite.Point().Mul(r, publicKey)),
	}
}

// EncryptPointWithProof 用公钥加密一个曲线点，并附上对随机数 r 的 Schnorr 知识证明。
// 证明的挑战值绑定 (K, C) 与 label，只有持有相同 label 的验证者才会接受。
//
// 参数：
//   公钥
//   明文点
//   绑定标签
//
// 返回：
//   密文
//   证明（e || z）
func EncryptPointWithProof(publicKey kyber.Point, m kyber.Point, label []byte) (*CipherText, []byte, error) {
	r := Suite.Scalar().Pick(Suite.RandomStream())
	cipherText := &CipherText{
		K: Suite.Point().Mul(r, nil),
		C: Suite.Point().Add(m, Suite.Point().Mul(r, publicKey)),
	}

	w := Suite.Scalar().Pick(Suite.RandomStream())
	e, err := proofChallenge(cipherText, Suite.Point().Mul(w, nil), label)
	if err != nil {
		return nil, nil, err
	}
	z := Suite.Scalar().Add(w, Suite.Scalar().Mul(e, r))

	eBytes, err := SerializeScalar(e)
	if err != nil {
		return nil, nil, err
	}
	zBytes, err := SerializeScalar(z)
	if err != nil {
		return nil, nil, err
	}

	return cipherText, append(eBytes, zBytes...), nil
}

// VerifyEncryptionProof 验证 EncryptPointWithProof 产生的证明。
func VerifyEncryptionProof(cipherText *CipherText, proof []byte, label []byte) error {
	if len(proof) != 2*ScalarLen {
		return fmt.Errorf("证明长度不正确，应为 %v 字节，得到 %v 字节", 2*ScalarLen, len(proof))
	}

	e, err := DeserializeScalar(proof[:ScalarLen])
	if err != nil {
		return err
	}
	z, err := DeserializeScalar(proof[ScalarLen:])
	if err != nil {
		return err
	}

	// W = z·G - e·K
	w := Suite.Point().Sub(Suite.Point().Mul(z, nil), Suite.Point().Mul(e, cipherText.K))
	expected, err := proofChallenge(cipherText, w, label)
	if err != nil {
		return err
	}

	if !expected.Equal(e) {
		return fmt.Errorf("加密证明验证未通过")
	}

	return nil
}

func proofChallenge(cipherText *CipherText, w kyber.Point, label []byte) (kyber.Scalar, error) {
	h := sha256.New()
	for _, p := range []kyber.Point{cipherText.K, cipherText.C, w} {
		b, err := SerializePoint(p)
		if err != nil {
			return nil, err
		}
		h.Write(b)
	}
	h.Write(label)

	return Suite.Scalar().Pick(Suite.XOF(h.Sum(nil))), nil
}

// DecryptPoint 用私钥解密一个曲线点密文：M = C - x·K。
func DecryptPoint(privateKey kyber.Scalar, cipherText *CipherText) kyber.Point {
	return Suite.Point().Sub(cipherText.C, Suite.Point().Mul(privateKey, cipherText.K))
}

// SwitchKey 将加密给本方的密文置换为加密给目标公钥的密文，过程中明文点不离开本函数。
//
// 参数：
//   本方私钥
//   加密给本方的密文
//   目标公钥
//
// 返回：
//   加密给目标公钥的密文
func SwitchKey(privateKey kyber.Scalar, cipherText *CipherText, targetPublicKey kyber.Point) *CipherText {
	return EncryptPoint(targetPublicKey, DecryptPoint(privateKey, cipherText))
}

// GenerateSecret 生成一个随机的点秘密 S = s·G，返回 s 与 S。
func GenerateSecret() (kyber.Scalar, kyber.Point) {
	s := Suite.Scalar().Pick(Suite.RandomStream())
	return s, Suite.Point().Mul(s, nil)
}

// SplitSecret 将 S = s·G 以 t-1 次多项式拆分为 n 个点份额，任意 t 个可恢复 S。份额序号 I 从 0 开始。
func SplitSecret(s kyber.Scalar, t, n int) ([]*share.PubShare, error) {
	if t <= 0 || n <= 0 || t > n {
		return nil, fmt.Errorf("门限参数不正确：t = %v, n = %v", t, n)
	}

	priPoly := share.NewPriPoly(Suite, t, s, Suite.RandomStream())
	return priPoly.Commit(nil).Shares(n), nil
}

// RecoverSecret 通过 Lagrange 插值从至少 t 个点份额中恢复 S。
func RecoverSecret(shares []*share.PubShare, t, n int) (kyber.Point, error) {
	if len(shares) < t {
		return nil, fmt.Errorf("份额数量不足：需要 %v 个，得到 %v 个", t, len(shares))
	}

	secret, err := share.RecoverCommit(Suite, shares, t, n)
	if err != nil {
		return nil, fmt.Errorf("无法恢复秘密: %v", err)
	}

	return secret, nil
}

// DeriveSymmetricKeyBytesFromCurvePoint 从 curvePoint 中导出 256 位信息，在应用内作为对称密钥。具体使用上可用于创建 AES256 block。
// salt 为该密钥所属的策略 ID，使同一个点在不同策略下导出不同的密钥。
func DeriveSymmetricKeyBytesFromCurvePoint(curvePoint kyber.Point, salt []byte) ([]byte, error) {
	pointBytes, err := SerializePoint(curvePoint)
	if err != nil {
		return nil, err
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, pointBytes, salt, []byte(symmetricKeyInfo)), key); err != nil {
		return nil, err
	}

	return key, nil
}

// GenerateNonce 生成 AES-GCM 使用的随机数。
func GenerateNonce() ([]byte, error) {
	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return nonce, nil
}

// EncryptBytesUsingAESKey 使用 AES 对称密钥与给定随机数加密数据，additionalData 将与密文绑定。
func EncryptBytesUsingAESKey(b []byte, key []byte, nonce []byte, additionalData []byte) ([]byte, error) {
	aesGCM, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(nonce) != aesGCM.NonceSize() {
		return nil, fmt.Errorf("随机数长度不正确")
	}

	return aesGCM.Seal(nil, nonce, b, additionalData), nil
}

// DecryptBytesUsingAESKey 使用 AES 对称密钥解密数据
func DecryptBytesUsingAESKey(b []byte, key []byte, nonce []byte, additionalData []byte) (decryptedBytes []byte, err error) {
	aesGCM, err := newGCM(key)
	if err != nil {
		return
	}

	if len(nonce) != aesGCM.NonceSize() {
		err = fmt.Errorf("随机数长度不正确")
		return
	}

	if len(b) < aesGCM.Overhead() {
		err = fmt.Errorf("密文长度太短")
		return
	}

	decryptedBytes, err = aesGCM.Open(nil, nonce, b, additionalData)
	return
}

func newGCM(key []byte) (cipher.AEAD, error) {
	cipherBlock, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	return cipher.NewGCM(cipherBlock)
}
