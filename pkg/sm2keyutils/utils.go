package sm2keyutils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"math/big"

	"github.com/pkg/errors"
	"github.com/tjfoc/gmsm/sm2"
	"github.com/tjfoc/gmsm/x509"
)

// Convert a PEM formatted private key to an `sm2.PrivateKey` object.
func ConvertPEMToPrivateKey(pemBytes []byte) (*sm2.PrivateKey, error) {
	decodedPrivKeyBlock, _ := pem.Decode(pemBytes)
	if decodedPrivKeyBlock == nil {
		return nil, fmt.Errorf("cannot decode PEM block of SM2 private key")
	}

	parsedPrivKey, err := x509.ParsePKCS8UnecryptedPrivateKey(decodedPrivKeyBlock.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "cannot convert PEM to SM2 private key")
	}

	return parsedPrivKey, nil
}

// Convert an `sm2.PrivateKey` object to PEM formatted bytes.
func ConvertPrivateKeyToPEM(privKey *sm2.PrivateKey) ([]byte, error) {
	privKeyDer, err := x509.MarshalSm2UnecryptedPrivateKey(privKey)
	if err != nil {
		return nil, errors.Wrap(err, "cannot convert private key to PEM")
	}

	privKeyPemBlock := pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: privKeyDer,
	}

	privKeyPem := pem.EncodeToMemory(&privKeyPemBlock)
	return privKeyPem, nil
}

// Convert a PEM formatted public key to an `sm2.PublicKey` object.
func ConvertPEMToPublicKey(pemBytes []byte) (*sm2.PublicKey, error) {
	decodedPubKeyBlock, _ := pem.Decode(pemBytes)
	if decodedPubKeyBlock == nil {
		return nil, fmt.Errorf("cannot decode PEM block of SM2 public key")
	}

	parsedPubKey, err := x509.ParseSm2PublicKey(decodedPubKeyBlock.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "cannot convert PEM to SM2 public key")
	}

	return parsedPubKey, nil
}

// Convert an `sm2.PublicKey` object to PEM formatted bytes.
func ConvertPublicKeyToPEM(pubKey *sm2.PublicKey) ([]byte, error) {
	pubKeyDer, err := x509.MarshalSm2PublicKey(pubKey)
	if err != nil {
		return nil, errors.Wrap(err, "cannot convert public key to PEM")
	}

	pubKeyPemBlock := pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubKeyDer,
	}

	pubKeyPem := pem.EncodeToMemory(&pubKeyPemBlock)
	return pubKeyPem, nil
}

// Convert two big integers (a point on curve P256Sm2) to an `sm2.PublicKey` object.
func ConvertBigIntegersToPublicKey(x *big.Int, y *big.Int) (*sm2.PublicKey, error) {
	c := sm2.P256Sm2()
	if isOnCurve := c.IsOnCurve(x, y); !isOnCurve {
		return nil, fmt.Errorf("cannot convert big integers to public key because the point is not on curve P256Sm2")
	}

	pub := new(sm2.PublicKey)
	pub.Curve = c
	pub.X = x
	pub.Y = y

	return pub, nil
}

// SerializePublicKey 将一个 SM2 公钥序列化成一个长度为 64 的字节切片（X 与 Y 各 32 字节）。
func SerializePublicKey(publicKey *sm2.PublicKey) []byte {
	pubKeyBytes := [64]byte{}
	publicKey.X.FillBytes(pubKeyBytes[:32])
	publicKey.Y.FillBytes(pubKeyBytes[32:])
	return pubKeyBytes[:]
}

// DeserializePublicKey 解析一个长度为 64 的字节切片，得到 *sm2.PublicKey。
func DeserializePublicKey(publicKeyBytes []byte) (*sm2.PublicKey, error) {
	if len(publicKeyBytes) != 64 {
		return nil, fmt.Errorf("公钥字节切片长度不正确，应为 64 字节，得到 %v 字节", len(publicKeyBytes))
	}

	publicKeyX, publicKeyY := new(big.Int), new(big.Int)
	_ = publicKeyX.SetBytes(publicKeyBytes[:32])
	_ = publicKeyY.SetBytes(publicKeyBytes[32:])

	return ConvertBigIntegersToPublicKey(publicKeyX, publicKeyY)
}

// AddressFromPublicKey 由序列化的 SM2 公钥导出账户地址，形如 "0x" + hex(SHA-256(公钥))。
func AddressFromPublicKey(publicKeyBytes []byte) string {
	digest := sha256.Sum256(publicKeyBytes)
	return "0x" + hex.EncodeToString(digest[:])
}

// SignMessage 使用 SM2 私钥对消息签名（内部使用 SM3 摘要与默认用户 ID）。
func SignMessage(privKey *sm2.PrivateKey, msg []byte) ([]byte, error) {
	sig, err := privKey.Sign(rand.Reader, msg, nil)
	if err != nil {
		return nil, errors.Wrap(err, "cannot sign message with SM2 private key")
	}

	return sig, nil
}

// VerifyMessage 使用序列化的 SM2 公钥验证签名。
func VerifyMessage(publicKeyBytes []byte, msg []byte, sig []byte) bool {
	pubKey, err := DeserializePublicKey(publicKeyBytes)
	if err != nil {
		return false
	}

	return pubKey.Verify(msg, sig)
}
