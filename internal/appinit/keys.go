package appinit

import (
	"encoding/hex"
	"io/ioutil"
	"strings"

	"github.com/JasonRUAN/SecureFileShare/internal/utils/cipherutils"
	"github.com/JasonRUAN/SecureFileShare/internal/wallet"
	errors "github.com/pkg/errors"
	"go.dedis.ch/kyber/v3"
)

// LoadWallet loads an SM2 key pair from the paths specified in `location` and returns a wallet signer.
//
// Parameters:
//   a key pair location object
//
// Returns:
//   the wallet signer
func LoadWallet(location *KeyPairLocation) (*wallet.SM2Signer, error) {
	privKeyPem, err := ioutil.ReadFile(location.PrivateKey)
	if err != nil {
		return nil, errors.Wrap(err, "无法读取钱包私钥")
	}

	var pubKeyPem []byte
	if location.PublicKey != "" {
		pubKeyPem, err = ioutil.ReadFile(location.PublicKey)
		if err != nil {
			return nil, errors.Wrap(err, "无法读取钱包公钥")
		}
	}

	return wallet.NewSM2SignerFromPEM(privKeyPem, pubKeyPem)
}

// LoadKeyServerPrivateKey loads the hex encoded private key of a key server.
func LoadKeyServerPrivateKey(path string) (kyber.Scalar, error) {
	content, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "无法读取密钥服务器私钥")
	}

	privateKeyBytes, err := hex.DecodeString(strings.TrimSpace(string(content)))
	if err != nil {
		return nil, errors.Wrap(err, "密钥服务器私钥不是合法的 hex 字符串")
	}

	return cipherutils.DeserializeScalar(privateKeyBytes)
}
