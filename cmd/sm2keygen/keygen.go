package main

import (
	"crypto/rand"
	"fmt"
	"io/ioutil"
	"os"
	"path"

	"github.com/JasonRUAN/SecureFileShare/pkg/sm2keyutils"
	"github.com/pkg/errors"
	"github.com/tjfoc/gmsm/sm2"
)

// WalletInfo 为生成的一个钱包
type WalletInfo struct {
	User    string `yaml:"user"`
	Address string `yaml:"address"`
}

// generateWallets 为每个用户生成一对 SM2 钱包密钥，分别存为 <dirKeys>/<user>/sk 与 <dirKeys>/<user>/<user>.pem。
func generateWallets(dirKeys string, users []string) ([]*WalletInfo, error) {
	// Exit if the dir exists
	if _, err := os.Stat(dirKeys); err == nil {
		return nil, fmt.Errorf("the wallet keys are already generated. Delete the folder first before running again")
	}

	if err := os.MkdirAll(dirKeys, 0755); err != nil {
		return nil, errors.Wrap(err, "cannot create the key folder")
	}

	wallets := make([]*WalletInfo, 0, len(users))
	for _, user := range users {
		privKey, err := sm2.GenerateKey(rand.Reader)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot generate a private key for '%v'", user)
		}

		if err := os.MkdirAll(path.Join(dirKeys, user), 0755); err != nil {
			return nil, errors.Wrapf(err, "cannot create the key folder for '%v'", user)
		}

		// Private key
		privKeyPem, err := sm2keyutils.ConvertPrivateKeyToPEM(privKey)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot save the private key for '%v'", user)
		}
		if err := ioutil.WriteFile(path.Join(dirKeys, user, "sk"), privKeyPem, 0600); err != nil {
			return nil, errors.Wrapf(err, "cannot save the private key for '%v'", user)
		}

		// Public key
		pubKeyPem, err := sm2keyutils.ConvertPublicKeyToPEM(&privKey.PublicKey)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot save the public key for '%v'", user)
		}
		if err := ioutil.WriteFile(path.Join(dirKeys, user, user+".pem"), pubKeyPem, 0644); err != nil {
			return nil, errors.Wrapf(err, "cannot save the public key for '%v'", user)
		}

		wallets = append(wallets, &WalletInfo{
			User:    user,
			Address: sm2keyutils.AddressFromPublicKey(sm2keyutils.SerializePublicKey(&privKey.PublicKey)),
		})
	}

	return wallets, nil
}
