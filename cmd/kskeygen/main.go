package main

import (
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"os"
	"path"

	"github.com/JasonRUAN/SecureFileShare/internal/keyserver"
	"github.com/JasonRUAN/SecureFileShare/internal/utils/cipherutils"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v2"
)

// generateKeyServerKeys 生成 n 个密钥服务器的密钥对。私钥以 hex 存为 <dirKeys>/ks<i>.key，返回客户端所需的 keyServers 配置。
func generateKeyServerKeys(dirKeys string, n int, threshold int, urlPattern string) (*keyserver.ClientConfig, error) {
	if n < 1 || n > 255 {
		return nil, fmt.Errorf("密钥服务器数量 %v 不合法", n)
	}

	if threshold < 1 || threshold > n {
		return nil, fmt.Errorf("门限 %v 不合法，应在 1 到 %v 之间", threshold, n)
	}

	if err := os.MkdirAll(dirKeys, 0755); err != nil {
		return nil, errors.Wrap(err, "无法创建密钥目录")
	}

	conf := &keyserver.ClientConfig{
		Threshold:        threshold,
		VerifyKeyServers: true,
	}

	for i := 1; i <= n; i++ {
		keyPath := path.Join(dirKeys, fmt.Sprintf("ks%v.key", i))
		if _, err := os.Stat(keyPath); err == nil {
			return nil, fmt.Errorf("'%v' 已存在，请先删除", keyPath)
		}

		keyPair := cipherutils.GenerateKeyPair()
		privateKeyBytes, err := cipherutils.SerializeScalar(keyPair.Private)
		if err != nil {
			return nil, err
		}
		publicKeyBytes, err := cipherutils.SerializePoint(keyPair.Public)
		if err != nil {
			return nil, err
		}

		if err := ioutil.WriteFile(keyPath, []byte(hex.EncodeToString(privateKeyBytes)+"\n"), 0600); err != nil {
			return nil, errors.Wrapf(err, "无法保存密钥服务器 #%v 的私钥", i)
		}

		conf.Servers = append(conf.Servers, keyserver.ServerConfig{
			Index:     i,
			URL:       fmt.Sprintf(urlPattern, i),
			PublicKey: hex.EncodeToString(publicKeyBytes),
		})
	}

	return conf, nil
}

func main() {
	var dirKeys, urlPattern string
	var n, threshold int

	app := &cli.App{
		Name:  "kskeygen",
		Usage: "Generate key pairs for the key servers and print the `keyServers` section of server.yaml",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Value: "kskeys", Destination: &dirKeys},
			&cli.IntFlag{Name: "servers", Aliases: []string{"n"}, Value: 3, Destination: &n},
			&cli.IntFlag{Name: "threshold", Aliases: []string{"t"}, Value: 2, Destination: &threshold},
			&cli.StringFlag{Name: "url", Value: "http://127.0.0.1:900%v", Usage: "URL pattern, %v is replaced by the server index", Destination: &urlPattern},
		},
		Action: func(c *cli.Context) error {
			conf, err := generateKeyServerKeys(dirKeys, n, threshold, urlPattern)
			if err != nil {
				return err
			}

			out, err := yaml.Marshal(map[string]interface{}{"keyServers": conf})
			if err != nil {
				return err
			}
			fmt.Print(string(out))

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalln(err)
	}
}
