package main

import (
	"path"
	"path/filepath"
	"testing"

	"github.com/JasonRUAN/SecureFileShare/internal/appinit"
	"github.com/JasonRUAN/SecureFileShare/internal/keyserver"
	"github.com/JasonRUAN/SecureFileShare/internal/utils/cipherutils"
	"github.com/stretchr/testify/assert"
)

func TestGenerateKeyServerKeys(t *testing.T) {
	dirKeys := filepath.Join(t.TempDir(), "kskeys")

	conf, err := generateKeyServerKeys(dirKeys, 3, 2, "http://ks%v.test")
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, 2, conf.Threshold)
	assert.Len(t, conf.Servers, 3)
	assert.Equal(t, "http://ks2.test", conf.Servers[1].URL)

	// 生成的配置可直接用于创建客户端
	client, err := keyserver.NewClient(conf, keyserver.NewLocalTransport(), nil)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	// 私钥文件与公布的公钥对应
	privateKey, err := appinit.LoadKeyServerPrivateKey(path.Join(dirKeys, "ks1.key"))
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.True(t, client.Servers()[0].PublicKey.Equal(cipherutils.Suite.Point().Mul(privateKey, nil)))

	// 不覆盖已有的私钥
	_, err = generateKeyServerKeys(dirKeys, 3, 2, "http://ks%v.test")
	assert.Error(t, err)
}

func TestGenerateKeyServerKeysRejectsBadThreshold(t *testing.T) {
	_, err := generateKeyServerKeys(t.TempDir(), 3, 4, "http://ks%v.test")
	assert.Error(t, err)

	_, err = generateKeyServerKeys(t.TempDir(), 0, 0, "http://ks%v.test")
	assert.Error(t, err)
}
