package main

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/JasonRUAN/SecureFileShare/internal/envelope"
	"gopkg.in/yaml.v2"
)

// StoredContentInfo 为所存内容在链上记录中对应的字段
type StoredContentInfo struct {
	StoredSize  int           `yaml:"storedSize"`
	ContentHash string        `yaml:"contentHash"`
	Envelope    *EnvelopeInfo `yaml:"envelope,omitempty"`
}

// EnvelopeInfo 为信封头部的摘要
type EnvelopeInfo struct {
	PolicyID   string `yaml:"policyId"`
	Threshold  uint8  `yaml:"threshold"`
	ShareCount int    `yaml:"shareCount"`
	Ciphertext int    `yaml:"ciphertextSize"`
}

func inspect(contents []byte) *StoredContentInfo {
	hash := sha256.Sum256(contents)
	info := &StoredContentInfo{
		StoredSize:  len(contents),
		ContentHash: base64.StdEncoding.EncodeToString(hash[:]),
	}

	// 不是信封的内容视为未加密的文件
	if env, err := envelope.Parse(contents); err == nil {
		info.Envelope = &EnvelopeInfo{
			PolicyID:   env.PolicyIDHex(),
			Threshold:  env.Threshold,
			ShareCount: len(env.Shares),
			Ciphertext: len(env.Ciphertext),
		}
	}

	return info
}

func main() {
	if len(os.Args) != 2 {
		fmt.Println("Usage: go run cmd/hashbase64gen/main.go <stored_content_path>")
		return
	}

	contents, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Printf("无法读取内容：%v\n", err)
		return
	}

	out, err := yaml.Marshal(inspect(contents))
	if err != nil {
		fmt.Printf("无法输出结果：%v\n", err)
		return
	}

	// $ go run cmd/hashbase64gen/main.go blob.bin
	// storedSize: 180
	// contentHash: JV8Dx0kVg4bhzjsOm02BEvUmFgZT+whS0kRb1UdmKik=
	fmt.Print(string(out))
}
