package cipherutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.dedis.ch/kyber/v3/share"
)

func TestAESEncryptionDecryption(t *testing.T) {
	_, point := GenerateSecret()
	documentBytes := []byte("Document for test")
	additionalData := []byte("header")

	// 使用由 point 导出的 256 位信息作为 AES256 密钥
	key, err := DeriveSymmetricKeyBytesFromCurvePoint(point, []byte("policy"))
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Len(t, key, 32)

	nonce, err := GenerateNonce()
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	encryptedDocumentBytes, err := EncryptBytesUsingAESKey(documentBytes, key, nonce, additionalData)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	decDocumentBytes, err := DecryptBytesUsingAESKey(encryptedDocumentBytes, key, nonce, additionalData)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, documentBytes, decDocumentBytes)

	// 关联数据不同则解密失败
	_, err = DecryptBytesUsingAESKey(encryptedDocumentBytes, key, nonce, []byte("other header"))
	assert.Error(t, err)

	// 密钥不同则解密失败
	otherKey, _ := DeriveSymmetricKeyBytesFromCurvePoint(point, []byte("other policy"))
	_, err = DecryptBytesUsingAESKey(encryptedDocumentBytes, otherKey, nonce, additionalData)
	assert.Error(t, err)
}

func TestCipherTextSerialization(t *testing.T) {
	keyPair := GenerateKeyPair()
	_, m := GenerateSecret()

	cipherText := EncryptPoint(keyPair.Public, m)
	b, err := SerializeCipherText(cipherText)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Len(t, b, CipherTextLen)

	parsed, err := DeserializeCipherText(b)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.True(t, m.Equal(DecryptPoint(keyPair.Private, parsed)))

	_, err = DeserializeCipherText(b[:10])
	assert.Error(t, err)
}

func TestSwitchKey(t *testing.T) {
	server := GenerateKeyPair()
	requester := GenerateKeyPair()
	_, m := GenerateSecret()

	switched := SwitchKey(server.Private, EncryptPoint(server.Public, m), requester.Public)

	assert.True(t, m.Equal(DecryptPoint(requester.Private, switched)))
	assert.False(t, m.Equal(DecryptPoint(server.Private, switched)))
}

func TestThresholdSplitAndRecover(t *testing.T) {
	const threshold, count = 3, 5

	s, secret := GenerateSecret()
	shares, err := SplitSecret(s, threshold, count)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Len(t, shares, count)

	// 任意 3 个份额都能恢复
	for _, subset := range [][]int{{0, 1, 2}, {2, 3, 4}, {0, 2, 4}} {
		picked := make([]*share.PubShare, 0, threshold)
		for _, i := range subset {
			picked = append(picked, shares[i])
		}

		recovered, err := RecoverSecret(picked, threshold, count)
		if isNoError := assert.NoError(t, err); !isNoError {
			t.FailNow()
		}
		assert.True(t, secret.Equal(recovered))
	}

	// 2 个份额不足以恢复
	_, err = RecoverSecret(shares[:2], threshold, count)
	assert.Error(t, err)

	_, err = SplitSecret(s, 6, 5)
	assert.Error(t, err)
}

func TestPointSerialization(t *testing.T) {
	keyPair := GenerateKeyPair()

	b, err := SerializePoint(keyPair.Public)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	p, err := DeserializePoint(b)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.True(t, keyPair.Public.Equal(p))

	sb, err := SerializeScalar(keyPair.Private)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	s, err := DeserializeScalar(sb)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.True(t, keyPair.Private.Equal(s))
}

func TestEncryptionProof(t *testing.T) {
	server := GenerateKeyPair()
	_, m := GenerateSecret()
	label := []byte("policy-1/0")

	cipherText, proof, err := EncryptPointWithProof(server.Public, m, label)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Len(t, proof, 2*ScalarLen)
	assert.True(t, m.Equal(DecryptPoint(server.Private, cipherText)))

	assert.NoError(t, VerifyEncryptionProof(cipherText, proof, label))

	// 其他标签下证明无效
	assert.Error(t, VerifyEncryptionProof(cipherText, proof, []byte("policy-2/0")))

	// 重新随机化后的密文无法沿用原证明
	r := Suite.Scalar().Pick(Suite.RandomStream())
	rerandomized := &CipherText{
		K: Suite.Point().Add(cipherText.K, Suite.Point().Mul(r, nil)),
		C: Suite.Point().Add(cipherText.C, Suite.Point().Mul(r, server.Public)),
	}
	assert.Error(t, VerifyEncryptionProof(rerandomized, proof, label))

	assert.Error(t, VerifyEncryptionProof(cipherText, proof[:10], label))
}
