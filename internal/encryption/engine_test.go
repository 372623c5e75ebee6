package encryption

import (
	"testing"

	"github.com/JasonRUAN/SecureFileShare/internal/envelope"
	"github.com/JasonRUAN/SecureFileShare/internal/keyserver"
	"github.com/JasonRUAN/SecureFileShare/internal/utils/cipherutils"
	"github.com/JasonRUAN/SecureFileShare/pkg/errorcode"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/share"
)

func newTestServers(indices ...int) ([]*keyserver.ServerKey, map[int]kyber.Scalar) {
	servers := make([]*keyserver.ServerKey, 0, len(indices))
	privateKeys := make(map[int]kyber.Scalar)
	for _, index := range indices {
		keyPair := cipherutils.GenerateKeyPair()
		servers = append(servers, &keyserver.ServerKey{
			Endpoint:  keyserver.Endpoint{Index: index},
			PublicKey: keyPair.Public,
		})
		privateKeys[index] = keyPair.Private
	}

	return servers, privateKeys
}

// recoverKey 以密钥服务器的身份直接解开指定的份额并恢复对称密钥
func recoverKey(t *testing.T, env *envelope.Envelope, privateKeys map[int]kyber.Scalar, indices ...int) []byte {
	var shares []*share.PubShare
	for _, index := range indices {
		encapsulated, ok := env.ShareFor(uint8(index - 1))
		if isOK := assert.True(t, ok); !isOK {
			t.FailNow()
		}

		cipherText, err := cipherutils.DeserializeCipherText(append(append([]byte{}, encapsulated.K...), encapsulated.C...))
		if isNoError := assert.NoError(t, err); !isNoError {
			t.FailNow()
		}

		shares = append(shares, &share.PubShare{I: index - 1, V: cipherutils.DecryptPoint(privateKeys[index], cipherText)})
	}

	secret, err := cipherutils.RecoverSecret(shares, int(env.Threshold), len(env.Shares))
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	key, err := cipherutils.DeriveSymmetricKeyBytesFromCurvePoint(secret, env.PolicyID)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	return key
}

func TestSealAndOpen(t *testing.T) {
	servers, privateKeys := newTestServers(1, 2, 3, 4, 5)
	engine, err := NewEngine(servers, 3)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	policyID, err := engine.NewPolicyID()
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Len(t, policyID, 16)

	plaintext := []byte("Hello, SecureFileShare!")
	env, err := engine.Seal(plaintext, policyID)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, uint8(3), env.Threshold)
	assert.Len(t, env.Shares, 5)
	assert.NotContains(t, string(env.Ciphertext), "SecureFileShare")

	// 任意 3 个份额都能恢复出相同的密钥
	key := recoverKey(t, env, privateKeys, 1, 3, 5)
	assert.Equal(t, key, recoverKey(t, env, privateKeys, 2, 4, 5))

	// 经过序列化与解析后依然可以解密
	envBytes, err := envelope.Serialize(env)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	parsed, err := envelope.Parse(envBytes)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	decrypted, err := Open(parsed, key)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, plaintext, decrypted)
}

func TestSealBindsSharesToPolicy(t *testing.T) {
	servers, _ := newTestServers(1, 2, 3)
	engine, _ := NewEngine(servers, 2)
	policyID, _ := engine.NewPolicyID()

	env, err := engine.Seal([]byte("data"), policyID)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	for _, encapsulated := range env.Shares {
		cipherText, err := cipherutils.DeserializeCipherText(append(append([]byte{}, encapsulated.K...), encapsulated.C...))
		if isNoError := assert.NoError(t, err); !isNoError {
			t.FailNow()
		}

		assert.NoError(t, cipherutils.VerifyEncryptionProof(cipherText, encapsulated.Proof, envelope.ShareLabel(policyID, encapsulated.Index)))
		assert.Error(t, cipherutils.VerifyEncryptionProof(cipherText, encapsulated.Proof, envelope.ShareLabel([]byte("other"), encapsulated.Index)))
	}
}

func TestSealWithSparseIndices(t *testing.T) {
	servers, privateKeys := newTestServers(2, 5, 7)
	engine, _ := NewEngine(servers, 2)
	policyID, _ := engine.NewPolicyID()

	env, err := engine.Seal([]byte("sparse"), policyID)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	key := recoverKey(t, env, privateKeys, 5, 7)
	decrypted, err := Open(env, key)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, []byte("sparse"), decrypted)
}

func TestOpenFailures(t *testing.T) {
	servers, privateKeys := newTestServers(1, 2, 3)
	engine, _ := NewEngine(servers, 2)
	policyID, _ := engine.NewPolicyID()

	env, err := engine.Seal([]byte("top secret"), policyID)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	key := recoverKey(t, env, privateKeys, 1, 2)

	// 错误的密钥
	wrongKey := append([]byte{}, key...)
	wrongKey[0] ^= 0xff
	_, err = Open(env, wrongKey)
	assert.Equal(t, errorcode.ErrorDecryptionFailed, errors.Cause(err))

	// 篡改密文
	tampered := *env
	tampered.Ciphertext = append([]byte{}, env.Ciphertext...)
	tampered.Ciphertext[0] ^= 0x01
	_, err = Open(&tampered, key)
	assert.Equal(t, errorcode.ErrorDecryptionFailed, errors.Cause(err))

	// 篡改头部（门限）同样导致认证失败
	tampered = *env
	tampered.Threshold = 3
	_, err = Open(&tampered, key)
	assert.Equal(t, errorcode.ErrorDecryptionFailed, errors.Cause(err))
}

func TestNewEngineRejectsBadThreshold(t *testing.T) {
	servers, _ := newTestServers(1, 2)

	_, err := NewEngine(servers, 0)
	assert.Error(t, err)

	_, err = NewEngine(servers, 3)
	assert.Error(t, err)

	_, err = NewEngine(nil, 1)
	assert.Error(t, err)
}
