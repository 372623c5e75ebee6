package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"testing"
	"time"

	"github.com/JasonRUAN/SecureFileShare/internal/utils/cipherutils"
	"github.com/JasonRUAN/SecureFileShare/internal/wallet"
	"github.com/JasonRUAN/SecureFileShare/pkg/errorcode"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/tjfoc/gmsm/sm2"
)

const testScope = "filereg"

func newTestSigner(t *testing.T) *wallet.SM2Signer {
	privKey, err := sm2.GenerateKey(rand.Reader)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	return wallet.NewSM2Signer(privKey)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestChallengeMessageIsDeterministic(t *testing.T) {
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	auth := NewAuthenticator(fixedClock(now))

	challenge, err := auth.BeginSession("0xabc", testScope, 0)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	sessionKey, _ := cipherutils.SerializePoint(challenge.SessionKey.Public)

	assert.Equal(t, challenge.Message, ChallengeMessage("0xabc", testScope, challenge.IssuedAt, challenge.ExpiresAt, sessionKey))
	assert.Equal(t, now.Add(DefaultTTL), challenge.ExpiresAt)
	assert.Contains(t, string(challenge.Message), "0xabc")
	assert.Contains(t, string(challenge.Message), "2024-03-01T08:10:00Z")
	assert.Contains(t, string(challenge.Message), hex.EncodeToString(sessionKey))

	// 每次挑战使用新的会话密钥
	other, _ := auth.BeginSession("0xabc", testScope, 0)
	assert.NotEqual(t, challenge.Message, other.Message)
}

func TestNewSessionAndValidate(t *testing.T) {
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	auth := NewAuthenticator(fixedClock(now))
	signer := newTestSigner(t)

	credential, err := auth.NewSession(context.Background(), signer, testScope, 5*time.Minute)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, signer.Address(), credential.Address)

	assert.NoError(t, credential.Validate(now.Add(4*time.Minute)))

	// 过期
	err = credential.Validate(now.Add(5 * time.Minute))
	assert.Equal(t, errorcode.ErrorInvalidSignature, errors.Cause(err))
}

func TestCompleteSessionRejectsBadSignature(t *testing.T) {
	auth := NewAuthenticator(nil)
	signer := newTestSigner(t)
	other := newTestSigner(t)

	challenge, err := auth.BeginSession(signer.Address(), testScope, 0)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	// 对其他消息的签名
	sig, _ := signer.Sign(context.Background(), []byte("something else"))
	_, err = auth.CompleteSession(challenge, signer.PublicKey(), sig)
	assert.Equal(t, errorcode.ErrorInvalidSignature, errors.Cause(err))

	// 其他钱包的签名与公钥
	sig, _ = other.Sign(context.Background(), challenge.Message)
	_, err = auth.CompleteSession(challenge, other.PublicKey(), sig)
	assert.Equal(t, errorcode.ErrorInvalidSignature, errors.Cause(err))
}

func TestNewSessionWithoutWallet(t *testing.T) {
	_, err := NewAuthenticator(nil).NewSession(context.Background(), nil, testScope, 0)
	assert.Equal(t, errorcode.ErrorWalletNotConnected, errors.Cause(err))
}

func TestWireRoundTrip(t *testing.T) {
	auth := NewAuthenticator(nil)
	credential, err := auth.NewSession(context.Background(), newTestSigner(t), testScope, 0)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	wire := credential.ToWire()
	parsed, err := FromWire(&wire)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.NoError(t, parsed.Validate(time.Now()))

	assert.Nil(t, parsed.SessionPrivateKey())

	// 篡改范围后签名失效
	wire.Scope = "other"
	tampered, _ := FromWire(&wire)
	assert.Error(t, tampered.Validate(time.Now()))

	// 换上其他会话公钥后钱包签名失效
	wire = credential.ToWire()
	otherKey, _ := cipherutils.SerializePoint(cipherutils.GenerateKeyPair().Public)
	wire.SessionKey = base64.StdEncoding.EncodeToString(otherKey)
	tampered, _ = FromWire(&wire)
	assert.Equal(t, errorcode.ErrorInvalidSignature, errors.Cause(tampered.Validate(time.Now())))
}

func TestSessionKeySignature(t *testing.T) {
	credential, err := NewAuthenticator(nil).NewSession(context.Background(), newTestSigner(t), testScope, 0)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	msg := []byte("share request")
	signature, err := credential.SignWithSessionKey(msg)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	wire := credential.ToWire()
	parsed, err := FromWire(&wire)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.NoError(t, parsed.VerifySessionSignature(msg, signature))
	assert.Equal(t, errorcode.ErrorInvalidSignature, errors.Cause(parsed.VerifySessionSignature([]byte("other request"), signature)))

	// 解析得到的凭证不能签名
	_, err = parsed.SignWithSessionKey(msg)
	assert.Error(t, err)
}
