package wallet

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/JasonRUAN/SecureFileShare/pkg/sm2keyutils"
	"github.com/stretchr/testify/assert"
	"github.com/tjfoc/gmsm/sm2"
)

func TestSM2SignerFromPEM(t *testing.T) {
	privKey, err := sm2.GenerateKey(rand.Reader)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	privPEM, err := sm2keyutils.ConvertPrivateKeyToPEM(privKey)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	pubPEM, err := sm2keyutils.ConvertPublicKeyToPEM(&privKey.PublicKey)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	signer, err := NewSM2SignerFromPEM(privPEM, pubPEM)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	assert.Equal(t, sm2keyutils.AddressFromPublicKey(signer.PublicKey()), signer.Address())

	msg := []byte("message")
	sig, err := signer.Sign(context.Background(), msg)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.True(t, sm2keyutils.VerifyMessage(signer.PublicKey(), msg, sig))
}

func TestSM2SignerRejectsMismatchedPublicKey(t *testing.T) {
	privKey, _ := sm2.GenerateKey(rand.Reader)
	otherKey, _ := sm2.GenerateKey(rand.Reader)

	privPEM, _ := sm2keyutils.ConvertPrivateKeyToPEM(privKey)
	otherPubPEM, _ := sm2keyutils.ConvertPublicKeyToPEM(&otherKey.PublicKey)

	_, err := NewSM2SignerFromPEM(privPEM, otherPubPEM)
	assert.Error(t, err)
}

func TestSM2SignerRespectsCancelledContext(t *testing.T) {
	privKey, _ := sm2.GenerateKey(rand.Reader)
	signer := NewSM2Signer(privKey)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := signer.Sign(ctx, []byte("message"))
	assert.Error(t, err)
}
