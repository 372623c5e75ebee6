package envelope

import (
	"bytes"
	"testing"

	"github.com/JasonRUAN/SecureFileShare/pkg/errorcode"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func newTestEnvelope() *Envelope {
	shares := make([]EncapsulatedShare, 0, 3)
	for i := uint8(0); i < 3; i++ {
		shares = append(shares, EncapsulatedShare{
			Index: i,
			K:     bytes.Repeat([]byte{0x10 + i}, PointLen),
			C:     bytes.Repeat([]byte{0x20 + i}, PointLen),
			Proof: bytes.Repeat([]byte{0x30 + i}, ProofLen),
		})
	}

	return &Envelope{
		PolicyID:   []byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c},
		Threshold:  2,
		Shares:     shares,
		Nonce:      bytes.Repeat([]byte{0x77}, 12),
		Ciphertext: []byte("ciphertext with tag"),
	}
}

func assertMalformed(t *testing.T, err error) {
	if isError := assert.Error(t, err); !isError {
		t.FailNow()
	}
	assert.Equal(t, errorcode.ErrorMalformedEnvelope, errors.Cause(err))
}

func TestSerializeAndParse(t *testing.T) {
	env := newTestEnvelope()

	b, err := Serialize(env)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	parsed, err := Parse(b)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	assert.Equal(t, env, parsed)
	assert.Equal(t, "deadbeef0102030405060708090a0b0c", parsed.PolicyIDHex())

	share, ok := parsed.ShareFor(1)
	assert.True(t, ok)
	assert.Equal(t, bytes.Repeat([]byte{0x11}, PointLen), share.K)

	_, ok = parsed.ShareFor(9)
	assert.False(t, ok)
}

func TestSerializeIsDeterministic(t *testing.T) {
	b1, err := Serialize(newTestEnvelope())
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	b2, err := Serialize(newTestEnvelope())
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	assert.Equal(t, b1, b2)
}

func TestHeaderIsPrefixOfSerialized(t *testing.T) {
	env := newTestEnvelope()
	header, err := env.Header()
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	b, err := Serialize(env)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	assert.True(t, bytes.HasPrefix(b, header))
	assert.Equal(t, env.Ciphertext, b[len(header):])
}

func TestPeekPolicyID(t *testing.T) {
	env := newTestEnvelope()
	b, err := Serialize(env)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	// 只需前缀即可读出策略 ID
	policyID, err := PeekPolicyID(b[:policyIDOffset+len(env.PolicyID)])
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, env.PolicyID, policyID)
}

func TestParseRejectsMalformedInput(t *testing.T) {
	b, err := Serialize(newTestEnvelope())
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	// 明文数据
	_, err = Parse([]byte("hello, world. this is not an envelope"))
	assertMalformed(t, err)

	// 太短
	_, err = Parse(b[:3])
	assertMalformed(t, err)

	// 未知版本
	badVersion := append([]byte{}, b...)
	badVersion[4] = 0x02
	_, err = Parse(badVersion)
	assertMalformed(t, err)

	// 策略 ID 长度为 0
	emptyPolicy := append([]byte{}, b...)
	emptyPolicy[5] = 0
	_, err = Parse(emptyPolicy)
	assertMalformed(t, err)

	// 份额表被截断
	_, err = Parse(b[:policyIDOffset+16+2+shareEntryLen])
	assertMalformed(t, err)

	// 缺少密文
	header, _ := newTestEnvelope().Header()
	_, err = Parse(header)
	assertMalformed(t, err)

	// 门限大于份额数量
	badThreshold := append([]byte{}, b...)
	badThreshold[policyIDOffset+16] = 4
	_, err = Parse(badThreshold)
	assertMalformed(t, err)
}

func TestSerializeRejectsInvalidEnvelope(t *testing.T) {
	env := newTestEnvelope()
	env.Threshold = 0
	_, err := Serialize(env)
	assertMalformed(t, err)

	env = newTestEnvelope()
	env.Shares[1].Index = env.Shares[0].Index
	_, err = Serialize(env)
	assertMalformed(t, err)

	env = newTestEnvelope()
	env.Shares[2].C = env.Shares[2].C[:10]
	_, err = Serialize(env)
	assertMalformed(t, err)

	env = newTestEnvelope()
	env.Shares[0].Proof = nil
	_, err = Serialize(env)
	assertMalformed(t, err)
}
