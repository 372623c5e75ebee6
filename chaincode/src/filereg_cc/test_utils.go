package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/JasonRUAN/SecureFileShare/pkg/callerproof"
	"github.com/JasonRUAN/SecureFileShare/pkg/models/filereg"
	"github.com/JasonRUAN/SecureFileShare/pkg/sm2keyutils"
	"github.com/gogo/protobuf/proto"
	"github.com/google/uuid"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-chaincode-go/shimtest"
	"github.com/hyperledger/fabric-protos-go/msp"
	"github.com/hyperledger/fabric-protos-go/peer"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/tjfoc/gmsm/sm2"
)

var testLogger = log.StandardLogger()

const exampleCertUser1 = `-----BEGIN CERTIFICATE-----
MIICKDCCAc6gAwIBAgIRAPstx377NKEjR+ohbQ2J0oUwCgYIKoZIzj0EAwIwcTEL
MAkGA1UEBhMCVVMxEzARBgNVBAgTCkNhbGlmb3JuaWExFjAUBgNVBAcTDVNhbiBG
cmFuY2lzY28xGDAWBgNVBAoTD29yZzEubGFiODA1LmNvbTEbMBkGA1UEAxMSY2Eu
b3JnMS5sYWI4MDUuY29tMB4XDTIwMTAyOTEyMDAwMFoXDTMwMTAyNzEyMDAwMFow
azELMAkGA1UEBhMCVVMxEzARBgNVBAgTCkNhbGlmb3JuaWExFjAUBgNVBAcTDVNh
biBGcmFuY2lzY28xDzANBgNVBAsTBmNsaWVudDEeMBwGA1UEAwwVVXNlcjFAb3Jn
MS5sYWI4MDUuY29tMFkwEwYHKoZIzj0CAQYIKoZIzj0DAQcDQgAEHZYGK3Ck7LVg
u1YRK/vweROnZ6e1CSNzYviGXELedNZ/Rcv/1r/eEMP1hGhRjQdw1yz855N9I2FC
mSUdr1hgdKNNMEswDgYDVR0PAQH/BAQDAgeAMAwGA1UdEwEB/wQCMAAwKwYDVR0j
BCQwIoAgfPu1yXjxVzXCDv8yjNIBA6IhTAkvU5VROcg5ebdiB3cwCgYIKoZIzj0E
AwIDSAAwRQIhAO2h+8VLHnxBcbmPsc410N3dDCiSVx0b/2kSm53i801aAiAKZ/AG
mSmrm0zEPivFjOxDpd72v4tUS+O09sr28k+UPA==
-----END CERTIFICATE-----`

// Check if the actual value is equal to the expected value.
func expectEqual(t *testing.T, expected interface{}, actual interface{}) {
	isEqual := assert.Equal(t, expected, actual)
	if !isEqual {
		testLogger.Infof("Value was '%v'. Expecting '%v'\n", actual, expected)
		t.FailNow()
	}
}

// Check if the string ends with the specified phrases.
func expectStringEndsWith(t *testing.T, expectedSuffix string, actual string) {
	isCorrectEnding := strings.HasSuffix(actual, expectedSuffix)
	if !isCorrectEnding {
		testLogger.Infof("Value was '%v'. Expecting to end with '%v'\n", actual, expectedSuffix)
		t.FailNow()
	}
}

// Check if the state of the key is equal to the value specified.
func expectStateEqual(t *testing.T, stub *shimtest.MockStub, key string, expected []byte) {
	bytes := stub.State[key]

	isNotNil := assert.NotNil(t, bytes)
	if !isNotNil {
		testLogger.Infof("Failed to get value for key '%v'\n", key)
		t.FailNow()
	}

	isEqual := assert.Equal(t, expected, bytes)
	if !isEqual {
		testLogger.Infof("State value of key '%v' was '%v'. Expecting '%v'\n", key, bytes, expected)
		t.FailNow()
	}
}

// Check if the response state is OK.
func expectResponseStatusOK(t *testing.T, resp *peer.Response) {
	if resp.Status != shim.OK {
		testLogger.Infof("Response status was ERROR with message '%v'. Expecting response status to be OK\n", resp.Message)
		t.FailNow()
	}
}

// Check if the response state is ERROR.
func expectResponseStatusERROR(t *testing.T, resp *peer.Response) {
	if resp.Status != shim.ERROR {
		testLogger.Infof("Expecting response status to be ERROR\n")
		t.FailNow()
	}
}

// Creates a MockStub bound to the chaincode struct FileRegCC.
// The gateway identity is `exampleCertUser1` of Org1MSP.
func createMockStub(t *testing.T, stubName string) *shimtest.MockStub {
	fc := new(FileRegCC)
	mockStub := shimtest.NewMockStub(stubName, fc)
	setMockStubCreator(t, mockStub, "Org1MSP", []byte(exampleCertUser1))
	return mockStub
}

func setMockStubCreator(t *testing.T, stub *shimtest.MockStub, mspID string, idBytes []byte) {
	sid := &msp.SerializedIdentity{Mspid: mspID, IdBytes: idBytes}
	b, err := proto.Marshal(sid)
	if err != nil {
		testLogger.Infof("Cannot set stub creator: %v\n", err)
		t.FailNow()
	}

	stub.Creator = b
}

// Initializes the chaincode with the specified parameters using mockStub.MockInit.
func initChaincode(mockStub *shimtest.MockStub, arguments [][]byte) peer.Response {
	resp := mockStub.MockInit(uuid.NewString(), arguments)
	return resp
}

// testWallet is an SM2 key pair acting as an end user who signs caller proofs.
type testWallet struct {
	privKey        *sm2.PrivateKey
	publicKeyBytes []byte
	address        string
}

func newTestWallet(t *testing.T) *testWallet {
	privKey, err := sm2.GenerateKey(rand.Reader)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	publicKeyBytes := sm2keyutils.SerializePublicKey(&privKey.PublicKey)
	return &testWallet{
		privKey:        privKey,
		publicKeyBytes: publicKeyBytes,
		address:        sm2keyutils.AddressFromPublicKey(publicKeyBytes),
	}
}

// proof signs the call with the given nonce and returns the serialized caller proof.
func (w *testWallet) proof(t *testing.T, fcn string, args []string, nonce string) string {
	sig, err := sm2keyutils.SignMessage(w.privKey, callerproof.Message(fcn, args, nonce))
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	proofBytes, err := json.Marshal(&filereg.CallerProof{
		Address:   w.address,
		PublicKey: base64.StdEncoding.EncodeToString(w.publicKeyBytes),
		Nonce:     nonce,
		Signature: base64.StdEncoding.EncodeToString(sig),
	})
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	return string(proofBytes)
}

// invokeAs invokes a state-changing function with a freshly signed caller proof.
func invokeAs(t *testing.T, stub *shimtest.MockStub, w *testWallet, fcn string, args ...string) peer.Response {
	return invokeWithProof(stub, fcn, args, w.proof(t, fcn, args, uuid.NewString()))
}

func invokeWithProof(stub *shimtest.MockStub, fcn string, args []string, proof string) peer.Response {
	arguments := [][]byte{[]byte(fcn)}
	for _, arg := range args {
		arguments = append(arguments, []byte(arg))
	}
	arguments = append(arguments, []byte(proof))

	return stub.MockInvoke(uuid.NewString(), arguments)
}

// query invokes a read-only function without a caller proof.
func query(stub *shimtest.MockStub, fcn string, args ...string) peer.Response {
	arguments := [][]byte{[]byte(fcn)}
	for _, arg := range args {
		arguments = append(arguments, []byte(arg))
	}

	return stub.MockInvoke(uuid.NewString(), arguments)
}

func toJSON(t *testing.T, v interface{}) string {
	b, err := json.Marshal(v)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	return string(b)
}
