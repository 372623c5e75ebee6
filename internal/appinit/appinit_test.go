package appinit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/JasonRUAN/SecureFileShare/internal/blobstore"
	"github.com/JasonRUAN/SecureFileShare/internal/utils/cipherutils"
	"github.com/JasonRUAN/SecureFileShare/pkg/sm2keyutils"
	"github.com/stretchr/testify/assert"
	"github.com/tjfoc/gmsm/sm2"
)

const testServerYAML = `
user:
  orgName: Org1
  userID: User1
channels:
  - mychannel
chaincodeID: fileregcc
port: 8081
logLevel: debug
showTimingLogs: true
wallet:
  privateKey: wallet.pem
blobStore:
  type: walrus
  options:
    publisherUrl: http://127.0.0.1:31415
    aggregatorUrl: http://127.0.0.1:31416
keyServers:
  threshold: 2
  timeout: 15s
  verifyKeyServers: true
  servers:
    - index: 1
      url: http://127.0.0.1:9001
      publicKey: "00"
    - index: 2
      url: http://127.0.0.1:9002
      publicKey: "01"
keyServer:
  index: 1
  privateKey: ks1.key
  port: 9001
upload:
  maxConcurrentPuts: 8
db:
  dsn: "root:root@tcp(127.0.0.1:3306)/sfs?parseTime=true"
sessionTTL: 5m
`

func writeTempFile(t *testing.T, name string, content []byte) string {
	path := filepath.Join(t.TempDir(), name)
	if isNoError := assert.NoError(t, ioutil.WriteFile(path, content, 0600)); !isNoError {
		t.FailNow()
	}

	return path
}

func TestLoadServerInfo(t *testing.T) {
	path := writeTempFile(t, "server.yaml", []byte(testServerYAML))

	info, err := LoadServerInfo(path)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	assert.Equal(t, "Org1", info.User.OrgName)
	assert.Equal(t, "mychannel", info.ChannelID())
	assert.Equal(t, "fileregcc", info.ChaincodeID)
	assert.True(t, info.ShowTimingLogs)
	assert.Equal(t, blobstore.TypeWalrus, info.BlobStore.Type)
	assert.Equal(t, "http://127.0.0.1:31415", info.BlobStore.Options["publisherUrl"])
	assert.Equal(t, 2, info.KeyServers.Threshold)
	assert.Equal(t, 15*time.Second, info.KeyServers.Timeout)
	assert.Len(t, info.KeyServers.Servers, 2)
	assert.Equal(t, 9001, info.KeyServer.Port)
	assert.Equal(t, 8, info.MaxConcurrentPuts())
	assert.Equal(t, 5*time.Minute, info.SessionTTL)
	assert.NoError(t, info.SetupLogger())
}

func TestLoadServerInfoRequiresChaincode(t *testing.T) {
	path := writeTempFile(t, "server.yaml", []byte("user:\n  orgName: Org1\n  userID: User1\nchannels: [mychannel]\n"))

	_, err := LoadServerInfo(path)
	assert.Error(t, err)

	_, err = LoadServerInfo(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadWallet(t *testing.T) {
	privKey, err := sm2.GenerateKey(rand.Reader)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	privKeyPem, err := sm2keyutils.ConvertPrivateKeyToPEM(privKey)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	pubKeyPem, err := sm2keyutils.ConvertPublicKeyToPEM(&privKey.PublicKey)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	signer, err := LoadWallet(&KeyPairLocation{
		PrivateKey: writeTempFile(t, "wallet.pem", privKeyPem),
		PublicKey:  writeTempFile(t, "wallet.pub.pem", pubKeyPem),
	})
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	expectedAddress := sm2keyutils.AddressFromPublicKey(sm2keyutils.SerializePublicKey(&privKey.PublicKey))
	assert.Equal(t, expectedAddress, signer.Address())

	// 公钥与私钥不匹配
	otherKey, _ := sm2.GenerateKey(rand.Reader)
	otherPubKeyPem, _ := sm2keyutils.ConvertPublicKeyToPEM(&otherKey.PublicKey)
	_, err = LoadWallet(&KeyPairLocation{
		PrivateKey: writeTempFile(t, "wallet.pem", privKeyPem),
		PublicKey:  writeTempFile(t, "other.pub.pem", otherPubKeyPem),
	})
	assert.Error(t, err)
}

func TestLoadKeyServerPrivateKey(t *testing.T) {
	keyPair := cipherutils.GenerateKeyPair()
	privateKeyBytes, err := cipherutils.SerializeScalar(keyPair.Private)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	path := writeTempFile(t, "ks1.key", []byte(hex.EncodeToString(privateKeyBytes)+"\n"))
	privateKey, err := LoadKeyServerPrivateKey(path)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.True(t, keyPair.Private.Equal(privateKey))

	_, err = LoadKeyServerPrivateKey(writeTempFile(t, "bad.key", []byte("not hex")))
	assert.Error(t, err)
}

func TestOpenDBWithoutDSN(t *testing.T) {
	conn, err := OpenDB(nil)
	assert.NoError(t, err)
	assert.Nil(t, conn)

	_, err = OpenBlobStore(context.Background(), nil)
	assert.Error(t, err)
}

const testInitYAML = `
users:
  Org1:
    name: Org1
    adminIDs: [Admin]
    userIDs: [User1]
channels:
  mychannel:
    participants:
      Org1:
        orgName: Org1
        userID: Admin
    configs:
      - path: fixtures/channel-artifacts/channel.tx
        orgName: Org1
        userID: Admin
chaincodes:
  fileregcc:
    version: "1.0"
    path: filereg
    goPath: chaincode
    installations:
      Org1:
        orgName: Org1
        userID: Admin
    instantiations:
      mychannel:
        policy: "OR('Org1MSP.member')"
        orgName: Org1
        userID: Admin
`

func TestLoadInitInfo(t *testing.T) {
	info, err := LoadInitInfo(writeTempFile(t, "init.yaml", []byte(testInitYAML)))
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	assert.Equal(t, "1.0", info.Chaincodes["fileregcc"].Version)
	assert.Equal(t, "Admin@Org1", info.Channels["mychannel"].Participants["Org1"].String())
}

func TestInitInfoValidateUndeclaredIdentity(t *testing.T) {
	info, err := LoadInitInfo(writeTempFile(t, "init.yaml", []byte(testInitYAML)))
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	info.Chaincodes["fileregcc"].Installations["Org1"].UserID = "Nobody"
	assert.Error(t, info.Validate())

	info.Chaincodes["fileregcc"].Installations["Org1"].UserID = "Admin"
	info.Chaincodes["fileregcc"].Instantiations["otherchannel"] = &ChaincodeInstantiationInfo{OrgName: "Org1", UserID: "Admin"}
	assert.Error(t, info.Validate())

	delete(info.Chaincodes["fileregcc"].Instantiations, "otherchannel")
	info.Channels["mychannel"].Participants["Org2"] = &OperatingIdentity{OrgName: "Org2", UserID: "Admin"}
	assert.Error(t, info.Validate())
}

func TestForEachIdentity(t *testing.T) {
	users := map[string]*OrgInfo{
		"Org2": {AdminIDs: []string{"Admin"}},
		"Org1": {AdminIDs: []string{"Admin"}, UserIDs: []string{"User1", "User2"}},
	}

	var visited []string
	err := forEachIdentity(users, func(orgName, userID string) error {
		visited = append(visited, userID+"@"+orgName)
		return nil
	})
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, []string{"Admin@Org1", "User1@Org1", "User2@Org1", "Admin@Org2"}, visited)

	// 出错时立即停止
	visited = nil
	err = forEachIdentity(users, func(orgName, userID string) error {
		visited = append(visited, userID+"@"+orgName)
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Len(t, visited, 1)
}
