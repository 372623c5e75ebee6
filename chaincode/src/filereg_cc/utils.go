package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/JasonRUAN/SecureFileShare/pkg/callerproof"
	"github.com/JasonRUAN/SecureFileShare/pkg/errorcode"
	"github.com/JasonRUAN/SecureFileShare/pkg/models/filereg"
	"github.com/hyperledger/fabric-chaincode-go/shim"
)

const (
	// 组合键的对象类型
	ckOwnerFileID    = "owner~fileid"
	ckSharedToFileID = "sharedto~fileid"
	ckMarketFileID   = "market~fileid"
	ckAddressNonce   = "address~nonce"

	// keyTotalFiles 对应文件总数
	keyTotalFiles = "total_files"
)

func getKeyForFile(fileID string) string {
	return fmt.Sprintf("file_%s", fileID)
}

func getKeyForBalance(address string) string {
	return fmt.Sprintf("balance_%s", address)
}

func getTimeFromStub(stub shim.ChaincodeStubInterface) (ret time.Time, err error) {
	// 从 stub 中得到交易提案创建时间
	timestamp, err := stub.GetTxTimestamp()
	if err != nil {
		return
	}

	// 转为 Go 中的 time.Time
	ret = time.Unix(timestamp.GetSeconds(), int64(timestamp.GetNanos())).UTC()
	return
}

// getCallerFromArgs 解析最后一个参数中的调用证明，验证签名并消耗随机数，返回调用者地址与其余参数。
func getCallerFromArgs(stub shim.ChaincodeStubInterface, fcn string, args []string, numArgs int) (string, []string, error) {
	if len(args) != numArgs+1 {
		return "", nil, fmt.Errorf("参数数量不正确。应为 %v 个", numArgs+1)
	}

	var proof filereg.CallerProof
	if err := json.Unmarshal([]byte(args[numArgs]), &proof); err != nil {
		return "", nil, fmt.Errorf("无法解析调用证明: %v", err)
	}

	params := args[:numArgs]
	if err := callerproof.Verify(&proof, fcn, params); err != nil {
		return "", nil, fmt.Errorf("%v%v", err, errorcode.CodeForbidden)
	}

	// 随机数只能使用一次
	nonceKey, err := stub.CreateCompositeKey(ckAddressNonce, []string{proof.Address, proof.Nonce})
	if err != nil {
		return "", nil, fmt.Errorf("无法创建索引 '%v': %v", ckAddressNonce, err)
	}

	nonceVal, err := stub.GetState(nonceKey)
	if err != nil {
		return "", nil, fmt.Errorf("无法检查随机数: %v", err)
	}

	if len(nonceVal) != 0 {
		return "", nil, fmt.Errorf("调用证明中的随机数已被使用")
	}

	if err := stub.PutState(nonceKey, []byte{0x00}); err != nil {
		return "", nil, fmt.Errorf("无法记录随机数: %v", err)
	}

	return proof.Address, params, nil
}

func getFileRecord(stub shim.ChaincodeStubInterface, fileID string) (*filereg.FileRecord, error) {
	recordBytes, err := stub.GetState(getKeyForFile(fileID))
	if err != nil {
		return nil, fmt.Errorf("无法读取文件记录: %v", err)
	}

	if len(recordBytes) == 0 {
		return nil, fmt.Errorf("文件 '%v' 不存在%v", fileID, errorcode.CodeNotFound)
	}

	var record filereg.FileRecord
	if err := json.Unmarshal(recordBytes, &record); err != nil {
		return nil, fmt.Errorf("无法解析文件记录: %v", err)
	}

	return &record, nil
}

func putFileRecord(stub shim.ChaincodeStubInterface, record *filereg.FileRecord) error {
	recordBytes, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("无法序列化文件记录: %v", err)
	}

	if err := stub.PutState(getKeyForFile(record.ID), recordBytes); err != nil {
		return fmt.Errorf("无法存储文件记录: %v", err)
	}

	return nil
}

func putIndex(stub shim.ChaincodeStubInterface, objectType string, attributes []string) error {
	ck, err := stub.CreateCompositeKey(objectType, attributes)
	if err != nil {
		return fmt.Errorf("无法创建索引 '%v': %v", objectType, err)
	}

	if err = stub.PutState(ck, []byte{0x00}); err != nil {
		return fmt.Errorf("无法创建索引 '%v': %v", objectType, err)
	}

	return nil
}

func hasIndex(stub shim.ChaincodeStubInterface, objectType string, attributes []string) (bool, error) {
	ck, err := stub.CreateCompositeKey(objectType, attributes)
	if err != nil {
		return false, fmt.Errorf("无法创建索引 '%v': %v", objectType, err)
	}

	val, err := stub.GetState(ck)
	if err != nil {
		return false, fmt.Errorf("无法读取索引 '%v': %v", objectType, err)
	}

	return len(val) != 0, nil
}

// listIDsByIndex 列出组合键中最后一个属性（文件 ID）
func listIDsByIndex(stub shim.ChaincodeStubInterface, objectType string, attributes []string) ([]string, error) {
	iterator, err := stub.GetStateByPartialCompositeKey(objectType, attributes)
	if err != nil {
		return nil, fmt.Errorf("无法查询索引 '%v': %v", objectType, err)
	}
	defer iterator.Close()

	ids := []string{}
	for iterator.HasNext() {
		kv, err := iterator.Next()
		if err != nil {
			return nil, fmt.Errorf("无法遍历索引 '%v': %v", objectType, err)
		}

		_, keyParts, err := stub.SplitCompositeKey(kv.Key)
		if err != nil {
			return nil, fmt.Errorf("无法解析索引 '%v': %v", objectType, err)
		}

		ids = append(ids, keyParts[len(keyParts)-1])
	}

	return ids, nil
}

func getUint(stub shim.ChaincodeStubInterface, key string) (uint64, error) {
	val, err := stub.GetState(key)
	if err != nil {
		return 0, fmt.Errorf("无法读取 '%v': %v", key, err)
	}

	if len(val) == 0 {
		return 0, nil
	}

	return strconv.ParseUint(string(val), 10, 64)
}

func putUint(stub shim.ChaincodeStubInterface, key string, value uint64) error {
	return stub.PutState(key, []byte(strconv.FormatUint(value, 10)))
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}

	return false
}
