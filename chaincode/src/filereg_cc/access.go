package main

import (
	"encoding/json"
	"fmt"

	"github.com/JasonRUAN/SecureFileShare/pkg/errorcode"
	"github.com/JasonRUAN/SecureFileShare/pkg/models/filereg"
	"github.com/JasonRUAN/SecureFileShare/pkg/models/keyserver"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-protos-go/peer"
)

// 所有者向文件的访问列表追加地址。
//
// 参数：
//   文件 ID
//   被授权者地址列表（JSON）
//   调用证明
func (fc *FileRegCC) grantAccess(stub shim.ChaincodeStubInterface, args []string) peer.Response {
	caller, params, err := getCallerFromArgs(stub, "grantAccess", args, 2)
	if err != nil {
		return shim.Error(err.Error())
	}

	fileID := params[0]
	var grantees []string
	if err := json.Unmarshal([]byte(params[1]), &grantees); err != nil {
		return shim.Error(fmt.Sprintf("无法解析被授权者列表: %v", err))
	}

	if len(grantees) == 0 {
		return shim.Error("被授权者列表不能为空")
	}

	record, err := getFileRecord(stub, fileID)
	if err != nil {
		return shim.Error(err.Error())
	}

	if record.Owner != caller {
		return shim.Error("只有文件所有者可以授权" + errorcode.CodeForbidden)
	}

	if !record.IsEncrypted {
		return shim.Error("未加密文件不需要授权")
	}

	seen := make(map[string]bool)
	for _, grantee := range grantees {
		if grantee == "" {
			return shim.Error("被授权者地址不能为空")
		}
		if grantee == record.Owner {
			return shim.Error("不能授权给所有者自己")
		}
		if seen[grantee] || containsString(record.AccessList, grantee) {
			return shim.Error(fmt.Sprintf("被授权者 '%v' 重复", grantee))
		}
		seen[grantee] = true
	}

	return appendToAccessList(stub, record, grantees)
}

// 购买文件。买家向所有者支付价格，并被加入访问列表。
//
// 参数：
//   文件 ID
//   调用证明
func (fc *FileRegCC) buyFile(stub shim.ChaincodeStubInterface, args []string) peer.Response {
	buyer, params, err := getCallerFromArgs(stub, "buyFile", args, 1)
	if err != nil {
		return shim.Error(err.Error())
	}

	record, err := getFileRecord(stub, params[0])
	if err != nil {
		return shim.Error(err.Error())
	}

	if !record.IsListedOnMarket() {
		return shim.Error("文件未上架出售")
	}

	if record.IsOwnerOrGrantee(buyer) {
		return shim.Error("调用者已可访问该文件")
	}

	buyerBalance, err := getUint(stub, getKeyForBalance(buyer))
	if err != nil {
		return shim.Error(err.Error())
	}

	if buyerBalance < record.Price {
		return shim.Error(fmt.Sprintf("余额不足。需要 %v，当前 %v", record.Price, buyerBalance))
	}

	ownerBalance, err := getUint(stub, getKeyForBalance(record.Owner))
	if err != nil {
		return shim.Error(err.Error())
	}

	if ownerBalance+record.Price < ownerBalance {
		return shim.Error("所有者余额溢出")
	}

	if err := putUint(stub, getKeyForBalance(buyer), buyerBalance-record.Price); err != nil {
		return shim.Error(fmt.Sprintf("无法更新余额: %v", err))
	}
	if err := putUint(stub, getKeyForBalance(record.Owner), ownerBalance+record.Price); err != nil {
		return shim.Error(fmt.Sprintf("无法更新余额: %v", err))
	}

	return appendToAccessList(stub, record, []string{buyer})
}

// 将公开文件添加到调用者的文件列表。
//
// 参数：
//   文件 ID
//   调用证明
func (fc *FileRegCC) addPublicFile(stub shim.ChaincodeStubInterface, args []string) peer.Response {
	caller, params, err := getCallerFromArgs(stub, "addPublicFile", args, 1)
	if err != nil {
		return shim.Error(err.Error())
	}

	record, err := getFileRecord(stub, params[0])
	if err != nil {
		return shim.Error(err.Error())
	}

	if record.IsEncrypted || record.Price > 0 {
		return shim.Error("只能添加免费的公开文件")
	}

	added, err := hasIndex(stub, ckSharedToFileID, []string{caller, record.ID})
	if err != nil {
		return shim.Error(err.Error())
	}
	if added {
		return shim.Error("文件已被添加")
	}

	if err := putIndex(stub, ckSharedToFileID, []string{caller, record.ID}); err != nil {
		return shim.Error(err.Error())
	}

	if err := setAccessChangedEvent(stub, record.ID, []string{caller}); err != nil {
		return shim.Error(err.Error())
	}

	return shim.Success(nil)
}

func appendToAccessList(stub shim.ChaincodeStubInterface, record *filereg.FileRecord, addresses []string) peer.Response {
	record.AccessList = append(record.AccessList, addresses...)
	if err := putFileRecord(stub, record); err != nil {
		return shim.Error(err.Error())
	}

	for _, address := range addresses {
		if err := putIndex(stub, ckSharedToFileID, []string{address, record.ID}); err != nil {
			return shim.Error(err.Error())
		}
	}

	if err := setAccessChangedEvent(stub, record.ID, addresses); err != nil {
		return shim.Error(err.Error())
	}

	return shim.Success(nil)
}

func setAccessChangedEvent(stub shim.ChaincodeStubInterface, fileID string, addresses []string) error {
	eventPayload, err := json.Marshal(&filereg.AccessChangedEvent{FileID: fileID, Addresses: addresses})
	if err != nil {
		return fmt.Errorf("无法序列化事件: %v", err)
	}

	if err = stub.SetEvent("access_changed", eventPayload); err != nil {
		return fmt.Errorf("无法生成事件: %v", err)
	}

	return nil
}

// 授权检查，只用于只读模拟。调用者是所有者或在访问列表中时成功。
//
// 参数：
//   访问策略 ID（hex）
//   文件 ID
//   调用者地址
func (fc *FileRegCC) sealApprove(stub shim.ChaincodeStubInterface, args []string) peer.Response {
	if len(args) != 3 {
		return shim.Error(fmt.Sprintf("'%v' 的参数数量不正确。应为 3 个", keyserver.SealApproveFcn))
	}

	policyIDHex, fileID, caller := args[0], args[1], args[2]

	record, err := getFileRecord(stub, fileID)
	if err != nil {
		return shim.Error(err.Error())
	}

	if !record.IsEncrypted || record.PolicyID != policyIDHex {
		return shim.Error(fmt.Sprintf("文件 '%v' 没有策略 '%v'%v", fileID, policyIDHex, errorcode.CodeNotFound))
	}

	if !record.IsOwnerOrGrantee(caller) {
		return shim.Error(fmt.Sprintf("'%v' 无权访问文件 '%v'%v", caller, fileID, errorcode.CodeForbidden))
	}

	return shim.Success(nil)
}
