package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/JasonRUAN/SecureFileShare/pkg/models/filereg"
	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-protos-go/peer"
)

// 批量登记文件。一次调用中的文件要么全部登记，要么全部失败。
//
// 参数：
//   文件信息列表（`[]filereg.FileInfo` 的 JSON）
//   调用证明
//
// 返回：
//   登记的文件 ID 列表（JSON）
func (fc *FileRegCC) createFiles(stub shim.ChaincodeStubInterface, args []string) peer.Response {
	owner, params, err := getCallerFromArgs(stub, "createFiles", args, 1)
	if err != nil {
		return shim.Error(err.Error())
	}

	var fileInfos []filereg.FileInfo
	if err := json.Unmarshal([]byte(params[0]), &fileInfos); err != nil {
		return shim.Error(fmt.Sprintf("无法解析文件信息: %v", err))
	}

	if len(fileInfos) == 0 {
		return shim.Error("文件信息列表不能为空")
	}

	createdAt, err := getTimeFromStub(stub)
	if err != nil {
		return shim.Error(fmt.Sprintf("无法获取交易时间: %v", err))
	}

	// 先检查整批，再写入
	seen := make(map[string]bool)
	for i := range fileInfos {
		info := &fileInfos[i]
		if err := validateFileInfo(info, owner); err != nil {
			return shim.Error(fmt.Sprintf("文件 #%v 不合法: %v", i, err))
		}

		if seen[info.ID] {
			return shim.Error(fmt.Sprintf("文件 ID '%v' 在批次中重复", info.ID))
		}
		seen[info.ID] = true

		existing, err := stub.GetState(getKeyForFile(info.ID))
		if err != nil {
			return shim.Error(fmt.Sprintf("无法检查文件 ID '%v': %v", info.ID, err))
		}
		if len(existing) != 0 {
			return shim.Error(fmt.Sprintf("文件 ID '%v' 已被占用", info.ID))
		}
	}

	fileIDs := make([]string, 0, len(fileInfos))
	for i := range fileInfos {
		info := &fileInfos[i]
		accessList := append([]string{}, info.GranteeAddresses...)

		record := &filereg.FileRecord{
			ID:          info.ID,
			Owner:       owner,
			Name:        info.Name,
			Description: info.Description,
			BlobID:      info.BlobID,
			FileType:    info.FileType,
			FileSize:    info.FileSize,
			Price:       info.Price,
			IsEncrypted: info.IsEncrypted,
			PolicyID:    info.PolicyID,
			ContentHash: info.ContentHash,
			StoredSize:  info.StoredSize,
			CreatedAt:   createdAt,
			AccessList:  accessList,
		}

		if err := putFileRecord(stub, record); err != nil {
			return shim.Error(err.Error())
		}

		// 索引
		if err := putIndex(stub, ckOwnerFileID, []string{owner, info.ID}); err != nil {
			return shim.Error(err.Error())
		}
		for _, grantee := range accessList {
			if err := putIndex(stub, ckSharedToFileID, []string{grantee, info.ID}); err != nil {
				return shim.Error(err.Error())
			}
		}
		if record.IsListedOnMarket() {
			if err := putIndex(stub, ckMarketFileID, []string{info.ID}); err != nil {
				return shim.Error(err.Error())
			}
		}

		fileIDs = append(fileIDs, info.ID)
	}

	total, err := getUint(stub, keyTotalFiles)
	if err != nil {
		return shim.Error(err.Error())
	}
	if err := putUint(stub, keyTotalFiles, total+uint64(len(fileIDs))); err != nil {
		return shim.Error(fmt.Sprintf("无法更新文件总数: %v", err))
	}

	relayMSPID, err := cid.GetMSPID(stub)
	if err != nil {
		return shim.Error(fmt.Sprintf("无法获取提交者身份: %v", err))
	}

	eventPayload, err := json.Marshal(&filereg.FileCreatedEvent{FileIDs: fileIDs, Owner: owner, RelayMSPID: relayMSPID})
	if err != nil {
		return shim.Error(fmt.Sprintf("无法序列化事件: %v", err))
	}
	if err = stub.SetEvent("file_created", eventPayload); err != nil {
		return shim.Error(fmt.Sprintf("无法生成事件: %v", err))
	}

	fileIDsBytes, err := json.Marshal(fileIDs)
	if err != nil {
		return shim.Error(fmt.Sprintf("无法序列化文件 ID 列表: %v", err))
	}

	return shim.Success(fileIDsBytes)
}

func validateFileInfo(info *filereg.FileInfo, owner string) error {
	if info.ID == "" {
		return fmt.Errorf("文件 ID 不能为空")
	}

	if info.Name == "" {
		return fmt.Errorf("文件名不能为空")
	}

	if info.BlobID == "" {
		return fmt.Errorf("内容 ID 不能为空")
	}

	if info.ContentHash == "" {
		return fmt.Errorf("内容哈希不能为空")
	}

	if info.IsEncrypted {
		policyID, err := hex.DecodeString(info.PolicyID)
		if err != nil || len(policyID) == 0 {
			return fmt.Errorf("加密文件的访问策略 ID 不合法")
		}
	} else {
		if info.PolicyID != "" {
			return fmt.Errorf("未加密文件不能带有访问策略 ID")
		}
		if info.Price > 0 {
			return fmt.Errorf("未加密文件不能出售")
		}
		if len(info.GranteeAddresses) != 0 {
			return fmt.Errorf("未加密文件不需要授权")
		}
	}

	seen := make(map[string]bool)
	for _, grantee := range info.GranteeAddresses {
		if grantee == "" {
			return fmt.Errorf("被授权者地址不能为空")
		}
		if grantee == owner {
			return fmt.Errorf("不能授权给所有者自己")
		}
		if seen[grantee] {
			return fmt.Errorf("被授权者 '%v' 重复", grantee)
		}
		seen[grantee] = true
	}

	return nil
}

// 获取文件记录。
//
// 参数：
//   文件 ID
//
// 返回：
//   文件记录（`filereg.FileRecord` 的 JSON）
func (fc *FileRegCC) getFile(stub shim.ChaincodeStubInterface, args []string) peer.Response {
	if len(args) != 1 {
		return shim.Error("参数数量不正确。应为 1 个")
	}

	// 直接返回存储的字节
	recordBytes, err := stub.GetState(getKeyForFile(args[0]))
	if err != nil {
		return shim.Error(fmt.Sprintf("无法读取文件记录: %v", err))
	}

	if len(recordBytes) == 0 {
		return shim.Error(fmt.Sprintf("文件 '%v' 不存在~NOTFOUND~", args[0]))
	}

	return shim.Success(recordBytes)
}

func (fc *FileRegCC) listFileIDsByOwner(stub shim.ChaincodeStubInterface, args []string) peer.Response {
	if len(args) != 1 {
		return shim.Error("参数数量不正确。应为 1 个")
	}

	return listIDsResponse(listIDsByIndex(stub, ckOwnerFileID, []string{args[0]}))
}

func (fc *FileRegCC) listFileIDsSharedTo(stub shim.ChaincodeStubInterface, args []string) peer.Response {
	if len(args) != 1 {
		return shim.Error("参数数量不正确。应为 1 个")
	}

	return listIDsResponse(listIDsByIndex(stub, ckSharedToFileID, []string{args[0]}))
}

func (fc *FileRegCC) listMarketFileIDs(stub shim.ChaincodeStubInterface, args []string) peer.Response {
	if len(args) != 0 {
		return shim.Error("该函数不接收参数")
	}

	return listIDsResponse(listIDsByIndex(stub, ckMarketFileID, []string{}))
}

func listIDsResponse(ids []string, err error) peer.Response {
	if err != nil {
		return shim.Error(err.Error())
	}

	idsBytes, err := json.Marshal(ids)
	if err != nil {
		return shim.Error(fmt.Sprintf("无法序列化文件 ID 列表: %v", err))
	}

	return shim.Success(idsBytes)
}

func (fc *FileRegCC) getTotalFiles(stub shim.ChaincodeStubInterface, args []string) peer.Response {
	if len(args) != 0 {
		return shim.Error("该函数不接收参数")
	}

	total, err := getUint(stub, keyTotalFiles)
	if err != nil {
		return shim.Error(err.Error())
	}

	return shim.Success([]byte(strconv.FormatUint(total, 10)))
}
