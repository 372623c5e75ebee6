package main

import (
	"fmt"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-protos-go/peer"
)

// FileRegCC 实现 Chaincode 接口。它记录文件的元数据与访问列表，决定谁可以取得加密文件的密钥，并维护代币余额。
type FileRegCC struct{}

// Init 用于初始化链码。
func (fc *FileRegCC) Init(stub shim.ChaincodeStubInterface) peer.Response {
	args := stub.GetArgs()
	if len(args) != 0 {
		return shim.Error("初始化不接收参数")
	}

	return shim.Success(nil)
}

// Invoke 用于分流链码调用。
func (fc *FileRegCC) Invoke(stub shim.ChaincodeStubInterface) peer.Response {
	// 解出具体函数名与参数
	funcName, args := stub.GetFunctionAndParameters()

	switch funcName {
	// files.go
	case "createFiles":
		return fc.createFiles(stub, args)
	case "getFile":
		return fc.getFile(stub, args)
	case "listFileIDsByOwner":
		return fc.listFileIDsByOwner(stub, args)
	case "listFileIDsSharedTo":
		return fc.listFileIDsSharedTo(stub, args)
	case "listMarketFileIDs":
		return fc.listMarketFileIDs(stub, args)
	case "getTotalFiles":
		return fc.getTotalFiles(stub, args)
	// access.go
	case "grantAccess":
		return fc.grantAccess(stub, args)
	case "buyFile":
		return fc.buyFile(stub, args)
	case "addPublicFile":
		return fc.addPublicFile(stub, args)
	case "sealApprove":
		return fc.sealApprove(stub, args)
	// balance.go
	case "deposit":
		return fc.deposit(stub, args)
	case "getBalance":
		return fc.getBalance(stub, args)
	}

	return shim.Error("未知的链码函数调用")
}

func main() {
	err := shim.Start(new(FileRegCC))
	if err != nil {
		fmt.Printf("无法启动 FileRegCC: %s", err)
	}
}
