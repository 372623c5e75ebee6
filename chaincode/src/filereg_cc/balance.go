package main

import (
	"fmt"
	"strconv"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-protos-go/peer"
)

// 为调用者充值代币（最小货币单位）。
//
// 参数：
//   数额（十进制）
//   调用证明
//
// 返回：
//   充值后的余额（十进制）
func (fc *FileRegCC) deposit(stub shim.ChaincodeStubInterface, args []string) peer.Response {
	caller, params, err := getCallerFromArgs(stub, "deposit", args, 1)
	if err != nil {
		return shim.Error(err.Error())
	}

	amount, err := strconv.ParseUint(params[0], 10, 64)
	if err != nil || amount == 0 {
		return shim.Error("充值数额必须为正整数")
	}

	balance, err := getUint(stub, getKeyForBalance(caller))
	if err != nil {
		return shim.Error(err.Error())
	}

	if balance+amount < balance {
		return shim.Error("余额溢出")
	}

	if err := putUint(stub, getKeyForBalance(caller), balance+amount); err != nil {
		return shim.Error(fmt.Sprintf("无法更新余额: %v", err))
	}

	return shim.Success([]byte(strconv.FormatUint(balance+amount, 10)))
}

func (fc *FileRegCC) getBalance(stub shim.ChaincodeStubInterface, args []string) peer.Response {
	if len(args) != 1 {
		return shim.Error("参数数量不正确。应为 1 个")
	}

	balance, err := getUint(stub, getKeyForBalance(args[0]))
	if err != nil {
		return shim.Error(err.Error())
	}

	return shim.Success([]byte(strconv.FormatUint(balance, 10)))
}
