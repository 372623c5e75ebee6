package main

import (
	"strconv"
	"testing"

	"github.com/JasonRUAN/SecureFileShare/pkg/errorcode"
	"github.com/JasonRUAN/SecureFileShare/pkg/models/filereg"
)

func TestGrantAccess(t *testing.T) {
	stub := createMockStub(t, "filereg-test")
	owner, bob, carol := newTestWallet(t), newTestWallet(t), newTestWallet(t)
	createFiles(t, stub, owner, encryptedFileInfo("1001", 0, bob.address))

	resp := invokeAs(t, stub, owner, "grantAccess", "1001", toJSON(t, []string{carol.address}))
	expectResponseStatusOK(t, &resp)
	expectEqual(t, []string{bob.address, carol.address}, getRecord(t, stub, "1001").AccessList)
	expectEqual(t, []string{"1001"}, listIDs(t, stub, "listFileIDsSharedTo", carol.address))

	// 非所有者
	resp = invokeAs(t, stub, bob, "grantAccess", "1001", toJSON(t, []string{"0xddd"}))
	expectResponseStatusERROR(t, &resp)
	expectStringEndsWith(t, errorcode.CodeForbidden, resp.Message)

	// 空列表、重复、授权给自己
	for _, grantees := range [][]string{{}, {carol.address}, {"0xddd", "0xddd"}, {owner.address}} {
		resp = invokeAs(t, stub, owner, "grantAccess", "1001", toJSON(t, grantees))
		expectResponseStatusERROR(t, &resp)
	}

	resp = invokeAs(t, stub, owner, "grantAccess", "404", toJSON(t, []string{carol.address}))
	expectResponseStatusERROR(t, &resp)
	expectStringEndsWith(t, errorcode.CodeNotFound, resp.Message)

	expectEqual(t, []string{bob.address, carol.address}, getRecord(t, stub, "1001").AccessList)
}

func TestSealApprove(t *testing.T) {
	stub := createMockStub(t, "filereg-test")
	owner, bob, carol := newTestWallet(t), newTestWallet(t), newTestWallet(t)
	createFiles(t, stub, owner, encryptedFileInfo("1001", 0, bob.address), publicFileInfo("1002"))

	resp := query(stub, "sealApprove", testPolicyID, "1001", owner.address)
	expectResponseStatusOK(t, &resp)

	resp = query(stub, "sealApprove", testPolicyID, "1001", bob.address)
	expectResponseStatusOK(t, &resp)

	resp = query(stub, "sealApprove", testPolicyID, "1001", carol.address)
	expectResponseStatusERROR(t, &resp)
	expectStringEndsWith(t, errorcode.CodeForbidden, resp.Message)

	// 文件不存在、策略不符、文件未加密
	for _, args := range [][]string{
		{testPolicyID, "404", owner.address},
		{"ffff", "1001", owner.address},
		{testPolicyID, "1002", owner.address},
	} {
		resp = query(stub, "sealApprove", args...)
		expectResponseStatusERROR(t, &resp)
		expectStringEndsWith(t, errorcode.CodeNotFound, resp.Message)
	}
}

func TestBuyFile(t *testing.T) {
	stub := createMockStub(t, "filereg-test")
	owner, buyer := newTestWallet(t), newTestWallet(t)
	price := 5 * filereg.TokenUnit
	createFiles(t, stub, owner, encryptedFileInfo("1001", price), encryptedFileInfo("1002", 0))

	// 余额不足
	resp := invokeAs(t, stub, buyer, "buyFile", "1001")
	expectResponseStatusERROR(t, &resp)

	resp = invokeAs(t, stub, buyer, "deposit", strconv.FormatUint(7*filereg.TokenUnit, 10))
	expectResponseStatusOK(t, &resp)

	resp = query(stub, "sealApprove", testPolicyID, "1001", buyer.address)
	expectResponseStatusERROR(t, &resp)

	resp = invokeAs(t, stub, buyer, "buyFile", "1001")
	expectResponseStatusOK(t, &resp)

	resp = query(stub, "sealApprove", testPolicyID, "1001", buyer.address)
	expectResponseStatusOK(t, &resp)

	expectStateEqual(t, stub, getKeyForBalance(buyer.address), []byte(strconv.FormatUint(2*filereg.TokenUnit, 10)))
	expectStateEqual(t, stub, getKeyForBalance(owner.address), []byte(strconv.FormatUint(price, 10)))
	expectEqual(t, []string{"1001"}, listIDs(t, stub, "listFileIDsSharedTo", buyer.address))

	// 重复购买、所有者购买、购买未上架的文件
	resp = invokeAs(t, stub, buyer, "buyFile", "1001")
	expectResponseStatusERROR(t, &resp)
	resp = invokeAs(t, stub, owner, "buyFile", "1001")
	expectResponseStatusERROR(t, &resp)
	resp = invokeAs(t, stub, buyer, "buyFile", "1002")
	expectResponseStatusERROR(t, &resp)
}

func TestAddPublicFile(t *testing.T) {
	stub := createMockStub(t, "filereg-test")
	owner, alice := newTestWallet(t), newTestWallet(t)
	createFiles(t, stub, owner, publicFileInfo("1001"), encryptedFileInfo("1002", 0))

	resp := invokeAs(t, stub, alice, "addPublicFile", "1001")
	expectResponseStatusOK(t, &resp)
	expectEqual(t, []string{"1001"}, listIDs(t, stub, "listFileIDsSharedTo", alice.address))

	// 公开文件的访问列表不变
	expectEqual(t, []string{}, getRecord(t, stub, "1001").AccessList)

	resp = invokeAs(t, stub, alice, "addPublicFile", "1001")
	expectResponseStatusERROR(t, &resp)

	resp = invokeAs(t, stub, alice, "addPublicFile", "1002")
	expectResponseStatusERROR(t, &resp)

	resp = invokeAs(t, stub, alice, "addPublicFile", "404")
	expectResponseStatusERROR(t, &resp)
	expectStringEndsWith(t, errorcode.CodeNotFound, resp.Message)
}
