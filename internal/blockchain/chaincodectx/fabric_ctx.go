package chaincodectx

import (
	"github.com/hyperledger/fabric-sdk-go/pkg/client/channel"
	"github.com/hyperledger/fabric-sdk-go/pkg/client/ledger"
)

// ChannelInvoker 为通道客户端中发送交易与查询的部分。`*channel.Client` 实现了该接口。
type ChannelInvoker interface {
	Execute(request channel.Request, options ...channel.RequestOption) (channel.Response, error)
	Query(request channel.Request, options ...channel.RequestOption) (channel.Response, error)
}

type FabricChaincodeCtx struct {
	ChannelID     string
	OrgName       string
	Username      string
	ChaincodeID   string
	ChannelClient ChannelInvoker
	LedgerClient  *ledger.Client // 可为空，为空时交易信息中不含区块 ID
}
