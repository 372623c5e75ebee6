package fabricbcao

import (
	"context"
	"encoding/hex"

	"github.com/JasonRUAN/SecureFileShare/internal/blockchain/chaincodectx"
	"github.com/JasonRUAN/SecureFileShare/internal/utils/timingutils"
	"github.com/hyperledger/fabric-sdk-go/pkg/client/channel"
	"github.com/hyperledger/fabric-sdk-go/pkg/client/ledger"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/fab"
)

func executeChannelRequestWithTimer(ctx context.Context, channelClient chaincodectx.ChannelInvoker, channelRequest *channel.Request, timerMsg string) (resp channel.Response, err error) {
	defer timingutils.GetDeferrableTimingLogger(timerMsg)()

	resp, err = channelClient.Execute(*channelRequest, channel.WithParentContext(ctx))
	return
}

func queryChannelRequest(ctx context.Context, channelClient chaincodectx.ChannelInvoker, channelRequest *channel.Request) (channel.Response, error) {
	return channelClient.Query(*channelRequest, channel.WithParentContext(ctx))
}

func getBlockHashFromTxID(ledgerClient *ledger.Client, txID fab.TransactionID) (string, error) {
	block, err := ledgerClient.QueryBlockByTxID(txID)
	if err != nil {
		return "", err
	}

	blockHashAsHex := hex.EncodeToString(block.GetHeader().GetDataHash())
	return blockHashAsHex, nil
}

func toArgs(args []string) [][]byte {
	ret := make([][]byte, 0, len(args))
	for _, arg := range args {
		ret = append(ret, []byte(arg))
	}

	return ret
}
