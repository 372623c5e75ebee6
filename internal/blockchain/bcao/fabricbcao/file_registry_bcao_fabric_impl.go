package fabricbcao

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/JasonRUAN/SecureFileShare/internal/blockchain/bcao"
	"github.com/JasonRUAN/SecureFileShare/internal/blockchain/chaincodectx"
	"github.com/JasonRUAN/SecureFileShare/internal/wallet"
	"github.com/JasonRUAN/SecureFileShare/pkg/callerproof"
	"github.com/JasonRUAN/SecureFileShare/pkg/errorcode"
	"github.com/JasonRUAN/SecureFileShare/pkg/models/filereg"
	"github.com/JasonRUAN/SecureFileShare/pkg/models/keyserver"
	"github.com/google/uuid"
	"github.com/hyperledger/fabric-sdk-go/pkg/client/channel"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// FileRegistryBCAOFabricImpl 通过 Fabric 通道访问 filereg 链码
type FileRegistryBCAOFabricImpl struct {
	ctx    *chaincodectx.FabricChaincodeCtx
	signer wallet.Signer
}

// NewFileRegistryBCAOFabricImpl 创建实例。signer 为空时只能进行查询。
func NewFileRegistryBCAOFabricImpl(ctx *chaincodectx.FabricChaincodeCtx, signer wallet.Signer) *FileRegistryBCAOFabricImpl {
	return &FileRegistryBCAOFabricImpl{
		ctx:    ctx,
		signer: signer,
	}
}

func (o *FileRegistryBCAOFabricImpl) CreateFiles(ctx context.Context, files []*filereg.FileInfo) (*bcao.TransactionCreationInfo, error) {
	filesBytes, err := json.Marshal(files)
	if err != nil {
		return nil, errors.Wrap(err, "无法序列化链码参数")
	}

	return o.submit(ctx, "createFiles", []string{string(filesBytes)}, fmt.Sprintf("链上创建 %v 个文件记录", len(files)))
}

func (o *FileRegistryBCAOFabricImpl) GetFile(ctx context.Context, fileID string) (*filereg.FileRecord, error) {
	payload, err := o.query(ctx, "getFile", fileID)
	if err != nil {
		return nil, err
	}

	return bcao.DecodeFileRecord(payload)
}

func (o *FileRegistryBCAOFabricImpl) GrantAccess(ctx context.Context, fileID string, grantees []string) (*bcao.TransactionCreationInfo, error) {
	granteesBytes, err := json.Marshal(grantees)
	if err != nil {
		return nil, errors.Wrap(err, "无法序列化链码参数")
	}

	return o.submit(ctx, "grantAccess", []string{fileID, string(granteesBytes)}, "链上授权")
}

func (o *FileRegistryBCAOFabricImpl) BuyFile(ctx context.Context, fileID string) (*bcao.TransactionCreationInfo, error) {
	return o.submit(ctx, "buyFile", []string{fileID}, "链上购买文件")
}

func (o *FileRegistryBCAOFabricImpl) AddPublicFile(ctx context.Context, fileID string) (*bcao.TransactionCreationInfo, error) {
	return o.submit(ctx, "addPublicFile", []string{fileID}, "链上添加公开文件")
}

func (o *FileRegistryBCAOFabricImpl) SimulateSealApprove(ctx context.Context, authTx *keyserver.AuthTx) error {
	if authTx.Fcn != keyserver.SealApproveFcn {
		return fmt.Errorf("不允许模拟链码函数 '%v'", authTx.Fcn)
	}

	// Query 只经过背书模拟，不会提交到账本
	channelReq := channel.Request{
		ChaincodeID: authTx.ChaincodeID,
		Fcn:         authTx.Fcn,
		Args:        toArgs(authTx.Args),
	}

	_, err := queryChannelRequest(ctx, o.ctx.ChannelClient, &channelReq)
	return bcao.GetClassifiedError(authTx.Fcn, err)
}

func (o *FileRegistryBCAOFabricImpl) ListFileIDsByOwner(ctx context.Context, owner string) ([]string, error) {
	return o.queryIDList(ctx, "listFileIDsByOwner", owner)
}

func (o *FileRegistryBCAOFabricImpl) ListFileIDsSharedTo(ctx context.Context, address string) ([]string, error) {
	return o.queryIDList(ctx, "listFileIDsSharedTo", address)
}

func (o *FileRegistryBCAOFabricImpl) ListMarketFileIDs(ctx context.Context) ([]string, error) {
	return o.queryIDList(ctx, "listMarketFileIDs")
}

func (o *FileRegistryBCAOFabricImpl) GetTotalFiles(ctx context.Context) (uint64, error) {
	return o.queryUint(ctx, "getTotalFiles")
}

func (o *FileRegistryBCAOFabricImpl) Deposit(ctx context.Context, amount uint64) (*bcao.TransactionCreationInfo, error) {
	return o.submit(ctx, "deposit", []string{strconv.FormatUint(amount, 10)}, "链上存入代币")
}

func (o *FileRegistryBCAOFabricImpl) GetBalance(ctx context.Context, address string) (uint64, error) {
	return o.queryUint(ctx, "getBalance", address)
}

// submit 附上调用证明后发送交易
func (o *FileRegistryBCAOFabricImpl) submit(ctx context.Context, chaincodeFcn string, args []string, timerMsg string) (*bcao.TransactionCreationInfo, error) {
	proof, err := o.newCallerProof(ctx, chaincodeFcn, args)
	if err != nil {
		return nil, err
	}

	proofBytes, err := json.Marshal(proof)
	if err != nil {
		return nil, errors.Wrap(err, "无法序列化调用证明")
	}

	channelReq := channel.Request{
		ChaincodeID: o.ctx.ChaincodeID,
		Fcn:         chaincodeFcn,
		Args:        append(toArgs(args), proofBytes),
	}

	resp, err := executeChannelRequestWithTimer(ctx, o.ctx.ChannelClient, &channelReq, timerMsg)
	if err != nil {
		return nil, bcao.GetClassifiedError(chaincodeFcn, err)
	}

	info := &bcao.TransactionCreationInfo{TransactionID: string(resp.TransactionID)}
	if o.ctx.LedgerClient != nil {
		blockID, err := getBlockHashFromTxID(o.ctx.LedgerClient, resp.TransactionID)
		if err != nil {
			log.Warnf("无法获取交易 '%v' 所在的区块: %v", resp.TransactionID, err)
		} else {
			info.BlockID = blockID
		}
	}

	return info, nil
}

func (o *FileRegistryBCAOFabricImpl) newCallerProof(ctx context.Context, chaincodeFcn string, args []string) (*filereg.CallerProof, error) {
	if o.signer == nil {
		return nil, errorcode.ErrorWalletNotConnected
	}

	nonce := uuid.NewString()
	signature, err := o.signer.Sign(ctx, callerproof.Message(chaincodeFcn, args, nonce))
	if err != nil {
		return nil, errors.Wrap(err, "钱包无法签名")
	}

	return &filereg.CallerProof{
		Address:   o.signer.Address(),
		PublicKey: base64.StdEncoding.EncodeToString(o.signer.PublicKey()),
		Nonce:     nonce,
		Signature: base64.StdEncoding.EncodeToString(signature),
	}, nil
}

func (o *FileRegistryBCAOFabricImpl) query(ctx context.Context, chaincodeFcn string, args ...string) ([]byte, error) {
	channelReq := channel.Request{
		ChaincodeID: o.ctx.ChaincodeID,
		Fcn:         chaincodeFcn,
		Args:        toArgs(args),
	}

	resp, err := queryChannelRequest(ctx, o.ctx.ChannelClient, &channelReq)
	if err != nil {
		return nil, bcao.GetClassifiedError(chaincodeFcn, err)
	}

	return resp.Payload, nil
}

func (o *FileRegistryBCAOFabricImpl) queryIDList(ctx context.Context, chaincodeFcn string, args ...string) ([]string, error) {
	payload, err := o.query(ctx, chaincodeFcn, args...)
	if err != nil {
		return nil, err
	}

	return bcao.DecodeIDList(payload)
}

func (o *FileRegistryBCAOFabricImpl) queryUint(ctx context.Context, chaincodeFcn string, args ...string) (uint64, error) {
	payload, err := o.query(ctx, chaincodeFcn, args...)
	if err != nil {
		return 0, err
	}

	ret, err := strconv.ParseUint(string(payload), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(errorcode.ErrorSchemaMismatch, "链码函数 '%v' 返回的数值不合法", chaincodeFcn)
	}

	return ret, nil
}
