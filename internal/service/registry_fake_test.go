package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JasonRUAN/SecureFileShare/internal/blockchain/bcao"
	"github.com/JasonRUAN/SecureFileShare/pkg/errorcode"
	"github.com/JasonRUAN/SecureFileShare/pkg/models/filereg"
	"github.com/JasonRUAN/SecureFileShare/pkg/models/keyserver"
	"github.com/pkg/errors"
)

// memLedger 为进程内的文件注册表，规则与 filereg 链码一致
type memLedger struct {
	mu           sync.Mutex
	files        map[string]*filereg.FileRecord
	order        []string
	sharedTo     map[string][]string
	balances     map[string]uint64
	txCount      int
	createErr    error
	getFileCalls int
}

func newMemLedger() *memLedger {
	return &memLedger{
		files:    make(map[string]*filereg.FileRecord),
		sharedTo: make(map[string][]string),
		balances: make(map[string]uint64),
	}
}

// registryFor 返回以某个地址身份访问账本的注册表
func (l *memLedger) registryFor(address string) *memRegistry {
	return &memRegistry{ledger: l, address: address}
}

func (l *memLedger) nextTx() *bcao.TransactionCreationInfo {
	l.txCount++
	return &bcao.TransactionCreationInfo{TransactionID: fmt.Sprintf("tx%d", l.txCount)}
}

func (l *memLedger) SimulateSealApprove(ctx context.Context, authTx *keyserver.AuthTx) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if authTx.Fcn != keyserver.SealApproveFcn || len(authTx.Args) != 3 {
		return fmt.Errorf("授权交易不合法")
	}

	record, ok := l.files[authTx.Args[1]]
	if !ok || !record.IsEncrypted || record.PolicyID != authTx.Args[0] {
		return errors.Wrap(errorcode.ErrorNotFound, "找不到策略")
	}

	if !record.IsOwnerOrGrantee(authTx.Args[2]) {
		return errors.Wrap(errorcode.ErrorForbidden, "无权访问")
	}

	return nil
}

type memRegistry struct {
	ledger  *memLedger
	address string
}

func (r *memRegistry) CreateFiles(ctx context.Context, files []*filereg.FileInfo) (*bcao.TransactionCreationInfo, error) {
	l := r.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.createErr != nil {
		return nil, l.createErr
	}

	for _, info := range files {
		if _, ok := l.files[info.ID]; ok {
			return nil, errors.Wrapf(errorcode.ErrorTransactionRejected, "文件 '%v' 已存在", info.ID)
		}
	}

	for _, info := range files {
		l.files[info.ID] = &filereg.FileRecord{
			ID:          info.ID,
			Owner:       r.address,
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
			CreatedAt:   time.Now().UTC(),
			AccessList:  append([]string{}, info.GranteeAddresses...),
		}
		l.order = append(l.order, info.ID)
		for _, grantee := range info.GranteeAddresses {
			l.sharedTo[grantee] = append(l.sharedTo[grantee], info.ID)
		}
	}

	return l.nextTx(), nil
}

func (r *memRegistry) GetFile(ctx context.Context, fileID string) (*filereg.FileRecord, error) {
	l := r.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	l.getFileCalls++

	record, ok := l.files[fileID]
	if !ok {
		return nil, errors.Wrapf(errorcode.ErrorNotFound, "文件 '%v' 不存在", fileID)
	}

	copied := *record
	copied.AccessList = append([]string{}, record.AccessList...)
	return &copied, nil
}

func (r *memRegistry) GrantAccess(ctx context.Context, fileID string, grantees []string) (*bcao.TransactionCreationInfo, error) {
	l := r.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.files[fileID]
	if !ok {
		return nil, errors.Wrapf(errorcode.ErrorNotFound, "文件 '%v' 不存在", fileID)
	}

	if record.Owner != r.address {
		return nil, errors.Wrap(errorcode.ErrorForbidden, "只有所有者可以授权")
	}

	for _, grantee := range grantees {
		if grantee == record.Owner || record.IsOwnerOrGrantee(grantee) {
			return nil, errors.Wrapf(errorcode.ErrorTransactionRejected, "'%v' 已有访问权限", grantee)
		}
	}

	for _, grantee := range grantees {
		record.AccessList = append(record.AccessList, grantee)
		l.sharedTo[grantee] = append(l.sharedTo[grantee], fileID)
	}

	return l.nextTx(), nil
}

func (r *memRegistry) BuyFile(ctx context.Context, fileID string) (*bcao.TransactionCreationInfo, error) {
	l := r.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.files[fileID]
	if !ok {
		return nil, errors.Wrapf(errorcode.ErrorNotFound, "文件 '%v' 不存在", fileID)
	}

	if !record.IsListedOnMarket() {
		return nil, errors.Wrap(errorcode.ErrorTransactionRejected, "文件不可购买")
	}

	if record.IsOwnerOrGrantee(r.address) {
		return nil, errors.Wrap(errorcode.ErrorTransactionRejected, "已拥有访问权限")
	}

	if l.balances[r.address] < record.Price {
		return nil, errors.Wrap(errorcode.ErrorTransactionRejected, "余额不足")
	}

	l.balances[r.address] -= record.Price
	l.balances[record.Owner] += record.Price
	record.AccessList = append(record.AccessList, r.address)
	l.sharedTo[r.address] = append(l.sharedTo[r.address], fileID)

	return l.nextTx(), nil
}

func (r *memRegistry) AddPublicFile(ctx context.Context, fileID string) (*bcao.TransactionCreationInfo, error) {
	l := r.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.files[fileID]
	if !ok {
		return nil, errors.Wrapf(errorcode.ErrorNotFound, "文件 '%v' 不存在", fileID)
	}

	if record.IsEncrypted || record.IsListedOnMarket() {
		return nil, errors.Wrap(errorcode.ErrorTransactionRejected, "只能添加免费的公开文件")
	}

	for _, id := range l.sharedTo[r.address] {
		if id == fileID {
			return nil, errors.Wrap(errorcode.ErrorTransactionRejected, "文件已添加")
		}
	}

	l.sharedTo[r.address] = append(l.sharedTo[r.address], fileID)
	return l.nextTx(), nil
}

func (r *memRegistry) SimulateSealApprove(ctx context.Context, authTx *keyserver.AuthTx) error {
	return r.ledger.SimulateSealApprove(ctx, authTx)
}

func (r *memRegistry) ListFileIDsByOwner(ctx context.Context, owner string) ([]string, error) {
	l := r.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := []string{}
	for _, id := range l.order {
		if l.files[id].Owner == owner {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

func (r *memRegistry) ListFileIDsSharedTo(ctx context.Context, address string) ([]string, error) {
	l := r.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string{}, l.sharedTo[address]...), nil
}

func (r *memRegistry) ListMarketFileIDs(ctx context.Context) ([]string, error) {
	l := r.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := []string{}
	for _, id := range l.order {
		if l.files[id].IsListedOnMarket() {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

func (r *memRegistry) GetTotalFiles(ctx context.Context) (uint64, error) {
	l := r.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	return uint64(len(l.files)), nil
}

func (r *memRegistry) Deposit(ctx context.Context, amount uint64) (*bcao.TransactionCreationInfo, error) {
	l := r.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances[r.address] += amount
	return l.nextTx(), nil
}

func (r *memRegistry) GetBalance(ctx context.Context, address string) (uint64, error) {
	l := r.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.balances[address], nil
}
