package background

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/JasonRUAN/SecureFileShare/internal/blockchain/eventmgr"
	"github.com/JasonRUAN/SecureFileShare/internal/db"
	"github.com/JasonRUAN/SecureFileShare/internal/models/common"
	"github.com/JasonRUAN/SecureFileShare/pkg/errorcode"
	"github.com/JasonRUAN/SecureFileShare/pkg/models/filereg"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// FileCreatedEventName 为文件登记成功后链码发出的事件名称
const FileCreatedEventName = "file_created"

// orphanLookupTimeout 为启动时逐个向账本核对孤立内容的总时限
const orphanLookupTimeout = 30 * time.Second

// FileLookup 用于向账本查询文件记录
type FileLookup interface {
	GetFile(ctx context.Context, fileID string) (*filereg.FileRecord, error)
}

// RegistryWatcher 监听文件登记事件。提交交易超时而被记为孤立的内容，在事件到达后改为已登记。
// 事件可能先于孤立记录写入到达，因此启动时还会向账本逐个核对现存的孤立记录。
type RegistryWatcher struct {
	EventManager eventmgr.IEventManager
	DB           *gorm.DB
	Registry     FileLookup
	wg           sync.WaitGroup
	chanQuit     chan struct{}
	reg          eventmgr.IEventRegistration
	serverStatus *backgroundServerStatus
}

func NewRegistryWatcher(eventManager eventmgr.IEventManager, db *gorm.DB, registry FileLookup) *RegistryWatcher {
	return &RegistryWatcher{
		EventManager: eventManager,
		DB:           db,
		Registry:     registry,
		wg:           sync.WaitGroup{},
		serverStatus: newBackgroundServerStatus("登记事件监听器"),
	}
}

// Start 开始监听事件。
func (w *RegistryWatcher) Start() error {
	log.Infoln("正在启动登记事件监听器...")

	if err := w.serverStatus.beginStart(); err != nil {
		return err
	}

	log.Debugf("正在尝试监听事件 '%v'...", FileCreatedEventName)
	reg, notifier, err := w.EventManager.RegisterEvent(FileCreatedEventName)
	if err != nil {
		w.serverStatus.finishStart(false)
		return errors.Wrap(err, "无法监听文件登记事件")
	}

	w.reg = reg
	w.chanQuit = make(chan struct{})

	w.wg.Add(1)
	go w.runWorker(notifier)

	w.serverStatus.finishStart(true)
	log.Infoln("登记事件监听器已启动。")

	w.reconcileOrphans()

	return nil
}

// reconcileOrphans 将账本上已存在的孤立记录改为已登记，并列出其余的孤立内容。
func (w *RegistryWatcher) reconcileOrphans() {
	if w.DB == nil {
		return
	}

	orphans, err := db.ListOrphanedBlobUploadsFromLocalDB(w.DB)
	if err != nil {
		log.Errorln(err)
		return
	}

	if len(orphans) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), orphanLookupTimeout)
	defer cancel()

	registered := registeredFileIDs(ctx, w.Registry, orphans)
	if len(registered) != 0 {
		n, err := db.MarkBlobUploadsRegisteredInLocalDB(registered, w.DB)
		if err != nil {
			log.Errorln(errors.Wrap(err, "无法更新已上链文件的上传记录"))
		} else {
			log.Infof("%v 条孤立内容所属的文件已在账本上，改为已登记。", n)
		}
	}

	isRegistered := make(map[string]bool, len(registered))
	for _, fileID := range registered {
		isRegistered[fileID] = true
	}

	for _, orphan := range orphans {
		if isRegistered[orphan.FileID] {
			continue
		}
		log.Warnf("孤立内容 '%v'（%v，文件 %v，%v 字节）: %v", orphan.BlobID, orphan.Backend, orphan.FileID, orphan.StoredSize, orphan.Reason)
	}
}

// registeredFileIDs 返回孤立记录中在账本上能查到的文件 ID（去重，保持顺序）。
// 查询出错的文件仍视为孤立，留待下次启动再核对。
func registeredFileIDs(ctx context.Context, registry FileLookup, orphans []*common.BlobUpload) []string {
	if registry == nil {
		return nil
	}

	checked := make(map[string]bool, len(orphans))
	ret := []string{}
	for _, orphan := range orphans {
		if orphan.FileID == "" || checked[orphan.FileID] {
			continue
		}
		checked[orphan.FileID] = true

		record, err := registry.GetFile(ctx, orphan.FileID)
		if err != nil {
			if errors.Cause(err) != errorcode.ErrorNotFound {
				log.Debugf("无法核对文件 '%v': %v", orphan.FileID, err)
			}
			continue
		}
		if record != nil {
			ret = append(ret, orphan.FileID)
		}
	}

	return ret
}

func (w *RegistryWatcher) runWorker(notifier <-chan eventmgr.IEvent) {
	defer w.wg.Done()

workerLoop:
	for {
		select {
		case event, ok := <-notifier:
			if !ok {
				break workerLoop
			}
			w.handleEvent(event)
		case <-w.chanQuit:
			break workerLoop
		}
	}

	log.Debugln("登记事件监听工作单元已退出。")
}

func (w *RegistryWatcher) handleEvent(event eventmgr.IEvent) {
	var payload filereg.FileCreatedEvent
	if err := json.Unmarshal(event.GetPayload(), &payload); err != nil {
		log.Errorf("无法解析文件登记事件，交易 ID: %v", event.GetTxID())
		return
	}

	log.Debugf("收到文件登记事件，交易 ID: %v，区块: %v，文件数: %v。", event.GetTxID(), event.GetBlockNumber(), len(payload.FileIDs))

	if w.DB == nil {
		return
	}

	n, err := db.MarkBlobUploadsRegisteredInLocalDB(payload.FileIDs, w.DB)
	if err != nil {
		log.Errorln(errors.Wrapf(err, "无法更新交易 '%v' 中文件的上传记录", event.GetTxID()))
		return
	}

	if n > 0 {
		log.Infof("交易 '%v' 已上链，%v 条孤立内容改为已登记。", event.GetTxID(), n)
	}
}

// Stop 停止监听。
//
// Returns:
//   a wait group that can be used to block the caller Go routine
func (w *RegistryWatcher) Stop() (*sync.WaitGroup, error) {
	if err := w.serverStatus.beginStop(); err != nil {
		return nil, err
	}
	defer w.serverStatus.finishStop()

	close(w.chanQuit)
	if err := w.EventManager.UnregisterEvent(w.reg); err != nil {
		log.Warnf("无法注销事件 '%v': %v", FileCreatedEventName, err)
	}

	return &w.wg, nil
}
