package background

import (
	"context"
	"net"
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// KeyServerRunner 在后台运行密钥服务器的 HTTP 服务
type KeyServerRunner struct {
	Addr         string
	Handler      http.Handler
	server       *http.Server
	listener     net.Listener
	chanDone     chan struct{}
	serverStatus *backgroundServerStatus
}

func NewKeyServerRunner(addr string, handler http.Handler) *KeyServerRunner {
	return &KeyServerRunner{
		Addr:         addr,
		Handler:      handler,
		serverStatus: newBackgroundServerStatus("密钥服务器"),
	}
}

// Start 开始监听。监听失败时直接返回错误。
func (r *KeyServerRunner) Start() error {
	log.Infoln("正在启动密钥服务器...")

	if err := r.serverStatus.beginStart(); err != nil {
		return err
	}

	listener, err := net.Listen("tcp", r.Addr)
	if err != nil {
		r.serverStatus.finishStart(false)
		return errors.Wrapf(err, "密钥服务器无法监听 '%v'", r.Addr)
	}

	r.listener = listener
	r.server = &http.Server{Handler: r.Handler}
	r.chanDone = make(chan struct{})

	go func() {
		defer close(r.chanDone)
		if err := r.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Errorf("密钥服务器异常退出: %v", err)
		}
	}()

	r.serverStatus.finishStart(true)
	log.Infof("密钥服务器已启动，监听于 %v。", listener.Addr())

	return nil
}

// ListenAddr 返回实际监听的地址。未启动时返回空字符串。
func (r *KeyServerRunner) ListenAddr() string {
	if !r.serverStatus.getIsStarted() {
		return ""
	}

	return r.listener.Addr().String()
}

// Done 返回一个在服务退出后关闭的通道。
func (r *KeyServerRunner) Done() <-chan struct{} {
	return r.chanDone
}

// Stop 优雅地停止服务，等待进行中的请求完成或 ctx 结束。
func (r *KeyServerRunner) Stop(ctx context.Context) error {
	if err := r.serverStatus.beginStop(); err != nil {
		return err
	}
	defer r.serverStatus.finishStop()

	log.Infoln("正在停止密钥服务器...")
	if err := r.server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "无法停止密钥服务器")
	}

	<-r.chanDone
	log.Infoln("密钥服务器已停止。")

	return nil
}
