package keyserver

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JasonRUAN/SecureFileShare/pkg/models/keyserver"
	"github.com/go-resty/resty/v2"
)

// SharePath 为密钥服务器接收份额请求的路径
const SharePath = "/api/v1/keyserver/share"

// InfoPath 为密钥服务器公布信息的路径
const InfoPath = "/api/v1/keyserver/info"

// Endpoint 为客户端所知的一个密钥服务器
type Endpoint struct {
	Index int
	URL   string
}

// Transport 将份额请求送达密钥服务器。
// 服务器拒绝时返回由 ErrorFromRefusal 还原的错误；无法完成往返时返回 *TransportError。
type Transport interface {
	RequestShare(ctx context.Context, endpoint *Endpoint, req *keyserver.ShareRequest) (*keyserver.ShareResponse, error)
}

// HTTPTransport 通过 HTTP 访问密钥服务器
type HTTPTransport struct {
	client *resty.Client
}

// NewHTTPTransport 创建 HTTPTransport。单次请求的超时由 ctx 控制，timeout 作为上限。
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

func (t *HTTPTransport) RequestShare(ctx context.Context, endpoint *Endpoint, req *keyserver.ShareRequest) (*keyserver.ShareResponse, error) {
	var result keyserver.ShareResponse
	var refusal keyserver.Refusal

	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		SetError(&refusal).
		Post(strings.TrimRight(endpoint.URL, "/") + SharePath)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.IsError() {
		if refusal.Code == "" {
			refusal = keyserver.Refusal{
				Code: keyserver.RefusalServerError,
				Msg:  fmt.Sprintf("密钥服务器 #%v 返回状态 %v", endpoint.Index, resp.StatusCode()),
			}
		}
		return nil, ErrorFromRefusal(&refusal)
	}

	return &result, nil
}

// LocalTransport 在进程内直接调用密钥服务器。用于单机部署与测试。
type LocalTransport struct {
	mu      sync.RWMutex
	servers map[int]*Server
	calls   int64
}

// NewLocalTransport 创建 LocalTransport。
func NewLocalTransport(servers ...*Server) *LocalTransport {
	t := &LocalTransport{servers: make(map[int]*Server)}
	for _, s := range servers {
		t.servers[s.Index()] = s
	}

	return t
}

// Calls 返回已发出的请求数量。
func (t *LocalTransport) Calls() int {
	return int(atomic.LoadInt64(&t.calls))
}

// Remove 移除一个服务器，之后发往它的请求视为无法连接。
func (t *LocalTransport) Remove(index int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.servers, index)
}

func (t *LocalTransport) RequestShare(ctx context.Context, endpoint *Endpoint, req *keyserver.ShareRequest) (*keyserver.ShareResponse, error) {
	atomic.AddInt64(&t.calls, 1)

	t.mu.RLock()
	server, ok := t.servers[endpoint.Index]
	t.mu.RUnlock()
	if !ok {
		return nil, &TransportError{Err: fmt.Errorf("密钥服务器 #%v 不可达", endpoint.Index)}
	}

	if err := ctx.Err(); err != nil {
		return nil, &TransportError{Err: err}
	}

	resp, err := server.HandleShareRequest(ctx, req)
	if err != nil {
		// 与网络传输保持一致：服务端错误只以拒绝信息的形式传回
		return nil, ErrorFromRefusal(RefusalFromError(err))
	}

	return resp, nil
}
