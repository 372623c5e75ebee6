package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/JasonRUAN/SecureFileShare/internal/utils/timingutils"
	"github.com/JasonRUAN/SecureFileShare/pkg/errorcode"
	shell "github.com/ipfs/go-ipfs-api"
	"github.com/pkg/errors"
)

const (
	largeBlobSize = 1073741824

	ipfsTimeout      = 30 * time.Second
	ipfsLargeTimeout = 120 * time.Second // 超过 largeBlobSize 的上传
)

// IPFSOptions 为 IPFS 后端的选项
type IPFSOptions struct {
	URL string `mapstructure:"url"` // IPFS 节点 API 地址，如 "localhost:5001"
}

// IPFSStore 通过 IPFS 节点存取数据，ID 为 CID。
// 两个 Shell 的超时在创建后不再修改，可被并发使用。
type IPFSStore struct {
	sh      *shell.Shell
	shLarge *shell.Shell
}

// NewIPFSStore 创建 IPFS 后端。
func NewIPFSStore(opts *IPFSOptions) (*IPFSStore, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("IPFS 节点地址不能为空")
	}

	return &IPFSStore{
		sh:      shell.NewShellWithClient(opts.URL, &http.Client{Timeout: ipfsTimeout}),
		shLarge: shell.NewShellWithClient(opts.URL, &http.Client{Timeout: ipfsLargeTimeout}),
	}, nil
}

// shellFor 按数据大小选择 Shell。
func (s *IPFSStore) shellFor(size int) *shell.Shell {
	if size > largeBlobSize {
		return s.shLarge
	}

	return s.sh
}

func (s *IPFSStore) Put(ctx context.Context, data []byte) (string, error) {
	defer timingutils.GetDeferrableTimingLogger(fmt.Sprintf("将 %v 字节的数据上传至 IPFS 网络", len(data)))()

	return runWithContext(ctx, func() (string, error) {
		cid, err := s.shellFor(len(data)).Add(bytes.NewReader(data))
		if err != nil {
			return "", wrapUnavailable(err, "无法将数据上传至 IPFS 网络")
		}

		return cid, nil
	})
}

func (s *IPFSStore) Get(ctx context.Context, id string) ([]byte, error) {
	defer timingutils.GetDeferrableTimingLogger(fmt.Sprintf("从 IPFS 网络获取 '%v'", id))()

	return runWithContext(ctx, func() ([]byte, error) {
		reader, err := s.sh.Cat(id)
		if err != nil {
			return nil, classifyIPFSError(err, id)
		}
		defer reader.Close()

		data, err := ioutil.ReadAll(reader)
		if err != nil {
			return nil, wrapUnavailable(err, "无法从 IPFS 网络读取数据")
		}

		return data, nil
	})
}

func classifyIPFSError(err error, id string) error {
	if shErr, ok := err.(*shell.Error); ok {
		msg := strings.ToLower(shErr.Message)
		if strings.Contains(msg, "not found") || strings.Contains(msg, "invalid") {
			return errors.Wrapf(errorcode.ErrorBlobNotFound, "IPFS 网络中不存在 '%v'", id)
		}
	}

	return wrapUnavailable(err, "无法从 IPFS 网络获取数据")
}

// runWithContext 在 ctx 被取消时提前返回。底层调用自身由客户端超时约束。
func runWithContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}

	ch := make(chan result, 1)
	go func() {
		val, err := fn()
		ch <- result{val, err}
	}()

	select {
	case r := <-ch:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, wrapUnavailable(ctx.Err(), "操作被取消")
	}
}
