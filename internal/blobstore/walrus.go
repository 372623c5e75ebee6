package blobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/JasonRUAN/SecureFileShare/internal/utils/timingutils"
	"github.com/JasonRUAN/SecureFileShare/pkg/errorcode"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// WalrusOptions 为 Walrus 后端的选项
type WalrusOptions struct {
	PublisherURL  string        `mapstructure:"publisherUrl"`
	AggregatorURL string        `mapstructure:"aggregatorUrl"`
	Epochs        int           `mapstructure:"epochs"`  // 存储周期数，默认为 1
	Timeout       time.Duration `mapstructure:"timeout"` // 默认为 60s
}

type walrusBlobObject struct {
	BlobID string `json:"blobId"`
}

type walrusStoreResponse struct {
	NewlyCreated *struct {
		BlobObject walrusBlobObject `json:"blobObject"`
	} `json:"newlyCreated"`
	AlreadyCertified *struct {
		BlobID string `json:"blobId"`
	} `json:"alreadyCertified"`
}

// WalrusStore 通过 Walrus 的 publisher 与 aggregator HTTP 接口存取数据。
type WalrusStore struct {
	client        *resty.Client
	publisherURL  string
	aggregatorURL string
	epochs        int
}

// NewWalrusStore 创建 Walrus 后端。
func NewWalrusStore(opts *WalrusOptions) (*WalrusStore, error) {
	if opts.PublisherURL == "" || opts.AggregatorURL == "" {
		return nil, fmt.Errorf("Walrus publisher 与 aggregator 地址不能为空")
	}

	epochs := opts.Epochs
	if epochs <= 0 {
		epochs = 1
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &WalrusStore{
		client:        resty.New().SetTimeout(timeout),
		publisherURL:  strings.TrimRight(opts.PublisherURL, "/"),
		aggregatorURL: strings.TrimRight(opts.AggregatorURL, "/"),
		epochs:        epochs,
	}, nil
}

func (s *WalrusStore) Put(ctx context.Context, data []byte) (string, error) {
	defer timingutils.GetDeferrableTimingLogger(fmt.Sprintf("将 %v 字节的数据上传至 Walrus", len(data)))()

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetQueryParam("epochs", strconv.Itoa(s.epochs)).
		SetBody(data).
		Put(s.publisherURL + "/v1/blobs")
	if err != nil {
		return "", wrapUnavailable(err, "无法将数据上传至 Walrus")
	}

	if resp.IsError() {
		return "", errors.Wrapf(errorcode.ErrorStoreUnavailable, "Walrus publisher 返回状态 %v", resp.StatusCode())
	}

	// publisher 不一定声明 JSON 的 Content-Type，不能依赖 resty 按类型自动解析
	var result walrusStoreResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", wrapUnavailable(err, "无法解析 Walrus publisher 的响应")
	}

	switch {
	case result.NewlyCreated != nil && result.NewlyCreated.BlobObject.BlobID != "":
		return result.NewlyCreated.BlobObject.BlobID, nil
	case result.AlreadyCertified != nil && result.AlreadyCertified.BlobID != "":
		return result.AlreadyCertified.BlobID, nil
	default:
		return "", errors.Wrap(errorcode.ErrorStoreUnavailable, "无法从 Walrus 的响应中获取内容 ID")
	}
}

func (s *WalrusStore) Get(ctx context.Context, id string) ([]byte, error) {
	defer timingutils.GetDeferrableTimingLogger(fmt.Sprintf("从 Walrus 获取 '%v'", id))()

	resp, err := s.client.R().
		SetContext(ctx).
		Get(s.aggregatorURL + "/v1/blobs/" + id)
	if err != nil {
		return nil, wrapUnavailable(err, "无法从 Walrus 获取数据")
	}

	if resp.StatusCode() == http.StatusNotFound {
		return nil, errors.Wrapf(errorcode.ErrorBlobNotFound, "Walrus 中不存在 '%v'", id)
	}

	if resp.IsError() {
		return nil, errors.Wrapf(errorcode.ErrorStoreUnavailable, "Walrus aggregator 返回状态 %v", resp.StatusCode())
	}

	return resp.Body(), nil
}
