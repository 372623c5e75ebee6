package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/JasonRUAN/SecureFileShare/internal/blockchain/bcao"
	"github.com/JasonRUAN/SecureFileShare/internal/service"
	"github.com/JasonRUAN/SecureFileShare/pkg/errorcode"
	"github.com/JasonRUAN/SecureFileShare/pkg/models/filereg"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUploadSvc struct {
	requests []*service.UploadRequest
	err      error
}

func (s *fakeUploadSvc) UploadFiles(ctx context.Context, files []*service.UploadRequest, progress service.ProgressFunc) (*service.UploadResult, error) {
	s.requests = files
	if s.err != nil {
		return nil, s.err
	}

	progress(100)
	return &service.UploadResult{BatchID: "1", FileIDs: []string{"2"}, TransactionID: "tx"}, nil
}

type fakeRetrievalSvc struct {
	file *service.DownloadedFile
	err  error
}

func (s *fakeRetrievalSvc) DownloadFile(ctx context.Context, fileID string, progress service.ProgressFunc) (*service.DownloadedFile, error) {
	return s.file, s.err
}

type fakeAccessSvc struct {
	grantees []string
	err      error
}

func (s *fakeAccessSvc) GrantAccess(ctx context.Context, fileID string, grantees []string) (*bcao.TransactionCreationInfo, error) {
	s.grantees = grantees
	return &bcao.TransactionCreationInfo{TransactionID: "tx-grant"}, s.err
}

func (s *fakeAccessSvc) BuyFile(ctx context.Context, fileID string) (*bcao.TransactionCreationInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &bcao.TransactionCreationInfo{TransactionID: "tx-buy"}, nil
}

func (s *fakeAccessSvc) AddPublicFile(ctx context.Context, fileID string) (*bcao.TransactionCreationInfo, error) {
	return &bcao.TransactionCreationInfo{TransactionID: "tx-add"}, nil
}

type fakeRegistrySvc struct {
	records map[string]*filereg.FileRecord
	balance uint64
	scope   service.ListScope
}

func (s *fakeRegistrySvc) GetFile(ctx context.Context, fileID string) (*filereg.FileRecord, error) {
	record, ok := s.records[fileID]
	if !ok {
		return nil, errors.Wrap(errorcode.ErrorNotFound, "文件不存在")
	}
	return record, nil
}

func (s *fakeRegistrySvc) ListFiles(ctx context.Context, scope service.ListScope) ([]*filereg.FileRecord, error) {
	s.scope = scope
	return []*filereg.FileRecord{}, nil
}

func (s *fakeRegistrySvc) GetTotalFiles(ctx context.Context) (uint64, error) {
	return uint64(len(s.records)), nil
}

func (s *fakeRegistrySvc) Deposit(ctx context.Context, amount uint64) (*bcao.TransactionCreationInfo, error) {
	s.balance += amount * filereg.TokenUnit
	return &bcao.TransactionCreationInfo{TransactionID: "tx-deposit"}, nil
}

func (s *fakeRegistrySvc) GetBalance(ctx context.Context, address string) (uint64, error) {
	return s.balance, nil
}

type testGateway struct {
	router    *gin.Engine
	upload    *fakeUploadSvc
	retrieval *fakeRetrievalSvc
	access    *fakeAccessSvc
	registry  *fakeRegistrySvc
}

func newTestGateway(t *testing.T) *testGateway {
	g := &testGateway{
		upload:    &fakeUploadSvc{},
		retrieval: &fakeRetrievalSvc{},
		access:    &fakeAccessSvc{},
		registry: &fakeRegistrySvc{records: map[string]*filereg.FileRecord{
			"1001": {ID: "1001", Name: "a.txt", Owner: "0xabc", AccessList: []string{}},
		}},
	}

	router, err := NewRouter(
		&PingPongController{},
		&FileController{GroupName: "/files", UploadSvc: g.upload, RetrievalSvc: g.retrieval, AccessSvc: g.access, RegistrySvc: g.registry},
		&RegistryController{GroupName: "/", RegistrySvc: g.registry},
	)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	g.router = router

	return g
}

func (g *testGateway) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)
	return w
}

func newMultipartRequest(t *testing.T, target string, fields map[string][]string, files map[string]string) *http.Request {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, values := range fields {
		for _, value := range values {
			_ = writer.WriteField(name, value)
		}
	}
	for filename, contents := range files {
		part, err := writer.CreateFormFile("files", filename)
		if isNoError := assert.NoError(t, err); !isNoError {
			t.FailNow()
		}
		_, _ = io.WriteString(part, contents)
	}
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func newFormRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestPing(t *testing.T) {
	g := newTestGateway(t)

	w := g.do(httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = g.do(httptest.NewRequest(http.MethodOptions, "/api/v1/files", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestUploadFiles(t *testing.T) {
	g := newTestGateway(t)

	req := newMultipartRequest(t, "/api/v1/files", map[string][]string{
		"mode":        {"shared"},
		"description": {"报告"},
		"grantees":    {"0xbob", "0xcarol"},
	}, map[string]string{"a.txt": "hello"})

	w := g.do(req)
	if isEqual := assert.Equal(t, http.StatusOK, w.Code); !isEqual {
		t.FailNow()
	}

	var result service.UploadResult
	if isNoError := assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &result)); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, []string{"2"}, result.FileIDs)

	if isEqual := assert.Len(t, g.upload.requests, 1); !isEqual {
		t.FailNow()
	}
	uploaded := g.upload.requests[0]
	assert.Equal(t, "a.txt", uploaded.Name)
	assert.Equal(t, []byte("hello"), uploaded.Data)
	assert.Equal(t, filereg.Shared, uploaded.Mode)
	assert.Equal(t, []string{"0xbob", "0xcarol"}, uploaded.Grantees)
	assert.Equal(t, "报告", uploaded.Description)
}

func TestUploadFilesParameterErrors(t *testing.T) {
	g := newTestGateway(t)

	req := newMultipartRequest(t, "/api/v1/files", map[string][]string{
		"mode":  {"secret"},
		"price": {"-1"},
	}, nil)

	w := g.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp GeneralResponse
	if isNoError := assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp)); !isNoError {
		t.FailNow()
	}
	assert.Len(t, resp.Errors, 3)
	assert.Nil(t, g.upload.requests)
}

func TestUploadFailureStatus(t *testing.T) {
	g := newTestGateway(t)
	g.upload.err = &service.StageError{
		Stage: service.StagePutBlob,
		Kind:  errorcode.ErrorUploadFailed,
		Err:   errors.Wrap(errorcode.ErrorStoreUnavailable, "连接被拒绝"),
	}

	req := newMultipartRequest(t, "/api/v1/files", map[string][]string{"mode": {"public"}}, map[string]string{"a.txt": "hello"})
	w := g.do(req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "连接被拒绝")
}

func TestGetAndListFiles(t *testing.T) {
	g := newTestGateway(t)

	w := g.do(httptest.NewRequest(http.MethodGet, "/api/v1/files/1001", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"a.txt"`)

	w = g.do(httptest.NewRequest(http.MethodGet, "/api/v1/files/404", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = g.do(httptest.NewRequest(http.MethodGet, "/api/v1/files?scope=market", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ScopeMarket, g.registry.scope)

	w = g.do(httptest.NewRequest(http.MethodGet, "/api/v1/files", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ScopeMine, g.registry.scope)
}

func TestDownloadFile(t *testing.T) {
	g := newTestGateway(t)
	g.retrieval.file = &service.DownloadedFile{
		Record: &filereg.FileRecord{ID: "1001", Name: "a.txt", FileType: "text/plain"},
		Data:   []byte("hello"),
	}

	w := g.do(httptest.NewRequest(http.MethodGet, "/api/v1/files/1001/content", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", w.Body.String())
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="a.txt"`, w.Header().Get("Content-Disposition"))

	g.retrieval.file = nil
	g.retrieval.err = &service.StageError{Stage: service.StageFetchKeyShares, Err: errors.Wrap(errorcode.ErrorUnauthorized, "3 个密钥服务器中有 2 个拒绝授权")}
	w = g.do(httptest.NewRequest(http.MethodGet, "/api/v1/files/1001/content", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAccessEndpoints(t *testing.T) {
	g := newTestGateway(t)

	w := g.do(newFormRequest("/api/v1/files/1001/grant", url.Values{"grantees": {"0xbob", "0xcarol"}}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"0xbob", "0xcarol"}, g.access.grantees)

	w = g.do(newFormRequest("/api/v1/files/1001/grant", url.Values{}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = g.do(newFormRequest("/api/v1/files/1001/add", url.Values{}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tx-add")

	g.access.err = errors.Wrap(errorcode.ErrorTransactionRejected, "余额不足")
	w = g.do(newFormRequest("/api/v1/files/1001/buy", url.Values{}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "余额不足")
}

func TestBalanceEndpoints(t *testing.T) {
	g := newTestGateway(t)

	w := g.do(newFormRequest("/api/v1/balance", url.Values{"amount": {"3"}}))
	assert.Equal(t, http.StatusOK, w.Code)

	w = g.do(newFormRequest("/api/v1/balance", url.Values{"amount": {"0"}}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = g.do(httptest.NewRequest(http.MethodGet, "/api/v1/balance", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var info BalanceInfo
	if isNoError := assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &info)); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, 3*filereg.TokenUnit, info.Balance)
	assert.Equal(t, float64(3), info.Tokens)

	w = g.do(httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"totalFiles":1}`, w.Body.String())
}

func TestStatusOfError(t *testing.T) {
	cases := map[error]int{
		errorcode.ErrorBlobNotFound:         http.StatusNotFound,
		errorcode.ErrorPolicyNotFound:       http.StatusNotFound,
		errorcode.ErrorForbidden:            http.StatusForbidden,
		errorcode.ErrorWalletNotConnected:   http.StatusUnauthorized,
		errorcode.ErrorInsufficientShares:   http.StatusBadGateway,
		errorcode.ErrorDecryptionFailed:     http.StatusBadGateway,
		errorcode.ErrorIntegrityCheckFailed: http.StatusBadGateway,
		errorcode.ErrorStoreUnavailable:     http.StatusServiceUnavailable,
		errorcode.ErrorNotImplemented:       http.StatusNotImplemented,
		fmt.Errorf("其他错误"):                  http.StatusInternalServerError,
	}

	for err, expected := range cases {
		assert.Equal(t, expected, statusOfError(errors.Wrap(err, "包装")), err.Error())
	}
}
