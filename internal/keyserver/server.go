// Package keyserver implements both sides of the threshold key service:
// the server that key-switches its share for authorized callers, and the client that fans requests out and recovers the key.
package keyserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/JasonRUAN/SecureFileShare/internal/envelope"
	"github.com/JasonRUAN/SecureFileShare/internal/session"
	"github.com/JasonRUAN/SecureFileShare/internal/utils/cipherutils"
	"github.com/JasonRUAN/SecureFileShare/internal/utils/timingutils"
	"github.com/JasonRUAN/SecureFileShare/pkg/errorcode"
	"github.com/JasonRUAN/SecureFileShare/pkg/models/keyserver"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/sign/schnorr"
)

const (
	requestSignaturePrefix  = "SecureFileShare share request"
	responseSignaturePrefix = "SecureFileShare share response"
)

// Approver 在账本上以只读方式模拟授权交易。
type Approver interface {
	// SimulateSealApprove 模拟执行授权交易。返回 nil 表示通过；
	// 无权访问时返回 `errorcode.ErrorForbidden`，文件或策略不存在时返回 `errorcode.ErrorNotFound`。
	SimulateSealApprove(ctx context.Context, authTx *keyserver.AuthTx) error
}

// Server 为单个密钥服务器
type Server struct {
	index    int
	keyPair  *cipherutils.KeyPair
	scope    string
	approver Approver
	now      func() time.Time
	metrics  *Metrics
}

// ServerOption 为 Server 的可选项
type ServerOption func(*Server)

// WithClock 指定时钟。
func WithClock(now func() time.Time) ServerOption {
	return func(s *Server) { s.now = now }
}

// WithMetrics 指定指标记录器。
func WithMetrics(m *Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// NewServer 创建密钥服务器。
//
// 参数：
//   服务器序号（从 1 开始）
//   服务器私钥
//   所服务的链码 ID（会话适用范围必须与之相同）
//   授权模拟器
func NewServer(index int, privateKey kyber.Scalar, scope string, approver Approver, opts ...ServerOption) *Server {
	s := &Server{
		index: index,
		keyPair: &cipherutils.KeyPair{
			Private: privateKey,
			Public:  cipherutils.Suite.Point().Mul(privateKey, nil),
		},
		scope:    scope,
		approver: approver,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Index 返回服务器序号。
func (s *Server) Index() int {
	return s.index
}

// Info 返回服务器对外公布的信息。
func (s *Server) Info() (*keyserver.ServerInfo, error) {
	publicKeyBytes, err := cipherutils.SerializePoint(s.keyPair.Public)
	if err != nil {
		return nil, err
	}

	return &keyserver.ServerInfo{
		Index:     s.index,
		PublicKey: hex.EncodeToString(publicKeyBytes),
	}, nil
}

// HandleShareRequest 处理份额请求：校验会话与授权交易，在账本上模拟授权，通过后将份额置换到请求者公钥下并签名。
//
// 参数：
//   份额请求
//
// 返回：
//   份额响应
func (s *Server) HandleShareRequest(ctx context.Context, req *keyserver.ShareRequest) (resp *keyserver.ShareResponse, err error) {
	defer timingutils.GetDeferrableTimingLogger(fmt.Sprintf("密钥服务器 #%v 处理份额请求", s.index))()

	start := s.now()
	defer func() {
		outcome := "granted"
		if err != nil {
			outcome = RefusalFromError(err).Code
		}
		s.metrics.observe(outcome, time.Since(start).Seconds())
	}()

	// 1. 会话
	credential, err := session.FromWire(&req.Session)
	if err != nil {
		return nil, err
	}

	if err = credential.Validate(s.now()); err != nil {
		return nil, err
	}

	if credential.Scope != s.scope {
		return nil, errors.Wrapf(errorcode.ErrorInvalidSignature, "会话适用范围 '%v' 与本服务器不符", credential.Scope)
	}

	// 份额只能置换到会话公钥下，且请求须由会话私钥签名
	if err = checkRequestSignature(req, credential); err != nil {
		return nil, err
	}

	// 2. 授权交易
	authTx, err := s.checkAuthTx(req, credential.Address)
	if err != nil {
		return nil, err
	}

	cipherText, requesterKey, err := s.parseShare(req)
	if err != nil {
		return nil, err
	}

	// 3. 在账本上模拟授权交易
	if err = s.simulate(ctx, authTx); err != nil {
		return nil, err
	}

	// 4. 置换份额并签名
	switched := cipherutils.SwitchKey(s.keyPair.Private, cipherText, requesterKey)
	switchedBytes, err := cipherutils.SerializeCipherText(switched)
	if err != nil {
		return nil, errors.Wrap(errorcode.ErrorServerError, err.Error())
	}

	requesterKeyBytes, _ := base64.StdEncoding.DecodeString(req.RequesterKey)
	signature, err := schnorr.Sign(cipherutils.Suite, s.keyPair.Private, ResponseMessage(s.index, req.PolicyID, switchedBytes, requesterKeyBytes))
	if err != nil {
		return nil, errors.Wrap(errorcode.ErrorServerError, err.Error())
	}

	return &keyserver.ShareResponse{
		Index:     s.index,
		Share:     base64.StdEncoding.EncodeToString(switchedBytes),
		Signature: base64.StdEncoding.EncodeToString(signature),
	}, nil
}

func (s *Server) checkAuthTx(req *keyserver.ShareRequest, address string) (*keyserver.AuthTx, error) {
	var authTx keyserver.AuthTx
	if err := json.Unmarshal(req.AuthTx, &authTx); err != nil {
		return nil, errors.Wrap(errBadRequest, "无法解析授权交易")
	}

	if authTx.Fcn != keyserver.SealApproveFcn {
		return nil, errors.Wrapf(errBadRequest, "授权交易调用了不允许的函数 '%v'", authTx.Fcn)
	}

	if authTx.ChaincodeID != s.scope {
		return nil, errors.Wrapf(errBadRequest, "授权交易的链码 '%v' 与会话适用范围不符", authTx.ChaincodeID)
	}

	if len(authTx.Args) != 3 {
		return nil, errors.Wrap(errBadRequest, "授权交易的参数数量不正确")
	}

	if authTx.Args[0] != req.PolicyID {
		return nil, errors.Wrap(errBadRequest, "授权交易中的策略 ID 与请求不符")
	}

	if authTx.Args[2] != address {
		return nil, errors.Wrap(errBadRequest, "授权交易中的调用者与会话地址不符")
	}

	return &authTx, nil
}

func (s *Server) parseShare(req *keyserver.ShareRequest) (*cipherutils.CipherText, kyber.Point, error) {
	policyID, err := hex.DecodeString(req.PolicyID)
	if err != nil || len(policyID) == 0 {
		return nil, nil, errors.Wrap(errBadRequest, "无法解析策略 ID")
	}

	shareBytes, err := base64.StdEncoding.DecodeString(req.EncryptedShare)
	if err != nil {
		return nil, nil, errors.Wrap(errBadRequest, "无法解析加密份额")
	}

	cipherText, err := cipherutils.DeserializeCipherText(shareBytes)
	if err != nil {
		return nil, nil, errors.Wrap(errBadRequest, err.Error())
	}

	proof, err := base64.StdEncoding.DecodeString(req.ShareProof)
	if err != nil {
		return nil, nil, errors.Wrap(errBadRequest, "无法解析份额证明")
	}

	// 份额必须属于被授权的策略
	if err := cipherutils.VerifyEncryptionProof(cipherText, proof, envelope.ShareLabel(policyID, uint8(s.index-1))); err != nil {
		return nil, nil, errors.Wrap(errBadRequest, err.Error())
	}

	requesterKeyBytes, err := base64.StdEncoding.DecodeString(req.RequesterKey)
	if err != nil {
		return nil, nil, errors.Wrap(errBadRequest, "无法解析请求者公钥")
	}

	requesterKey, err := cipherutils.DeserializePoint(requesterKeyBytes)
	if err != nil {
		return nil, nil, errors.Wrap(errBadRequest, err.Error())
	}

	return cipherText, requesterKey, nil
}

func (s *Server) simulate(ctx context.Context, authTx *keyserver.AuthTx) error {
	err := s.approver.SimulateSealApprove(ctx, authTx)
	if err == nil {
		return nil
	}

	switch errors.Cause(err) {
	case errorcode.ErrorForbidden, errorcode.ErrorUnauthorized:
		return errors.Wrap(errorcode.ErrorUnauthorized, "授权交易模拟未通过")
	case errorcode.ErrorNotFound, errorcode.ErrorPolicyNotFound:
		return errors.Wrap(errorcode.ErrorPolicyNotFound, "账本中不存在对应的文件或策略")
	default:
		log.Errorf("密钥服务器 #%v 无法模拟授权交易: %v", s.index, err)
		return errors.Wrap(errorcode.ErrorServerError, "无法模拟授权交易")
	}
}

func checkRequestSignature(req *keyserver.ShareRequest, credential *session.Credential) error {
	requesterKeyBytes, err := base64.StdEncoding.DecodeString(req.RequesterKey)
	if err != nil {
		return errors.Wrap(errBadRequest, "无法解析请求者公钥")
	}

	if !bytes.Equal(requesterKeyBytes, credential.SessionKey) {
		return errors.Wrap(errorcode.ErrorInvalidSignature, "请求者公钥不是会话公钥")
	}

	signature, err := base64.StdEncoding.DecodeString(req.Signature)
	if err != nil || len(signature) == 0 {
		return errors.Wrap(errorcode.ErrorInvalidSignature, "无法解析请求签名")
	}

	return credential.VerifySessionSignature(RequestMessage(req), signature)
}

// RequestMessage 返回会话私钥对份额请求签名的消息。签名覆盖除会话凭证与签名本身以外的全部字段。
func RequestMessage(req *keyserver.ShareRequest) []byte {
	msg := []byte(requestSignaturePrefix)
	for _, field := range [][]byte{
		[]byte(req.PolicyID),
		req.AuthTx,
		[]byte(req.EncryptedShare),
		[]byte(req.ShareProof),
		[]byte(req.RequesterKey),
	} {
		msg = append(msg, 0x00)
		msg = append(msg, field...)
	}

	return msg
}

// ResponseMessage 返回密钥服务器对份额响应签名的消息。
func ResponseMessage(index int, policyID string, share []byte, requesterKey []byte) []byte {
	msg := []byte(responseSignaturePrefix)
	msg = append(msg, 0x00)
	msg = append(msg, strconv.Itoa(index)...)
	msg = append(msg, 0x00)
	msg = append(msg, policyID...)
	msg = append(msg, 0x00)
	msg = append(msg, share...)
	return append(msg, requesterKey...)
}
