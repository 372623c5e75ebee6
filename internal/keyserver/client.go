package keyserver

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
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
	"go.dedis.ch/kyber/v3/share"
	"go.dedis.ch/kyber/v3/sign/schnorr"
)

// DefaultTimeout 为收集份额的默认超时时间
const DefaultTimeout = 20 * time.Second

// ServerConfig 为配置文件中的一个密钥服务器
type ServerConfig struct {
	Index     int    `yaml:"index"`     // 序号（从 1 开始）
	URL       string `yaml:"url"`       // 地址
	PublicKey string `yaml:"publicKey"` // 公钥（hex）
}

// ClientConfig 为密钥服务客户端的配置
type ClientConfig struct {
	Threshold        int            `yaml:"threshold"`
	Timeout          time.Duration  `yaml:"timeout"`
	VerifyKeyServers bool           `yaml:"verifyKeyServers"`
	Servers          []ServerConfig `yaml:"servers"`
}

// ServerKey 为一个已配置的密钥服务器及其公钥
type ServerKey struct {
	Endpoint  Endpoint
	PublicKey kyber.Point
}

// Client 为门限密钥服务的客户端
type Client struct {
	threshold int
	timeout   time.Duration
	verify    bool
	servers   []*ServerKey
	byIndex   map[int]*ServerKey
	transport Transport
	now       func() time.Time
}

// NewClient 按配置创建客户端。
func NewClient(conf *ClientConfig, transport Transport, now func() time.Time) (*Client, error) {
	if len(conf.Servers) == 0 {
		return nil, fmt.Errorf("未配置密钥服务器")
	}

	if conf.Threshold <= 0 || conf.Threshold > len(conf.Servers) {
		return nil, fmt.Errorf("门限 %v 不合法，应在 1 到 %v 之间", conf.Threshold, len(conf.Servers))
	}

	if now == nil {
		now = time.Now
	}

	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		threshold: conf.Threshold,
		timeout:   timeout,
		verify:    conf.VerifyKeyServers,
		byIndex:   make(map[int]*ServerKey),
		transport: transport,
		now:       now,
	}

	for _, serverConf := range conf.Servers {
		if serverConf.Index < 1 || serverConf.Index > 255 {
			return nil, fmt.Errorf("密钥服务器序号 %v 不合法", serverConf.Index)
		}

		if _, ok := c.byIndex[serverConf.Index]; ok {
			return nil, fmt.Errorf("密钥服务器序号 %v 重复", serverConf.Index)
		}

		publicKeyBytes, err := hex.DecodeString(serverConf.PublicKey)
		if err != nil {
			return nil, errors.Wrapf(err, "无法解析密钥服务器 #%v 的公钥", serverConf.Index)
		}

		publicKey, err := cipherutils.DeserializePoint(publicKeyBytes)
		if err != nil {
			return nil, errors.Wrapf(err, "无法解析密钥服务器 #%v 的公钥", serverConf.Index)
		}

		serverKey := &ServerKey{
			Endpoint:  Endpoint{Index: serverConf.Index, URL: serverConf.URL},
			PublicKey: publicKey,
		}
		c.servers = append(c.servers, serverKey)
		c.byIndex[serverConf.Index] = serverKey
	}

	sort.Slice(c.servers, func(i, j int) bool {
		return c.servers[i].Endpoint.Index < c.servers[j].Endpoint.Index
	})

	return c, nil
}

// Threshold 返回配置的门限。
func (c *Client) Threshold() int {
	return c.threshold
}

// Servers 返回按序号排列的密钥服务器。
func (c *Client) Servers() []*ServerKey {
	return c.servers
}

type shareResult struct {
	index int
	share *share.PubShare
	err   error
}

// FetchKeyShares 向信封中列出的密钥服务器并发请求份额，收集到 threshold 个有效份额后立即取消其余请求，恢复并返回对称密钥。
//
// 参数：
//   信封
//   授权交易
//   会话凭证
//   门限（<= 0 时使用信封中的门限）
//
// 返回：
//   对称密钥
func (c *Client) FetchKeyShares(ctx context.Context, env *envelope.Envelope, authTx *keyserver.AuthTx, credential *session.Credential, threshold int) ([]byte, error) {
	defer timingutils.GetDeferrableTimingLogger(fmt.Sprintf("收集策略 '%v' 的份额", env.PolicyIDHex()))()

	if threshold < int(env.Threshold) {
		threshold = int(env.Threshold)
	}

	if credential == nil {
		return nil, errors.Wrap(errorcode.ErrorWalletNotConnected, "缺少会话凭证")
	}

	authTxBytes, err := json.Marshal(authTx)
	if err != nil {
		return nil, errors.Wrap(err, "无法序列化授权交易")
	}

	// 份额置换到会话公钥下，只有持有会话私钥的一方能解密
	requesterPrivateKey := credential.SessionPrivateKey()
	if requesterPrivateKey == nil {
		return nil, errors.Wrap(errorcode.ErrorWalletNotConnected, "会话凭证不含会话私钥")
	}
	requesterKeyBytes := credential.SessionKey

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	results := make(chan *shareResult, len(env.Shares))
	dispatched := 0
	for i := range env.Shares {
		encapsulated := &env.Shares[i]
		serverKey, ok := c.byIndex[int(encapsulated.Index)+1]
		if !ok {
			continue
		}

		// 每次发送前检查会话是否仍然有效
		if err := credential.Validate(c.now()); err != nil {
			cancel()
			return nil, err
		}

		req := &keyserver.ShareRequest{
			PolicyID:       env.PolicyIDHex(),
			AuthTx:         authTxBytes,
			Session:        credential.ToWire(),
			EncryptedShare: base64.StdEncoding.EncodeToString(append(append([]byte{}, encapsulated.K...), encapsulated.C...)),
			ShareProof:     base64.StdEncoding.EncodeToString(encapsulated.Proof),
			RequesterKey:   base64.StdEncoding.EncodeToString(requesterKeyBytes),
		}

		signature, err := credential.SignWithSessionKey(RequestMessage(req))
		if err != nil {
			cancel()
			return nil, err
		}
		req.Signature = base64.StdEncoding.EncodeToString(signature)

		dispatched++
		go func(serverKey *ServerKey, req *keyserver.ShareRequest) {
			resp, err := c.transport.RequestShare(ctx, &serverKey.Endpoint, req)
			if err != nil {
				results <- &shareResult{index: serverKey.Endpoint.Index, err: err}
				return
			}

			pubShare, err := c.openShare(serverKey, req, resp, requesterPrivateKey, requesterKeyBytes)
			results <- &shareResult{index: serverKey.Endpoint.Index, share: pubShare, err: err}
		}(serverKey, req)
	}

	if dispatched < threshold {
		return nil, errors.Wrapf(errorcode.ErrorInsufficientShares, "信封中仅有 %v 个份额对应已配置的密钥服务器，门限为 %v", dispatched, threshold)
	}

	var shares []*share.PubShare
	responded, denials, notFound, pending := 0, 0, 0, dispatched

collect:
	for pending > 0 && len(shares) < threshold {
		// 剩余的请求全部成功也凑不够门限时不再等待
		if len(shares)+pending < threshold {
			break
		}

		select {
		case r := <-results:
			pending--
			if r.err == nil {
				responded++
				shares = append(shares, r.share)
				continue
			}

			var transportErr *TransportError
			if errors.As(r.err, &transportErr) {
				log.Debugf("无法从密钥服务器 #%v 获取份额: %v", r.index, r.err)
				continue
			}

			responded++
			switch errors.Cause(r.err) {
			case errorcode.ErrorUnauthorized:
				denials++
			case errorcode.ErrorPolicyNotFound:
				notFound++
			}
			log.Debugf("密钥服务器 #%v 拒绝提供份额: %v", r.index, r.err)
		case <-ctx.Done():
			break collect
		}
	}
	cancel()

	if len(shares) < threshold {
		switch {
		case responded > 0 && denials*2 > responded:
			return nil, errors.Wrapf(errorcode.ErrorUnauthorized, "%v 个密钥服务器中有 %v 个拒绝授权", responded, denials)
		case responded > 0 && notFound*2 > responded:
			return nil, errors.Wrapf(errorcode.ErrorPolicyNotFound, "%v 个密钥服务器中有 %v 个找不到策略", responded, notFound)
		default:
			return nil, errors.Wrapf(errorcode.ErrorInsufficientShares, "仅收集到 %v 个有效份额，门限为 %v", len(shares), threshold)
		}
	}

	secret, err := cipherutils.RecoverSecret(shares, threshold, len(env.Shares))
	if err != nil {
		return nil, errors.Wrap(errorcode.ErrorInsufficientShares, err.Error())
	}

	return cipherutils.DeriveSymmetricKeyBytesFromCurvePoint(secret, env.PolicyID)
}

// openShare 校验并解密一个份额响应。不合格的份额总是被丢弃，签名只在开启验证时检查。
func (c *Client) openShare(serverKey *ServerKey, req *keyserver.ShareRequest, resp *keyserver.ShareResponse, requesterPrivateKey kyber.Scalar, requesterKeyBytes []byte) (*share.PubShare, error) {
	if resp.Index != serverKey.Endpoint.Index {
		return nil, errors.Wrapf(errorcode.ErrorServerError, "响应中的服务器序号 %v 与请求不符", resp.Index)
	}

	shareBytes, err := base64.StdEncoding.DecodeString(resp.Share)
	if err != nil {
		return nil, errors.Wrap(errorcode.ErrorServerError, "无法解析份额")
	}

	cipherText, err := cipherutils.DeserializeCipherText(shareBytes)
	if err != nil {
		return nil, errors.Wrap(errorcode.ErrorServerError, err.Error())
	}

	if c.verify {
		signature, err := base64.StdEncoding.DecodeString(resp.Signature)
		if err != nil {
			return nil, errors.Wrap(errorcode.ErrorServerError, "无法解析份额签名")
		}

		msg := ResponseMessage(resp.Index, req.PolicyID, shareBytes, requesterKeyBytes)
		if err := schnorr.Verify(cipherutils.Suite, serverKey.PublicKey, msg, signature); err != nil {
			return nil, errors.Wrapf(errorcode.ErrorServerError, "密钥服务器 #%v 的份额签名验证未通过", resp.Index)
		}
	}

	return &share.PubShare{
		I: serverKey.Endpoint.Index - 1,
		V: cipherutils.DecryptPoint(requesterPrivateKey, cipherText),
	}, nil
}
