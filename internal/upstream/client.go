package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Fetcher 抽象列车详情的拉取能力，刷新/读取路径依赖它注入假实现做测试。
type Fetcher interface {
	FetchTrain(ctx context.Context, trainID string) (Document, error)
}

// Shared HTTP transport tunings，复用长连接并集中配置超时。
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   100,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ForceAttemptHTTP2:     true,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// Client 封装对 CP API 的访问，所有列车详情请求共享同一个 http.Client。
type Client struct {
	http   *http.Client
	base   string
	logger *logrus.Logger
}

// NewClient 构造上游客户端；base 形如 https://www.cp.pt/sites/spring。
func NewClient(base string, timeout time.Duration, logger *logrus.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: defaultTransport.Clone(),
		},
		base:   strings.TrimRight(base, "/"),
		logger: logger,
	}
}

// FetchTrain 拉取单趟列车的详情 JSON。非 2xx、网络错误、JSON 解析失败
// 统一视为抓取失败，由调用方决定是否回退到旧数据。
func (c *Client) FetchTrain(ctx context.Context, trainID string) (Document, error) {
	endpoint := fmt.Sprintf("%s/station/trains/train?trainId=%s", c.base, url.QueryEscape(trainID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build train request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch train %s: %w", trainID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch train %s: upstream status %d", trainID, resp.StatusCode)
	}

	var doc Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode train %s: %w", trainID, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("fetch train %s: empty payload", trainID)
	}
	return doc, nil
}
