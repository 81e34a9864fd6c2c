package api

import (
	"net"
	"net/http"
	"time"
)

// NewHTTPClient 构造对外请求用的 http.Client，连接参数按上传大文件的场景调优
func NewHTTPClient(timeoutSec int) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   true,
		DialContext: (&net.Dialer{
			Timeout: 10 * time.Second,
		}).DialContext,
	}
	if timeoutSec < 30 {
		timeoutSec = 30
	}
	return &http.Client{Transport: transport, Timeout: time.Duration(timeoutSec) * time.Second}
}
