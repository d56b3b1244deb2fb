package tool

import (
	"net/http"
	"time"
)

var (
	DefaultTimeout = 30 * time.Second
	HttpClient     *http.Client
)

func init() {
	HttpClient = NewHTTPClient()
}

// NewHTTPClient creates the client used to reach the preset repository.
func NewHTTPClient() *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	return &http.Client{
		Timeout:   DefaultTimeout,
		Transport: transport,
	}
}

func GetHttpClient() *http.Client {
	return HttpClient
}

// NewHTTPReqWithApplication sets the json accept header on a freshly built request.
func NewHTTPReqWithApplication(req *http.Request, err error) (*http.Request, error) {
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "devconf")
	return req, nil
}
