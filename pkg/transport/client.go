package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
)

// maxResponseSize is the maximum response body we are willing to read.
const maxResponseSize = 1024

// Client is a holder of an http.Client with the headers configured for its transport.  The
// underlying Client is exposed so tests and callers needing a raw http.Client can use it.
type Client struct {
	customHeaders map[string]string
	userAgent     string

	Client *http.Client
}

// Response is the outcome of a request which reached the server.
type Response struct {
	StatusCode int
	Body       []byte // truncated to maxResponseSize
}

// PostRaw sends body to url and waits for the response.  An error is returned only when no
// response was received, the status code is left to the caller to judge.
func (hc *Client) PostRaw(ctx context.Context, url, contentType, encoding string, headers map[string]string, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("unable to create http.Request: %v", err)
	}

	// Base headers
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Content-Encoding", encoding)
	req.Header.Set("User-Agent", hc.userAgent)

	// Caller headers
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	// Custom headers always win
	for key, value := range hc.customHeaders {
		if value == "" { // Provide a way to delete headers
			req.Header.Del(key)
		} else {
			req.Header.Set(key, value)
		}
	}

	resp, err := hc.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error POSTing: %v", err)
	}
	defer drain(resp.Body)

	bodyStart, _ := ioutil.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	return &Response{
		StatusCode: resp.StatusCode,
		Body:       bodyStart,
	}, nil
}
