// Package proxy issues arbitrary HTTP requests on behalf of the browser
// client and normalizes every outcome, remote errors and transport failures
// alike, into one result shape. The caller is testing possibly broken APIs,
// so a 500 or a DNS failure is data, not an error of the proxy itself.
package proxy

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HeaderEntry mirrors one row of the client's header editor. Unchecked rows
// are kept in the document but dropped before transmission.
type HeaderEntry struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	IsChecked bool   `json:"isChecked"`
}

// Invocation is a fully-specified outbound request. It is ephemeral: nothing
// here is persisted.
type Invocation struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers []HeaderEntry     `json:"headers"`
	Params  map[string]string `json:"params"`
	Body    any               `json:"body"`
}

// Result is the normalized outcome of one invocation. A transport-level
// failure uses Status 0 with StatusText "Network Error"; any completed
// remote response, whatever its code, is a success.
type Result struct {
	Status     int               `json:"status"`
	StatusText string            `json:"statusText"`
	Headers    map[string]string `json:"headers"`
	Data       any               `json:"data"`
	Time       int64             `json:"time"`
	Size       int               `json:"size"`
}

type Executor struct {
	client *http.Client
}

func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{client: &http.Client{Timeout: timeout}}
}

// Execute issues the invocation and never fails: every outcome, including
// DNS failure, connection refusal and timeout, maps to a Result.
func (e *Executor) Execute(inv Invocation) Result {
	method := strings.ToUpper(inv.Method)
	if method == "" {
		method = http.MethodGet
	}

	target, err := buildURL(inv.URL, inv.Params)
	if err != nil {
		return networkFailure(err)
	}

	body, bodyIsJSON := encodeBody(inv.Body)
	req, err := http.NewRequest(method, target, body)
	if err != nil {
		return networkFailure(err)
	}
	for key, value := range flattenHeaders(inv.Headers) {
		req.Header.Set(key, value)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		if bodyIsJSON {
			req.Header.Set("Content-Type", "application/json")
		} else {
			req.Header.Set("Content-Type", "text/plain")
		}
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return networkFailure(err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return networkFailure(err)
	}
	elapsed := time.Since(start)

	var data any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			data = string(raw)
		}
	}
	size := len(raw)
	if size == 0 && resp.ContentLength > 0 {
		size = int(resp.ContentLength)
	}

	headers := make(map[string]string, len(resp.Header))
	for key := range resp.Header {
		headers[strings.ToLower(key)] = resp.Header.Get(key)
	}

	return Result{
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Headers:    headers,
		Data:       data,
		Time:       elapsed.Milliseconds(),
		Size:       size,
	}
}

// flattenHeaders converts the editor's row list into the outbound header
// map, keeping only checked entries with a non-empty key.
func flattenHeaders(entries []HeaderEntry) map[string]string {
	headers := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.Key != "" && entry.IsChecked {
			headers[entry.Key] = entry.Value
		}
	}
	return headers
}

// buildURL merges the params map into the target's query string, preserving
// any query already present in the URL itself.
func buildURL(rawURL string, params map[string]string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if len(params) > 0 {
		q := u.Query()
		for key, value := range params {
			q.Set(key, value)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// encodeBody prepares the outbound body. A textual body is tried as JSON
// first; if it does not parse it is sent verbatim, because drafts are
// allowed to be syntactically invalid. Anything non-textual is serialized as
// JSON.
func encodeBody(body any) (io.Reader, bool) {
	switch b := body.(type) {
	case nil:
		return nil, false
	case string:
		if b == "" {
			return nil, false
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, []byte(b)); err != nil {
			return strings.NewReader(b), false
		}
		return &compact, true
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, false
		}
		return bytes.NewReader(raw), true
	}
}

func networkFailure(err error) Result {
	return Result{
		Status:     0,
		StatusText: "Network Error",
		Data:       map[string]string{"message": err.Error()},
		Time:       0,
		Size:       0,
	}
}
