package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// noRedirectClient stops at the first redirect so tests can inspect the
// Location header the callback produces.
func noRedirectClient() *http.Client {
	return &http.Client{
		Timeout: 5 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func get(rawURL string) (*http.Response, error) {
	return noRedirectClient().Get(rawURL)
}

func authedGet(rawURL, sessionToken string) (*http.Response, error) {
	req, _ := http.NewRequest(http.MethodGet, rawURL, nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken)
	return noRedirectClient().Do(req)
}

func postJSON(rawURL, sessionToken string, body interface{}) (*http.Response, error) {
	jsonBody, _ := json.Marshal(body)

	req, _ := http.NewRequest(http.MethodPost, rawURL, bytes.NewReader(jsonBody))
	req.Header.Set("Authorization", "Bearer "+sessionToken)
	req.Header.Set("Content-Type", "application/json")
	return noRedirectClient().Do(req)
}

func decodeBody(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// redirectQuery parses the query of the callback's Location header.
func redirectQuery(resp *http.Response) (url.Values, error) {
	location, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		return nil, fmt.Errorf("bad redirect location: %w", err)
	}
	return location.Query(), nil
}
