package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type Client struct {
	baseURL string
	userID  string
}

func NewClient(baseURL, userID string) *Client {
	return &Client{baseURL: baseURL, userID: userID}
}

func (c *Client) Get(path string, out interface{}) error {
	return c.do(http.MethodGet, path, nil, out)
}

func (c *Client) Post(path string, body interface{}, out interface{}) error {
	return c.do(http.MethodPost, path, body, out)
}

func (c *Client) Delete(path string, out interface{}) error {
	return c.do(http.MethodDelete, path, nil, out)
}

func (c *Client) do(method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewReader(b)
	}
	req, _ := http.NewRequest(method, c.baseURL+path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return parseResponse(resp, out)
}

func parseResponse(resp *http.Response, out interface{}) error {
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		var errResp struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		json.Unmarshal(b, &errResp)
		return fmt.Errorf("%s: %s", errResp.Code, errResp.Message)
	}
	if out != nil && len(b) > 0 {
		return json.Unmarshal(b, out)
	}
	return nil
}
