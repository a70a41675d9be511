package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/viper"
)

var (
	client *resty.Client

	errNotLoggedIn = errors.New("not logged in, run `archive login` first")
)

// apiError mirrors the backend's JSON error envelope
type apiError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"`
	StatusCode int    `json:"-"`
}

func (e *apiError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	return fmt.Sprintf("[%d] %s: %s", e.StatusCode, e.Code, msg)
}

func initClient(debug bool) {
	client = resty.New().
		SetBaseURL(strings.TrimRight(viper.GetString("api_url"), "/")+"/api/v1").
		SetTimeout(30*time.Second).
		SetHeader("User-Agent", "archive-cli/1.0").
		SetHeader("Accept", "application/json").
		SetError(&apiError{})

	if token := savedToken(); token != "" {
		client.SetAuthToken(token)
	}

	if debug {
		client.OnBeforeRequest(func(c *resty.Client, req *resty.Request) error {
			debugf("--> %s %s", req.Method, req.URL)
			return nil
		})
		client.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
			debugf("<-- %d %s (%s)", resp.StatusCode(), resp.Request.URL, resp.Time())
			return nil
		})
	}
}

// authed returns a request that requires a stored token
func authed() (*resty.Request, error) {
	if savedToken() == "" {
		return nil, errNotLoggedIn
	}
	return client.R(), nil
}

// checkResponse turns transport failures and non-2xx replies into errors
func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsSuccess() {
		return nil
	}
	if apiErr, ok := resp.Error().(*apiError); ok && apiErr.Code != "" {
		apiErr.StatusCode = resp.StatusCode()
		return apiErr
	}
	return &apiError{Code: "unknown_error", Message: resp.Status(), StatusCode: resp.StatusCode()}
}
