package shelly

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const statusPath = "/rpc/Switch.GetStatus"

// Client reads the live switch status of a single device channel.
type Client interface {
	GetStatus(ctx context.Context) (Status, error)
}

// Status is the subset of a Switch.GetStatus response this exporter reads.
// Fields it does not know are ignored.
type Status struct {
	ID         int     `json:"id"`
	Source     string  `json:"source"`
	Output     bool    `json:"output"`
	PowerWatts float64 `json:"apower"`
	Voltage    float64 `json:"voltage"`
	Current    float64 `json:"current"`
}

// UnmarshalJSON rejects payloads without a numeric apower.
func (s *Status) UnmarshalJSON(data []byte) error {
	type plain Status
	var payload struct {
		plain
		PowerWatts *float64 `json:"apower"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	if payload.PowerWatts == nil {
		return errors.New("field apower is missing")
	}
	*s = Status(payload.plain)
	s.PowerWatts = *payload.PowerWatts
	return nil
}

// NetworkError means no status record was received from the device.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("error fetching status from %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// DecodeError means the device answered with a body that is not a status record.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("error decoding status: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// HTTPClient talks to the Gen2 RPC API of a Shelly switch.
type HTTPClient struct {
	rest    *resty.Client
	channel int
}

// NewClient creates a client for the given device host and switch channel.
// Every call makes exactly one request bounded by timeout.
func NewClient(host string, channel int, timeout time.Duration, logger logrus.FieldLogger) *HTTPClient {
	rest := resty.New().
		SetLogger(logger).
		SetBaseURL("http://"+host).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &HTTPClient{
		rest:    rest,
		channel: channel,
	}
}

func (c *HTTPClient) GetStatus(ctx context.Context) (Status, error) {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("id", strconv.Itoa(c.channel)).
		Get(statusPath)
	if err != nil {
		return Status{}, &NetworkError{URL: c.url(), Err: err}
	}
	if resp.IsError() {
		return Status{}, &NetworkError{URL: c.url(), Err: fmt.Errorf("unexpected response status %s", resp.Status())}
	}

	var status Status
	if err := json.Unmarshal(resp.Body(), &status); err != nil {
		return Status{}, &DecodeError{Err: err}
	}
	return status, nil
}

func (c *HTTPClient) url() string {
	return fmt.Sprintf("%s%s?id=%d", c.rest.BaseURL, statusPath, c.channel)
}
