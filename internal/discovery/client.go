package discovery

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	config "github.com/vigil-data/vigil/configs"
)

// APIFill is the subset of the exchange info API's fill object the walker
// needs.
type APIFill struct {
	Coin      string `json:"coin"`
	Px        string `json:"px"`
	Sz        string `json:"sz"`
	Dir       string `json:"dir"`
	ClosedPnl string `json:"closedPnl"`
	Time      int64  `json:"time"`
}

// Client talks to the exchange info API. Rate-limit responses are retried
// with exponential backoff a bounded number of times, then surfaced.
type Client struct {
	http   *resty.Client
	apiURL string
}

func NewClient(cfg config.DiscoveryConfig) *Client {
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second).
		SetRetryMaxWaitTime(8 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && r != nil && r.StatusCode() == http.StatusTooManyRequests
		})
	return &Client{http: client, apiURL: cfg.APIURL}
}

// fillsPageSize is the API's cap on a single userFillsByTime response. A
// full page means the history continues past it.
const fillsPageSize = 2000

type fillsByTimeRequest struct {
	Type            string `json:"type"`
	User            string `json:"user"`
	StartTime       int64  `json:"startTime"`
	EndTime         int64  `json:"endTime"`
	AggregateByTime bool   `json:"aggregateByTime"`
	Reversed        bool   `json:"reversed"`
}

// UserFillsByTime returns one page of a user's fills from startTime onward.
// With reversed false the page starts at the user's oldest fills in range;
// with reversed true at the newest. A page holding fillsPageSize fills means
// the caller must advance startTime past the page's max time and ask again.
func (c *Client) UserFillsByTime(ctx context.Context, user string, reversed bool, startTime int64) ([]APIFill, error) {
	var fills []APIFill
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(fillsByTimeRequest{
			Type:            "userFillsByTime",
			User:            user,
			StartTime:       startTime,
			EndTime:         int64(1e15),
			AggregateByTime: false,
			Reversed:        reversed,
		}).
		SetResult(&fills).
		Post(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("userFillsByTime %s: %w", user, err)
	}
	if resp.StatusCode() == http.StatusTooManyRequests {
		return nil, fmt.Errorf("userFillsByTime %s: rate limited after retries", user)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("userFillsByTime %s: status %d", user, resp.StatusCode())
	}
	return fills, nil
}
