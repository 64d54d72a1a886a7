package era5

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/climate-lab/eofkit/internal/config"
)

// Job states reported by the retrieve API.
const (
	StatusAccepted   = "accepted"
	StatusRunning    = "running"
	StatusSuccessful = "successful"
	StatusFailed     = "failed"
	StatusRejected   = "rejected"
	StatusDismissed  = "dismissed"
)

var ErrJobFailed = errors.New("era5: job did not complete")

type Job struct {
	JobID  string `json:"jobID"`
	Status string `json:"status"`
}

type executeBody struct {
	Inputs map[string]any `json:"inputs"`
}

type resultsBody struct {
	Asset struct {
		Value struct {
			Href string `json:"href"`
			Size int64  `json:"file:size"`
		} `json:"value"`
	} `json:"asset"`
}

// Client talks to the CDS retrieve API. A zero PollInterval falls back to
// ten seconds.
type Client struct {
	client       *resty.Client
	download     *retryablehttp.Client
	BaseURL      string
	PollInterval time.Duration
}

func NewClient(cfg *config.CDSEnvConfig) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if cfg.CDSKey == "" {
		return nil, fmt.Errorf("CDSAPI_KEY is not set")
	}
	base := strings.TrimRight(cfg.CDSURL, "/")

	client := resty.New().
		SetBaseURL(base).
		SetHeader("PRIVATE-TOKEN", cfg.CDSKey).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetTimeout(cfg.ClientTimeout).
		SetRetryCount(cfg.RetryMax).
		SetRetryWaitTime(cfg.RetryWait)

	dl := retryablehttp.NewClient()
	dl.RetryMax = cfg.RetryMax
	dl.RetryWaitMin = cfg.RetryWait
	dl.RetryWaitMax = 30 * time.Second
	dl.Logger = nil

	log.Debug().
		Str("base_url", base).
		Int("retry_max", cfg.RetryMax).
		Str("timeout", cfg.ClientTimeout.String()).
		Msg("cds client initialized")

	return &Client{
		client:       client,
		download:     dl,
		BaseURL:      base,
		PollInterval: cfg.PollInterval,
	}, nil
}

func postJSON[T any](ctx context.Context, client *resty.Client, path string, body any) (T, error) {
	var result T
	resp, err := client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("post request failed")
		return result, fmt.Errorf("post %s: %w", path, err)
	}
	if resp.IsError() {
		log.Error().Int("status", resp.StatusCode()).Str("body", resp.String()).Str("path", path).Msg("post non-2xx")
		return result, fmt.Errorf("request returned status %d: %s", resp.StatusCode(), resp.String())
	}
	return result, nil
}

func getJSON[T any](ctx context.Context, client *resty.Client, path string) (T, error) {
	var result T
	resp, err := client.R().
		SetContext(ctx).
		SetResult(&result).
		Get(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("get request failed")
		return result, fmt.Errorf("get %s: %w", path, err)
	}
	if resp.IsError() {
		log.Error().Int("status", resp.StatusCode()).Str("body", resp.String()).Str("path", path).Msg("get non-2xx")
		return result, fmt.Errorf("request returned status %d: %s", resp.StatusCode(), resp.String())
	}
	return result, nil
}

// Submit queues a retrieval.
func (c *Client) Submit(ctx context.Context, req Request) (Job, error) {
	if err := req.Validate(); err != nil {
		return Job{}, err
	}
	path := fmt.Sprintf("/retrieve/v1/processes/%s/execution", req.Dataset)
	job, err := postJSON[Job](ctx, c.client, path, executeBody{Inputs: req.Inputs()})
	if err != nil {
		return Job{}, err
	}
	if job.JobID == "" {
		return Job{}, fmt.Errorf("submit %s: response has no job id", req.Dataset)
	}
	log.Info().Str("dataset", req.Dataset).Str("job", job.JobID).Str("status", job.Status).Msg("job submitted")
	return job, nil
}

func (c *Client) Status(ctx context.Context, id string) (Job, error) {
	return getJSON[Job](ctx, c.client, "/retrieve/v1/jobs/"+url.PathEscape(id))
}

// Results returns the download location of a finished job.
func (c *Client) Results(ctx context.Context, id string) (string, error) {
	res, err := getJSON[resultsBody](ctx, c.client, "/retrieve/v1/jobs/"+url.PathEscape(id)+"/results")
	if err != nil {
		return "", err
	}
	if res.Asset.Value.Href == "" {
		return "", fmt.Errorf("job %s: results carry no href", id)
	}
	return res.Asset.Value.Href, nil
}

// Wait polls the job until it succeeds, fails, or ctx is done.
func (c *Client) Wait(ctx context.Context, id string) (Job, error) {
	interval := c.PollInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := ""
	for {
		job, err := c.Status(ctx, id)
		if err != nil {
			return Job{}, err
		}
		if job.Status != last {
			log.Debug().Str("job", id).Str("status", job.Status).Msg("job status")
			last = job.Status
		}
		switch job.Status {
		case StatusSuccessful:
			return job, nil
		case StatusFailed, StatusRejected, StatusDismissed:
			return job, fmt.Errorf("job %s %s: %w", id, job.Status, ErrJobFailed)
		}

		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Download fetches href into path. Relative hrefs resolve against BaseURL.
// The file only appears at path once the transfer has completed.
func (c *Client) Download(ctx context.Context, href, path string) (int64, error) {
	target, err := c.resolve(href)
	if err != nil {
		return 0, err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept-Encoding", "zstd, identity")

	resp, err := c.download.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", target, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("download returned status %d: %s", resp.StatusCode, body)
	}

	var body io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "zstd") {
		dec, err := zstd.NewReader(resp.Body)
		if err != nil {
			return 0, fmt.Errorf("zstd: failed to create reader: %w", err)
		}
		defer dec.Close()
		body = dec
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".part-*")
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(tmp, body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}
	log.Info().Str("file", path).Int64("bytes", n).Msg("download complete")
	return n, nil
}

// Retrieve submits req, waits for it and downloads the result to path.
func (c *Client) Retrieve(ctx context.Context, req Request, path string) error {
	job, err := c.Submit(ctx, req)
	if err != nil {
		return err
	}
	if _, err := c.Wait(ctx, job.JobID); err != nil {
		return err
	}
	href, err := c.Results(ctx, job.JobID)
	if err != nil {
		return err
	}
	_, err = c.Download(ctx, href, path)
	return err
}

func (c *Client) resolve(href string) (string, error) {
	u, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse href %q: %w", href, err)
	}
	if u.IsAbs() {
		return href, nil
	}
	base, err := url.Parse(c.BaseURL + "/")
	if err != nil {
		return "", err
	}
	return base.ResolveReference(u).String(), nil
}
