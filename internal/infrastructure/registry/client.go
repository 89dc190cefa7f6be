package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/trialsync/trialsync/internal/config"
	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/logging"
	apperrors "github.com/trialsync/trialsync/pkg/errors"
)

// Client talks to the ClinicalTrials.gov v2 API.  Requests that fail with a
// transport error, a 429, or a 5xx are retried with a fixed delay; 4xx other
// than 429 fail immediately.
type Client struct {
	baseURL    string
	httpClient *http.Client
	pageSize   int
	maxRetries int
	retryDelay time.Duration
	logger     logging.Logger
}

// NewClient builds a Client from configuration.
func NewClient(cfg config.RegistryConfig, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		pageSize:   cfg.PageSize,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     logger.Named("registry"),
	}
}

// Search runs one paged study search.  A zero PageSize falls back to the
// configured default.
func (c *Client) Search(ctx context.Context, q SearchQuery) (*SearchResponse, error) {
	if q.PageSize == 0 {
		q.PageSize = c.pageSize
	}

	var resp SearchResponse
	if err := c.getJSON(ctx, c.baseURL+"/studies", q.params(), &resp); err != nil {
		return nil, err
	}

	c.logger.Debug("study search completed",
		logging.String("condition", q.Condition),
		logging.Int("returned", len(resp.Studies)),
		logging.Int("total", resp.TotalCount))
	return &resp, nil
}

// Get fetches a single study by NCT ID.  A missing study is a not-found
// error, not a transport failure.
func (c *Client) Get(ctx context.Context, nctID string) (*Study, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("fields", detailFields)

	var resp SearchResponse
	err := c.getJSON(ctx, c.baseURL+"/studies/"+url.PathEscape(nctID), params, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Studies) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeTrialNotFound,
			fmt.Sprintf("study %s not found in registry", nctID))
	}
	return &resp.Studies[0], nil
}

// FindTrialIDs returns the NCT IDs of recruiting trials matching the filter,
// deduplicated in encounter order.  An empty condition list short-circuits
// to no results.
func (c *Client) FindTrialIDs(ctx context.Context, f IDFilter) ([]string, error) {
	if len(f.Conditions) == 0 {
		return nil, nil
	}

	var resp SearchResponse
	if err := c.getJSON(ctx, c.baseURL+"/studies", f.params(), &resp); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(resp.Studies))
	ids := make([]string, 0, len(resp.Studies))
	for _, s := range resp.Studies {
		id := s.ProtocolSection.Identification.NCTID
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	c.logger.Info("trial id lookup completed",
		logging.Int("conditions", len(f.Conditions)),
		logging.Int("unique_ids", len(ids)))
	return ids, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return apperrors.Wrap(ctx.Err(), apperrors.ErrCodeTimeout, "registry request cancelled")
			case <-time.After(c.retryDelay):
			}
			c.logger.Warn("retrying registry request",
				logging.String("endpoint", endpoint),
				logging.Int("attempt", attempt))
		}

		body, retryable, err := c.doOnce(ctx, endpoint, params)
		if err != nil {
			lastErr = err
			if retryable {
				continue
			}
			return err
		}

		if err := json.Unmarshal(body, out); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeRegistryParseError, "decoding registry response")
		}
		return nil
	}

	return lastErr
}

// doOnce performs a single GET.  The second return value reports whether the
// failure is worth retrying.
func (c *Client) doOnce(ctx context.Context, endpoint string, params url.Values) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.ErrCodeRegistryUnavailable, "building registry request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, apperrors.Wrap(err, apperrors.ErrCodeRegistryUnavailable, "calling registry")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, apperrors.Wrap(err, apperrors.ErrCodeRegistryUnavailable, "reading registry response")
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, false, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, apperrors.New(apperrors.ErrCodeRegistryRateLimited,
			"registry rate limit exceeded")
	case resp.StatusCode >= 500:
		return nil, true, apperrors.New(apperrors.ErrCodeRegistryUnavailable,
			fmt.Sprintf("registry returned status %d", resp.StatusCode))
	default:
		return nil, false, apperrors.New(apperrors.ErrCodeRegistryUnavailable,
			fmt.Sprintf("registry returned status %d", resp.StatusCode))
	}
}
