package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/zerodha/snmp-lama/internal/check"
	"github.com/zerodha/snmp-lama/internal/inventory"
	"golang.org/x/exp/slog"
)

const (
	USER_AGENT = "snmp-lama"

	// Response codes returned by the supervisor.
	RESP_CODE_SUCCESS        = 601
	RESP_CODE_INVALID_SEQ_ID = 704
	RESP_CODE_INVALID_TOKEN  = 801
)

// ErrRetry is returned when the push failed for a reason the manager has
// already corrected (sequence id resynced). The caller should push again.
var ErrRetry = errors.New("state updated, retry push")

type Opts struct {
	URL             string
	Token           string
	Timeout         time.Duration
	IdleConnTimeout time.Duration
}

// Manager pushes polling cycle results to a supervisor endpoint.
type Manager struct {
	sync.Mutex

	lo   *slog.Logger
	opts Opts

	client  *http.Client
	headers http.Header

	seqID int
}

// Payload is the body of one push.
type Payload struct {
	Target     string              `json:"target"`
	SequenceID int                 `json:"sequenceId"`
	Timestamp  int64               `json:"timestamp"`
	Composite  *check.Report       `json:"composite,omitempty"`
	Services   []inventory.Service `json:"services,omitempty"`
}

// Resp is the supervisor's reply.
type Resp struct {
	ResponseCode       int    `json:"responseCode"`
	ResponseDesc       string `json:"responseDesc"`
	ExpectedSequenceID int    `json:"expectedSequenceId"`
}

func New(lo *slog.Logger, opts Opts) (*Manager, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("push url is required")
	}

	client := &http.Client{
		Timeout: opts.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:    10,
			IdleConnTimeout: opts.IdleConnTimeout,
		},
	}

	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("User-Agent", USER_AGENT)
	if opts.Token != "" {
		h.Set("Authorization", "Bearer "+opts.Token)
	}

	return &Manager{
		lo:      lo.With("url", opts.URL),
		opts:    opts,
		client:  client,
		headers: h,
		seqID:   1,
	}, nil
}

// Push sends one cycle's results. The sequence id is set by the manager and
// incremented after every accepted push.
func (mgr *Manager) Push(ctx context.Context, p Payload) error {
	mgr.Lock()
	p.SequenceID = mgr.seqID
	mgr.Unlock()
	if p.Timestamp == 0 {
		p.Timestamp = time.Now().Unix()
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mgr.opts.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("could not create request: %v", err)
	}
	for k, v := range mgr.headers {
		req.Header[k] = v
	}

	mgr.lo.Debug("pushing results", "target", p.Target, "sequence_id", p.SequenceID, "bytes", len(body))

	resp, err := mgr.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request for push failed: %w", err)
	}
	defer resp.Body.Close()

	var r Resp
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read push response: %w", err)
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &r); err != nil {
			return fmt.Errorf("failed to unmarshal push response: %w", err)
		}
	}

	if resp.StatusCode != http.StatusOK {
		mgr.lo.Error("push failed", "http_status", resp.StatusCode, "response_code", r.ResponseCode, "response_desc", r.ResponseDesc)
		switch r.ResponseCode {
		case RESP_CODE_INVALID_SEQ_ID:
			if r.ExpectedSequenceID <= 0 {
				return fmt.Errorf("invalid sequence id and no expected id in response")
			}
			mgr.lo.Warn("sequence id is invalid, resyncing", "expected_seq_id", r.ExpectedSequenceID)
			mgr.Lock()
			mgr.seqID = r.ExpectedSequenceID
			mgr.Unlock()
			return ErrRetry
		case RESP_CODE_INVALID_TOKEN:
			return fmt.Errorf("push rejected: invalid token")
		default:
			return fmt.Errorf("push failed with http status %d: %s", resp.StatusCode, r.ResponseDesc)
		}
	}

	if r.ResponseCode != 0 && r.ResponseCode != RESP_CODE_SUCCESS {
		mgr.lo.Warn("unexpected push response code", "response_code", r.ResponseCode, "response_desc", r.ResponseDesc)
	}

	mgr.Lock()
	mgr.seqID++
	mgr.Unlock()

	return nil
}

// SequenceID returns the id the next push will carry.
func (mgr *Manager) SequenceID() int {
	mgr.Lock()
	defer mgr.Unlock()
	return mgr.seqID
}
