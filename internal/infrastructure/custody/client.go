package custodyclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/openmarket-os/marketd/internal/core/ports"
)

type transferPayoutRequest struct {
	AssetId    string `json:"asset_id"`
	ReceiverId string `json:"receiver_id"`
	ApprovalId uint64 `json:"approval_id"`
	Amount     string `json:"balance"`
	MaxPayees  uint32 `json:"max_len_payout"`
	Memo       string `json:"memo"`
}

type service struct {
	baseURL    string
	httpClient *retryablehttp.Client
}

// NewService returns a CustodyService talking to the custody gateway at
// baseURL. The client never retries: an ambiguous outcome must surface as a
// failed request so the settlement collapses into the refund path, a replay
// could transfer the asset twice.
func NewService(baseURL string, requestTimeout time.Duration) (ports.CustodyService, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid custody service url: %s", err)
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.Logger = nil
	client.HTTPClient.Timeout = requestTimeout

	return &service{baseURL: baseURL, httpClient: client}, nil
}

func (s *service) TransferWithPayout(
	ctx context.Context, req ports.TransferRequest,
) ([]byte, error) {
	body, err := json.Marshal(transferPayoutRequest{
		AssetId:    req.AssetId,
		ReceiverId: req.ReceiverId,
		ApprovalId: req.ApprovalId,
		Amount:     req.Amount.String(),
		MaxPayees:  req.MaxPayees,
		Memo:       req.Memo,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode transfer request: %s", err)
	}

	endpoint := fmt.Sprintf(
		"%s/v1/contracts/%s/transfer-payout", s.baseURL, url.PathEscape(req.AssetContractId),
	)
	httpReq, err := retryablehttp.NewRequestWithContext(
		ctx, http.MethodPost, endpoint, bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build transfer request: %s", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("transfer request failed: %s", err)
	}
	// nolint:all
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read transfer response: %s", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(
			"custody service rejected transfer: %d %s", resp.StatusCode, string(payload),
		)
	}
	return payload, nil
}
