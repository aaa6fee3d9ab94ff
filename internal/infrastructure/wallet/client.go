package walletclient

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
	"github.com/openmarket-os/marketd/internal/core/domain"
	"github.com/openmarket-os/marketd/internal/core/ports"
)

type transferRequest struct {
	ReceiverId string `json:"receiver_id"`
	Amount     string `json:"amount"`
}

type service struct {
	baseURL    string
	httpClient *retryablehttp.Client
}

// NewService returns a WalletService backed by the native-currency ledger
// node at baseURL. Transfers are terminal actions and are never retried.
func NewService(baseURL string, requestTimeout time.Duration) (ports.WalletService, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid wallet url: %s", err)
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.Logger = nil
	client.HTTPClient.Timeout = requestTimeout

	return &service{baseURL: baseURL, httpClient: client}, nil
}

func (s *service) Transfer(
	ctx context.Context, to string, amount domain.Amount,
) error {
	body, err := json.Marshal(transferRequest{
		ReceiverId: to,
		Amount:     amount.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode transfer: %s", err)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(
		ctx, http.MethodPost, s.baseURL+"/v1/transfers", bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("failed to build transfer: %s", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("transfer to %s failed: %s", to, err)
	}
	// nolint:all
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf(
			"ledger rejected transfer to %s: %d %s", to, resp.StatusCode, string(payload),
		)
	}
	return nil
}

func (s *service) Close() {
	s.httpClient.HTTPClient.CloseIdleConnections()
}
