package credit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Pranshu2404/AsBrand-Backend/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Client checks EMI eligibility against the external credit service. The
// service owns the decision; this client only carries the question and the
// answer.
type Client struct {
	url    string
	client *http.Client
	logger zerolog.Logger
}

// NewClient initializes a new eligibility client
func NewClient(url string, logger zerolog.Logger) *Client {
	return &Client{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.With().Str("component", "credit_client").Logger(),
	}
}

type checkRequest struct {
	UserID string `json:"userId"`
	Amount string `json:"amount"`
}

type checkResponse struct {
	Approved    bool   `json:"approved"`
	CreditLimit string `json:"creditLimit"`
	Reason      string `json:"reason,omitempty"`
}

// Check asks the credit service whether a user may finance the given
// principal. A transport or service failure is returned as an error, which
// callers must not interpret as a rejection.
func (c *Client) Check(ctx context.Context, userID uuid.UUID, principal decimal.Decimal) (*domain.EligibilityResult, error) {
	payload, err := json.Marshal(checkRequest{
		UserID: userID.String(),
		Amount: principal.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal eligibility request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create eligibility request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eligibility request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("eligibility service returned status %d", resp.StatusCode)
	}

	var body checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode eligibility response: %w", err)
	}

	limit := decimal.Zero
	if body.CreditLimit != "" {
		limit, err = decimal.NewFromString(body.CreditLimit)
		if err != nil {
			return nil, fmt.Errorf("parse credit limit %q: %w", body.CreditLimit, err)
		}
	}

	c.logger.Debug().
		Str("user_id", userID.String()).
		Bool("approved", body.Approved).
		Str("credit_limit", limit.String()).
		Str("reason", body.Reason).
		Msg("Eligibility check completed")

	return &domain.EligibilityResult{
		Approved:    body.Approved,
		CreditLimit: limit,
	}, nil
}
