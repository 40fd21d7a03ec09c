package square

import (
	"context"
	"errors"
	"time"

	sq "github.com/square/square-go-sdk"
	sqcore "github.com/square/square-go-sdk/core"
)

const (
	paymentStatusCompleted = "COMPLETED"

	listPageSize = 100
)

// Payment is the provider-neutral view of a Square payment that the insight
// services consume.
type Payment struct {
	ID            string
	Status        string
	AmountCents   int64
	RefundedCents int64
	CreatedAt     time.Time
}

// Completed reports whether the payment settled.
func (p Payment) Completed() bool {
	return p.Status == paymentStatusCompleted
}

// ListPayments returns every payment created inside [from, to), walking the
// cursor pagination until Square reports no further pages.
func (c *Client) ListPayments(ctx context.Context, from, to time.Time) ([]Payment, error) {
	begin := from.UTC().Format(time.RFC3339)
	end := to.UTC().Format(time.RFC3339)
	limit := listPageSize

	c.log(ctx, "request", "list_payments", map[string]any{
		"begin_time": begin,
		"end_time":   end,
	})

	req := &sq.ListPaymentsRequest{
		BeginTime: &begin,
		EndTime:   &end,
		Limit:     &limit,
	}

	page, err := c.sdk.Payments.List(ctx, req)
	if err != nil {
		c.log(ctx, "error", "list_payments", map[string]any{"error": err.Error()})
		return nil, c.mapSquareError(err, "list payments")
	}

	var payments []Payment
	for {
		for _, p := range page.Results {
			if p == nil {
				continue
			}
			payments = append(payments, paymentFromSquare(p))
		}

		page, err = page.GetNextPage(ctx)
		if errors.Is(err, sqcore.ErrNoPages) {
			break
		}
		if err != nil {
			c.log(ctx, "error", "list_payments", map[string]any{"error": err.Error()})
			return nil, c.mapSquareError(err, "list payments")
		}
	}

	c.log(ctx, "response", "list_payments", map[string]any{"count": len(payments)})
	return payments, nil
}

func paymentFromSquare(p *sq.Payment) Payment {
	out := Payment{
		ID:     stringValue(p.GetID()),
		Status: stringValue(p.GetStatus()),
	}
	if money := p.GetAmountMoney(); money != nil {
		out.AmountCents = int64Value(money.GetAmount())
	}
	if money := p.GetRefundedMoney(); money != nil {
		out.RefundedCents = int64Value(money.GetAmount())
	}
	if raw := stringValue(p.GetCreatedAt()); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			out.CreatedAt = ts.UTC()
		}
	}
	return out
}
