// README: Payment provider contract.
package ledger

import "context"

type IntentRequest struct {
	PaymentID      string
	Amount         int64
	Currency       string
	Description    string
	ReturnURL      string
	IdempotencyKey string
	Metadata       map[string]string
}

type ProviderIntent struct {
	TxID string
	URL  string
}

type Provider interface {
	CreateIntent(ctx context.Context, req IntentRequest) (ProviderIntent, error)
	// IsPaid reports whether the provider captured the transaction.
	IsPaid(ctx context.Context, txID string) (bool, error)
	// Cancel makes an open transaction unpayable.
	Cancel(ctx context.Context, txID string) error
}
