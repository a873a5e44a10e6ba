package rates

import "context"

// Provider fetches a rate table quoted against base.
type Provider interface {
	Fetch(ctx context.Context, base string) (Table, error)
}
