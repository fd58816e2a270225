package deposit

import "fmt"

// ProviderError reports a failed payment initiation. No charge happened;
// the account is untouched. Message carries provider-supplied text when
// available for the user-facing reply.
type ProviderError struct {
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("deposit: payment initiation failed: %s", e.Message)
	}
	return fmt.Sprintf("deposit: payment initiation failed: %v", e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// PricingError reports an unavailable exchange rate. The collection in step
// one was already initiated; Reference identifies it for reconciliation.
type PricingError struct {
	Reference string
	Err       error
}

func (e *PricingError) Error() string {
	return fmt.Sprintf("deposit: rate fetch failed (reference %s): %v", e.Reference, e.Err)
}

func (e *PricingError) Unwrap() error { return e.Err }

// PersistenceError reports a failed balance credit after a successful charge
// and conversion. Reference identifies the charge for reconciliation.
type PersistenceError struct {
	Reference string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("deposit: credit failed (reference %s): %v", e.Reference, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
