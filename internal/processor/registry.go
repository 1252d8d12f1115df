package processor

import "github.com/ficmart/paygate/internal/ports"

// Registry is an ordered list of processors, linear-scanned by
// Select (spec.md §4.3, SPEC_FULL.md §4.3a notes this scan stays a
// plain slice since the payment-type count is small and fixed at
// startup).
type Registry struct {
	processors []ports.Processor
}

// NewRegistry builds a registry over the given processors, in
// registration order.
func NewRegistry(processors ...ports.Processor) *Registry {
	return &Registry{processors: processors}
}

func (r *Registry) Select(paymentType string) (ports.Processor, bool) {
	for _, p := range r.processors {
		if p.Supports(paymentType) {
			return p, true
		}
	}
	return nil, false
}
