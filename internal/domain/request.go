package domain

// PaymentRequest is the typed core of a merchant request plus an open
// side-map for payment-type-specific fields (card number, cvv, expiry,
// and anything the wire format carries that this gateway doesn't name).
// This is the reimplementation of the "open bag of fields" noted in
// spec.md §9: typed core + typed side map, instead of one giant map.
type PaymentRequest struct {
	Type     string
	Amount   int64
	Currency string
	Data     map[string]any
}

// GetString returns Data[key] as a string, or "" if absent/not a string.
func (r *PaymentRequest) GetString(key string) string {
	v, _ := r.Data[key].(string)
	return v
}

// GetInt returns Data[key] coerced to an int. It accepts both a JSON
// number (float64, from encoding/json) and a numeric string, since the
// wire format allows either for expiry_month/expiry_year (spec.md §4.2).
func (r *PaymentRequest) GetInt(key string) (int, bool) {
	switch v := r.Data[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		return parseInt(v)
	default:
		return 0, false
	}
}

func parseInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// PaymentResponse is the merchant-visible projection of a Payment. Only
// fields a processor or the service explicitly populates are present in
// the JSON output (spec.md §6): type/card_type/masked_card_number/
// authorization_code are deliberately never part of this struct.
type PaymentResponse struct {
	PaymentID          string `json:"payment_id"`
	Status             string `json:"status"`
	Message            string `json:"message,omitempty"`
	Amount             int64  `json:"amount"`
	Currency           string `json:"currency"`
	LastFourCardDigits string `json:"last_four_card_digits,omitempty"`
	ExpiryMonth        int    `json:"expiry_month,omitempty"`
	ExpiryYear         int    `json:"expiry_year,omitempty"`
}

// ProcessorResponse is the internal, un-filtered result of a processor
// call: everything the processor knows, before the merchant-facing
// projection strips sensitive/internal fields (spec.md §4.2).
type ProcessorResponse struct {
	Status            PaymentStatus
	Message           string
	Type              string
	MaskedCardNumber  string
	CardType          string
	ExpiryMonth       int
	ExpiryYear        int
	Amount            int64
	Currency          string
	AuthorizationCode string
}
