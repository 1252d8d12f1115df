package domain

// BankRequest is an open map sent to the bank simulator. spec.md §4.1
// only guarantees amount/currency/card_number/expiry_date/cvv are
// present; any processor may add further fields.
type BankRequest map[string]any

// BankResponse is an open map returned by the bank simulator. Only
// authorized/indeterminate/authorization_code/error_message are
// meaningful to the caller (spec.md §4.1); everything else is carried
// through untouched.
type BankResponse map[string]any

// Authorized reports the bank's authorized field, and whether it was
// present at all (spec.md §4.2: "a missing" is a distinct outcome from
// "false").
func (r BankResponse) Authorized() (value bool, present bool) {
	v, ok := r["authorized"]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Indeterminate reports the bank's indeterminate field, defaulting to
// false when absent (spec.md §4.1).
func (r BankResponse) Indeterminate() bool {
	v, _ := r["indeterminate"].(bool)
	return v
}

// AuthorizationCode returns the bank-assigned authorization code, if any.
func (r BankResponse) AuthorizationCode() string {
	v, _ := r["authorization_code"].(string)
	return v
}

// ErrorMessage returns the fallback error message, if any.
func (r BankResponse) ErrorMessage() string {
	v, _ := r["error_message"].(string)
	return v
}
