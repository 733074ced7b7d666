package directory

// ActiveIdentity is one roster entry. Key is the unique submitter
// identity (an email-like string); only entries with Active true may
// write to the ledger.
type ActiveIdentity struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	Active      bool   `json:"active"`
}
