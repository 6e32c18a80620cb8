package deposit

// DepositRequest captures the caller-provided deposit amount in minor units.
type DepositRequest struct {
	Amount int64 `json:"amount"`
}

// DepositResponse is returned after a charge is opened with the gateway.
type DepositResponse struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	Amount           int64  `json:"amount"`
}

// StatusResponse reports the current state of a deposit.
type StatusResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
}
