package api

type (
	// ErrorResponse is the standard error envelope for API failures
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status"`
	}

	// HealthResponse reports service liveness
	HealthResponse struct {
		Service string `json:"service"`
		Version string `json:"version"`
		Status  string `json:"status"`
	}

	// RunListResponse lists the identifiers of currently active runs
	RunListResponse struct {
		Runs  []string `json:"runs"`
		Count int      `json:"count"`
	}

	// SubscribeRequest is sent by WebSocket clients to scope the events
	// they receive
	SubscribeRequest struct {
		Type string             `json:"type"`
		Data ClientSubscription `json:"data"`
	}

	// ClientSubscription narrows a WebSocket stream to one run and/or a
	// set of node statuses. Empty fields match everything
	ClientSubscription struct {
		RunID    string       `json:"run_id,omitempty"`
		Statuses []NodeStatus `json:"statuses,omitempty"`
	}
)
