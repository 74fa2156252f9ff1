package types

// VariableContext carries the two variable scopes used during resolution.
// Both maps are read-only for the duration of a call; the engine never
// mutates them.
type VariableContext struct {
	Global     map[string]string
	Collection map[string]string
}

// QueryParam is a single query-string parameter. Disabled params are kept
// in the descriptor (the editor needs them) but never sent.
type QueryParam struct {
	Key     string `json:"key" yaml:"key"`
	Value   string `json:"value" yaml:"value"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

// RequestDescriptor is a templated HTTP request as stored in a collection.
// URL, headers, body and query params may contain {{...}} placeholders.
type RequestDescriptor struct {
	ID           string            `json:"id,omitempty" yaml:"id,omitempty"`
	CollectionID string            `json:"collectionId,omitempty" yaml:"collectionId,omitempty"`
	Name         string            `json:"name,omitempty" yaml:"name,omitempty"`
	Method       string            `json:"method" yaml:"method"`
	URL          string            `json:"url" yaml:"url"`
	Headers      map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body         string            `json:"body,omitempty" yaml:"body,omitempty"`
	IsJSON       bool              `json:"isJson,omitempty" yaml:"isJson,omitempty"`
	QueryParams  []QueryParam      `json:"queryParams,omitempty" yaml:"queryParams,omitempty"`

	// Order controls execution position within a collection run.
	Order int `json:"order,omitempty" yaml:"order,omitempty"`

	// TransactionID is a caller-chosen token usable to cancel the in-flight
	// dispatch from another goroutine.
	TransactionID string `json:"transactionId,omitempty" yaml:"transactionId,omitempty"`

	// TimeoutMs overrides the default dispatch timeout when > 0.
	TimeoutMs int64 `json:"timeoutMs,omitempty" yaml:"timeoutMs,omitempty"`

	// Filter narrows a JSON response, Query selects/transforms fields.
	// Both are JMESPath expressions, applied after dispatch.
	Filter string `json:"filter,omitempty" yaml:"filter,omitempty"`
	Query  string `json:"query,omitempty" yaml:"query,omitempty"`
}

// DispatchResult is the normalized outcome of one HTTP call.
//
// Status 0 is reserved: it means the transport failed and no HTTP response
// was received. In that case Error is populated and Body carries no payload.
// Status >= 400 is a normal result, never an error.
type DispatchResult struct {
	Status         int               `json:"status"`
	StatusText     string            `json:"statusText"`
	Headers        map[string]string `json:"headers"`
	Body           any               `json:"body"` // parsed JSON, text, or base64 string for binary
	ResponseTimeMs int64             `json:"responseTimeMs"`
	Error          string            `json:"error,omitempty"`
}

// RunResult records the outcome of one item in a collection run.
type RunResult struct {
	RequestID      string `json:"requestId"`
	RequestName    string `json:"requestName,omitempty"`
	Success        bool   `json:"success"`
	Status         int    `json:"status,omitempty"`
	ResponseTimeMs int64  `json:"responseTimeMs,omitempty"`
	Error          string `json:"error,omitempty"`
}

// RunSummary aggregates a collection run. Passed requires success and a
// status below 400; everything else counts as failed.
type RunSummary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// RunReport is the full product of a collection run.
type RunReport struct {
	Results []RunResult `json:"results"`
	Summary RunSummary  `json:"summary"`
}

// HistoryEntry is the write-once record persisted after each dispatch.
// Body and QueryParams hold the pre-resolution request fields so a saved
// entry can be reopened for editing; URL is the final resolved URL.
type HistoryEntry struct {
	ID             int64             `json:"id,omitempty"`
	Timestamp      string            `json:"timestamp"`
	RequestID      string            `json:"requestId,omitempty"`
	CollectionID   string            `json:"collectionId,omitempty"`
	RequestName    string            `json:"requestName,omitempty"`
	Method         string            `json:"method"`
	URL            string            `json:"url"`
	Headers        map[string]string `json:"headers"`
	Body           string            `json:"body,omitempty"`
	QueryParams    []QueryParam      `json:"queryParams,omitempty"`
	ResponseStatus int               `json:"responseStatus"`
	ResponseText   string            `json:"responseStatusText"`
	ResponseHeader map[string]string `json:"responseHeaders"`
	ResponseBody   string            `json:"responseBody"`
	ResponseTimeMs int64             `json:"responseTimeMs"`
	Error          string            `json:"error,omitempty"`
}

// Environment is a named variable set. Global environments live at the
// workspace level; collections carry their own sub-environments.
type Environment struct {
	ID        string            `json:"id" yaml:"id"`
	Name      string            `json:"name,omitempty" yaml:"name,omitempty"`
	Variables map[string]string `json:"variables" yaml:"variables"`
}

// Collection groups an ordered request set with its sub-environments.
type Collection struct {
	ID                string              `json:"id" yaml:"id"`
	Name              string              `json:"name,omitempty" yaml:"name,omitempty"`
	ActiveEnvironment string              `json:"activeEnvironment,omitempty" yaml:"activeEnvironment,omitempty"`
	Environments      []Environment       `json:"environments,omitempty" yaml:"environments,omitempty"`
	Requests          []RequestDescriptor `json:"requests,omitempty" yaml:"requests,omitempty"`
}
