package model

const (
	RecordTypeCname = "CNAME"

	// EdgeCacheTTLSeconds is the edge TTL put on every cache rule (about one month).
	EdgeCacheTTLSeconds = 2629746

	// AutomaticTTL asks the provider to pick the TTL of a proxied record.
	AutomaticTTL = 1

	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// BusinessRecord is one business row as read from a record store. ID is owned by the store.
type BusinessRecord struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"business_name"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	MapsURL     string `json:"maps_url"`
	Subdomain   string `json:"subdomain,omitempty"`
	Provisioned bool   `json:"subdomain_created"`
}

// Public strips the record down to the fields that may leave the service.
func (b BusinessRecord) Public() LookupResponse {
	return LookupResponse{
		BusinessName: b.Name,
		Address:      b.Address,
		Phone:        b.Phone,
		MapsURL:      b.MapsURL,
	}
}

type DNSRecord struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	Proxied bool   `json:"proxied"`
	TTL     int    `json:"ttl"`
}

// CacheRule is a cache-everything rule matching Target.
type CacheRule struct {
	ID         string `json:"id,omitempty"`
	Target     string `json:"target"`
	TTLSeconds int    `json:"ttl_seconds"`
	Priority   int    `json:"priority"`
	Active     bool   `json:"active"`
}

type LookupResponse struct {
	BusinessName string `json:"business_name"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
	MapsURL      string `json:"maps_url"`
}

type ProvisionResult struct {
	Business   string `json:"business"`
	Subdomain  string `json:"subdomain"`
	Status     string `json:"status"`
	DNSID      string `json:"dns_id,omitempty"`
	PageRuleID string `json:"page_rule_id,omitempty"`
}

type ProvisionFailure struct {
	RecordID string `json:"record_id"`
	Business string `json:"business"`
	Error    string `json:"error"`
	Status   string `json:"status"`
}

// RunSummary is the document returned by one provisioning run.
type RunSummary struct {
	RunID        string             `json:"run_id"`
	Message      string             `json:"message"`
	RecordsFound int                `json:"records_found"`
	Successful   int                `json:"successful"`
	Failed       int                `json:"failed"`
	Results      []ProvisionResult  `json:"results"`
	Errors       []ProvisionFailure `json:"errors"`
}

type ErrorResponse struct {
	Status  int         `json:"status,omitempty"`
	Message string      `json:"msg,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ProvisionErrorResponse is returned when a provisioning run could not start or aborted.
type ProvisionErrorResponse struct {
	Error     string          `json:"error"`
	Details   string          `json:"details"`
	Stack     string          `json:"stack,omitempty"`
	EnvStatus map[string]bool `json:"env_status,omitempty"`
}

type NotFoundResponse struct {
	Error        string `json:"error"`
	QueriedValue string `json:"queriedValue,omitempty"`
}
