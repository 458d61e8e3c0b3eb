package entities

// SyncStrategy names a rule for matching a lead to an appointment
type SyncStrategy string

const (
	SyncByCRMID     SyncStrategy = "crm_id"
	SyncByExactName SyncStrategy = "exact_name"
	SyncByNameCI    SyncStrategy = "name_ci"
	SyncByPhone     SyncStrategy = "phone"
)

// SyncStrategies is the order strategies run in, most precise first
var SyncStrategies = []SyncStrategy{SyncByCRMID, SyncByExactName, SyncByNameCI, SyncByPhone}

// SyncStrategyResult reports how many appointments one strategy filled
type SyncStrategyResult struct {
	Strategy SyncStrategy `json:"strategy"`
	Updated  int64        `json:"updated"`
}

// SyncReport is the outcome of an intake sync run
type SyncReport struct {
	Project    string               `json:"project,omitempty"`
	Strategies []SyncStrategyResult `json:"strategies"`
	Total      int64                `json:"total"`
}
