package entities

import "time"

// SecurityEventType names an auditable security event
type SecurityEventType string

const (
	SecurityEventLoginFailed           SecurityEventType = "login_failed"
	SecurityEventLoginSucceeded        SecurityEventType = "login_succeeded"
	SecurityEventPortalLoginFailed     SecurityEventType = "portal_login_failed"
	SecurityEventPortalLoginSucceeded  SecurityEventType = "portal_login_succeeded"
	SecurityEventRateLimited           SecurityEventType = "rate_limited"
	SecurityEventRateLimitBackendError SecurityEventType = "rate_limit_backend_error"
	SecurityEventPasswordChanged       SecurityEventType = "password_changed"
)

// Severity grades a security event
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// SecurityEvent is a row of security_events
type SecurityEvent struct {
	ID        string                 `json:"id" db:"id"`
	EventType SecurityEventType      `json:"event_type" db:"event_type"`
	Severity  Severity               `json:"severity" db:"severity"`
	Subject   string                 `json:"subject" db:"subject"`
	IPAddress string                 `json:"ip_address" db:"ip_address"`
	Details   map[string]interface{} `json:"details,omitempty" db:"details"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}
