// internal/model/tenant.go
package model

// Tenant is an isolated customer account. All partition state is keyed by its ID.
type Tenant struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Plan     string          `json:"plan"`
	Status   string          `json:"status"`
	MaxUnits int             `json:"maxUnits"`
	Features map[string]bool `json:"features"`
}

// TenantUpdate carries the mutable tenant fields. Nil fields are left untouched,
// Features is merged key by key.
type TenantUpdate struct {
	Plan     *string         `json:"plan,omitempty"`
	MaxUnits *int            `json:"maxUnits,omitempty"`
	Features map[string]bool `json:"features,omitempty"`
}

type StaffMember struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Avatar      string `json:"avatar"`
	Status      string `json:"status"`
	UnreadCount int    `json:"unreadCount"`
	Online      bool   `json:"online"`
	LastActive  string `json:"lastActive"`
}

// Directory holds the state that is not partitioned by tenant.
type Directory struct {
	Tenants []Tenant      `json:"tenants"`
	Staff   []StaffMember `json:"staff"`
}

// State is the whole persisted document.
type State struct {
	Directory
	DataByTenant map[string]*TenantData `json:"dataByTenant"`
}
