// internal/model/channel.go
package model

const (
	MappingActive   = "Active"
	MappingInactive = "Inactive"

	LastSyncNever = "Never"
)

type ChannelMapping struct {
	ID        string  `json:"id"`
	UnitID    string  `json:"unitId"`
	UnitName  string  `json:"unitName"`
	GroupName string  `json:"groupName"`
	AirbnbID  string  `json:"airbnbId"`
	BookingID string  `json:"bookingId"`
	Markup    float64 `json:"markup"`
	IsMapped  bool    `json:"isMapped"`
	Status    string  `json:"status"`
}

type IcalConnection struct {
	ID        string `json:"id"`
	UnitID    string `json:"unitId"`
	UnitName  string `json:"unitName"`
	ImportURL string `json:"importUrl"`
	ExportURL string `json:"exportUrl"`
	LastSync  string `json:"lastSync"`
}

// OTAConfig is the per-channel connection config. Only IsEnabled is common to
// every channel, the rest is provider specific.
type OTAConfig struct {
	IsEnabled bool              `json:"isEnabled"`
	Settings  map[string]string `json:"settings,omitempty"`
}
