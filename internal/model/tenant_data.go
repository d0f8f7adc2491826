// internal/model/tenant_data.go
package model

import (
	"maps"
	"slices"
)

// AppSettings are the per-tenant integration settings. TgLastUpdateID is the
// inbound poll cursor and is only advanced by the message synchronizer.
type AppSettings struct {
	WaStatus       string  `json:"waStatus"`
	AutoDraft      bool    `json:"autoDraft"`
	TgBotToken     string  `json:"tgBotToken"`
	TgAdminGroupID string  `json:"tgAdminGroupId"`
	TgLastUpdateID int64   `json:"tgLastUpdateId"`
	AIAPIKey       string  `json:"aiApiKey"`
	AISystemPrompt string  `json:"aiSystemPrompt"`
	RAGSensitivity float64 `json:"ragSensitivity"`
}

// TenantData is one tenant's partition.
type TenantData struct {
	Portfolio       []UnitGroup          `json:"portfolio"`
	Bookings        []Booking            `json:"bookings"`
	Clients         []Client             `json:"clients"`
	Transactions    []Transaction        `json:"transactions"`
	Inventory       []InventoryCategory  `json:"inventory"`
	ChannelMappings []ChannelMapping     `json:"channelMappings"`
	IcalConnections []IcalConnection     `json:"icalConnections"`
	OTAConfigs      map[string]OTAConfig `json:"otaConfigs"`
	AppSettings     AppSettings          `json:"appSettings"`
}

// NewTenantData returns the empty partition a tenant gets on first access.
func NewTenantData() *TenantData {
	return &TenantData{
		Portfolio:       []UnitGroup{},
		Bookings:        []Booking{},
		Clients:         []Client{},
		Transactions:    []Transaction{},
		Inventory:       []InventoryCategory{},
		ChannelMappings: []ChannelMapping{},
		IcalConnections: []IcalConnection{},
		OTAConfigs: map[string]OTAConfig{
			"airbnb":  {IsEnabled: false},
			"booking": {IsEnabled: false},
			"expedia": {IsEnabled: false},
		},
		AppSettings: AppSettings{
			WaStatus:       "disconnected",
			AutoDraft:      true,
			AISystemPrompt: "You are a helpful property manager.",
			RAGSensitivity: 0.7,
		},
	}
}

// Clear empties every list while keeping settings and channel config.
func (d *TenantData) Clear() {
	d.Portfolio = []UnitGroup{}
	d.Bookings = []Booking{}
	d.Clients = []Client{}
	d.Transactions = []Transaction{}
	d.Inventory = []InventoryCategory{}
	d.ChannelMappings = []ChannelMapping{}
	d.IcalConnections = []IcalConnection{}
}

// Clone returns a deep copy of d.
func (d *TenantData) Clone() *TenantData {
	if d == nil {
		return nil
	}

	out := &TenantData{
		Bookings:        slices.Clone(d.Bookings),
		Transactions:    slices.Clone(d.Transactions),
		ChannelMappings: slices.Clone(d.ChannelMappings),
		IcalConnections: slices.Clone(d.IcalConnections),
		AppSettings:     d.AppSettings,
	}

	out.Portfolio = make([]UnitGroup, len(d.Portfolio))
	for i, g := range d.Portfolio {
		g.Units = slices.Clone(g.Units)
		out.Portfolio[i] = g
	}

	out.Clients = make([]Client, len(d.Clients))
	for i, c := range d.Clients {
		msgs := make([]Message, len(c.Messages))
		for j, m := range c.Messages {
			if m.Attachment != nil {
				a := *m.Attachment
				m.Attachment = &a
			}
			msgs[j] = m
		}
		c.Messages = msgs
		out.Clients[i] = c
	}

	out.Inventory = make([]InventoryCategory, len(d.Inventory))
	for i, c := range d.Inventory {
		c.Items = slices.Clone(c.Items)
		out.Inventory[i] = c
	}

	out.OTAConfigs = make(map[string]OTAConfig, len(d.OTAConfigs))
	for k, v := range d.OTAConfigs {
		v.Settings = maps.Clone(v.Settings)
		out.OTAConfigs[k] = v
	}

	return out
}

// Units flattens the portfolio into units paired with their group name, in
// portfolio order.
func (d *TenantData) Units() []GroupedUnit {
	var out []GroupedUnit
	for _, g := range d.Portfolio {
		for _, u := range g.Units {
			out = append(out, GroupedUnit{Unit: u, GroupName: g.Name})
		}
	}
	return out
}

type GroupedUnit struct {
	Unit      Unit
	GroupName string
}

// FindClient returns the index of the client matching pred, or -1.
func (d *TenantData) FindClient(pred func(c *Client) bool) int {
	for i := range d.Clients {
		if pred(&d.Clients[i]) {
			return i
		}
	}
	return -1
}
