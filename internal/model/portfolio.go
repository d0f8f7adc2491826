// internal/model/portfolio.go
package model

type Unit struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	InternalName      string  `json:"internalName"`
	OfficialAddress   string  `json:"officialAddress"`
	BasePrice         float64 `json:"basePrice"`
	CleaningFee       float64 `json:"cleaningFee"`
	Status            string  `json:"status"`
	AssignedCleanerID string  `json:"assignedCleanerId,omitempty"`
}

type UnitGroup struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Units []Unit `json:"units"`
}

type Transaction struct {
	ID          string  `json:"id"`
	Date        string  `json:"date"`
	Property    string  `json:"property"`
	Category    string  `json:"category"`
	SubCategory string  `json:"subCategory"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Type        string  `json:"type"`
}

type InventoryItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type InventoryCategory struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Items []InventoryItem `json:"items"`
}
