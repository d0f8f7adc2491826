package store

import (
	"fmt"
	"time"

	"hospitality-ops/internal/model"
)

// DemoTenantID is the tenant whose partition doubles as the reset template.
const DemoTenantID = "t-demo"

// Seed builds the initial state installed when nothing has been persisted.
// Dates are relative to now so the demo always has past, current and future
// stays.
func Seed(now time.Time, baseURL string) *model.State {
	return &model.State{
		Directory: model.Directory{
			Tenants: []model.Tenant{{
				ID:       DemoTenantID,
				Name:     "Demo Hospitality Group",
				Plan:     "Pro",
				Status:   "Active",
				MaxUnits: 100,
				Features: map[string]bool{"staffBot": true, "multiCalendar": true, "reports": true},
			}},
			Staff: []model.StaffMember{
				{ID: "s1", TenantID: DemoTenantID, Name: "Alice Admin", Role: "Manager", Email: "alice@demo.com", Phone: "+1234567890", Avatar: "https://picsum.photos/seed/alice/100/100", Status: "Active", Online: true, LastActive: now.Format(time.RFC3339)},
				{ID: "s2", TenantID: DemoTenantID, Name: "Bob Cleaner", Role: "Cleaner", Email: "bob@demo.com", Phone: "+1987654321", Avatar: "https://picsum.photos/seed/bob/100/100", Status: "Active", LastActive: daysAgo(now, 1).Format(time.RFC3339)},
			},
		},
		DataByTenant: map[string]*model.TenantData{
			DemoTenantID: SeedTemplate(now, baseURL),
		},
	}
}

// SeedTemplate returns a fresh copy of the demo partition.
func SeedTemplate(now time.Time, baseURL string) *model.TenantData {
	exportURL := func(unitID string) string {
		return fmt.Sprintf("%s/cal/%s/%s.ics", baseURL, DemoTenantID, unitID)
	}

	d := model.NewTenantData()
	d.Portfolio = []model.UnitGroup{
		{ID: "g1", Name: "Downtown Collection", Units: []model.Unit{
			{ID: "u1", Name: "Loft 101", InternalName: "Loft 101", OfficialAddress: "123 Main St", BasePrice: 150, CleaningFee: 50, Status: "Active", AssignedCleanerID: "s2"},
			{ID: "u2", Name: "Loft 102", InternalName: "Loft 102", OfficialAddress: "123 Main St", BasePrice: 160, CleaningFee: 50, Status: "Active"},
			{ID: "u3", Name: "Penthouse", InternalName: "PH", OfficialAddress: "123 Main St", BasePrice: 350, CleaningFee: 100, Status: "Active"},
		}},
		{ID: "g2", Name: "Seaside Villas", Units: []model.Unit{
			{ID: "u4", Name: "Villa A", InternalName: "Villa A", OfficialAddress: "Ocean Dr", BasePrice: 500, CleaningFee: 150, Status: "Active"},
		}},
	}
	d.Clients = []model.Client{
		{
			PhoneNumber: "+1555010101", Name: "John Doe", Email: "john@test.com", Address: "NY", Country: "USA",
			Avatar: "https://picsum.photos/seed/john/100/100", Platform: model.PlatformWhatsApp, Status: "Replied",
			LastActive: now, CreatedAt: daysAgo(now, 30), Online: true, PreviousBookings: 2,
			Messages: []model.Message{{ID: "m1", Text: "Hi there!", Sender: model.SenderClient, Timestamp: now, Platform: model.PlatformWhatsApp}},
		},
		{
			PhoneNumber: "+1555020202", Name: "Jane Smith", Email: "jane@test.com", Address: "London", Country: "UK",
			Avatar: "https://picsum.photos/seed/jane/100/100", Platform: model.PlatformTelegram, Status: model.ClientStatusNew,
			LastActive: daysAgo(now, 2), CreatedAt: daysAgo(now, 5), UnreadCount: 1,
			Messages: []model.Message{{ID: "m2", Text: "Is the pool open?", Sender: model.SenderClient, Timestamp: daysAgo(now, 2), Platform: model.PlatformTelegram}},
		},
	}
	d.Bookings = []model.Booking{
		{ID: "b1", UnitID: "u1", GuestName: "John Doe", GuestPhone: "+1555010101", StartDate: daysAgo(now, 10), EndDate: daysAgo(now, 7), Source: "airbnb", Status: model.BookingConfirmed, Price: 450, CreatedAt: daysAgo(now, 30), AssignedCleanerID: "s2"},
		{ID: "b2", UnitID: "u2", GuestName: "Current Guest", StartDate: daysAgo(now, 1), EndDate: daysAgo(now, -2), Source: "booking", Status: model.BookingConfirmed, Price: 480, CreatedAt: daysAgo(now, 5)},
		{ID: "b3", UnitID: "u3", GuestName: "Future VIP", StartDate: daysAgo(now, -5), EndDate: daysAgo(now, -10), Source: model.SourceDirect, Status: model.BookingConfirmed, Price: 1750, CreatedAt: daysAgo(now, 2)},
	}
	d.Transactions = []model.Transaction{
		{ID: "tx1", Date: daysAgo(now, 2).Format(time.DateOnly), Property: "Loft 101", Category: "Rent_Income", SubCategory: "Short Term", Description: "Airbnb Payout", Amount: 450, Currency: "USD", Type: "income"},
		{ID: "tx2", Date: daysAgo(now, 1).Format(time.DateOnly), Property: "Loft 101", Category: "Cleaning", SubCategory: "Cleaning Service", Description: "Cleaning", Amount: 50, Currency: "USD", Type: "expense"},
	}
	d.Inventory = []model.InventoryCategory{
		{ID: "ic1", Name: "Toiletries", Items: []model.InventoryItem{{ID: "i1", Name: "Shampoo (50ml)", Quantity: 45}, {ID: "i2", Name: "Soap Bar", Quantity: 30}}},
		{ID: "ic2", Name: "Linens", Items: []model.InventoryItem{{ID: "i3", Name: "Towel (Bath)", Quantity: 20}, {ID: "i4", Name: "Duvet Cover", Quantity: 10}}},
		{ID: "ic3", Name: "Kitchen", Items: []model.InventoryItem{{ID: "i5", Name: "Coffee Pods", Quantity: 100}, {ID: "i6", Name: "Tea Bags", Quantity: 50}}},
	}
	d.ChannelMappings = []model.ChannelMapping{
		{ID: "cm1", UnitID: "u1", UnitName: "Loft 101", GroupName: "Downtown Collection", AirbnbID: "18239012", BookingID: "98321_01", Markup: 15, IsMapped: true, Status: model.MappingActive},
		{ID: "cm2", UnitID: "u2", UnitName: "Loft 102", GroupName: "Downtown Collection", BookingID: "98321_02", Status: model.MappingInactive},
		{ID: "cm3", UnitID: "u3", UnitName: "Penthouse", GroupName: "Downtown Collection", Status: model.MappingInactive},
		{ID: "cm4", UnitID: "u4", UnitName: "Villa A", GroupName: "Seaside Villas", Status: model.MappingInactive},
	}
	d.IcalConnections = []model.IcalConnection{
		{ID: "ical1", UnitID: "u3", UnitName: "Penthouse", ImportURL: "https://airbnb.com/calendar/ical/...", ExportURL: exportURL("u3"), LastSync: "10 mins ago"},
		{ID: "ical2", UnitID: "u1", UnitName: "Loft 101", ExportURL: exportURL("u1"), LastSync: model.LastSyncNever},
		{ID: "ical3", UnitID: "u2", UnitName: "Loft 102", ExportURL: exportURL("u2"), LastSync: model.LastSyncNever},
		{ID: "ical4", UnitID: "u4", UnitName: "Villa A", ExportURL: exportURL("u4"), LastSync: model.LastSyncNever},
	}
	d.OTAConfigs = map[string]model.OTAConfig{
		"airbnb":  {IsEnabled: true, Settings: map[string]string{"clientId": "ab_12345", "clientSecret": "******"}},
		"booking": {IsEnabled: true, Settings: map[string]string{"hotelId": "987654", "username": "xml_user"}},
		"expedia": {IsEnabled: false},
	}
	d.AppSettings = model.AppSettings{
		WaStatus:       "connected",
		TgBotToken:     "123:ABC...",
		TgAdminGroupID: "-100123",
		AIAPIKey:       "AIza...",
		AISystemPrompt: "You are an elite concierge.",
		RAGSensitivity: 0.8,
	}
	return d
}

func daysAgo(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, -days)
}
