package channel

import (
	"fmt"
	"slices"

	ics "github.com/arran4/golang-ical"

	"hospitality-ops/internal/apperr"
	"hospitality-ops/internal/model"
)

const productID = "-//hospitality-ops//calendar export//EN"

// ExportCalendar renders the unit's non-cancelled bookings as an iCalendar
// feed. Guest details are not exported, every event reads "Reserved".
func (s *Service) ExportCalendar(tenantID, unitID string) ([]byte, error) {
	d := s.store.GetTenantData(tenantID)

	idx := slices.IndexFunc(d.Units(), func(gu model.GroupedUnit) bool { return gu.Unit.ID == unitID })
	if idx < 0 {
		return nil, apperr.NotFound("unit not found")
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)

	stamp := s.now().UTC()
	for _, b := range d.Bookings {
		if b.UnitID != unitID || !b.Active() {
			continue
		}
		ev := cal.AddEvent(fmt.Sprintf("%s@%s", b.ID, tenantID))
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(b.StartDate.UTC())
		ev.SetEndAt(b.EndDate.UTC())
		ev.SetSummary("Reserved")
	}

	return []byte(cal.Serialize()), nil
}
