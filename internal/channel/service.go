// Package channel keeps the per-unit OTA mappings and iCal connections of a
// tenant in step with its portfolio, and renders the iCal export feeds.
package channel

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"hospitality-ops/internal/apperr"
	"hospitality-ops/internal/model"
	"hospitality-ops/internal/tracing"
)

// TenantStore is the part of the tenant store the service needs.
type TenantStore interface {
	GetTenantData(tenantID string) *model.TenantData
	Update(ctx context.Context, tenantID string, fn func(d *model.TenantData) error) (*model.TenantData, error)
}

// PortfolioSource supplies the unit hierarchy a sync runs against. Without
// one the tenant partition's own portfolio is used.
type PortfolioSource interface {
	Portfolio(ctx context.Context, tenantID string) ([]model.UnitGroup, error)
}

type SyncResult struct {
	ChannelMappings []model.ChannelMapping `json:"channelMappings"`
	IcalConnections []model.IcalConnection `json:"icalConnections"`
}

type Service struct {
	store     TenantStore
	portfolio PortfolioSource
	baseURL   string
	log       *zap.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithPortfolioSource(src PortfolioSource) Option {
	return func(s *Service) { s.portfolio = src }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store TenantStore, publicBaseURL string, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:   store,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		log:     log.With(zap.String("component", "channel")),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExportURL is the public address of a unit's iCal feed.
func (s *Service) ExportURL(tenantID, unitID string) string {
	return fmt.Sprintf("%s/cal/%s/%s.ics", s.baseURL, tenantID, unitID)
}

// Sync rebuilds the mapping and iCal sets from the portfolio: one record per
// unit, existing records keep their configuration, records of removed units
// are dropped. Running it twice yields the same sets.
func (s *Service) Sync(ctx context.Context, tenantID string) (res SyncResult, err error) {
	ctx, end := tracing.Start(ctx, "channel.sync", tenantID)
	defer func() { end(err) }()

	var external []model.GroupedUnit
	if s.portfolio != nil {
		groups, err := s.portfolio.Portfolio(ctx, tenantID)
		if err != nil {
			return SyncResult{}, fmt.Errorf("load portfolio: %w", err)
		}
		external = (&model.TenantData{Portfolio: groups}).Units()
	}

	_, err = s.store.Update(ctx, tenantID, func(d *model.TenantData) error {
		units := external
		if s.portfolio == nil {
			units = d.Units()
		}
		d.ChannelMappings, d.IcalConnections = s.reconcile(tenantID, units, d.ChannelMappings, d.IcalConnections)
		res = SyncResult{ChannelMappings: d.ChannelMappings, IcalConnections: d.IcalConnections}
		return nil
	})
	if err != nil {
		return SyncResult{}, err
	}

	s.log.Info("Channels synced",
		zap.String("tenant", tenantID),
		zap.Int("mappings", len(res.ChannelMappings)),
		zap.Int("icals", len(res.IcalConnections)))
	return res, nil
}

func (s *Service) reconcile(tenantID string, units []model.GroupedUnit, mappings []model.ChannelMapping, icals []model.IcalConnection) ([]model.ChannelMapping, []model.IcalConnection) {
	outMappings := make([]model.ChannelMapping, 0, len(units))
	outIcals := make([]model.IcalConnection, 0, len(units))

	for _, gu := range units {
		u := gu.Unit

		if i := slices.IndexFunc(mappings, func(m model.ChannelMapping) bool { return m.UnitID == u.ID }); i >= 0 {
			m := mappings[i]
			m.UnitName = u.Name
			m.GroupName = gu.GroupName
			outMappings = append(outMappings, m)
		} else {
			outMappings = append(outMappings, model.ChannelMapping{
				ID:        "cm-" + u.ID,
				UnitID:    u.ID,
				UnitName:  u.Name,
				GroupName: gu.GroupName,
				Status:    model.MappingInactive,
			})
		}

		if i := slices.IndexFunc(icals, func(c model.IcalConnection) bool { return c.UnitID == u.ID }); i >= 0 {
			c := icals[i]
			c.UnitName = u.Name
			outIcals = append(outIcals, c)
		} else {
			outIcals = append(outIcals, model.IcalConnection{
				ID:        "ical-" + u.ID,
				UnitID:    u.ID,
				UnitName:  u.Name,
				ExportURL: s.ExportURL(tenantID, u.ID),
				LastSync:  model.LastSyncNever,
			})
		}
	}
	return outMappings, outIcals
}

func (s *Service) Mappings(tenantID string) []model.ChannelMapping {
	return s.store.GetTenantData(tenantID).ChannelMappings
}

// ReplaceMappings overwrites the tenant's mapping set.
func (s *Service) ReplaceMappings(ctx context.Context, tenantID string, mappings []model.ChannelMapping) ([]model.ChannelMapping, error) {
	if mappings == nil {
		return nil, apperr.InvalidInput("mappings must be an array")
	}
	for _, m := range mappings {
		if m.UnitID == "" {
			return nil, apperr.InvalidInput("every mapping needs a unitId")
		}
	}
	d, err := s.store.Update(ctx, tenantID, func(d *model.TenantData) error {
		d.ChannelMappings = slices.Clone(mappings)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d.ChannelMappings, nil
}

func (s *Service) IcalConnections(tenantID string) []model.IcalConnection {
	return s.store.GetTenantData(tenantID).IcalConnections
}

// ReplaceIcal overwrites the tenant's iCal connection set.
func (s *Service) ReplaceIcal(ctx context.Context, tenantID string, icals []model.IcalConnection) ([]model.IcalConnection, error) {
	if icals == nil {
		return nil, apperr.InvalidInput("icals must be an array")
	}
	for _, c := range icals {
		if c.UnitID == "" {
			return nil, apperr.InvalidInput("every ical connection needs a unitId")
		}
	}
	d, err := s.store.Update(ctx, tenantID, func(d *model.TenantData) error {
		d.IcalConnections = slices.Clone(icals)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d.IcalConnections, nil
}

func (s *Service) OTAConfigs(tenantID string) map[string]model.OTAConfig {
	return s.store.GetTenantData(tenantID).OTAConfigs
}

// MergeOTA replaces the configs of the channels present in cfg and keeps the
// others.
func (s *Service) MergeOTA(ctx context.Context, tenantID string, cfg map[string]model.OTAConfig) (map[string]model.OTAConfig, error) {
	if cfg == nil {
		return nil, apperr.InvalidInput("otaConfigs must be an object")
	}
	d, err := s.store.Update(ctx, tenantID, func(d *model.TenantData) error {
		if d.OTAConfigs == nil {
			d.OTAConfigs = make(map[string]model.OTAConfig, len(cfg))
		}
		for name, c := range cfg {
			d.OTAConfigs[name] = c
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d.OTAConfigs, nil
}

// RemoveUnit drops a unit from the portfolio together with its mapping and
// iCal connection.
func (s *Service) RemoveUnit(ctx context.Context, tenantID, unitID string) error {
	_, err := s.store.Update(ctx, tenantID, func(d *model.TenantData) error {
		found := false
		for i := range d.Portfolio {
			n := len(d.Portfolio[i].Units)
			d.Portfolio[i].Units = slices.DeleteFunc(d.Portfolio[i].Units, func(u model.Unit) bool { return u.ID == unitID })
			found = found || len(d.Portfolio[i].Units) != n
		}
		if !found {
			return apperr.NotFound("unit not found")
		}
		d.ChannelMappings = slices.DeleteFunc(d.ChannelMappings, func(m model.ChannelMapping) bool { return m.UnitID == unitID })
		d.IcalConnections = slices.DeleteFunc(d.IcalConnections, func(c model.IcalConnection) bool { return c.UnitID == unitID })
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("Unit removed", zap.String("tenant", tenantID), zap.String("unit", unitID))
	return nil
}
