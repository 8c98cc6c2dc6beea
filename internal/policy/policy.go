// Package policy holds the role and community gates for plot mutations.
// The rules live here, outside the lifecycle service, so they stay
// centralized and testable.
package policy

import "fieldplot/internal/platform/config"

// Role identifies the class of device or actor submitting a mutation.
type Role string

const (
	// RoleClient is a field data-collection device.
	RoleClient Role = "client"
	// RoleFieldSupervisor devices may additionally add plots in allow-listed
	// communities.
	RoleFieldSupervisor Role = "field_supervisor"
	// RoleCentralServer is the coordinating server; it seeds plots from the
	// sampling frame.
	RoleCentralServer Role = "central_server"
)

// RolePolicy answers permission questions keyed on role and community.
// Both the role gate and the community allow-list must pass for a manual
// add; the role gate is evaluated first.
type RolePolicy struct {
	mapAreas         map[string]string
	addPlotAreas     map[string]struct{}
	specialLocations map[string]struct{}
}

func New(survey config.SurveyConfig) *RolePolicy {
	p := &RolePolicy{
		mapAreas:         make(map[string]string, len(survey.MapAreas)),
		addPlotAreas:     make(map[string]struct{}, len(survey.AddPlotMapAreas)),
		specialLocations: make(map[string]struct{}, len(survey.SpecialLocations)),
	}
	for area, code := range survey.MapAreas {
		p.mapAreas[area] = code
	}
	for _, area := range survey.AddPlotMapAreas {
		p.addPlotAreas[area] = struct{}{}
	}
	for _, name := range survey.SpecialLocations {
		p.specialLocations[name] = struct{}{}
	}
	return p
}

// ValidArea reports whether the community is in the configured registry.
func (p *RolePolicy) ValidArea(mapArea string) bool {
	_, ok := p.mapAreas[mapArea]
	return ok
}

// MapCode returns the identifier map code for a community.
func (p *RolePolicy) MapCode(mapArea string) (string, bool) {
	code, ok := p.mapAreas[mapArea]
	return code, ok
}

// MayAdd reports whether the role may create a plot in the community.
// The central server may always add; field devices only in allow-listed
// communities.
func (p *RolePolicy) MayAdd(role Role, mapArea string) bool {
	switch role {
	case RoleCentralServer:
		return true
	case RoleClient, RoleFieldSupervisor:
		_, ok := p.addPlotAreas[mapArea]
		return ok
	default:
		return false
	}
}

// MayChange reports whether the role may edit persisted plots.
func (p *RolePolicy) MayChange(role Role) bool {
	switch role {
	case RoleClient, RoleFieldSupervisor, RoleCentralServer:
		return true
	default:
		return false
	}
}

// MayAllocateIdentifier reports whether the role may draw plot identifiers
// for the community. Identifier allocation follows the add gate.
func (p *RolePolicy) MayAllocateIdentifier(role Role, mapArea string) bool {
	return p.MayAdd(role, mapArea)
}

// SpecialLocation reports whether the location name is reserved (system
// plots such as the clinic plot, never user-editable).
func (p *RolePolicy) SpecialLocation(name string) bool {
	_, ok := p.specialLocations[name]
	return ok
}
