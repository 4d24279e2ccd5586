package pricing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/diamondsistem/offerpricing/internal/schedule"
)

type Reason string

const (
	ReasonSatisfiedByPackage     Reason = "already satisfied by package"
	ReasonConflictsWithSelection Reason = "conflicts with current selection"
	ReasonExceedsNeededHours     Reason = "exceeds needed extra hours"
	ReasonCurfew                 Reason = "violates curfew"
	ReasonDayUnavailable         Reason = "package not available on that day"
)

// ExclusionGraph is a symmetric adjacency map of service IDs that cannot coexist.
type ExclusionGraph struct {
	adjacent map[string]map[string]struct{}
}

func NewExclusionGraph() ExclusionGraph {
	return ExclusionGraph{adjacent: make(map[string]map[string]struct{})}
}

// Link records that a and b exclude each other.
func (g ExclusionGraph) Link(a, b string) {
	if a == b {
		return
	}
	g.add(a, b)
	g.add(b, a)
}

func (g ExclusionGraph) add(from, to string) {
	set, ok := g.adjacent[from]
	if !ok {
		set = make(map[string]struct{})
		g.adjacent[from] = set
	}
	set[to] = struct{}{}
}

func (g ExclusionGraph) Excludes(a, b string) bool {
	_, ok := g.adjacent[a][b]
	return ok
}

// Excluded lists the IDs excluded by id in sorted order.
func (g ExclusionGraph) Excluded(id string) []string {
	out := make([]string, 0, len(g.adjacent[id]))
	for other := range g.adjacent[id] {
		out = append(out, other)
	}
	sort.Strings(out)
	return out
}

// BuildExclusionGraph re-keys name-based exclusion rules to service IDs. Every name
// must match at least one service so that a rename fails loudly instead of silently
// dropping the rule.
func BuildExclusionGraph(rules map[string][]string, services []Service) (ExclusionGraph, error) {
	byName := make(map[string][]string, len(services))
	for _, s := range services {
		key := normalizeServiceName(s.Name)
		byName[key] = append(byName[key], s.ID)
	}

	lookup := func(name string) ([]string, error) {
		ids, ok := byName[normalizeServiceName(name)]
		if !ok {
			return nil, fmt.Errorf("exclusion rule references unknown service %q", name)
		}
		return ids, nil
	}

	graph := NewExclusionGraph()
	for name, excluded := range rules {
		from, err := lookup(name)
		if err != nil {
			return ExclusionGraph{}, err
		}
		for _, otherName := range excluded {
			to, err := lookup(otherName)
			if err != nil {
				return ExclusionGraph{}, err
			}
			for _, a := range from {
				for _, b := range to {
					graph.Link(a, b)
				}
			}
		}
	}
	return graph, nil
}

func normalizeServiceName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

type ServiceRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ExtraHourCheck struct {
	Requested   int    `json:"requested"`
	Needed      int    `json:"needed"`
	MaxByCurfew int    `json:"max_by_curfew"`
	EventEnd    string `json:"event_end"`
	Curfew      string `json:"curfew"`
}

// Decision is the structured outcome of a compatibility check.
type Decision struct {
	Allowed     bool            `json:"allowed"`
	Reason      Reason          `json:"reason,omitempty"`
	Violations  []Reason        `json:"violations,omitempty"`
	ServiceID   string          `json:"service_id"`
	ServiceName string          `json:"service_name"`
	Conflict    *ServiceRef     `json:"conflict,omitempty"`
	ExtraHours  *ExtraHourCheck `json:"extra_hours,omitempty"`
	Detail      string          `json:"detail,omitempty"`
}

func (d *Decision) violate(reason Reason) {
	if d.Reason == "" {
		d.Reason = reason
	}
	d.Violations = append(d.Violations, reason)
	d.Allowed = false
}

// Message renders a user-facing explanation.
func (d Decision) Message() string {
	if d.Allowed {
		return fmt.Sprintf("%q can be added", d.ServiceName)
	}
	switch d.Reason {
	case ReasonSatisfiedByPackage:
		return fmt.Sprintf("%q is %s: bundled %q excludes it", d.ServiceName, d.Reason, conflictName(d))
	case ReasonConflictsWithSelection:
		return fmt.Sprintf("%q %s: %q", d.ServiceName, d.Reason, conflictName(d))
	case ReasonExceedsNeededHours:
		if d.ExtraHours != nil {
			return fmt.Sprintf("%d extra hour(s) requested but the event schedule only needs %d", d.ExtraHours.Requested, d.ExtraHours.Needed)
		}
	case ReasonCurfew:
		if d.ExtraHours != nil {
			return fmt.Sprintf("%d extra hour(s) would end the event at %s, after the %s curfew", d.ExtraHours.Requested, d.ExtraHours.EventEnd, d.ExtraHours.Curfew)
		}
	case ReasonDayUnavailable:
		if d.Detail != "" {
			return fmt.Sprintf("%s: %s", d.Reason, d.Detail)
		}
	}
	return fmt.Sprintf("%q rejected: %s", d.ServiceName, d.Reason)
}

func conflictName(d Decision) string {
	if d.Conflict == nil {
		return ""
	}
	return d.Conflict.Name
}

// Timing is the event window together with the hours the package already covers.
type Timing struct {
	Window   schedule.Window
	Included time.Duration
}

func (t Timing) Duration() time.Duration {
	return t.Window.Duration()
}

// NeededExtraHours is max(0, ceil(duration - included)).
func (t Timing) NeededExtraHours() int {
	return schedule.CeilHours(t.Duration() - t.Included)
}

// EndWithExtraHours is start + included + n hours, measured from midnight of the start day.
func (t Timing) EndWithExtraHours(n int) time.Duration {
	return t.Window.OffsetAfter(t.Included + time.Duration(n)*time.Hour)
}

type CompatibilityValidator struct {
	exclusions  ExclusionGraph
	extraHourID string
	curfew      schedule.Curfew
}

func NewCompatibilityValidator(exclusions ExclusionGraph, extraHourID string, curfew schedule.Curfew) *CompatibilityValidator {
	if exclusions.adjacent == nil {
		exclusions = NewExclusionGraph()
	}
	return &CompatibilityValidator{
		exclusions:  exclusions,
		extraHourID: extraHourID,
		curfew:      curfew,
	}
}

func (v *CompatibilityValidator) IsExtraHour(s Service) bool {
	return v.extraHourID != "" && s.ID == v.extraHourID
}

func (v *CompatibilityValidator) Curfew() schedule.Curfew {
	return v.curfew
}

// CanAdd checks a candidate against the package's bundled services and the current add-ons.
func (v *CompatibilityValidator) CanAdd(candidate Service, bundled []Service, current []Selection) Decision {
	d := Decision{Allowed: true, ServiceID: candidate.ID, ServiceName: candidate.Name}

	for _, b := range bundled {
		if v.exclusions.Excludes(candidate.ID, b.ID) {
			d.violate(ReasonSatisfiedByPackage)
			d.Conflict = &ServiceRef{ID: b.ID, Name: b.Name}
			return d
		}
	}

	for _, sel := range current {
		if sel.Service.ID == candidate.ID {
			continue
		}
		if v.exclusions.Excludes(candidate.ID, sel.Service.ID) {
			d.violate(ReasonConflictsWithSelection)
			d.Conflict = &ServiceRef{ID: sel.Service.ID, Name: sel.Service.Name}
			return d
		}
	}

	return d
}

// MaxExtraHoursByCurfew is the largest n whose resulting end instant stays within the curfew.
func (v *CompatibilityValidator) MaxExtraHoursByCurfew(t Timing) int {
	return v.curfew.WholeHoursUntil(t.EndWithExtraHours(0))
}

// CanSetExtraHours checks an extra-hour quantity against both the schedule's need and the
// curfew. Both limits are evaluated; the need check is reported first.
func (v *CompatibilityValidator) CanSetExtraHours(t Timing, n int) Decision {
	end := t.EndWithExtraHours(n)
	d := Decision{
		Allowed: true,
		ExtraHours: &ExtraHourCheck{
			Requested:   n,
			Needed:      t.NeededExtraHours(),
			MaxByCurfew: v.MaxExtraHoursByCurfew(t),
			EventEnd:    schedule.FormatOffset(end),
			Curfew:      v.curfew.String(),
		},
	}
	if n <= 0 {
		return d
	}
	if n > d.ExtraHours.Needed {
		d.violate(ReasonExceedsNeededHours)
	}
	if v.curfew.Exceeded(end) {
		d.violate(ReasonCurfew)
	}
	return d
}

// CanIncrement checks adding one more unit of candidate to the current selection.
func (v *CompatibilityValidator) CanIncrement(candidate Service, bundled []Service, current []Selection, t Timing) Decision {
	d := v.CanAdd(candidate, bundled, current)
	if !d.Allowed || !v.IsExtraHour(candidate) {
		return d
	}

	n := 1
	for _, sel := range current {
		if sel.Service.ID == candidate.ID {
			n += sel.Quantity
		}
	}

	hours := v.CanSetExtraHours(t, n)
	hours.ServiceID = candidate.ID
	hours.ServiceName = candidate.Name
	return hours
}
