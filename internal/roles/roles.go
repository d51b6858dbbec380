// Package roles declares the fixed set of job roles, the permissions each
// role grants and the dashboard each role lands on.
//
// The permission table is built once when the package is initialized and is
// never mutated afterwards; every accessor hands out copies.
package roles

import (
	"fmt"
	"maps"
	"slices"

	"github.com/diewo77/sgm/internal/gate"
)

// Role is a user's job function.
type Role string

const (
	Admin           Role = "admin"
	AgentMinier     Role = "agent_minier"
	ResponsableSite Role = "responsable_site"
	Chauffeur       Role = "chauffeur"
	Douane          Role = "douane"
	Environnement   Role = "environnement"
	Lecteur         Role = "lecteur"
)

// Default is the role given to self-registered users.
const Default = Lecteur

var ordered = []Role{Admin, AgentMinier, ResponsableSite, Chauffeur, Douane, Environnement, Lecteur}

var labels = map[Role]string{
	Admin:           "Administrator",
	AgentMinier:     "Mining agent",
	ResponsableSite: "Site manager",
	Chauffeur:       "Driver",
	Douane:          "Customs officer",
	Environnement:   "Environment officer",
	Lecteur:         "Viewer",
}

// All returns every role in declaration order.
func All() []Role {
	return slices.Clone(ordered)
}

func (r Role) Valid() bool {
	return slices.Contains(ordered, r)
}

func (r Role) Label() string {
	if l, ok := labels[r]; ok {
		return l
	}
	return string(r)
}

func (r Role) String() string { return string(r) }

// Parse validates s as a role.
func Parse(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Strings converts roles for gate.NeedRole.
func Strings(rs ...Role) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}

// Permission codes granted through the table.
const (
	DashboardView           gate.Permission = "dashboard:view"
	UserAdd                 gate.Permission = "user:add"
	UserChange              gate.Permission = "user:change"
	UserDelete              gate.Permission = "user:delete"
	AuditView               gate.Permission = "audit:view"
	SiteAdd                 gate.Permission = "site:add"
	SiteChange              gate.Permission = "site:change"
	SiteDelete              gate.Permission = "site:delete"
	SiteLogOperation        gate.Permission = "site:log_operation"
	ExtractionView          gate.Permission = "extraction:view"
	ExtractionAdd           gate.Permission = "extraction:add"
	ExtractionChange        gate.Permission = "extraction:change"
	ExtractionDelete        gate.Permission = "extraction:delete"
	TruckAdd                gate.Permission = "truck:add"
	TruckChange             gate.Permission = "truck:change"
	TruckDelete             gate.Permission = "truck:delete"
	TransportView           gate.Permission = "transport:view"
	TransportAdd            gate.Permission = "transport:add"
	TransportChange         gate.Permission = "transport:change"
	TransportDelete         gate.Permission = "transport:delete"
	TransportUpdateStatus   gate.Permission = "transport:update_status"
	ExportView              gate.Permission = "export:view"
	ExportAdd               gate.Permission = "export:add"
	ExportChange            gate.Permission = "export:change"
	ExportDelete            gate.Permission = "export:delete"
	ExportValidate          gate.Permission = "export:validate"
	ExportUploadDocument    gate.Permission = "export:upload_document"
	EnvironmentViewMetrics  gate.Permission = "environment:view_metrics"
	EnvironmentAddAlert     gate.Permission = "environment:add_alert"
	EnvironmentAddMeasure   gate.Permission = "environment:add_measure"
	EnvironmentThresholds   gate.Permission = "environment:manage_thresholds"
	ReportView              gate.Permission = "report:view"
	ReportGenerate          gate.Permission = "report:generate"
	DataExport              gate.Permission = "data:export"
)

// catalog lists every code with a description, in seeding order.
var catalog = []struct {
	Code        gate.Permission
	Description string
}{
	{gate.PermissionAll, "Full system access"},
	{DashboardView, "View the dashboard"},
	{UserAdd, "Create users"},
	{UserChange, "Edit users"},
	{UserDelete, "Disable users"},
	{AuditView, "Read activity and email logs"},
	{SiteAdd, "Register sites"},
	{SiteChange, "Edit sites"},
	{SiteDelete, "Delete sites"},
	{SiteLogOperation, "Log site operations"},
	{ExtractionView, "View extractions"},
	{ExtractionAdd, "Record extractions"},
	{ExtractionChange, "Edit extractions"},
	{ExtractionDelete, "Delete extractions"},
	{TruckAdd, "Register trucks"},
	{TruckChange, "Edit trucks"},
	{TruckDelete, "Delete trucks"},
	{TransportView, "View transports"},
	{TransportAdd, "Plan transports"},
	{TransportChange, "Edit or cancel transports"},
	{TransportDelete, "Delete transports"},
	{TransportUpdateStatus, "Record departures and arrivals"},
	{ExportView, "View exports"},
	{ExportAdd, "Create exports"},
	{ExportChange, "Edit, ship and deliver exports"},
	{ExportDelete, "Delete exports"},
	{ExportValidate, "Approve or reject exports"},
	{ExportUploadDocument, "Attach export documents"},
	{EnvironmentViewMetrics, "View environment measures"},
	{EnvironmentAddAlert, "Handle environment alerts"},
	{EnvironmentAddMeasure, "Record environment measures"},
	{EnvironmentThresholds, "Manage environment thresholds"},
	{ReportView, "View reports"},
	{ReportGenerate, "Generate reports and refresh metrics"},
	{DataExport, "Export data"},
}

var table = map[Role][]gate.Permission{
	Admin: {gate.PermissionAll},
	AgentMinier: {
		DashboardView, ExtractionView, ExtractionAdd, ExtractionChange,
		TransportView, ReportView, SiteLogOperation,
	},
	ResponsableSite: {
		DashboardView, ExtractionView, ExtractionAdd, ExtractionChange,
		TransportView, ReportView, SiteAdd, SiteChange, SiteLogOperation,
	},
	Chauffeur: {DashboardView, TransportView, TransportUpdateStatus},
	Douane:    {DashboardView, ExportView, ExportValidate, ExportUploadDocument},
	Environnement: {
		DashboardView, EnvironmentViewMetrics, EnvironmentAddAlert,
		EnvironmentAddMeasure, EnvironmentThresholds,
	},
	Lecteur: {DashboardView},
}

// Permissions returns the codes granted to r, or nil for an unknown role.
func Permissions(r Role) []gate.Permission {
	return slices.Clone(table[r])
}

// Profile returns an in-memory gate profile for r.
func Profile(r Role) gate.Profile {
	return gate.NewStaticProfile(0, string(r), table[r]...)
}

// Catalog returns every permission code known to the table with its
// description.
func Catalog() map[gate.Permission]string {
	out := make(map[gate.Permission]string, len(catalog))
	for _, c := range catalog {
		out[c.Code] = c.Description
	}
	return out
}

// CatalogCodes returns the codes of Catalog in a stable order.
func CatalogCodes() []gate.Permission {
	return slices.Sorted(maps.Keys(Catalog()))
}
