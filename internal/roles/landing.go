package roles

// Landing is the dashboard a role is sent to after login.
type Landing int

const (
	// LandingViewer is the fallback for lecteur and for any role the switch
	// below does not name.
	LandingViewer Landing = iota
	LandingAdmin
	LandingAgent
	LandingSiteManager
	LandingDriver
	LandingCustoms
	LandingEnvironment
)

// LandingFor maps a role to its dashboard.
func LandingFor(r Role) Landing {
	switch r {
	case Admin:
		return LandingAdmin
	case AgentMinier:
		return LandingAgent
	case ResponsableSite:
		return LandingSiteManager
	case Chauffeur:
		return LandingDriver
	case Douane:
		return LandingCustoms
	case Environnement:
		return LandingEnvironment
	case Lecteur:
		return LandingViewer
	default:
		return LandingViewer
	}
}

func (l Landing) Slug() string {
	switch l {
	case LandingAdmin:
		return "admin"
	case LandingAgent:
		return "agent"
	case LandingSiteManager:
		return "site-manager"
	case LandingDriver:
		return "driver"
	case LandingCustoms:
		return "customs"
	case LandingEnvironment:
		return "environment"
	default:
		return "viewer"
	}
}

// Path is the URL of the landing view.
func (l Landing) Path() string {
	return "/dashboard/" + l.Slug()
}

// Role returns the role a landing view is reserved for. The viewer landing
// is open to every authenticated user and reports ok=false.
func (l Landing) Role() (Role, bool) {
	switch l {
	case LandingAdmin:
		return Admin, true
	case LandingAgent:
		return AgentMinier, true
	case LandingSiteManager:
		return ResponsableSite, true
	case LandingDriver:
		return Chauffeur, true
	case LandingCustoms:
		return Douane, true
	case LandingEnvironment:
		return Environnement, true
	default:
		return "", false
	}
}

// Landings lists every landing view.
func Landings() []Landing {
	return []Landing{LandingViewer, LandingAdmin, LandingAgent, LandingSiteManager, LandingDriver, LandingCustoms, LandingEnvironment}
}
