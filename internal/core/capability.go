package core

// Capability names an action an authenticated role may perform.
type Capability string

const (
	CapQuotationRead   Capability = "quotation:read"
	CapQuotationWrite  Capability = "quotation:write"
	CapQuotationDelete Capability = "quotation:delete"
	CapCatalogWrite    Capability = "catalog:write"
)

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleSales   = "sales"
	RoleViewer  = "viewer"
)

var roleCapabilities = map[string][]Capability{
	RoleAdmin:   {CapQuotationRead, CapQuotationWrite, CapQuotationDelete, CapCatalogWrite},
	RoleManager: {CapQuotationRead, CapQuotationWrite, CapQuotationDelete, CapCatalogWrite},
	RoleSales:   {CapQuotationRead, CapQuotationWrite},
	RoleViewer:  {CapQuotationRead},
}

// Actor is the authenticated caller on whose behalf a core operation runs.
// It is supplied by the auth collaborator and trusted as-is.
type Actor struct {
	UserID    int
	CompanyID int
	Role      string
}

// Can reports whether the actor's role grants capability c.
func (a Actor) Can(c Capability) bool {
	for _, granted := range roleCapabilities[a.Role] {
		if granted == c {
			return true
		}
	}
	return false
}

// Capabilities lists what the actor's role grants.
func (a Actor) Capabilities() []Capability {
	return append([]Capability(nil), roleCapabilities[a.Role]...)
}

// Authorize returns a ForbiddenError unless the actor holds capability c.
func (a Actor) Authorize(c Capability) error {
	if a.UserID == 0 || a.CompanyID == 0 {
		return &UnauthorizedError{}
	}
	if !a.Can(c) {
		return &ForbiddenError{Role: a.Role, Capability: c}
	}
	return nil
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	_, ok := roleCapabilities[role]
	return ok
}
