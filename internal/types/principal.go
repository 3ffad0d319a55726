// README: Authenticated principal decided once at the identity boundary.
package types

type Role string

const (
	RoleRider  Role = "rider"
	RoleDriver Role = "driver"
)

func (r Role) Valid() bool {
	return r == RoleRider || r == RoleDriver
}

// Principal is either a rider or a driver. Build it with RiderPrincipal or
// DriverPrincipal; downstream code switches on Role and never inspects raw claims.
type Principal struct {
	ID   ID   `json:"id"`
	Role Role `json:"role"`
}

func RiderPrincipal(id ID) Principal {
	return Principal{ID: id, Role: RoleRider}
}

func DriverPrincipal(id ID) Principal {
	return Principal{ID: id, Role: RoleDriver}
}

func (p Principal) IsRider() bool  { return p.Role == RoleRider && p.ID != "" }
func (p Principal) IsDriver() bool { return p.Role == RoleDriver && p.ID != "" }
