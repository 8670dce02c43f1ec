package peerdirectory

import "github.com/pkg/errors"

// Role is a position in the fan-out overlay tree. The set of roles is
// closed; topology rules are resolved through the static role table below,
// never through dynamic dispatch.
type Role int

// The five overlay roles, ordered root to leaf.
const (
	RoleSeed Role = iota
	RoleSeedGateway
	RoleServiceProvider
	RoleUser
	RoleMiner
)

var roleNames = map[Role]string{
	RoleSeed:            "seed",
	RoleSeedGateway:     "seed_gateway",
	RoleServiceProvider: "service_provider",
	RoleUser:            "user",
	RoleMiner:           "miner",
}

// roleSpec describes a role's topology rules: which role it dials, which
// role it accepts, how many streams it may hold per target role, and which
// roles it may exchange protocol messages with at all.
type roleSpec struct {
	outbound   Role
	inbound    Role
	limits     map[Role]int
	compatible []Role
}

// roleTable is the static topology table. Seeds form a near-unbounded mesh
// at the root; every other role reaches the network through exactly one
// upstream stream.
var roleTable = map[Role]roleSpec{
	RoleSeed: {
		outbound:   RoleSeed,
		inbound:    RoleSeedGateway,
		limits:     map[Role]int{RoleSeed: 100000, RoleSeedGateway: 1},
		compatible: []Role{RoleSeed, RoleSeedGateway},
	},
	RoleSeedGateway: {
		outbound:   RoleSeed,
		inbound:    RoleServiceProvider,
		limits:     map[Role]int{RoleSeed: 1, RoleServiceProvider: 1},
		compatible: []Role{RoleSeed, RoleServiceProvider},
	},
	RoleServiceProvider: {
		outbound:   RoleSeedGateway,
		inbound:    RoleUser,
		limits:     map[Role]int{RoleSeedGateway: 1, RoleUser: 1},
		compatible: []Role{RoleServiceProvider, RoleUser},
	},
	RoleUser: {
		outbound:   RoleServiceProvider,
		inbound:    RoleUser,
		limits:     map[Role]int{RoleServiceProvider: 1},
		compatible: []Role{RoleServiceProvider},
	},
	RoleMiner: {
		outbound:   RoleServiceProvider,
		inbound:    RoleUser,
		limits:     map[Role]int{RoleServiceProvider: 1},
		compatible: []Role{RoleServiceProvider},
	},
}

// OutboundRole returns the role this role dials.
func (r Role) OutboundRole() Role {
	return roleTable[r].outbound
}

// InboundRole returns the role this role accepts connections from.
func (r Role) InboundRole() Role {
	return roleTable[r].inbound
}

// Limit returns the maximum number of streams this role may hold toward the
// given target role. Roles absent from the table have a limit of zero.
func (r Role) Limit(target Role) int {
	return roleTable[r].limits[target]
}

// InboundClass returns the role class a peer of this role occupies when it
// connects to another node. Miners are leaf peers admitted and counted as
// users; every other role maps to itself.
func (r Role) InboundClass() Role {
	if r == RoleMiner {
		return RoleUser
	}
	return r
}

// IsCompatibleWith reports whether this role exchanges protocol messages
// with the given role.
func (r Role) IsCompatibleWith(other Role) bool {
	for _, compatible := range roleTable[r].compatible {
		if compatible == other {
			return true
		}
	}
	return false
}

// String returns the wire name of the role.
func (r Role) String() string {
	name, ok := roleNames[r]
	if !ok {
		return "unknown"
	}
	return name
}

// ParseRole parses a wire role name.
func ParseRole(name string) (Role, error) {
	for role, roleName := range roleNames {
		if roleName == name {
			return role, nil
		}
	}
	return 0, errors.Errorf("unknown role '%s'", name)
}
