package peerdirectory

import "testing"

func TestRoleTable(t *testing.T) {
	tests := []struct {
		role          Role
		outbound      Role
		inbound       Role
		outboundLimit int
		inboundLimit  int
	}{
		{RoleSeed, RoleSeed, RoleSeedGateway, 100000, 1},
		{RoleSeedGateway, RoleSeed, RoleServiceProvider, 1, 1},
		{RoleServiceProvider, RoleSeedGateway, RoleUser, 1, 1},
		{RoleUser, RoleServiceProvider, RoleUser, 1, 0},
		{RoleMiner, RoleServiceProvider, RoleUser, 1, 0},
	}

	for _, test := range tests {
		if got := test.role.OutboundRole(); got != test.outbound {
			t.Errorf("%s: outbound role is %s, want %s", test.role, got, test.outbound)
		}
		if got := test.role.InboundRole(); got != test.inbound {
			t.Errorf("%s: inbound role is %s, want %s", test.role, got, test.inbound)
		}
		if got := test.role.Limit(test.role.OutboundRole()); got != test.outboundLimit {
			t.Errorf("%s: outbound limit is %d, want %d", test.role, got, test.outboundLimit)
		}
		if got := test.role.Limit(test.role.InboundRole()); got != test.inboundLimit {
			t.Errorf("%s: inbound limit is %d, want %d", test.role, got, test.inboundLimit)
		}
	}
}

func TestRoleLimitForUnrelatedRoleIsZero(t *testing.T) {
	if limit := RoleUser.Limit(RoleSeed); limit != 0 {
		t.Fatalf("user→seed limit is %d, want 0", limit)
	}
	if limit := RoleSeed.Limit(RoleMiner); limit != 0 {
		t.Fatalf("seed→miner limit is %d, want 0", limit)
	}
}

func TestParseRoleRoundTrip(t *testing.T) {
	for _, role := range []Role{RoleSeed, RoleSeedGateway, RoleServiceProvider, RoleUser, RoleMiner} {
		parsed, err := ParseRole(role.String())
		if err != nil {
			t.Fatalf("ParseRole(%s) failed: %s", role, err)
		}
		if parsed != role {
			t.Fatalf("ParseRole(%s) = %s", role, parsed)
		}
	}

	_, err := ParseRole("superseed")
	if err == nil {
		t.Fatal("ParseRole should fail for an unknown role name")
	}
}

func TestInboundClassFoldsMinersIntoUsers(t *testing.T) {
	if got := RoleMiner.InboundClass(); got != RoleUser {
		t.Fatalf("miner inbound class is %s, want %s", got, RoleUser)
	}
	for _, role := range []Role{RoleSeed, RoleSeedGateway, RoleServiceProvider, RoleUser} {
		if got := role.InboundClass(); got != role {
			t.Fatalf("%s inbound class is %s, want itself", role, got)
		}
	}
}

func TestRoleCompatibility(t *testing.T) {
	if !RoleSeed.IsCompatibleWith(RoleSeedGateway) {
		t.Fatal("seed should be compatible with seed_gateway")
	}
	if RoleUser.IsCompatibleWith(RoleSeed) {
		t.Fatal("user should not be compatible with seed")
	}
}
