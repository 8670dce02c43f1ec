package config

import (
	"github.com/stratanet/stratad/infrastructure/network/peerdirectory"
	"github.com/stratanet/stratad/util/identity"
)

// Well-known overlay entry points. Every node starts out knowing these;
// the peer-exchange protocol takes it from there.
var (
	seedASignature     = "MEUCIQDizGaqm/0Z7T8chqoai6OhxRMcxWWFa0MBoB70HWaWtwIgJ6f6NCMHl9ED7BEjDV73Z1fkMB0uCvCdsbzghRjKzkg="
	seedBSignature     = "MEUCIQDJRdIHHeryM3+1IDziX6dSSv5qC4Ffg1/2lWm45QWLSQIgRvaJ4pUjZP/+AFm+cZQUrcf2aldoizzncHMyw+7ko2I="
	gatewayASignature  = "MEUCIQBKODV0zs929GH40tazuJ6GSJdueTJiBeyZU7MCvSlEvAIgijuV/jPf7M8tBbhxnJUGtD2PImCUSOKE71Le27b4+QI="
	gatewayBSignature  = "MEUCIQA5jOhHLq9HZxsXKkm3RQABKZhT5azkUG0/x5ITIb1UBQIgOV8J0vBcif7iweTXZYpI/qZcG/00pT6t3L59FwPW5KE="
	providerASignature = "MEUCIQCN5aoap0JCUaTR8UtSNZzaKW4ftjpTe4a3wKyp7qCDUAIgo0nA0tL8uJIqY+hnEvCQAZHKWBEymNM6nout9pFBAzI="
	providerBSignature = "MEUCIQBmztdMRP/03zy6BmF/gvFfKEw5kX+yQgJ4wR4K1cff+gIg3MRrnD48W/UtOUA6TN62F1KY4t3B5q4E5Rn0EQZcuag="
)

// BootstrapPeers returns the hardcoded bootstrap peer set. Each seed is
// paired with its gateway via the Seed/SeedGateway backreferences.
func BootstrapPeers() []*peerdirectory.Peer {
	return []*peerdirectory.Peer{
		{
			Host: "168.119.68.12",
			Port: 8000,
			Role: peerdirectory.RoleSeed,
			Identity: identity.Identity{
				Username:          "strata-seed-a",
				UsernameSignature: seedASignature,
				PublicKey:         "03713302f0d8c9d0bce8c772089096eb4572526c9ed5fc57aeacdbf744df4b7e9a",
			},
			SeedGateway: gatewayASignature,
		},
		{
			Host: "168.119.68.12",
			Port: 8001,
			Role: peerdirectory.RoleSeedGateway,
			Identity: identity.Identity{
				Username:          "strata-gateway-a",
				UsernameSignature: gatewayASignature,
				PublicKey:         "02b6ea7da071b4acf34bbfc8a747ba00fe646e2fa66db859cb04afd4fc957c1aa4",
			},
			Seed: seedASignature,
		},
		{
			Host: "168.119.68.12",
			Port: 8002,
			Role: peerdirectory.RoleServiceProvider,
			Identity: identity.Identity{
				Username:          "strata-provider-a",
				UsernameSignature: providerASignature,
				PublicKey:         "037ffdc396df44423200b933da4f0a1b03d3751bdc475730dedc8fde6865b0d1a3",
			},
		},
		{
			Host: "5.161.65.224",
			Port: 8000,
			Role: peerdirectory.RoleSeed,
			Identity: identity.Identity{
				Username:          "strata-seed-b",
				UsernameSignature: seedBSignature,
				PublicKey:         "02822633fda34c46b3833040ed16a98e57aba61ceaaea55ec012b2218fbc7094a8",
			},
			SeedGateway: gatewayBSignature,
		},
		{
			Host: "5.161.65.224",
			Port: 8001,
			Role: peerdirectory.RoleSeedGateway,
			Identity: identity.Identity{
				Username:          "strata-gateway-b",
				UsernameSignature: gatewayBSignature,
				PublicKey:         "02bc2da3249feab1b2445e1fb77b874c15097b469248e0766464dbcc3651d71333",
			},
			Seed: seedBSignature,
		},
		{
			Host: "5.161.65.224",
			Port: 8002,
			Role: peerdirectory.RoleServiceProvider,
			Identity: identity.Identity{
				Username:          "strata-provider-b",
				UsernameSignature: providerBSignature,
				PublicKey:         "036549f2f811aebe267a2e62da5c2c87e864e4ca18ebba6c15053580cfcd716600",
			},
		},
	}
}
