package connmanager

import (
	"testing"
	"time"

	"github.com/stratanet/stratad/infrastructure/config"
	"github.com/stratanet/stratad/infrastructure/network/netadapter"
	"github.com/stratanet/stratad/infrastructure/network/peerdirectory"
	"github.com/stratanet/stratad/util/identity"
)

func testPeer(name string, role peerdirectory.Role) *peerdirectory.Peer {
	return &peerdirectory.Peer{
		Host: "203.0.113.10",
		Port: 8613,
		Role: role,
		Identity: identity.Identity{
			Username:          name,
			UsernameSignature: name + "Signature",
			PublicKey:         "02" + name,
		},
	}
}

func testManager(t *testing.T, role peerdirectory.Role, known ...*peerdirectory.Peer) *ConnectionManager {
	cfg := config.DefaultConfig()
	cfg.OwnPeer = testPeer("self", role)
	if role == peerdirectory.RoleSeedGateway {
		cfg.OwnPeer.Seed = "designatedSeedSignature"
	}

	directory := peerdirectory.New(cfg.OwnPeer.Identity.UsernameSignature, nil)
	for _, peer := range known {
		_, err := directory.Upsert(peer)
		if err != nil {
			t.Fatalf("Upsert: %s", err)
		}
	}
	return New(cfg, nil, directory)
}

func TestOutgoingCandidatesPerRole(t *testing.T) {
	seedA := testPeer("seedA", peerdirectory.RoleSeed)
	seedB := testPeer("seedB", peerdirectory.RoleSeed)
	gateway := testPeer("gatewayA", peerdirectory.RoleSeedGateway)
	provider := testPeer("providerA", peerdirectory.RoleServiceProvider)

	t.Run("seed dials the seed mesh", func(t *testing.T) {
		manager := testManager(t, peerdirectory.RoleSeed, seedA, seedB, gateway, provider)
		candidates, err := manager.outgoingCandidates(time.Now())
		if err != nil {
			t.Fatalf("outgoingCandidates: %s", err)
		}
		if len(candidates) != 2 {
			t.Fatalf("expected 2 seed candidates, got %d", len(candidates))
		}
		for _, candidate := range candidates {
			if candidate.Role != peerdirectory.RoleSeed {
				t.Errorf("unexpected candidate role %s", candidate.Role)
			}
		}
	})

	t.Run("gateway dials its designated seed only", func(t *testing.T) {
		designated := testPeer("designatedSeed", peerdirectory.RoleSeed)
		manager := testManager(t, peerdirectory.RoleSeedGateway, seedA, designated)
		candidates, err := manager.outgoingCandidates(time.Now())
		if err != nil {
			t.Fatalf("outgoingCandidates: %s", err)
		}
		if len(candidates) != 1 || candidates[0].Identity.UsernameSignature != designated.Identity.UsernameSignature {
			t.Fatalf("expected exactly the designated seed, got %v", candidates)
		}
	})

	t.Run("gateway with unknown designated seed errors", func(t *testing.T) {
		manager := testManager(t, peerdirectory.RoleSeedGateway, seedA)
		_, err := manager.outgoingCandidates(time.Now())
		if err == nil {
			t.Fatal("expected an error for an unknown designated seed")
		}
	})

	t.Run("provider selects a single gateway", func(t *testing.T) {
		gatewayB := testPeer("gatewayB", peerdirectory.RoleSeedGateway)
		manager := testManager(t, peerdirectory.RoleServiceProvider, seedA, gateway, gatewayB)
		candidates, err := manager.outgoingCandidates(time.Now())
		if err != nil {
			t.Fatalf("outgoingCandidates: %s", err)
		}
		if len(candidates) != 1 || candidates[0].Role != peerdirectory.RoleSeedGateway {
			t.Fatalf("expected exactly one gateway candidate, got %v", candidates)
		}
	})

	t.Run("user dials service providers", func(t *testing.T) {
		manager := testManager(t, peerdirectory.RoleUser, seedA, gateway, provider)
		candidates, err := manager.outgoingCandidates(time.Now())
		if err != nil {
			t.Fatalf("outgoingCandidates: %s", err)
		}
		if len(candidates) != 1 || candidates[0].Role != peerdirectory.RoleServiceProvider {
			t.Fatalf("expected exactly one provider candidate, got %v", candidates)
		}
	})
}

func TestIgnoreListResetsWhenExhausted(t *testing.T) {
	gatewayA := testPeer("gatewayA", peerdirectory.RoleSeedGateway)
	gatewayB := testPeer("gatewayB", peerdirectory.RoleSeedGateway)
	manager := testManager(t, peerdirectory.RoleServiceProvider, gatewayA, gatewayB)

	for _, gateway := range []*peerdirectory.Peer{gatewayA, gatewayB} {
		manager.ignoredOutgoing[manager.directory.Key(gateway)] = struct{}{}
	}

	candidates, err := manager.outgoingCandidates(time.Now())
	if err != nil {
		t.Fatalf("outgoingCandidates after exhaustion: %s", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected a candidate after the ignore reset, got %d", len(candidates))
	}
	if len(manager.ignoredOutgoing) != 0 {
		t.Errorf("expected the ignore list to be reset, it holds %d entries", len(manager.ignoredOutgoing))
	}
}

func TestTryAddIncomingEnforcesRoleRules(t *testing.T) {
	t.Run("incompatible role is rejected", func(t *testing.T) {
		manager := testManager(t, peerdirectory.RoleUser)
		err := manager.TryAddIncoming(testPeer("miner", peerdirectory.RoleMiner), nil)
		if err == nil {
			t.Fatal("expected a user to reject a miner stream")
		}
	})

	t.Run("duplicate stream is rejected", func(t *testing.T) {
		manager := testManager(t, peerdirectory.RoleServiceProvider)
		user := testPeer("userA", peerdirectory.RoleUser)
		manager.streams[manager.directory.Key(user)] = &stream{peer: user}

		err := manager.TryAddIncoming(user, nil)
		if err == nil {
			t.Fatal("expected a duplicate stream to be rejected")
		}
	})

	t.Run("role limit is enforced", func(t *testing.T) {
		manager := testManager(t, peerdirectory.RoleServiceProvider)
		userA := testPeer("userA", peerdirectory.RoleUser)
		manager.streams[manager.directory.Key(userA)] = &stream{peer: userA}

		err := manager.TryAddIncoming(testPeer("userB", peerdirectory.RoleUser), nil)
		if err == nil {
			t.Fatal("expected the second user stream to exceed the limit")
		}
	})
}

func TestBindOutgoingMakesStreamConfirmable(t *testing.T) {
	seedA := testPeer("seedA", peerdirectory.RoleSeed)
	manager := testManager(t, peerdirectory.RoleSeedGateway, seedA)

	key := manager.directory.Key(seedA)
	manager.streams[key] = &stream{peer: seedA, outbound: true}
	connection := &netadapter.NetConnection{}

	if _, ok := manager.ConfirmOutgoing(connection); ok {
		t.Fatal("an unbound connection must not confirm any stream")
	}

	if !manager.bindOutgoing(key, connection) {
		t.Fatal("bindOutgoing failed for a pending stream")
	}
	peer, ok := manager.ConfirmOutgoing(connection)
	if !ok {
		t.Fatal("the bound connection did not confirm its stream")
	}
	if peer.Identity.UsernameSignature != seedA.Identity.UsernameSignature {
		t.Fatalf("confirmed the wrong peer: %s", peer)
	}

	if manager.bindOutgoing("unknownKey", connection) {
		t.Fatal("bindOutgoing succeeded for a stream that no longer exists")
	}
}

func TestLimitAccountingCountsPendingStreams(t *testing.T) {
	seedA := testPeer("seedA", peerdirectory.RoleSeed)
	manager := testManager(t, peerdirectory.RoleSeedGateway, seedA)

	key := manager.directory.Key(seedA)
	manager.streams[key] = &stream{peer: seedA, outbound: true}

	if got := manager.countByRole(peerdirectory.RoleSeed); got != 1 {
		t.Errorf("expected a pending stream to count toward the limit, got %d", got)
	}
	if got := manager.countByRole(peerdirectory.RoleUser); got != 0 {
		t.Errorf("expected no user streams, got %d", got)
	}
}
