package gatewayselector

import (
	"crypto/sha256"
	"math/big"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/stratanet/stratad/infrastructure/network/peerdirectory"
	"github.com/stratanet/stratad/util/identity"
)

var cfgForTest = Config{
	Epoch:            time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
	RotationInterval: 72 * time.Hour,
}

func gatewaysForTest(count int) []*peerdirectory.Peer {
	signatures := []string{"sigG0", "sigG1", "sigG2", "sigG3", "sigG4"}
	gateways := make([]*peerdirectory.Peer, count)
	for i := 0; i < count; i++ {
		gateways[i] = &peerdirectory.Peer{
			Host:     "10.0.0.1",
			Port:     uint16(8000 + i),
			Role:     peerdirectory.RoleSeedGateway,
			Identity: identity.Identity{Username: "gw", UsernameSignature: signatures[i]},
		}
	}
	return gateways
}

func TestSelectIsDeterministic(t *testing.T) {
	gateways := gatewaysForTest(3)
	now := cfgForTest.Epoch.Add(10 * 24 * time.Hour)

	first, err := Select(cfgForTest, "ownSig", gateways, nil, now)
	if err != nil {
		t.Fatalf("Select failed: %s", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Select(cfgForTest, "ownSig", gateways, nil, now)
		if err != nil {
			t.Fatalf("Select failed on repeat %d: %s", i, err)
		}
		if again != first {
			t.Fatalf("selection is not deterministic: %s then %s", first, again)
		}
	}
}

func TestSelectFollowsRotationArithmetic(t *testing.T) {
	gateways := gatewaysForTest(3)
	now := cfgForTest.Epoch.Add(13 * 24 * time.Hour) // bucket 4+1 = 5

	digest := sha256.Sum256([]byte("ownSig"))
	hash := new(big.Int).SetBytes(digest[:])
	bucket := int64(now.Sub(cfgForTest.Epoch)/cfgForTest.RotationInterval) + 1
	want := new(big.Int).Mod(
		new(big.Int).Mul(hash, big.NewInt(bucket)), big.NewInt(3)).Int64()

	selected, err := Select(cfgForTest, "ownSig", gateways, nil, now)
	if err != nil {
		t.Fatalf("Select failed: %s", err)
	}
	if selected != gateways[want] {
		t.Fatalf("selected %s, want index %d", selected, want)
	}
}

func TestSelectSkipsIgnoredGateways(t *testing.T) {
	gateways := gatewaysForTest(3)
	now := cfgForTest.Epoch.Add(24 * time.Hour)

	selected, err := Select(cfgForTest, "ownSig", gateways, nil, now)
	if err != nil {
		t.Fatalf("Select failed: %s", err)
	}

	ignore := map[string]struct{}{selected.Key("ownSig"): {}}
	reselected, err := Select(cfgForTest, "ownSig", gateways, ignore, now)
	if err != nil {
		t.Fatalf("Select with ignore failed: %s", err)
	}
	if reselected == selected {
		t.Fatal("ignored gateway was selected again")
	}
}

func TestSelectFailsWhenAllIgnored(t *testing.T) {
	gateways := gatewaysForTest(3)
	now := cfgForTest.Epoch.Add(24 * time.Hour)

	ignore := make(map[string]struct{})
	for _, gateway := range gateways {
		ignore[gateway.Key("ownSig")] = struct{}{}
	}

	_, err := Select(cfgForTest, "ownSig", gateways, ignore, now)
	if !errors.Is(err, ErrNoGatewayAvailable) {
		t.Fatalf("expected ErrNoGatewayAvailable, got %v", err)
	}
}

func TestSelectFailsWithNoGateways(t *testing.T) {
	_, err := Select(cfgForTest, "ownSig", nil, nil, time.Now())
	if !errors.Is(err, ErrNoGatewayAvailable) {
		t.Fatalf("expected ErrNoGatewayAvailable, got %v", err)
	}
}

func TestSelectionRotatesAcrossWindows(t *testing.T) {
	gateways := gatewaysForTest(5)

	// Across many windows the selected index must not be constant; a
	// signature hash coprime with the gateway count walks the whole set.
	seen := make(map[*peerdirectory.Peer]struct{})
	for window := 0; window < 10; window++ {
		now := cfgForTest.Epoch.Add(time.Duration(window) * cfgForTest.RotationInterval)
		selected, err := Select(cfgForTest, "ownSig", gateways, nil, now)
		if err != nil {
			t.Fatalf("Select failed for window %d: %s", window, err)
		}
		seen[selected] = struct{}{}
	}
	if len(seen) < 2 {
		t.Fatal("selection never rotated across ten windows")
	}
}
