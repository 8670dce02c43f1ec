package gatewayselector

import (
	"crypto/sha256"
	"math/big"
	"time"

	"github.com/pkg/errors"

	"github.com/stratanet/stratad/infrastructure/network/peerdirectory"
)

// ErrNoGatewayAvailable is returned when no gateway can be selected: either
// none are known, or every known gateway is in the ignore set.
var ErrNoGatewayAvailable = errors.New("no gateway available for selection")

// Config holds the rotation parameters. Epoch is a fixed reference instant;
// RotationInterval is the window after which every node independently
// rotates to a new candidate index.
type Config struct {
	Epoch            time.Time
	RotationInterval time.Duration
}

// Select deterministically picks one upstream gateway for the node owning
// ownSignature. gateways must be in directory insertion order and ignore is
// keyed by pairwise RID relative to ownSignature.
//
// Every node computes the same index for the same time window without
// coordination; diversity across the population comes from distinct
// signature digests producing distinct starting offsets. The window
// boundary depends only on wall-clock time, so it is predictable in
// advance.
func Select(cfg Config, ownSignature string, gateways []*peerdirectory.Peer,
	ignore map[string]struct{}, now time.Time) (*peerdirectory.Peer, error) {

	if len(gateways) == 0 {
		return nil, errors.WithStack(ErrNoGatewayAvailable)
	}

	digest := sha256.Sum256([]byte(ownSignature))
	hash := new(big.Int).SetBytes(digest[:])
	seedTime := big.NewInt(timeBucket(cfg, now))

	count := big.NewInt(int64(len(gateways)))
	start := new(big.Int).Mod(new(big.Int).Mul(hash, seedTime), count).Int64()

	// Linear probe forward from the selected index, skipping ignored
	// entries, for exactly one full cycle.
	for i := 0; i < len(gateways); i++ {
		candidate := gateways[(start+int64(i))%int64(len(gateways))]
		if _, ignored := ignore[candidate.Key(ownSignature)]; ignored {
			continue
		}
		return candidate, nil
	}
	return nil, errors.WithStack(ErrNoGatewayAvailable)
}

func timeBucket(cfg Config, now time.Time) int64 {
	return int64(now.Sub(cfg.Epoch)/cfg.RotationInterval) + 1
}
