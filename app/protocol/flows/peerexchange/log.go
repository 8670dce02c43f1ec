package peerexchange

import (
	"github.com/stratanet/stratad/infrastructure/logger"
)

var log = logger.RegisterSubSystem("PROT")
