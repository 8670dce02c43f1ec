package netadapter

import "github.com/stratanet/stratad/infrastructure/logger"

var log = logger.RegisterSubSystem("NTAR")
