package peerdirectory

import "github.com/stratanet/stratad/infrastructure/logger"

var log = logger.RegisterSubSystem("PDIR")
