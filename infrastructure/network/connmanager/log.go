package connmanager

import (
	"github.com/stratanet/stratad/infrastructure/logger"
	"github.com/stratanet/stratad/util/panics"
)

var log = logger.RegisterSubSystem("CMGR")
var spawn = panics.GoroutineWrapperFunc(log)
