package signal

import (
	"github.com/stratanet/stratad/infrastructure/logger"
	"github.com/stratanet/stratad/util/panics"
)

var log = logger.RegisterSubSystem("SIGN")
var spawn = panics.GoroutineWrapperFunc(log)
