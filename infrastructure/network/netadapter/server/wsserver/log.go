package wsserver

import (
	"github.com/stratanet/stratad/infrastructure/logger"
	"github.com/stratanet/stratad/util/panics"
)

var log = logger.RegisterSubSystem("WSRV")
var spawn = panics.GoroutineWrapperFunc(log)
