package protocol

import (
	"github.com/stratanet/stratad/infrastructure/logger"
	"github.com/stratanet/stratad/util/panics"
)

var log = logger.RegisterSubSystem("PROT")
var spawn = panics.GoroutineWrapperFunc(log)
