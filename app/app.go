package app

import (
	"fmt"
	"os"

	"github.com/stratanet/stratad/infrastructure/config"
	"github.com/stratanet/stratad/infrastructure/logger"
	"github.com/stratanet/stratad/infrastructure/os/signal"
	"github.com/stratanet/stratad/util/panics"
	"github.com/stratanet/stratad/version"
)

// StartApp starts the stratad app, and blocks until it shuts down.
func StartApp() error {
	interrupt := signal.InterruptListener()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	defer panics.HandlePanic(log, "MAIN", nil)

	if cfg.ShowVersion {
		fmt.Println(version.Version())
		return nil
	}

	logger.InitLog(cfg.LogFile(), cfg.ErrLogFile())
	err = logger.SetLogLevels(cfg.DebugLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	log.Infof("Version %s", version.Version())
	log.Infof("Node role: %s", cfg.OwnPeer.Role)

	componentManager, err := NewComponentManager(cfg)
	if err != nil {
		log.Errorf("Could not initialize the node: %+v", err)
		return err
	}

	defer func() {
		log.Infof("Gracefully shutting down stratad...")
		componentManager.Stop()
		log.Infof("Stratad shutdown complete")
	}()

	componentManager.Start()

	<-interrupt
	return nil
}
