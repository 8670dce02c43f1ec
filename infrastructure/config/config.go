package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcutil"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/stratanet/stratad/infrastructure/network/peerdirectory"
	"github.com/stratanet/stratad/util/identity"
	"github.com/stratanet/stratad/version"
)

const (
	defaultConfigFilename      = "stratad.conf"
	defaultLogDirname          = "logs"
	defaultLogFilename         = "stratad.log"
	defaultErrLogFilename      = "stratad_err.log"
	defaultDataDirname         = "data"
	defaultListenAddress       = ":8613"
	defaultLogLevel            = "info"
	defaultRotationEpoch       = 1640995200 // 2022-01-01T00:00:00Z
	defaultRotationInterval    = 72 * time.Hour
	defaultMaxBlocksPerMessage = 100
	defaultHandshakeTimeout    = 20 * time.Second
	defaultConnectInterval     = 30 * time.Second
)

// DefaultAppDir is the default home directory for stratad.
var DefaultAppDir = btcutil.AppDataDir("stratad", false)

var defaultConfigFile = filepath.Join(DefaultAppDir, defaultConfigFilename)

// Flags defines the configuration options for stratad.
//
// See LoadConfig for details on the configuration load process.
type Flags struct {
	ShowVersion       bool          `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile        string        `short:"C" long:"configfile" description:"Path to configuration file"`
	AppDir            string        `short:"b" long:"appdir" description:"Directory to store data"`
	LogDir            string        `long:"logdir" description:"Directory to log output"`
	Listen            string        `long:"listen" description:"Interface/port to listen for p2p connections"`
	ExternalHost      string        `long:"externalhost" description:"Host announced to peers as reachable"`
	ExternalPort      uint16        `long:"externalport" description:"Port announced to peers as reachable"`
	Role              string        `long:"role" description:"Overlay role of this node {seed, seed_gateway, service_provider, user, miner}"`
	Username          string        `long:"username" description:"Identity username"`
	UsernameSignature string        `long:"usernamesignature" description:"Identity username signature (the node's unique handle)"`
	PublicKey         string        `long:"publickey" description:"Identity public key"`
	DesignatedSeed    string        `long:"designatedseed" description:"Username signature of the designated seed (seed_gateway role only)"`
	MinerAddress      string        `long:"mineraddress" description:"Identifying address (miner role only)"`
	DebugLevel        string        `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
	RotationEpoch     int64         `long:"rotationepoch" description:"Unix time of the gateway rotation epoch"`
	RotationInterval  time.Duration `long:"rotationinterval" description:"Gateway rotation window. Valid time units are {s, m, h}"`
	MaxBlocksPerMsg   uint64        `long:"maxblockspermessage" description:"Maximum number of blocks in a single blocks message"`
	HandshakeTimeout  time.Duration `long:"handshaketimeout" description:"How long to wait for the peer list before giving up on a new connection"`
	ConnectInterval   time.Duration `long:"connectinterval" description:"Interval between connection-manager top-up rounds"`
}

// Config defines the configuration options for stratad.
//
// See LoadConfig for details on the configuration load process.
type Config struct {
	*Flags

	// OwnPeer is this node's own peer record, assembled from the
	// identity and role flags.
	OwnPeer *peerdirectory.Peer

	// Epoch is the gateway rotation reference instant.
	Epoch time.Time
}

func defaultFlags() *Flags {
	return &Flags{
		ConfigFile:       defaultConfigFile,
		AppDir:           DefaultAppDir,
		Listen:           defaultListenAddress,
		Role:             peerdirectory.RoleUser.String(),
		DebugLevel:       defaultLogLevel,
		RotationEpoch:    defaultRotationEpoch,
		RotationInterval: defaultRotationInterval,
		MaxBlocksPerMsg:  defaultMaxBlocksPerMessage,
		HandshakeTimeout: defaultHandshakeTimeout,
		ConnectInterval:  defaultConnectInterval,
	}
}

// DefaultConfig returns the default configuration with a throwaway identity.
// It is intended for tests.
func DefaultConfig() *Config {
	cfg := &Config{Flags: defaultFlags()}
	cfg.Epoch = time.Unix(cfg.RotationEpoch, 0)
	cfg.OwnPeer = &peerdirectory.Peer{
		Host: "127.0.0.1",
		Port: 8613,
		Role: peerdirectory.RoleUser,
		Identity: identity.Identity{
			Username:          "default",
			UsernameSignature: "defaultSignature",
			PublicKey:         "02default",
		},
	}
	return cfg
}

// LoadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
func LoadConfig() (*Config, error) {
	cfgFlags := defaultFlags()
	parser := flags.NewParser(cfgFlags, flags.HelpFlag)
	_, err := parser.Parse()
	if err != nil {
		return nil, err
	}

	if cfgFlags.ConfigFile != defaultConfigFile || fileExists(cfgFlags.ConfigFile) {
		err := flags.NewIniParser(parser).ParseFile(cfgFlags.ConfigFile)
		if err != nil {
			if !os.IsNotExist(errors.Cause(err)) {
				return nil, errors.Wrapf(err, "could not parse config file %s", cfgFlags.ConfigFile)
			}
		}
		// CLI options take precedence over the config file.
		_, err = parser.Parse()
		if err != nil {
			return nil, err
		}
	}

	cfg := &Config{Flags: cfgFlags}
	if cfg.ShowVersion {
		// Nothing else is needed to print the version and exit.
		return cfg, nil
	}
	err = cfg.resolve()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) resolve() error {
	cfg.AppDir = cleanAndExpandPath(cfg.AppDir)
	if cfg.LogDir == "" {
		cfg.LogDir = filepath.Join(cfg.AppDir, defaultLogDirname)
	}
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)

	role, err := peerdirectory.ParseRole(cfg.Role)
	if err != nil {
		return err
	}
	if cfg.UsernameSignature == "" {
		return errors.New("--usernamesignature is required")
	}
	if role == peerdirectory.RoleSeedGateway && cfg.DesignatedSeed == "" {
		return errors.New("--designatedseed is required for the seed_gateway role")
	}
	if role == peerdirectory.RoleMiner && cfg.MinerAddress == "" {
		return errors.New("--mineraddress is required for the miner role")
	}
	if cfg.RotationInterval <= 0 {
		return errors.New("--rotationinterval must be positive")
	}
	if cfg.MaxBlocksPerMsg == 0 {
		return errors.New("--maxblockspermessage must be positive")
	}

	cfg.Epoch = time.Unix(cfg.RotationEpoch, 0)
	cfg.OwnPeer = &peerdirectory.Peer{
		Host: cfg.ExternalHost,
		Port: cfg.ExternalPort,
		Role: role,
		Identity: identity.Identity{
			Username:          cfg.Username,
			UsernameSignature: cfg.UsernameSignature,
			PublicKey:         cfg.PublicKey,
		},
		Seed:    cfg.DesignatedSeed,
		Address: cfg.MinerAddress,
	}
	return nil
}

// DataDir returns the directory holding the node's databases.
func (cfg *Config) DataDir() string {
	return filepath.Join(cfg.AppDir, defaultDataDirname)
}

// LogFile returns the path of the main log file.
func (cfg *Config) LogFile() string {
	return filepath.Join(cfg.LogDir, defaultLogFilename)
}

// ErrLogFile returns the path of the error log file.
func (cfg *Config) ErrLogFile() string {
	return filepath.Join(cfg.LogDir, defaultErrLogFilename)
}

// Version returns the application version string.
func (cfg *Config) Version() string {
	return version.Version()
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(DefaultAppDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}
	return filepath.Clean(os.ExpandEnv(path))
}

func fileExists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}
