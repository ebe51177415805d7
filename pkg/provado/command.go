package provado

import (
	"flag"
	"fmt"
)

// Command is one discrete application operation. Parse routes the CLI
// sub-command to the matching implementation; App dispatches on the
// concrete type.
type Command interface {
	Name() string
}

// RunCommand starts the HTTP server.
type RunCommand struct{}

func (c *RunCommand) Name() string { return "run" }

// MigrateCommand applies the full migration catalog and exits. Unlike the
// automatic run-time migrations this ignores the environment gate.
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string { return "migrate" }

// Parse reads CLI arguments into a command plus the shared configuration.
func Parse(args []string) (Command, *Config, error) {
	flagSet := flag.NewFlagSet("provado", flag.ContinueOnError)

	var (
		configPath = flagSet.String("config", "", "Path to a YAML configuration file")
		port       = flagSet.String("port", "", "Server port (overrides configuration)")
	)

	if err := flagSet.Parse(args); err != nil {
		return nil, nil, err
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		return nil, nil, fmt.Errorf(`subcommand required

Usage: provado [flags] <command>

Commands:
  run       Start the API server
  migrate   Apply database migrations and exit

Examples:
  provado run
  provado -port=8090 run
  provado -config=provado.yaml run
  provado migrate`)
	}

	var cmd Command
	switch rest[0] {
	case "run":
		cmd = &RunCommand{}
	case "migrate":
		cmd = &MigrateCommand{}
	default:
		return nil, nil, fmt.Errorf("unknown command: %s\n\nValid commands: run, migrate", rest[0])
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return nil, nil, err
	}
	if *port != "" {
		cfg.Port = *port
	}
	return cmd, cfg, nil
}
