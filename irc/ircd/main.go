package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/presbrey/ircd/irc/admind"
	"github.com/presbrey/ircd/irc/config"
	"github.com/presbrey/ircd/irc/server"
	"github.com/spf13/cobra"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	var (
		configSource string
		debug        bool
		listen       []string
	)

	var rootCmd = &cobra.Command{
		Use:          "ircd",
		Short:        "RFC 1459 IRC server",
		Long:         `A single-server IRC daemon speaking the RFC 1459 client protocol, with an optional HTTP status endpoint.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configSource)
			if err != nil {
				return err
			}
			if debug {
				cfg.Debug = true
			}
			if len(listen) > 0 {
				cfg.Server.Listen = listen
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			return run(cfg)
		},
	}
	rootCmd.Flags().StringVarP(&configSource, "config", "c", "", "configuration file path or URL (YAML, TOML or JSON)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "log outbound lines")
	rootCmd.Flags().StringArrayVarP(&listen, "listen", "l", nil, "listen address, repeatable (overrides the configuration)")

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("ircd", version)
		},
	}

	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// reload re-reads the configuration source into a copy, leaving the running
// configuration untouched, and applies the reloadable settings.
func reload(cfg *config.Config, srv *server.Server) {
	next := *cfg
	if err := next.Reload(); err != nil {
		log.Printf("Warning: reload failed, keeping current configuration: %v", err)
		return
	}
	if err := srv.Reload(&next); err != nil {
		log.Printf("Warning: reload failed: %v", err)
	}
}

func run(cfg *config.Config) error {
	log.Printf("Starting %s (%s) version %s", cfg.Server.Name, cfg.Server.Network, cfg.Server.Version)
	log.Printf("Debug logging: %v", cfg.Debug)

	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	var admin *admind.Server
	if cfg.Admin.Enabled {
		admin = admind.New(srv)
		if err := admin.Start(cfg.Admin.Listen); err != nil {
			srv.Stop()
			return fmt.Errorf("failed to start admin endpoint: %w", err)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	log.Println("Server is running. Press Ctrl+C to stop.")
	for sig := range sigChan {
		if sig == syscall.SIGHUP {
			reload(cfg, srv)
			continue
		}
		log.Printf("Received %s, stopping server...", sig)
		break
	}

	if admin != nil {
		if err := admin.Stop(); err != nil {
			log.Printf("Warning: stopping admin endpoint: %v", err)
		}
	}
	if err := srv.Stop(); err != nil {
		log.Printf("Error stopping server: %v", err)
	}

	log.Println("Server stopped. Goodbye!")
	return nil
}
