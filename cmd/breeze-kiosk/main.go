package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/breeze-rmm/kiosk/internal/config"
	"github.com/breeze-rmm/kiosk/internal/console"
	"github.com/breeze-rmm/kiosk/internal/locator"
	"github.com/breeze-rmm/kiosk/internal/logging"
	"github.com/breeze-rmm/kiosk/internal/screen"
	"github.com/breeze-rmm/kiosk/internal/splash"
	"github.com/breeze-rmm/kiosk/internal/supervisor"
	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	cfgFile    string
	serverAddr string
	panelName  string
)

var log = logging.L("main")

var rootCmd = &cobra.Command{
	Use:   "breeze-kiosk [domain]",
	Short: "Breeze Kiosk panel",
	Long:  `Breeze Kiosk - thin RFB viewer client for in-wall panel hardware.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Breeze Kiosk v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default /etc/breeze-kiosk/kiosk.yaml)")
	rootCmd.Flags().StringVar(&serverAddr, "server", "", "connect directly to this RFB server, bypassing discovery")
	rootCmd.Flags().StringVar(&panelName, "name", "", "panel identity reported in the query protocol (default: hostname)")
	rootCmd.Flags().BoolVar(&discoverFlag, "domains", false, "discover advertised managers and exit")

	rootCmd.AddCommand(versionCmd)
}

var discoverFlag bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogging(cfg *config.Config) {
	var output io.Writer = os.Stdout
	if cfg.LogFile != "" {
		rw, err := logging.NewRotatingWriter(cfg.LogFile, 10, 3)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file %s: %v (logging to stdout)\n", cfg.LogFile, err)
		} else {
			output = logging.TeeWriter(os.Stdout, rw)
		}
	}
	logging.Init(cfg.LogFormat, cfg.LogLevel, output)
	log = logging.L("main")
}

func run(args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	initLogging(cfg)

	loc := locator.New(cfg.ResolveTimeout, cfg.DiscoveryFirstWait, cfg.DiscoveryWindow)

	if discoverFlag {
		return runDiscover(loc, cfg.DiscoveryFirstWait+cfg.DiscoveryWindow+time.Second)
	}

	domain := ""
	if len(args) == 1 {
		domain = args[0]
	}
	if (serverAddr == "") == (domain == "") {
		return fmt.Errorf("exactly one of --server or <domain> must be given")
	}

	if panelName == "" {
		if host, err := os.Hostname(); err == nil {
			panelName = host
		} else {
			panelName = "breeze-kiosk"
		}
	}

	scr, err := screen.Open(cfg.FramebufferDevice)
	if err != nil {
		return fmt.Errorf("open framebuffer: %w", err)
	}
	defer scr.Close()

	con, err := console.Open(cfg.ConsoleDevice)
	if err != nil {
		log.Warn("console open failed, mode switching disabled", "error", err)
		con = console.NewFake()
	}

	touchDevice := cfg.TouchDevice
	if probe, err := os.Open(touchDevice); err != nil {
		log.Warn("touch device open failed, running without touch input", "error", err)
		touchDevice = ""
	} else {
		probe.Close()
	}

	display := splash.NewScreenDisplay(scr)

	sup := supervisor.New(cfg, scr, loc, display, touchDevice, panelName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down kiosk")
		cancel()
	}()

	if err := con.SetGraphicsMode(); err != nil {
		log.Warn("failed to switch console to graphics mode", "error", err)
	}
	defer func() {
		if err := con.SetTextMode(); err != nil {
			log.Warn("failed to restore text console", "error", err)
		}
		con.Close()
	}()

	log.Info("kiosk starting", "mode", modeString(domain), "panel", panelName)

	if domain != "" {
		return sup.RunDomain(ctx, domain)
	}
	return sup.RunDirect(ctx, serverAddr)
}

func modeString(domain string) string {
	if domain != "" {
		return "domain"
	}
	return "direct"
}

func runDiscover(loc locatorDiscoverer, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	results, err := loc.DiscoverAll(ctx)
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}
	if len(results) == 0 {
		fmt.Println("no managers found")
		return nil
	}
	for name, addr := range results {
		fmt.Printf("%s\t%s\n", name, addr)
	}
	return nil
}

type locatorDiscoverer interface {
	DiscoverAll(ctx context.Context) (map[string]string, error)
}
