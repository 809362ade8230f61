// Command mudproxy runs the intercepting MUD proxy core (spec.md §6):
// it listens locally, dials the remote MUD server for each connecting
// client, and wires the proxy concurrency core between them.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"

	"github.com/anicolao/mudproxy/internal/config"
	"github.com/anicolao/mudproxy/internal/mapper"
	"github.com/anicolao/mudproxy/internal/proxy"
)

var (
	listenAddr       = flag.String("listen", "127.0.0.1:4000", "local listen address")
	remoteHost       = flag.String("remote-host", "mume.org", "remote MUD server host")
	remotePort       = flag.Int("remote-port", 4242, "remote MUD server port")
	outputFormat     = flag.String("output-format", "normal", "client output format: raw|normal|tintin")
	promptTerminator = flag.String("prompt-terminator", "", "bytes to substitute for IAC GA (default: preserve raw IAC GA)")
	debugLog         = flag.String("debug-log", "", "optional path for timestamped diagnostic logging")
)

func main() {
	flag.Parse()

	var logger *log.Logger
	if *debugLog != "" {
		f, err := os.Create(*debugLog)
		if err != nil {
			fmt.Printf("Error creating debug log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logger = log.New(f, "", log.LstdFlags)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("Error loading configuration: %v (using defaults)\n", err)
		cfg = config.Default()
	}
	applyFlags(cfg)

	mapStore, err := loadMap()
	if err != nil {
		fmt.Printf("Error loading map: %v\n", err)
		os.Exit(1)
	}

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		fmt.Printf("Error listening on %s: %v\n", cfg.ListenAddr, err)
		os.Exit(1)
	}
	defer listener.Close()

	statusPath, err := writeStatusFile()
	if err != nil {
		fmt.Printf("Error creating listening-status file: %v\n", err)
	} else {
		defer os.Remove(statusPath)
	}

	fmt.Printf("mudproxy listening on %s, forwarding to %s:%d\n", cfg.ListenAddr, cfg.RemoteHost, cfg.RemotePort)

	for {
		conn, err := listener.Accept()
		if err != nil {
			fmt.Printf("Error accepting connection: %v\n", err)
			return
		}
		go serveClient(conn, cfg, mapStore, logger)
	}
}

func serveClient(conn net.Conn, cfg *config.ProxyConfig, mapStore *mapper.Map, logger *log.Logger) {
	if err := proxy.Serve(conn, cfg, mapStore, logger); err != nil {
		fmt.Printf("Session error: %v\n", err)
	}
}

func loadConfig() (*config.ProxyConfig, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, err
	}
	return config.Load(filepath.Join(dir, "config.json"))
}

func loadMap() (*mapper.Map, error) {
	dir, err := mapper.StoreDir()
	if err != nil {
		return nil, err
	}
	return mapper.Load(dir)
}

func applyFlags(cfg *config.ProxyConfig) {
	if isFlagSet("listen") {
		cfg.ListenAddr = *listenAddr
	}
	if isFlagSet("remote-host") {
		cfg.RemoteHost = *remoteHost
	}
	if isFlagSet("remote-port") {
		cfg.RemotePort = *remotePort
	}
	if isFlagSet("output-format") {
		cfg.OutputFormat = config.OutputFormat(*outputFormat)
	}
	if isFlagSet("prompt-terminator") {
		cfg.PromptTerminator = *promptTerminator
	}
}

func isFlagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// writeStatusFile creates the empty listening-status file supervisors use
// to detect readiness (spec.md §6), returning its path.
func writeStatusFile() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "mudproxy.listening")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	return path, f.Close()
}
