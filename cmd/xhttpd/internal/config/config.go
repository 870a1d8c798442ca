package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/core"
	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/discovery/memory"
)

// ErrHelp is returned by Parse when --help was requested.
var ErrHelp = pflag.ErrHelp

const Usage = `Usage: xhttpd --files www_directory/ --port 8000 [--num-threads 5]
       xhttpd --proxy inst.eecs.berkeley.edu:80 --port 8000 [--num-threads 5]
`

// DiscoveryMode represents how the proxy upstream is located
type DiscoveryMode string

const (
	DiscoveryStatic     DiscoveryMode = "static"
	DiscoveryKubernetes DiscoveryMode = "kubernetes"
)

// Config holds all application configuration
type Config struct {
	// Core
	Debug bool
	Mode  core.Mode

	// Server
	Port             int
	NumThreads       int
	HealthServerPort string

	// Static mode
	FilesDirectory string

	// Proxy mode
	ProxyTarget    string
	DiscoveryMode  DiscoveryMode
	Namespace      string
	KubeConfigPath string
	KubeContext    string
}

// Parse reads the command line and the environment. Usage output for flag
// errors goes to out.
func Parse(args []string, out io.Writer) (*Config, error) {
	fs := pflag.NewFlagSet("xhttpd", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() { fmt.Fprint(out, Usage) }

	cfg := &Config{
		Debug:            getEnvBool("DEBUG", false),
		HealthServerPort: getEnv("HEALTH_SERVER_PORT", ""),
		DiscoveryMode:    determineDiscoveryMode(),
		Namespace:        determineNamespace(),
		KubeConfigPath:   getEnv("KUBECONFIG", ""),
		KubeContext:      getEnv("KUBE_CONTEXT", ""),
	}

	fs.StringVar(&cfg.FilesDirectory, "files", "", "serve files from this directory")
	fs.StringVar(&cfg.ProxyTarget, "proxy", "", "relay connections to host[:port] (default port 80)")
	fs.IntVar(&cfg.Port, "port", 8000, "listen port")
	fs.IntVar(&cfg.NumThreads, "num-threads", 0, "worker pool size; omit to handle connections on the accept loop")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unrecognized argument: %s", fs.Arg(0))
	}
	if fs.Changed("num-threads") && cfg.NumThreads < 1 {
		return nil, fmt.Errorf("expected positive integer after --num-threads, got %d", cfg.NumThreads)
	}

	switch {
	case cfg.FilesDirectory != "" && cfg.ProxyTarget != "":
		return nil, errors.New(`specify only one of "--files [DIRECTORY]" or "--proxy [HOSTNAME:PORT]"`)
	case cfg.FilesDirectory != "":
		cfg.Mode = core.ModeFiles
	case cfg.ProxyTarget != "":
		cfg.Mode = core.ModeProxy
	default:
		return nil, errors.New(`please specify either "--files [DIRECTORY]" or "--proxy [HOSTNAME:PORT]"`)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate ensures configuration is coherent
func (c *Config) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid --port %d", c.Port)
	}

	if c.Mode == core.ModeFiles {
		info, err := os.Stat(c.FilesDirectory)
		if err != nil {
			return fmt.Errorf("files directory: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("files directory %s is not a directory", c.FilesDirectory)
		}
	}

	if c.Mode == core.ModeProxy {
		if _, _, err := memory.SplitTarget(c.ProxyTarget); err != nil {
			return fmt.Errorf("--proxy: %w", err)
		}
	}

	if c.Mode == core.ModeFiles && c.DiscoveryMode == DiscoveryKubernetes {
		return fmt.Errorf("DISCOVERY_MODE=kubernetes only applies to --proxy")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func determineDiscoveryMode() DiscoveryMode {
	switch strings.ToLower(os.Getenv("DISCOVERY_MODE")) {
	case "kubernetes", "k8s":
		return DiscoveryKubernetes
	default:
		return DiscoveryStatic
	}
}

func determineNamespace() string {
	// Explicit namespace
	if ns := os.Getenv("NAMESPACE"); ns != "" {
		return ns
	}

	// Kubernetes downward API
	if ns := os.Getenv("POD_NAMESPACE"); ns != "" {
		return ns
	}

	// Read from service account (in-cluster)
	if data, err := os.ReadFile("/var/run/secrets/kubernetes.io/serviceaccount/namespace"); err == nil {
		return strings.TrimSpace(string(data))
	}

	return "default"
}
