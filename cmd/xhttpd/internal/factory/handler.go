package factory

import (
	"fmt"

	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/config"
	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/core"
	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/logger"
	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/proxy/relay"
	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/static"
)

// HandlerFactory creates the request handler for the configured mode
type HandlerFactory struct {
	cfg *config.Config
}

// NewHandlerFactory creates a new handler factory
func NewHandlerFactory(cfg *config.Config) *HandlerFactory {
	return &HandlerFactory{cfg: cfg}
}

// Create creates a connection handler. resolver is only used in proxy mode.
func (f *HandlerFactory) Create(resolver core.UpstreamResolver) (core.ConnectionHandler, error) {
	switch f.cfg.Mode {
	case core.ModeFiles:
		logger.Info("Creating static file handler", "root", f.cfg.FilesDirectory)
		return static.NewHandler(f.cfg.FilesDirectory), nil
	case core.ModeProxy:
		if resolver == nil {
			return nil, fmt.Errorf("proxy mode requires an upstream resolver")
		}
		logger.Info("Creating reverse proxy handler", "target", f.cfg.ProxyTarget)
		return &relay.Proxy{Resolver: resolver}, nil
	default:
		return nil, fmt.Errorf("unknown mode: %q", f.cfg.Mode)
	}
}
