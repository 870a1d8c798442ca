package factory

import (
	"context"
	"fmt"
	"os"

	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/config"
	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/core"
	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/discovery/kubernetes"
	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/discovery/memory"
	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/logger"

	k8s "k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// ResolverFactory creates upstream resolvers based on configuration
type ResolverFactory struct {
	cfg *config.Config
}

// NewResolverFactory creates a new resolver factory
func NewResolverFactory(cfg *config.Config) *ResolverFactory {
	return &ResolverFactory{cfg: cfg}
}

// Create creates an upstream resolver based on configuration
func (f *ResolverFactory) Create(ctx context.Context) (core.UpstreamResolver, error) {
	switch f.cfg.DiscoveryMode {
	case config.DiscoveryStatic:
		return f.createStaticResolver()
	case config.DiscoveryKubernetes:
		return f.createKubernetesResolver()
	default:
		return nil, fmt.Errorf("unknown discovery mode: %s", f.cfg.DiscoveryMode)
	}
}

func (f *ResolverFactory) createStaticResolver() (core.UpstreamResolver, error) {
	logger.Info("Creating static upstream resolver", "target", f.cfg.ProxyTarget)

	resolver, err := memory.NewResolver(f.cfg.ProxyTarget)
	if err != nil {
		return nil, fmt.Errorf("failed to create static resolver: %w", err)
	}
	return resolver, nil
}

func (f *ResolverFactory) createKubernetesResolver() (core.UpstreamResolver, error) {
	logger.Info("Creating Kubernetes upstream resolver",
		"target", f.cfg.ProxyTarget,
		"namespace", f.cfg.Namespace,
		"kubeconfig", f.cfg.KubeConfigPath,
		"context", f.cfg.KubeContext)

	restConfig, err := f.restConfig()
	if err != nil {
		return nil, err
	}

	clientset, err := k8s.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	resolver, err := kubernetes.NewK8sResolver(clientset, f.cfg.Namespace, f.cfg.ProxyTarget)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes resolver: %w", err)
	}
	logger.Info("Kubernetes resolver created successfully")
	return resolver, nil
}

// restConfig prefers an explicit or home kubeconfig and falls back to the
// in-cluster service account.
func (f *ResolverFactory) restConfig() (*rest.Config, error) {
	kubeconfig := f.cfg.KubeConfigPath
	if kubeconfig == "" {
		if home := os.Getenv("HOME"); home != "" {
			if _, err := os.Stat(home + "/.kube/config"); err == nil {
				kubeconfig = home + "/.kube/config"
			}
		}
	}

	configOverrides := &clientcmd.ConfigOverrides{}
	if f.cfg.KubeContext != "" {
		configOverrides.CurrentContext = f.cfg.KubeContext
		logger.Info("Using specific Kubernetes context", "context", f.cfg.KubeContext)
	}

	if kubeconfig != "" {
		restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
			&clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfig},
			configOverrides,
		).ClientConfig()
		if err == nil {
			return restConfig, nil
		}
		logger.Warn("Failed to load kubeconfig, will try in-cluster config", "error", err)
	}

	logger.Info("Attempting in-cluster Kubernetes configuration")
	restConfig, err := rest.InClusterConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to build kubernetes config (tried kubeconfig and in-cluster): %w", err)
	}
	return restConfig, nil
}
