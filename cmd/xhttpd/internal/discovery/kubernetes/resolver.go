package kubernetes

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/discovery/memory"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/informers"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/cache"
)

const resyncPeriod = 10 * time.Minute

// K8sResolver resolves the upstream from a Service kept in an informer
// cache, so every proxied connection sees the Service's current ports.
type K8sResolver struct {
	store     cache.Store
	namespace string
	service   string
	port      int
}

// NewK8sResolver watches Services in the target's namespace and blocks
// until the cache has synced. Target format: "service[.namespace][:port]";
// without a port the Service's first port is used.
func NewK8sResolver(clientset kubernetes.Interface, defaultNamespace, target string) (*K8sResolver, error) {
	service, namespace, port, err := ParseServiceTarget(target, defaultNamespace)
	if err != nil {
		return nil, err
	}

	factory := informers.NewSharedInformerFactoryWithOptions(clientset, resyncPeriod,
		informers.WithNamespace(namespace))
	serviceInformer := factory.Core().V1().Services().Informer()

	// Start the informer in the background
	stopCh := make(chan struct{})
	factory.Start(stopCh)
	for typ, ok := range factory.WaitForCacheSync(stopCh) {
		if !ok {
			close(stopCh)
			return nil, fmt.Errorf("informer cache for %v did not sync", typ)
		}
	}

	return newResolver(serviceInformer.GetStore(), service, namespace, port), nil
}

func newResolver(store cache.Store, service, namespace string, port int) *K8sResolver {
	return &K8sResolver{
		store:     store,
		namespace: namespace,
		service:   service,
		port:      port,
	}
}

func (r *K8sResolver) Resolve(ctx context.Context) (string, error) {
	key := r.namespace + "/" + r.service
	obj, exists, err := r.store.GetByKey(key)
	if err != nil {
		return "", fmt.Errorf("service lookup %s: %w", key, err)
	}
	if !exists {
		return "", fmt.Errorf("service not found: %s", key)
	}

	svc, ok := obj.(*corev1.Service)
	if !ok {
		return "", fmt.Errorf("unexpected object %T for key %s", obj, key)
	}

	port := r.port
	if port == 0 {
		if len(svc.Spec.Ports) == 0 {
			return "", fmt.Errorf("service %s exposes no ports", key)
		}
		port = int(svc.Spec.Ports[0].Port)
	}

	host := fmt.Sprintf("%s.%s.svc.cluster.local", svc.Name, svc.Namespace)
	if svc.Spec.Type == corev1.ServiceTypeExternalName && svc.Spec.ExternalName != "" {
		host = svc.Spec.ExternalName
	}

	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// ParseServiceTarget splits "service[.namespace][:port]". Any DNS suffix after
// the namespace (".svc.cluster.local") is ignored.
func ParseServiceTarget(target, defaultNamespace string) (service, namespace string, port int, err error) {
	host, port, err := memory.SplitTarget(target)
	if err != nil {
		return "", "", 0, err
	}

	parts := strings.Split(host, ".")
	service = parts[0]
	namespace = defaultNamespace
	if len(parts) > 1 && parts[1] != "" {
		namespace = parts[1]
	}
	if service == "" || namespace == "" {
		return "", "", 0, fmt.Errorf("invalid service target %q", target)
	}
	return service, namespace, port, nil
}
