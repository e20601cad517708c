package discovery

import (
	"fmt"
	"net"
	"strconv"

	consulapi "github.com/hashicorp/consul/api"
	"go.uber.org/zap"
)

// Registrar announces this instance to the local Consul agent with an
// HTTP health check against /healthz.
type Registrar struct {
	client *consulapi.Client
	id     string
	logger *zap.Logger
}

func NewRegistrar(consulAddr string, logger *zap.Logger) (*Registrar, error) {
	cfg := consulapi.DefaultConfig()
	if consulAddr != "" {
		cfg.Address = consulAddr
	}
	client, err := consulapi.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Registrar{client: client, logger: logger}, nil
}

// Register uses serviceAddr (host:port) as both the advertised address and
// the health check target.
func (r *Registrar) Register(name, serviceAddr string) error {
	host, portStr, err := net.SplitHostPort(serviceAddr)
	if err != nil {
		return fmt.Errorf("invalid service address %q: %w", serviceAddr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid service port %q: %w", portStr, err)
	}

	r.id = fmt.Sprintf("%s-%s-%d", name, host, port)
	reg := &consulapi.AgentServiceRegistration{
		ID:      r.id,
		Name:    name,
		Address: host,
		Port:    port,
		Tags:    []string{"http"},
		Check: &consulapi.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s/healthz", serviceAddr),
			Interval:                       "10s",
			Timeout:                        "2s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}
	if err := r.client.Agent().ServiceRegister(reg); err != nil {
		return fmt.Errorf("consul register: %w", err)
	}
	r.logger.Info("registered with consul", zap.String("id", r.id))
	return nil
}

func (r *Registrar) Deregister() error {
	if r.id == "" {
		return nil
	}
	if err := r.client.Agent().ServiceDeregister(r.id); err != nil {
		return fmt.Errorf("consul deregister: %w", err)
	}
	r.logger.Info("deregistered from consul", zap.String("id", r.id))
	return nil
}
