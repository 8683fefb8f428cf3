// Package scheduler talks to the cluster scheduler that places and runs
// services. The load balancer uses it to manage the proxy's own service and
// to deliver reload signals.
package scheduler

import (
	"context"
	"fmt"
)

// PortBinding publishes a service port on the host.
type PortBinding struct {
	Published uint32
	Target    uint32
}

// Mount binds a host path into the service's containers.
type Mount struct {
	Source string
	Target string
}

// ServiceSpec is the desired state of a managed service.
type ServiceSpec struct {
	Name                   string
	Image                  string
	NodeID                 string // placement constraint; empty means any node
	Ports                  []PortBinding
	Networks               []string
	Mounts                 []Mount
	MemoryReservationBytes int64
}

// Client is the scheduler operations this controller consumes. Calls are not
// retried internally; any failure surfaces as a *SchedulerError.
type Client interface {
	IsServiceRunning(ctx context.Context, name string) (bool, error)
	ServiceNodeID(ctx context.Context, name string) (string, error)
	CreateService(ctx context.Context, spec ServiceSpec) error
	UpdateService(ctx context.Context, spec ServiceSpec) error
	RemoveService(ctx context.Context, name string) error
	SendSignal(ctx context.Context, serviceName, signal string) error
	LeaderNodeID(ctx context.Context) (string, error)
}

// SchedulerError wraps a failed scheduler-client call.
type SchedulerError struct {
	Op      string
	Service string
	Err     error
}

func (e *SchedulerError) Error() string {
	if e.Service == "" {
		return fmt.Sprintf("scheduler %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("scheduler %s for service %q failed: %v", e.Op, e.Service, e.Err)
}

func (e *SchedulerError) Unwrap() error { return e.Err }
