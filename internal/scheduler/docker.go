package scheduler

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/swarm"
	"github.com/docker/docker/client"

	"github.com/sidharthv96/caprover/pkg/logger"
)

// SwarmClient implements Client against a Docker Swarm manager.
type SwarmClient struct {
	cli *client.Client
}

// NewSwarmClient connects to the Docker daemon over the given unix socket.
func NewSwarmClient(socketPath string) (*SwarmClient, error) {
	cli, err := client.NewClientWithOpts(
		client.WithHost("unix://"+socketPath),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}

	logger.Debug("Docker client initialized", "socket", socketPath)
	return &SwarmClient{cli: cli}, nil
}

// NewSwarmClientWithClient wraps an existing docker client (for testing).
func NewSwarmClientWithClient(cli *client.Client) *SwarmClient {
	return &SwarmClient{cli: cli}
}

func (c *SwarmClient) findService(ctx context.Context, name string) (*swarm.Service, error) {
	services, err := c.cli.ServiceList(ctx, types.ServiceListOptions{
		Filters: filters.NewArgs(filters.Arg("name", name)),
	})
	if err != nil {
		return nil, err
	}
	// The name filter matches prefixes; require an exact match.
	for i := range services {
		if services[i].Spec.Name == name {
			return &services[i], nil
		}
	}
	return nil, nil
}

// IsServiceRunning reports whether a service with the given name exists.
func (c *SwarmClient) IsServiceRunning(ctx context.Context, name string) (bool, error) {
	svc, err := c.findService(ctx, name)
	if err != nil {
		return false, &SchedulerError{Op: "query service", Service: name, Err: err}
	}
	return svc != nil, nil
}

func (c *SwarmClient) runningTasks(ctx context.Context, name string) ([]swarm.Task, error) {
	tasks, err := c.cli.TaskList(ctx, types.TaskListOptions{
		Filters: filters.NewArgs(
			filters.Arg("service", name),
			filters.Arg("desired-state", "running"),
		),
	})
	if err != nil {
		return nil, err
	}

	running := tasks[:0]
	for _, task := range tasks {
		if task.Status.State == swarm.TaskStateRunning {
			running = append(running, task)
		}
	}
	return running, nil
}

// ServiceNodeID returns the node currently hosting the service's running
// task, or an error when no task is running.
func (c *SwarmClient) ServiceNodeID(ctx context.Context, name string) (string, error) {
	tasks, err := c.runningTasks(ctx, name)
	if err != nil {
		return "", &SchedulerError{Op: "list tasks", Service: name, Err: err}
	}
	if len(tasks) == 0 {
		return "", &SchedulerError{Op: "locate node", Service: name, Err: fmt.Errorf("no running task")}
	}
	return tasks[0].NodeID, nil
}

func buildSwarmSpec(spec ServiceSpec) swarm.ServiceSpec {
	serviceSpec := swarm.ServiceSpec{
		Annotations: swarm.Annotations{Name: spec.Name},
		TaskTemplate: swarm.TaskSpec{
			ContainerSpec: &swarm.ContainerSpec{
				Image: spec.Image,
			},
		},
	}

	if spec.NodeID != "" {
		serviceSpec.TaskTemplate.Placement = &swarm.Placement{
			Constraints: []string{"node.id==" + spec.NodeID},
		}
	}

	if spec.MemoryReservationBytes > 0 {
		serviceSpec.TaskTemplate.Resources = &swarm.ResourceRequirements{
			Reservations: &swarm.Resources{MemoryBytes: spec.MemoryReservationBytes},
		}
	}

	for _, m := range spec.Mounts {
		serviceSpec.TaskTemplate.ContainerSpec.Mounts = append(
			serviceSpec.TaskTemplate.ContainerSpec.Mounts,
			mount.Mount{Type: mount.TypeBind, Source: m.Source, Target: m.Target},
		)
	}

	for _, network := range spec.Networks {
		serviceSpec.TaskTemplate.Networks = append(
			serviceSpec.TaskTemplate.Networks,
			swarm.NetworkAttachmentConfig{Target: network},
		)
	}

	if len(spec.Ports) > 0 {
		endpoint := &swarm.EndpointSpec{}
		for _, p := range spec.Ports {
			endpoint.Ports = append(endpoint.Ports, swarm.PortConfig{
				Protocol:      swarm.PortConfigProtocolTCP,
				TargetPort:    p.Target,
				PublishedPort: p.Published,
			})
		}
		serviceSpec.EndpointSpec = endpoint
	}

	return serviceSpec
}

// CreateService creates a new service from spec.
func (c *SwarmClient) CreateService(ctx context.Context, spec ServiceSpec) error {
	_, err := c.cli.ServiceCreate(ctx, buildSwarmSpec(spec), types.ServiceCreateOptions{})
	if err != nil {
		return &SchedulerError{Op: "create service", Service: spec.Name, Err: err}
	}
	logger.Info("Service created", "service", spec.Name, "node", spec.NodeID)
	return nil
}

// UpdateService pushes the full desired spec onto an existing service.
func (c *SwarmClient) UpdateService(ctx context.Context, spec ServiceSpec) error {
	current, err := c.findService(ctx, spec.Name)
	if err != nil {
		return &SchedulerError{Op: "inspect service", Service: spec.Name, Err: err}
	}
	if current == nil {
		return &SchedulerError{Op: "update service", Service: spec.Name, Err: fmt.Errorf("service not found")}
	}

	_, err = c.cli.ServiceUpdate(ctx, current.ID, current.Meta.Version, buildSwarmSpec(spec), types.ServiceUpdateOptions{})
	if err != nil {
		return &SchedulerError{Op: "update service", Service: spec.Name, Err: err}
	}
	logger.Debug("Service updated", "service", spec.Name)
	return nil
}

// RemoveService removes a service by name.
func (c *SwarmClient) RemoveService(ctx context.Context, name string) error {
	svc, err := c.findService(ctx, name)
	if err != nil {
		return &SchedulerError{Op: "inspect service", Service: name, Err: err}
	}
	if svc == nil {
		return nil
	}
	if err := c.cli.ServiceRemove(ctx, svc.ID); err != nil {
		return &SchedulerError{Op: "remove service", Service: name, Err: err}
	}
	logger.Info("Service removed", "service", name)
	return nil
}

// SendSignal delivers a process signal to every running task container of
// the service.
func (c *SwarmClient) SendSignal(ctx context.Context, serviceName, signal string) error {
	tasks, err := c.runningTasks(ctx, serviceName)
	if err != nil {
		return &SchedulerError{Op: "list tasks", Service: serviceName, Err: err}
	}
	if len(tasks) == 0 {
		return &SchedulerError{Op: "send signal", Service: serviceName, Err: fmt.Errorf("no running task")}
	}

	for _, task := range tasks {
		if task.Status.ContainerStatus == nil || task.Status.ContainerStatus.ContainerID == "" {
			continue
		}
		containerID := task.Status.ContainerStatus.ContainerID
		if err := c.cli.ContainerKill(ctx, containerID, signal); err != nil {
			return &SchedulerError{Op: "send signal", Service: serviceName, Err: err}
		}
		logger.Debug("Signal sent", "service", serviceName, "container", containerID, "signal", signal)
	}
	return nil
}

// LeaderNodeID returns the ID of the current Swarm leader manager.
func (c *SwarmClient) LeaderNodeID(ctx context.Context) (string, error) {
	nodes, err := c.cli.NodeList(ctx, types.NodeListOptions{})
	if err != nil {
		return "", &SchedulerError{Op: "list nodes", Err: err}
	}
	for _, node := range nodes {
		if node.ManagerStatus != nil && node.ManagerStatus.Leader {
			return node.ID, nil
		}
	}
	return "", &SchedulerError{Op: "find leader", Err: fmt.Errorf("no leader manager in cluster")}
}

var _ Client = (*SwarmClient)(nil)
