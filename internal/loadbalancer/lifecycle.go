package loadbalancer

import (
	"context"
	"time"

	"github.com/sidharthv96/caprover/internal/config"
	"github.com/sidharthv96/caprover/internal/scheduler"
	"github.com/sidharthv96/caprover/pkg/logger"
)

// LifecycleManager keeps the proxy's own service existing, placed on the
// leader node, and carrying the desired image, ports and mounts.
type LifecycleManager struct {
	cfg   *config.Config
	sched scheduler.Client
}

func NewLifecycleManager(cfg *config.Config, sched scheduler.Client) *LifecycleManager {
	return &LifecycleManager{cfg: cfg, sched: sched}
}

// desiredSpec is the full service definition, including every mount the
// rendered configuration depends on.
func (m *LifecycleManager) desiredSpec(nodeID string) scheduler.ServiceSpec {
	return scheduler.ServiceSpec{
		Name:   m.cfg.Proxy.ServiceName,
		Image:  m.cfg.Proxy.Image,
		NodeID: nodeID,
		Ports: []scheduler.PortBinding{
			{Published: 80, Target: 80},
			{Published: 443, Target: 443},
		},
		Networks: []string{m.cfg.Proxy.Network},
		Mounts: []scheduler.Mount{
			{Source: m.cfg.StaticDir(), Target: ContainerStaticDir},
			{Source: m.cfg.FakeCertDir(), Target: ContainerFakeCertDir},
			{Source: m.cfg.BaseConfPath(), Target: ContainerBaseConf},
			{Source: m.cfg.ConfDir(), Target: ContainerConfDir},
			{Source: m.cfg.Paths.LetsEncryptDir, Target: ContainerCertsDir},
			{Source: m.cfg.StateDir(), Target: ContainerStateDir},
		},
		MemoryReservationBytes: int64(m.cfg.Proxy.MemoryReservationMB) * 1024 * 1024,
	}
}

func (m *LifecycleManager) settle() {
	time.Sleep(time.Duration(m.cfg.Proxy.SettleSeconds) * time.Second)
}

// Reconcile ensures the proxy service exists on the leader node and pushes
// the full desired spec. Idempotent; safe to call on every bootstrap pass.
// Migrating a misplaced service removes and recreates it, which causes a
// brief proxy outage.
func (m *LifecycleManager) Reconcile(ctx context.Context, leaderNodeID string) error {
	name := m.cfg.Proxy.ServiceName

	running, err := m.sched.IsServiceRunning(ctx, name)
	if err != nil {
		return err
	}

	if !running {
		logger.Info("Proxy service not found, creating", "service", name, "node", leaderNodeID)
		if err := m.sched.CreateService(ctx, m.desiredSpec(leaderNodeID)); err != nil {
			return err
		}
		m.settle()
	} else {
		nodeID, err := m.sched.ServiceNodeID(ctx, name)
		if err != nil {
			return err
		}
		if nodeID != leaderNodeID {
			logger.Warn("Proxy service on wrong node, migrating",
				"service", name, "current_node", nodeID, "leader_node", leaderNodeID)
			if err := m.sched.RemoveService(ctx, name); err != nil {
				return err
			}
			if err := m.sched.CreateService(ctx, m.desiredSpec(leaderNodeID)); err != nil {
				return err
			}
			m.settle()
		}
	}

	// Always push the full desired state so mount or image drift from
	// manual intervention heals on the next pass.
	return m.sched.UpdateService(ctx, m.desiredSpec(leaderNodeID))
}
