package ipcp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rinacore/ipcpd/internal/logger"
	"github.com/rinacore/ipcpd/internal/rina/adminapi"
	"github.com/rinacore/ipcpd/internal/rina/rmt"
)

// Run brings every subsystem up: binds the shim, loads any persisted RIB
// snapshot, starts the admin API if enabled, and enrols with the
// configured bootstrap address if this is not a bootstrap IPCP. It
// blocks until ctx is cancelled, then shuts down in reverse order.
func (ip *IPCP) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	ip.cancel = cancel
	defer cancel()

	if err := ip.shim.Bind(runCtx, ip.cfg.Shim.ListenAddr); err != nil {
		return fmt.Errorf("ipcp: bind shim: %w", err)
	}

	if count, ok, err := ip.rib.LoadSnapshot(runCtx, ip.snapshot); err != nil {
		logger.Warn("ipcp: failed to load rib snapshot", logger.Err(err))
	} else if ok {
		logger.Info("ipcp: restored rib from snapshot", "objects", count)
	}

	strategy := rmt.DefaultRoutingStrategy(ip.resolver)
	transport := rmt.New(ip.localAddr, ip.shim, ip.allocator, strategy, ip.handleManagement, ip.handleData)
	ip.forwarder.set(transport)
	go func() {
		if err := transport.Run(runCtx); err != nil && runCtx.Err() == nil {
			logger.Error("ipcp: rmt run loop exited", logger.Err(err))
		}
	}()

	if ip.cfg.AdminAPI.Enabled {
		router := adminapi.NewRouter(adminapi.Deps{
			RIB:       ip.rib,
			Resolver:  ip.resolver,
			Allocator: ip.allocator,
			Enrolment: ip.enrol,
			StartedAt: time.Now(),
			DIFName:   ip.cfg.IPCP.DIFName,
		})
		ip.adminServer = &http.Server{
			Addr:         fmt.Sprintf(":%d", ip.cfg.AdminAPI.Port),
			Handler:      router,
			ReadTimeout:  ip.cfg.AdminAPI.Timeout,
			WriteTimeout: ip.cfg.AdminAPI.Timeout,
		}
		go func() {
			if err := ip.adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("ipcp: admin api server failed", logger.Err(err))
			}
		}()
		logger.Info("ipcp: admin api listening", "port", ip.cfg.AdminAPI.Port)
	}

	if ip.metrics != nil {
		go ip.sampleMetrics(runCtx)
	}

	if !ip.cfg.IPCP.Bootstrap && ip.cfg.IPCP.BootstrapTo != "" {
		go ip.runEnrolment(runCtx)
	}

	<-runCtx.Done()
	return ip.shutdown()
}

// Stop cancels the run context, triggering graceful shutdown.
func (ip *IPCP) Stop() {
	if ip.cancel != nil {
		ip.cancel()
	}
}

func (ip *IPCP) shutdown() error {
	logger.Info("ipcp: shutting down")

	if ip.adminServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ip.adminServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("ipcp: admin api shutdown error", logger.Err(err))
		}
	}

	persistCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ip.rib.PersistSnapshot(persistCtx, ip.snapshot); err != nil {
		logger.Warn("ipcp: failed to persist rib snapshot on shutdown", logger.Err(err))
	}

	if ip.store != nil {
		if err := ip.store.Close(); err != nil {
			logger.Warn("ipcp: persistence store close error", logger.Err(err))
		}
	}

	if closer, ok := ip.snapshot.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Warn("ipcp: snapshot store close error", logger.Err(err))
		}
	}

	return ip.shim.Close()
}

// bootstrapAddr is the RINA address a bootstrap IPCP always holds. The
// member address pool starts well above it, so it is never reassigned.
const bootstrapAddr uint64 = 1

func (ip *IPCP) runEnrolment(ctx context.Context) {
	ip.shim.RegisterPeer(bootstrapAddr, ip.cfg.IPCP.BootstrapTo)
	difName, err := ip.enrol.EnrolWithBootstrap(ctx, bootstrapAddr)
	if err != nil {
		logger.Error("ipcp: enrolment failed", logger.Err(err))
		return
	}
	logger.Info("ipcp: enrolled", "dif_name", difName)

	go ip.enrol.RunConnectionMonitor(ctx)

	syncInterval := time.Duration(ip.cfg.Enrolment.RibSyncIntervalSecs) * time.Second
	go ip.enrol.RunSyncLoop(ctx, syncInterval)
}

func (ip *IPCP) sampleMetrics(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ip.metrics.SetActiveFlows(len(ip.allocator.Stats()))
			objs := ip.rib.ListByPrefix("")
			ip.metrics.SetRIBStats(len(objs), ip.rib.CurrentVersion())
			ip.metrics.SetEnrolState(int(ip.enrol.State()))
		}
	}
}
