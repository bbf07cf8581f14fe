// Package ipcp wires the full IPC Process component graph -  Shim, RIB,
// RouteResolver, AddressPool, FAL, RMT, EFCP, CDAP dispatcher and
// enrolment Manager -  from a loaded config.Config, the way the
// teacher's server command wires its Runtime from a loaded
// config.Config. It is the single place that knows how every RINA
// subsystem depends on every other.
package ipcp

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rinacore/ipcpd/internal/logger"
	"github.com/rinacore/ipcpd/internal/rina/addresspool"
	"github.com/rinacore/ipcpd/internal/rina/cdap"
	"github.com/rinacore/ipcpd/internal/rina/config"
	"github.com/rinacore/ipcpd/internal/rina/efcp"
	"github.com/rinacore/ipcpd/internal/rina/enrolment"
	"github.com/rinacore/ipcpd/internal/rina/fal"
	"github.com/rinacore/ipcpd/internal/rina/metrics"
	"github.com/rinacore/ipcpd/internal/rina/persistence"
	"github.com/rinacore/ipcpd/internal/rina/pdu"
	"github.com/rinacore/ipcpd/internal/rina/rib"
	"github.com/rinacore/ipcpd/internal/rina/rmt"
	"github.com/rinacore/ipcpd/internal/rina/routing"
	badgersnap "github.com/rinacore/ipcpd/internal/rina/snapshotstore/badger"
	filesnap "github.com/rinacore/ipcpd/internal/rina/snapshotstore/file"
	postgressnap "github.com/rinacore/ipcpd/internal/rina/snapshotstore/postgres"
	s3snap "github.com/rinacore/ipcpd/internal/rina/snapshotstore/s3"
	"github.com/rinacore/ipcpd/internal/rina/shim"
)

// rmtForwarder adapts efcp.Forwarder to a *rmt.RMT that does not exist
// yet at the time the EFCP is constructed: Run wires the real RMT in
// once it is built, closing the New/Run construction-order cycle
// between EFCP (needs a Forwarder) and RMT (needs EFCP's data handler).
type rmtForwarder struct {
	mu  sync.Mutex
	rmt *rmt.RMT
}

func (f *rmtForwarder) HandleOutbound(ctx context.Context, p *pdu.PDU) {
	f.mu.Lock()
	r := f.rmt
	f.mu.Unlock()
	if r != nil {
		r.HandleOutbound(ctx, p)
	}
}

func (f *rmtForwarder) set(r *rmt.RMT) {
	f.mu.Lock()
	f.rmt = r
	f.mu.Unlock()
}

// storePersister adapts *persistence.Store to enrolment.Persister,
// translating the dynamic-route TTL enrolment works in terms of into the
// absolute expiry the store's relational schema records.
type storePersister struct {
	store *persistence.Store
}

func (p storePersister) SaveLocalAddress(ctx context.Context, addr uint64) error {
	return p.store.SaveLocalAddress(ctx, addr)
}

func (p storePersister) SaveAllocated(ctx context.Context, addr uint64) error {
	return p.store.SaveAllocated(ctx, addr)
}

func (p storePersister) SaveRoute(ctx context.Context, dst, nextHopAddr uint64, nextHopEndpoint string, ttl time.Duration) error {
	return p.store.SaveRoute(ctx, persistence.DynamicRoute{
		Dst:             dst,
		NextHopAddr:     nextHopAddr,
		NextHopEndpoint: nextHopEndpoint,
		ExpiresAtUnix:   time.Now().Add(ttl).Unix(),
	})
}

// IPCP owns one IPC Process's full set of running subsystems.
type IPCP struct {
	cfg       *config.Config
	localAddr uint64

	shim      shim.Shim
	rib       *rib.RIB
	resolver  *routing.Resolver
	pool      *addresspool.Pool
	allocator *fal.Allocator
	forwarder *rmtForwarder
	efcp      *efcp.EFCP
	dispatch  *cdap.Dispatcher
	enrol     *enrolment.Manager
	metrics   *metrics.Metrics

	store       *persistence.Store
	snapshot    rib.Store
	adminServer *http.Server

	cancel context.CancelFunc
}

// New builds every subsystem and wires them together but starts
// nothing; call Run to bring the IPCP up.
func New(cfg *config.Config) (*IPCP, error) {
	ip := &IPCP{cfg: cfg}

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		ip.metrics = metrics.New()
	}

	ip.shim = shim.NewUDP()
	ip.rib = rib.New()
	ip.resolver = routing.New(ip.rib)

	if cfg.IPCP.Bootstrap {
		ip.pool = addresspool.New(cfg.AddressPool.Start, cfg.AddressPool.End)
	}

	if cfg.Persistence.Enabled {
		store, err := persistence.Open(persistence.Config{
			Dialect:  persistence.Dialect(cfg.Persistence.Dialect),
			SQLite:   persistence.SQLiteConfig{Path: cfg.Persistence.DSN},
			Postgres: persistence.PostgresConfig{DSN: cfg.Persistence.DSN},
		})
		if err != nil {
			return nil, fmt.Errorf("ipcp: open persistence store: %w", err)
		}
		ip.store = store
	}

	ip.localAddr = cfg.IPCP.LocalAddr
	if ip.store != nil {
		if err := ip.restoreFromStore(); err != nil {
			return nil, err
		}
	}
	if cfg.IPCP.Bootstrap {
		ip.localAddr = bootstrapAddr
	}

	ip.allocator = fal.New(ip.shim, ip.resolver)
	ip.forwarder = &rmtForwarder{}
	ip.efcp = efcp.New(ip.localAddr, ip.forwarder)

	enrolCfg := enrolment.Config{
		TimeoutSecs:           cfg.Enrolment.TimeoutSecs,
		MaxRetries:            cfg.Enrolment.MaxRetries,
		InitialBackoffMs:      cfg.Enrolment.InitialBackoffMs,
		HeartbeatIntervalSecs: cfg.Enrolment.HeartbeatIntervalSecs,
		ConnectionTimeoutSecs: cfg.Enrolment.ConnectionTimeoutSecs,
	}
	enrolOpts := []enrolment.Option{
		enrolment.WithPeerRegistrar(ip.shim.RegisterPeer),
	}
	if ip.pool != nil {
		enrolOpts = append(enrolOpts, enrolment.WithPool(ip.pool))
	}
	if ip.store != nil {
		enrolOpts = append(enrolOpts, enrolment.WithPersister(storePersister{ip.store}))
	}
	ip.enrol = enrolment.New(cfg.IPCP.Name, cfg.IPCP.DIFName, ip.localAddr, ip.rib, ip.resolver, ip.allocator, enrolCfg, enrolOpts...)
	ip.dispatch = ip.enrol.Dispatcher()

	snap, err := openSnapshotStore(cfg.Snapshot)
	if err != nil {
		return nil, err
	}
	ip.snapshot = snap

	return ip, nil
}

// restoreFromStore loads this IPCP's previously persisted address,
// address-pool allocations and dynamic routes, so a restart does not
// need to re-enrol from scratch.
func (ip *IPCP) restoreFromStore() error {
	ctx := context.Background()

	if addr, ok, err := ip.store.LoadLocalAddress(ctx); err != nil {
		return fmt.Errorf("ipcp: load persisted local address: %w", err)
	} else if ok {
		ip.localAddr = addr
	}

	if ip.pool != nil {
		allocated, err := ip.store.ListAllocated(ctx)
		if err != nil {
			return fmt.Errorf("ipcp: load persisted allocations: %w", err)
		}
		for _, addr := range allocated {
			if err := ip.pool.Reserve(addr); err != nil {
				logger.Warn("ipcp: failed to restore persisted allocation", logger.Err(err), logger.RemoteAddr(addr))
			}
		}
	}

	routes, err := ip.store.ListRoutes(ctx)
	if err != nil {
		return fmt.Errorf("ipcp: load persisted routes: %w", err)
	}
	now := time.Now().Unix()
	for _, r := range routes {
		remaining := time.Duration(r.ExpiresAtUnix-now) * time.Second
		if remaining <= 0 {
			continue
		}
		if err := ip.resolver.AddDynamicRoute(r.Dst, r.NextHopAddr, r.NextHopEndpoint, remaining); err != nil {
			logger.Warn("ipcp: failed to restore persisted route", logger.Err(err), logger.RemoteAddr(r.Dst))
		}
	}
	return nil
}

func openSnapshotStore(cfg config.SnapshotConfig) (rib.Store, error) {
	switch cfg.Backend {
	case "", "file":
		path := cfg.Path
		if path == "" {
			path = "rib.snapshot"
		}
		return filesnap.New(path), nil
	case "badger":
		return badgersnap.Open(cfg.Path)
	case "s3":
		return s3snap.Open(context.Background(), s3snap.Config{Bucket: cfg.Bucket, Key: cfg.Key})
	case "postgres":
		return postgressnap.Open(context.Background(), cfg.DSN)
	default:
		return nil, fmt.Errorf("ipcp: unsupported snapshot backend %q", cfg.Backend)
	}
}

// RemoteAddr and source endpoint arrive via management PDUs; the RMT
// forwards them here with the dispatcher in scope.
func (ip *IPCP) handleManagement(ctx context.Context, p *pdu.PDU, sourceEndpoint string) {
	ip.enrol.HandleManagementPDU(ctx, p, sourceEndpoint, ip.dispatch)
}

func (ip *IPCP) handleData(ctx context.Context, p *pdu.PDU) {
	ip.efcp.ReceivePDU(p)
}
