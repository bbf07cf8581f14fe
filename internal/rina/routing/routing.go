// Package routing implements the RouteResolver: a hybrid static/dynamic
// next-hop lookup backed by the RIB, with TTL expiry on dynamic routes and
// optional periodic persistence.
package routing

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rinacore/ipcpd/internal/rina/rib"
	"github.com/rinacore/ipcpd/internal/rina/wire"
)

// ErrRouteNotFound is returned when neither a static nor an unexpired
// dynamic route exists for a destination.
var ErrRouteNotFound = errors.New("routing: route not found")

const (
	staticPrefix  = "/routing/static/"
	dynamicPrefix = "/routing/dynamic/"
	routeClass    = "route"

	keyNextHop  = "next_hop"
	keyEndpoint = "endpoint"
	keyCreated  = "created_at"
	keyTTL      = "ttl_seconds"
)

// Route is the resolved next hop for a destination.
type Route struct {
	Destination     uint64
	NextHopAddr     uint64
	NextHopEndpoint string
}

// Resolver looks up next hops via the RIB, enforcing static-over-dynamic
// precedence and lazily expiring dynamic routes.
type Resolver struct {
	r   *rib.RIB
	now func() time.Time
}

// Option configures a Resolver at construction.
type Option func(*Resolver)

// WithClock overrides the time source (tests only).
func WithClock(now func() time.Time) Option {
	return func(res *Resolver) { res.now = now }
}

// New returns a Resolver backed by r.
func New(r *rib.RIB, opts ...Option) *Resolver {
	res := &Resolver{r: r, now: time.Now}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// AddStaticRoute installs a static route, which always takes precedence
// over a dynamic route to the same destination.
func (res *Resolver) AddStaticRoute(dst uint64, nextHopAddr uint64, nextHopEndpoint string) error {
	name := staticPrefix + strconv.FormatUint(dst, 10)
	val := encodeRoute(nextHopAddr, nextHopEndpoint, res.now(), 0)
	if _, err := res.r.Create(name, routeClass, val); err != nil {
		if errors.Is(err, rib.ErrAlreadyExists) {
			_, err = res.r.Update(name, val)
			return err
		}
		return err
	}
	return nil
}

// AddDynamicRoute installs or refreshes a dynamic route. Re-adding an
// existing destination is treated as an update that resets created_at,
// per spec: idempotent. ttl of 0 means the route never expires.
func (res *Resolver) AddDynamicRoute(dst uint64, nextHopAddr uint64, nextHopEndpoint string, ttl time.Duration) error {
	name := dynamicPrefix + strconv.FormatUint(dst, 10)
	val := encodeRoute(nextHopAddr, nextHopEndpoint, res.now(), ttl)
	if _, err := res.r.Create(name, routeClass, val); err != nil {
		if errors.Is(err, rib.ErrAlreadyExists) {
			_, err = res.r.Update(name, val)
			return err
		}
		return err
	}
	return nil
}

// RemoveDynamicRoute deletes a dynamic route, silent on absence.
func (res *Resolver) RemoveDynamicRoute(dst uint64) error {
	name := dynamicPrefix + strconv.FormatUint(dst, 10)
	_, err := res.r.Delete(name)
	if err != nil && errors.Is(err, rib.ErrNotFound) {
		return nil
	}
	return err
}

// Resolve returns the next hop for dst: a static route, if present, then
// an unexpired dynamic route, else ErrRouteNotFound. An expired dynamic
// route is removed before returning ErrRouteNotFound.
func (res *Resolver) Resolve(dst uint64) (Route, error) {
	staticName := staticPrefix + strconv.FormatUint(dst, 10)
	if obj, ok := res.r.Read(staticName); ok {
		nextHop, endpoint, _, _ := decodeRoute(obj.Value)
		return Route{Destination: dst, NextHopAddr: nextHop, NextHopEndpoint: endpoint}, nil
	}

	dynamicName := dynamicPrefix + strconv.FormatUint(dst, 10)
	obj, ok := res.r.Read(dynamicName)
	if !ok {
		return Route{}, ErrRouteNotFound
	}

	nextHop, endpoint, createdAt, ttl := decodeRoute(obj.Value)
	if ttl > 0 && res.now().After(createdAt.Add(ttl)) {
		_, _ = res.r.Delete(dynamicName)
		return Route{}, ErrRouteNotFound
	}
	return Route{Destination: dst, NextHopAddr: nextHop, NextHopEndpoint: endpoint}, nil
}

func encodeRoute(nextHopAddr uint64, endpoint string, createdAt time.Time, ttl time.Duration) wire.Value {
	keys := []string{keyNextHop, keyEndpoint, keyCreated, keyTTL}
	m := map[string]wire.Value{
		keyNextHop:  wire.NewIntValue(int64(nextHopAddr)),
		keyEndpoint: wire.NewStringValue(endpoint),
		keyCreated:  wire.NewIntValue(createdAt.UnixNano()),
		keyTTL:      wire.NewIntValue(int64(ttl)),
	}
	return wire.NewMappingValue(keys, m)
}

func decodeRoute(v wire.Value) (nextHopAddr uint64, endpoint string, createdAt time.Time, ttl time.Duration) {
	m, _ := v.AsMapping()
	nextHopAddr = uint64(m[keyNextHop].AsInt())
	endpoint = m[keyEndpoint].AsString()
	createdAt = time.Unix(0, m[keyCreated].AsInt()).UTC()
	ttl = time.Duration(m[keyTTL].AsInt())
	return
}

// PersistDynamicRoutes writes a snapshot of only unexpired dynamic routes,
// each stamped with its remaining TTL, to be reloaded with
// LoadDynamicRoutes.
func (res *Resolver) PersistDynamicRoutes(sink Sink) error {
	routes := res.listUnexpiredDynamic()
	return sink.PersistRoutes(encodeSnapshot(routes, res.now()))
}

// LoadDynamicRoutes reads a previously persisted snapshot and installs
// every route whose remaining TTL is still positive, discarding the rest.
func (res *Resolver) LoadDynamicRoutes(source Source) (loaded int, err error) {
	data, ok, err := source.LoadRoutes()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	records, err := decodeSnapshot(data)
	if err != nil {
		return 0, fmt.Errorf("routing: decode snapshot: %w", err)
	}
	for _, rec := range records {
		if rec.RemainingTTL <= 0 {
			continue
		}
		if err := res.AddDynamicRoute(rec.Destination, rec.NextHopAddr, rec.NextHopEndpoint, rec.RemainingTTL); err != nil {
			return loaded, err
		}
		loaded++
	}
	return loaded, nil
}

// ListAll returns every currently resolvable route, static and unexpired
// dynamic, for introspection.
func (res *Resolver) ListAll() []Route {
	var routes []Route
	for _, obj := range res.r.ListByPrefix(staticPrefix) {
		dstStr := obj.Name[len(staticPrefix):]
		dst, err := strconv.ParseUint(dstStr, 10, 64)
		if err != nil {
			continue
		}
		nextHop, endpoint, _, _ := decodeRoute(obj.Value)
		routes = append(routes, Route{Destination: dst, NextHopAddr: nextHop, NextHopEndpoint: endpoint})
	}
	for _, rec := range res.listUnexpiredDynamic() {
		routes = append(routes, Route{Destination: rec.Destination, NextHopAddr: rec.NextHopAddr, NextHopEndpoint: rec.NextHopEndpoint})
	}
	return routes
}

type dynamicRecord struct {
	Destination     uint64
	NextHopAddr     uint64
	NextHopEndpoint string
	RemainingTTL    time.Duration
}

func (res *Resolver) listUnexpiredDynamic() []dynamicRecord {
	var records []dynamicRecord
	now := res.now()
	for _, obj := range res.r.ListByPrefix(dynamicPrefix) {
		dstStr := obj.Name[len(dynamicPrefix):]
		dst, convErr := strconv.ParseUint(dstStr, 10, 64)
		if convErr != nil {
			continue
		}
		nextHop, endpoint, createdAt, ttl := decodeRoute(obj.Value)
		if ttl == 0 {
			records = append(records, dynamicRecord{dst, nextHop, endpoint, 0})
			continue
		}
		remaining := ttl - now.Sub(createdAt)
		if remaining <= 0 {
			continue
		}
		records = append(records, dynamicRecord{dst, nextHop, endpoint, remaining})
	}
	return records
}

func encodeSnapshot(records []dynamicRecord, _ time.Time) []byte {
	w := wire.NewWriter()
	w.WriteVersion()
	w.WriteUint32(uint32(len(records)))
	for _, rec := range records {
		w.WriteUint64(rec.Destination)
		w.WriteUint64(rec.NextHopAddr)
		w.WriteString(rec.NextHopEndpoint)
		w.WriteInt64(int64(rec.RemainingTTL))
	}
	return w.Bytes()
}

func decodeSnapshot(data []byte) ([]dynamicRecord, error) {
	r := wire.NewReader(data)
	if err := r.ReadVersion(); err != nil {
		return nil, err
	}
	count, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	records := make([]dynamicRecord, 0, count)
	for i := uint32(0); i < count; i++ {
		dst, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		nextHop, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		endpoint, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		ttl, err := r.ReadInt64()
		if err != nil {
			return nil, err
		}
		records = append(records, dynamicRecord{dst, nextHop, endpoint, time.Duration(ttl)})
	}
	return records, nil
}
