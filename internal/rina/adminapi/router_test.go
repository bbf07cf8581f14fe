package adminapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rinacore/ipcpd/internal/cli/health"
	"github.com/rinacore/ipcpd/internal/rina/fal"
	"github.com/rinacore/ipcpd/internal/rina/pdu"
	"github.com/rinacore/ipcpd/internal/rina/rib"
	"github.com/rinacore/ipcpd/internal/rina/routing"
	"github.com/rinacore/ipcpd/internal/rina/shim"
	"github.com/rinacore/ipcpd/internal/rina/wire"
)

// noopShim is a minimal shim.Shim stub for tests that only need flow
// bookkeeping, not real transport.
type noopShim struct{}

func (noopShim) Bind(ctx context.Context, endpoint string) error { return nil }
func (noopShim) SendPDU(ctx context.Context, p *pdu.PDU) error   { return nil }
func (noopShim) ReceivePDU(ctx context.Context) (shim.Received, error) {
	<-ctx.Done()
	return shim.Received{}, ctx.Err()
}
func (noopShim) RegisterPeer(addr uint64, endpoint string)        {}
func (noopShim) LookupPeer(addr uint64) (endpoint string, ok bool) { return "", false }
func (noopShim) UpdatePeer(addr uint64, newEndpoint string)       {}
func (noopShim) Close() error                                     { return nil }

func TestHealthzReportsDIFName(t *testing.T) {
	r := NewRouter(Deps{DIFName: "test.DIF"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body health.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "test.DIF", body.Data.Service)
}

func TestRibListReturnsObjects(t *testing.T) {
	r := rib.New()
	_, err := r.Create("/test/object", "test", wire.NewStringValue("hello"))
	require.NoError(t, err)

	router := NewRouter(Deps{RIB: r})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rib", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Version uint64          `json:"version"`
		Objects []ribObjectView `json:"objects"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Objects, 1)
	assert.Equal(t, "/test/object", body.Objects[0].Name)
	assert.Equal(t, "hello", body.Objects[0].Value)
}

func TestRibUnavailableReturns503(t *testing.T) {
	router := NewRouter(Deps{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rib", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRoutesListsStaticRoutes(t *testing.T) {
	r := rib.New()
	res := routing.New(r)
	require.NoError(t, res.AddStaticRoute(42, 42, "10.0.0.1:7632"))

	router := NewRouter(Deps{Resolver: res})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/routes", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var routes []routeView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &routes))
	require.Len(t, routes, 1)
	assert.Equal(t, uint64(42), routes[0].Destination)
}

func TestFalListsFlows(t *testing.T) {
	r := rib.New()
	res := routing.New(r)
	require.NoError(t, res.AddStaticRoute(7, 7, "10.0.0.2:7632"))

	alloc := fal.New(noopShim{}, res)
	_, err := alloc.GetOrCreateFlow(7)
	require.NoError(t, err)

	router := NewRouter(Deps{Allocator: alloc})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/fal", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var flows []flowView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &flows))
	require.Len(t, flows, 1)
	assert.Equal(t, uint64(7), flows[0].RemoteAddr)
}
