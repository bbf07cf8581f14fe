// Package adminapi exposes a read-only HTTP introspection surface over an
// IPCP's RIB, routing table, FAL flow set and enrolment state, for
// operators and the ipcpctl CLI. It never mutates IPCP state.
package adminapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rinacore/ipcpd/internal/cli/health"
	"github.com/rinacore/ipcpd/internal/logger"
	"github.com/rinacore/ipcpd/internal/rina/enrolment"
	"github.com/rinacore/ipcpd/internal/rina/fal"
	"github.com/rinacore/ipcpd/internal/rina/rib"
	"github.com/rinacore/ipcpd/internal/rina/routing"
)

// Deps wires the component graph this API introspects. Fields may be nil
// if the corresponding subsystem does not apply to this IPCP (e.g. no
// enrolment manager on a bootstrap-only deployment).
type Deps struct {
	RIB       *rib.RIB
	Resolver  *routing.Resolver
	Allocator *fal.Allocator
	Enrolment *enrolment.Manager
	DIFName   string
	StartedAt time.Time
}

// NewRouter builds the admin HTTP handler.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", healthzHandler(deps))
	r.Get("/rib", ribListHandler(deps))
	r.Get("/rib/changes", ribChangesHandler(deps))
	r.Get("/routes", routesHandler(deps))
	r.Get("/fal", falHandler(deps))
	r.Get("/enrolment", enrolmentHandler(deps))

	return r
}

func healthzHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		uptime := time.Since(deps.StartedAt)
		resp := health.Response{Status: "ok", Timestamp: time.Now().Format(time.RFC3339)}
		resp.Data.Service = deps.DIFName
		resp.Data.StartedAt = deps.StartedAt.Format(time.RFC3339)
		resp.Data.Uptime = uptime.Round(time.Second).String()
		resp.Data.UptimeSec = int64(uptime.Seconds())
		writeJSON(w, http.StatusOK, resp)
	}
}

type ribObjectView struct {
	Name         string      `json:"name"`
	Class        string      `json:"class"`
	Value        interface{} `json:"value"`
	Version      uint64      `json:"version"`
	LastModified time.Time   `json:"last_modified"`
}

func ribListHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if deps.RIB == nil {
			writeError(w, http.StatusServiceUnavailable, "rib not available")
			return
		}
		prefix := req.URL.Query().Get("prefix")
		objs := deps.RIB.ListByPrefix(prefix)
		out := make([]ribObjectView, len(objs))
		for i, o := range objs {
			out[i] = ribObjectView{
				Name:         o.Name,
				Class:        o.Class,
				Value:        describeValue(o.Value),
				Version:      o.Version,
				LastModified: o.LastModified,
			}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"version": deps.RIB.CurrentVersion(),
			"objects": out,
		})
	}
}

type ribChangeView struct {
	Kind      string    `json:"kind"`
	Name      string    `json:"name"`
	Version   uint64    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func ribChangesHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if deps.RIB == nil {
			writeError(w, http.StatusServiceUnavailable, "rib not available")
			return
		}
		sinceStr := req.URL.Query().Get("since")
		var since uint64
		if sinceStr != "" {
			parsed, err := strconv.ParseUint(sinceStr, 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid since parameter")
				return
			}
			since = parsed
		}

		changes, err := deps.RIB.GetChangesSince(since)
		if err != nil {
			writeError(w, http.StatusGone, err.Error())
			return
		}
		out := make([]ribChangeView, len(changes))
		for i, c := range changes {
			out[i] = ribChangeView{Kind: c.Kind.String(), Name: c.Name, Version: c.Version, Timestamp: c.Timestamp}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type routeView struct {
	Destination     uint64 `json:"destination"`
	NextHopAddr     uint64 `json:"next_hop_addr"`
	NextHopEndpoint string `json:"next_hop_endpoint"`
}

func routesHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if deps.Resolver == nil {
			writeError(w, http.StatusServiceUnavailable, "routing not available")
			return
		}
		routes := deps.Resolver.ListAll()
		out := make([]routeView, len(routes))
		for i, rt := range routes {
			out[i] = routeView{Destination: rt.Destination, NextHopAddr: rt.NextHopAddr, NextHopEndpoint: rt.NextHopEndpoint}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type flowView struct {
	RemoteAddr   uint64    `json:"remote_addr"`
	Endpoint     string    `json:"endpoint"`
	State        string    `json:"state"`
	LastActivity time.Time `json:"last_activity"`
	SentPDUs     uint64    `json:"sent_pdus"`
	ReceivedPDUs uint64    `json:"received_pdus"`
	SendErrors   uint64    `json:"send_errors"`
}

func falHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if deps.Allocator == nil {
			writeError(w, http.StatusServiceUnavailable, "fal not available")
			return
		}
		flows := deps.Allocator.Stats()
		out := make([]flowView, len(flows))
		for i, f := range flows {
			out[i] = flowView{
				RemoteAddr:   f.RemoteAddr,
				Endpoint:     f.Endpoint,
				State:        f.State.String(),
				LastActivity: f.LastActivity,
				SentPDUs:     f.SentPDUs,
				ReceivedPDUs: f.ReceivedPDUs,
				SendErrors:   f.SendErrors,
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func enrolmentHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if deps.Enrolment == nil {
			writeError(w, http.StatusServiceUnavailable, "enrolment not available")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"state":      deps.Enrolment.State().String(),
			"local_addr": deps.Enrolment.LocalAddr(),
		})
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(req.Context())

		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)

		logger.Debug("adminapi: request completed",
			"request_id", requestID,
			"method", req.Method,
			"path", req.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
		)
	})
}
