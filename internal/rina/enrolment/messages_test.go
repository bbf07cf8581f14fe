package enrolment

import (
	"testing"

	"github.com/rinacore/ipcpd/internal/rina/rib"
	"github.com/rinacore/ipcpd/internal/rina/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	req := Request{IPCPName: "member-1", IPCPAddress: 0, DIFName: "dif.example", Timestamp: 123, RequestAddress: true}
	got, err := DecodeRequest(req.Encode())
	require.NoError(t, err)
	assert.Equal(t, req, got)
}

func TestResponseRoundTrip(t *testing.T) {
	resp := Response{
		Accepted: true, HasAssigned: true, AssignedAddress: 42,
		DIFName: "dif.example", HasSnapshot: true, RIBSnapshot: []byte{1, 2, 3}, RIBVersion: 7,
	}
	got, err := DecodeResponse(resp.Encode())
	require.NoError(t, err)
	assert.Equal(t, resp, got)
}

func TestResponseRejectedRoundTrip(t *testing.T) {
	resp := Response{Accepted: false, Error: "address pool exhausted"}
	got, err := DecodeResponse(resp.Encode())
	require.NoError(t, err)
	assert.Equal(t, resp, got)
}

func TestSyncRequestRoundTrip(t *testing.T) {
	req := SyncRequest{LastKnownVersion: 5, Requester: "member-1"}
	got, err := DecodeSyncRequest(req.Encode())
	require.NoError(t, err)
	assert.Equal(t, req, got)
}

func TestSyncResponseRoundTripWithChanges(t *testing.T) {
	r := rib.New()
	_, err := r.Create("/a", "address", wire.NewIntValue(1))
	require.NoError(t, err)
	changes, err := r.GetChangesSince(0)
	require.NoError(t, err)

	resp := SyncResponse{CurrentVersion: 1, HasChanges: true, Changes: changes}
	got, err := DecodeSyncResponse(resp.Encode())
	require.NoError(t, err)
	assert.Equal(t, resp.CurrentVersion, got.CurrentVersion)
	require.Len(t, got.Changes, 1)
	assert.Equal(t, changes[0].Name, got.Changes[0].Name)
}

func TestSyncResponseRoundTripWithSnapshot(t *testing.T) {
	r := rib.New()
	_, err := r.Create("/a", "address", wire.NewIntValue(1))
	require.NoError(t, err)

	resp := SyncResponse{CurrentVersion: 1, HasSnapshot: true, FullSnapshot: r.SerializeSnapshot()}
	got, err := DecodeSyncResponse(resp.Encode())
	require.NoError(t, err)
	assert.True(t, got.HasSnapshot)
	assert.NotEmpty(t, got.FullSnapshot)
}

func TestSyncResponseErrorRoundTrip(t *testing.T) {
	resp := SyncResponse{Error: "boom"}
	got, err := DecodeSyncResponse(resp.Encode())
	require.NoError(t, err)
	assert.Equal(t, "boom", got.Error)
}
