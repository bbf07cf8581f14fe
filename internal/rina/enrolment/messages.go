package enrolment

import (
	"fmt"

	"github.com/rinacore/ipcpd/internal/rina/rib"
	"github.com/rinacore/ipcpd/internal/rina/wire"
)

// ObjRequest is the CDAP obj_name carrying an EnrolmentRequest.
const ObjRequest = "enrolment/request"

// ObjSync is the CDAP obj_name carrying a sync Read/SyncRequest.
const ObjSync = "rib_sync"

// Request is the member-side enrolment request payload.
type Request struct {
	IPCPName       string
	IPCPAddress    uint64
	DIFName        string
	Timestamp      int64
	RequestAddress bool
}

// Encode serialises a Request with the shared wire encoding.
func (r Request) Encode() []byte {
	w := wire.NewWriter()
	w.WriteVersion()
	w.WriteString(r.IPCPName)
	w.WriteUint64(r.IPCPAddress)
	w.WriteString(r.DIFName)
	w.WriteInt64(r.Timestamp)
	w.WriteBool(r.RequestAddress)
	return w.Bytes()
}

// DecodeRequest parses a Request from bytes produced by Encode.
func DecodeRequest(data []byte) (Request, error) {
	rd := wire.NewReader(data)
	if err := rd.ReadVersion(); err != nil {
		return Request{}, fmt.Errorf("enrolment: decode request: %w", err)
	}
	name, err := rd.ReadString()
	if err != nil {
		return Request{}, fmt.Errorf("enrolment: decode request name: %w", err)
	}
	addr, err := rd.ReadUint64()
	if err != nil {
		return Request{}, fmt.Errorf("enrolment: decode request address: %w", err)
	}
	dif, err := rd.ReadString()
	if err != nil {
		return Request{}, fmt.Errorf("enrolment: decode request dif: %w", err)
	}
	ts, err := rd.ReadInt64()
	if err != nil {
		return Request{}, fmt.Errorf("enrolment: decode request timestamp: %w", err)
	}
	reqAddr, err := rd.ReadBool()
	if err != nil {
		return Request{}, fmt.Errorf("enrolment: decode request flag: %w", err)
	}
	return Request{IPCPName: name, IPCPAddress: addr, DIFName: dif, Timestamp: ts, RequestAddress: reqAddr}, nil
}

// Response is the bootstrap-side enrolment response payload.
type Response struct {
	Accepted        bool
	Error           string
	AssignedAddress uint64
	HasAssigned     bool
	DIFName         string
	RIBSnapshot     []byte
	HasSnapshot     bool
	RIBVersion      uint64
}

// Encode serialises a Response with the shared wire encoding.
func (r Response) Encode() []byte {
	w := wire.NewWriter()
	w.WriteVersion()
	w.WriteBool(r.Accepted)
	w.WriteString(r.Error)
	w.WriteBool(r.HasAssigned)
	w.WriteUint64(r.AssignedAddress)
	w.WriteString(r.DIFName)
	w.WriteBool(r.HasSnapshot)
	w.WriteBytes(r.RIBSnapshot)
	w.WriteUint64(r.RIBVersion)
	return w.Bytes()
}

// DecodeResponse parses a Response from bytes produced by Encode.
func DecodeResponse(data []byte) (Response, error) {
	rd := wire.NewReader(data)
	if err := rd.ReadVersion(); err != nil {
		return Response{}, fmt.Errorf("enrolment: decode response: %w", err)
	}
	accepted, err := rd.ReadBool()
	if err != nil {
		return Response{}, fmt.Errorf("enrolment: decode response accepted: %w", err)
	}
	errMsg, err := rd.ReadString()
	if err != nil {
		return Response{}, fmt.Errorf("enrolment: decode response error: %w", err)
	}
	hasAssigned, err := rd.ReadBool()
	if err != nil {
		return Response{}, fmt.Errorf("enrolment: decode response has_assigned: %w", err)
	}
	assigned, err := rd.ReadUint64()
	if err != nil {
		return Response{}, fmt.Errorf("enrolment: decode response assigned: %w", err)
	}
	dif, err := rd.ReadString()
	if err != nil {
		return Response{}, fmt.Errorf("enrolment: decode response dif: %w", err)
	}
	hasSnapshot, err := rd.ReadBool()
	if err != nil {
		return Response{}, fmt.Errorf("enrolment: decode response has_snapshot: %w", err)
	}
	snapshot, err := rd.ReadBytes()
	if err != nil {
		return Response{}, fmt.Errorf("enrolment: decode response snapshot: %w", err)
	}
	version, err := rd.ReadUint64()
	if err != nil {
		return Response{}, fmt.Errorf("enrolment: decode response version: %w", err)
	}
	return Response{
		Accepted: accepted, Error: errMsg, HasAssigned: hasAssigned, AssignedAddress: assigned,
		DIFName: dif, HasSnapshot: hasSnapshot, RIBSnapshot: snapshot, RIBVersion: version,
	}, nil
}

// SyncRequest is the member-side incremental sync request payload.
type SyncRequest struct {
	LastKnownVersion uint64
	Requester        string
}

// Encode serialises a SyncRequest with the shared wire encoding.
func (s SyncRequest) Encode() []byte {
	w := wire.NewWriter()
	w.WriteVersion()
	w.WriteUint64(s.LastKnownVersion)
	w.WriteString(s.Requester)
	return w.Bytes()
}

// DecodeSyncRequest parses a SyncRequest from bytes produced by Encode.
func DecodeSyncRequest(data []byte) (SyncRequest, error) {
	rd := wire.NewReader(data)
	if err := rd.ReadVersion(); err != nil {
		return SyncRequest{}, fmt.Errorf("enrolment: decode sync request: %w", err)
	}
	version, err := rd.ReadUint64()
	if err != nil {
		return SyncRequest{}, fmt.Errorf("enrolment: decode sync request version: %w", err)
	}
	requester, err := rd.ReadString()
	if err != nil {
		return SyncRequest{}, fmt.Errorf("enrolment: decode sync request requester: %w", err)
	}
	return SyncRequest{LastKnownVersion: version, Requester: requester}, nil
}

// SyncResponse is the bootstrap-side incremental sync response payload.
type SyncResponse struct {
	CurrentVersion uint64
	Changes        []rib.Change
	HasChanges     bool
	FullSnapshot   []byte
	HasSnapshot    bool
	Error          string
}

// Encode serialises a SyncResponse with the shared wire encoding.
func (s SyncResponse) Encode() []byte {
	w := wire.NewWriter()
	w.WriteVersion()
	w.WriteUint64(s.CurrentVersion)
	w.WriteBool(s.HasChanges)
	w.WriteUint32(uint32(len(s.Changes)))
	for _, c := range s.Changes {
		c.Encode(w)
	}
	w.WriteBool(s.HasSnapshot)
	w.WriteBytes(s.FullSnapshot)
	w.WriteString(s.Error)
	return w.Bytes()
}

// DecodeSyncResponse parses a SyncResponse from bytes produced by Encode.
func DecodeSyncResponse(data []byte) (SyncResponse, error) {
	rd := wire.NewReader(data)
	if err := rd.ReadVersion(); err != nil {
		return SyncResponse{}, fmt.Errorf("enrolment: decode sync response: %w", err)
	}
	version, err := rd.ReadUint64()
	if err != nil {
		return SyncResponse{}, fmt.Errorf("enrolment: decode sync response version: %w", err)
	}
	hasChanges, err := rd.ReadBool()
	if err != nil {
		return SyncResponse{}, fmt.Errorf("enrolment: decode sync response has_changes: %w", err)
	}
	count, err := rd.ReadUint32()
	if err != nil {
		return SyncResponse{}, fmt.Errorf("enrolment: decode sync response count: %w", err)
	}
	changes := make([]rib.Change, 0, count)
	for i := uint32(0); i < count; i++ {
		c, err := rib.DecodeChange(rd)
		if err != nil {
			return SyncResponse{}, fmt.Errorf("enrolment: decode sync response change %d: %w", i, err)
		}
		changes = append(changes, c)
	}
	hasSnapshot, err := rd.ReadBool()
	if err != nil {
		return SyncResponse{}, fmt.Errorf("enrolment: decode sync response has_snapshot: %w", err)
	}
	snapshot, err := rd.ReadBytes()
	if err != nil {
		return SyncResponse{}, fmt.Errorf("enrolment: decode sync response snapshot: %w", err)
	}
	errMsg, err := rd.ReadString()
	if err != nil {
		return SyncResponse{}, fmt.Errorf("enrolment: decode sync response error: %w", err)
	}
	return SyncResponse{
		CurrentVersion: version, HasChanges: hasChanges, Changes: changes,
		HasSnapshot: hasSnapshot, FullSnapshot: snapshot, Error: errMsg,
	}, nil
}
