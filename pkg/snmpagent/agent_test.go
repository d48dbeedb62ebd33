package snmpagent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointlessduffin-21/snmp-agent/pkg/config"
	"github.com/pointlessduffin-21/snmp-agent/pkg/fleetstore"
	"github.com/pointlessduffin-21/snmp-agent/pkg/mib"
	"github.com/pointlessduffin-21/snmp-agent/pkg/model"
	"github.com/pointlessduffin-21/snmp-agent/pkg/snmpagent/ber"
)

func encodeRequest(t *testing.T, pduTag byte, community string, requestID, param1, param2 int64, oids []string) []byte {
	t.Helper()
	var vbSeqs [][]byte
	for _, oid := range oids {
		oidBytes, err := ber.EncodeOID(oid)
		require.NoError(t, err)
		vbSeqs = append(vbSeqs, ber.EncodeSequence(ber.TagSequence, oidBytes, ber.EncodeNull()))
	}
	varBindList := ber.EncodeSequence(ber.TagSequence, vbSeqs...)
	pdu := ber.EncodeSequence(pduTag,
		ber.EncodeInteger(requestID),
		ber.EncodeInteger(param1),
		ber.EncodeInteger(param2),
		varBindList,
	)
	return ber.EncodeSequence(ber.TagSequence,
		ber.EncodeInteger(1),
		ber.EncodeOctetString(community),
		pdu,
	)
}

func newTestAgent(t *testing.T) *Agent {
	t.Helper()
	store := fleetstore.New()
	store.UpdateSnapshot(model.Snapshot{
		Machine: model.MachineInfo{IP: "10.0.0.1", Hostname: "box", IsOnline: true},
		CPU:     model.CPUMetrics{UsagePercent: 10},
		Memory:  model.MemoryMetrics{TotalBytes: 1024},
	})
	cfg := config.SNMPConfig{Port: 0, CommunityRead: "public", EnterpriseOID: "1.3.6.1.4.1.99999.1"}
	a := New(cfg, store)
	a.rebuildProjection()
	return a
}

func TestHandleMessageGetKnownOID(t *testing.T) {
	a := newTestAgent(t)
	data := encodeRequest(t, ber.TagGetRequest, "public", 42, 0, 0, []string{"1.3.6.1.4.1.99999.1.1.3.0"})

	resp, ok := a.handleMessage(data)
	require.True(t, ok)

	outer, _, err := ber.DecodeTLV(resp)
	require.NoError(t, err)
	assert.Equal(t, ber.TagSequence, outer.Tag)

	_, content, err := ber.DecodeTLV(outer.Content)
	require.NoError(t, err)
	commElem, content, err := ber.DecodeTLV(content)
	require.NoError(t, err)
	assert.Equal(t, "public", string(commElem.Content))

	pduElem, _, err := ber.DecodeTLV(content)
	require.NoError(t, err)
	assert.Equal(t, ber.TagGetResponse, pduElem.Tag)

	idElem, rest, err := ber.DecodeTLV(pduElem.Content)
	require.NoError(t, err)
	reqID, err := ber.DecodeInteger(idElem.Content)
	require.NoError(t, err)
	assert.Equal(t, int64(42), reqID)

	_, rest, err = ber.DecodeTLV(rest) // errorStatus
	require.NoError(t, err)
	_, rest, err = ber.DecodeTLV(rest) // errorIndex
	require.NoError(t, err)

	vblElem, _, err := ber.DecodeTLV(rest)
	require.NoError(t, err)
	vbElem, _, err := ber.DecodeTLV(vblElem.Content)
	require.NoError(t, err)
	oidElem, valueBytes, err := ber.DecodeTLV(vbElem.Content)
	require.NoError(t, err)
	oid, err := ber.DecodeOID(oidElem.Content)
	require.NoError(t, err)
	assert.Equal(t, "1.3.6.1.4.1.99999.1.1.3.0", oid)

	valElem, _, err := ber.DecodeTLV(valueBytes)
	require.NoError(t, err)
	assert.Equal(t, ber.TagInteger, valElem.Tag)
	v, err := ber.DecodeInteger(valElem.Content)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestHandleMessageGetUnknownOIDReturnsNoSuchInstance(t *testing.T) {
	a := newTestAgent(t)
	data := encodeRequest(t, ber.TagGetRequest, "public", 1, 0, 0, []string{"9.9.9.9.0"})

	resp, ok := a.handleMessage(data)
	require.True(t, ok)

	out := decodeSingleVarBind(t, resp)
	assert.Equal(t, ber.TagNoSuchInstance, out.Tag)
}

func TestHandleMessageWrongCommunityIsDropped(t *testing.T) {
	a := newTestAgent(t)
	data := encodeRequest(t, ber.TagGetRequest, "private", 1, 0, 0, []string{"1.3.6.1.4.1.99999.1.1.3.0"})

	_, ok := a.handleMessage(data)
	assert.False(t, ok)
}

func TestHandleMessageMalformedIsDropped(t *testing.T) {
	a := newTestAgent(t)
	_, ok := a.handleMessage([]byte{0x30, 0x05, 0x02})
	assert.False(t, ok)
}

func TestDispatchGetNextWalksProjection(t *testing.T) {
	store := fleetstore.New()
	store.UpdateSnapshot(model.Snapshot{Machine: model.MachineInfo{IP: "10.0.0.1", IsOnline: true}})
	proj := mib.Build(store, "1.3.6.1.4.1.99999.1", "1.0.0", time.Now())

	out := dispatchGetNext(proj, []string{"1.3.6.1.4.1.99999.1.1.1.0"})
	require.Len(t, out, 1)
	assert.Equal(t, "1.3.6.1.4.1.99999.1.1.2.0", out[0].oid)
	assert.True(t, out[0].hasValue)
}

func TestDispatchGetBulkStopsAtEndOfMibView(t *testing.T) {
	store := fleetstore.New()
	proj := mib.Build(store, "1.3.6.1.4.1.99999.1", "1.0.0", time.Now())

	out := dispatchGetBulk(proj, []string{"1.3.6.1.4.1.99999.1.1.1.0"}, 0, 10)
	require.NotEmpty(t, out)
	last := out[len(out)-1]
	assert.Equal(t, ber.TagEndOfMibView, last.exception)
}

// decodeSingleVarBind unwraps a single-varbind GetResponse down to its value
// TLV for assertions against exception tags.
func decodeSingleVarBind(t *testing.T, resp []byte) ber.TLV {
	t.Helper()
	outer, _, err := ber.DecodeTLV(resp)
	require.NoError(t, err)
	_, content, err := ber.DecodeTLV(outer.Content)
	require.NoError(t, err)
	_, content, err = ber.DecodeTLV(content)
	require.NoError(t, err)
	pduElem, _, err := ber.DecodeTLV(content)
	require.NoError(t, err)
	_, rest, err := ber.DecodeTLV(pduElem.Content)
	require.NoError(t, err)
	_, rest, err = ber.DecodeTLV(rest)
	require.NoError(t, err)
	_, rest, err = ber.DecodeTLV(rest)
	require.NoError(t, err)
	vblElem, _, err := ber.DecodeTLV(rest)
	require.NoError(t, err)
	vbElem, _, err := ber.DecodeTLV(vblElem.Content)
	require.NoError(t, err)
	_, valueBytes, err := ber.DecodeTLV(vbElem.Content)
	require.NoError(t, err)
	valElem, _, err := ber.DecodeTLV(valueBytes)
	require.NoError(t, err)
	return valElem
}
