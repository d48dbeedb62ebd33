// Package snmpagent serves the MIB projection over a UDP SNMP v2c listener
// (spec.md §4.5), grounded on original_source/src/agent/snmp_agent.py's
// SimpleSNMPAgent (raw asyncio datagram handling, hand-rolled BER instead of
// pysnmp's engine).
package snmpagent

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pointlessduffin-21/snmp-agent/internal/log"
	"github.com/pointlessduffin-21/snmp-agent/pkg/config"
	"github.com/pointlessduffin-21/snmp-agent/pkg/fleetstore"
	"github.com/pointlessduffin-21/snmp-agent/pkg/mib"
	"github.com/pointlessduffin-21/snmp-agent/pkg/snmpagent/ber"
)

const agentVersion = "1.0.0"

// Agent listens on UDP and serves GET/GETNEXT/GETBULK requests against a
// periodically rebuilt MIB projection of the fleet store.
type Agent struct {
	cfg       config.SNMPConfig
	store     *fleetstore.Store
	startTime time.Time

	mu         sync.RWMutex
	projection *mib.Projection

	conn *net.UDPConn
}

// New returns an Agent bound to no socket yet; call ListenAndServe to start.
func New(cfg config.SNMPConfig, store *fleetstore.Store) *Agent {
	return &Agent{cfg: cfg, store: store, startTime: time.Now()}
}

// ListenAndServe binds the configured UDP port, starts the 5-second
// projection refresh loop, and serves datagrams until ctx is cancelled.
// A bind failure is fatal, per spec §7 ("cannot bind UDP port" is the one
// fatal condition in this subsystem).
func (a *Agent) ListenAndServe(ctx context.Context) error {
	addr := &net.UDPAddr{IP: net.IPv4zero, Port: a.cfg.Port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("snmpagent: bind udp %s: %w", addr, err)
	}
	a.conn = conn
	defer conn.Close()

	a.rebuildProjection()
	go a.refreshLoop(ctx)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	log.Infof("snmpagent: listening on udp %s", addr)
	buf := make([]byte, 65535)
	for {
		n, raddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warnf("snmpagent: read error: %v", err)
			continue
		}
		datagram := make([]byte, n)
		copy(datagram, buf[:n])
		go a.handleDatagram(datagram, raddr)
	}
}

func (a *Agent) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.rebuildProjection()
		}
	}
}

func (a *Agent) rebuildProjection() {
	p := mib.Build(a.store, a.cfg.EnterpriseOID, agentVersion, a.startTime)
	a.mu.Lock()
	a.projection = p
	a.mu.Unlock()
}

func (a *Agent) currentProjection() *mib.Projection {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.projection
}

func (a *Agent) handleDatagram(data []byte, addr *net.UDPAddr) {
	resp, ok := a.handleMessage(data)
	if !ok {
		return
	}
	if _, err := a.conn.WriteToUDP(resp, addr); err != nil {
		log.Warnf("snmpagent: write to %s failed: %v", addr, err)
	}
}

// request is a decoded SNMP v2c PDU.
type request struct {
	version   int64
	community string
	pduTag    byte
	requestID int64
	param1    int64 // errorStatus (GET/GETNEXT) or non-repeaters (GETBULK)
	param2    int64 // errorIndex (GET/GETNEXT) or max-repetitions (GETBULK)
	varbinds  []string
}

// respVarBind is one encoded response var-bind: either a typed value or an
// exception tag (noSuchInstance / endOfMibView).
type respVarBind struct {
	oid       string
	value     mib.Value
	hasValue  bool
	exception byte
}

// handleMessage decodes a request datagram, dispatches it against the
// current projection, and returns an encoded response. ok is false when the
// datagram should be silently dropped (bad community, malformed input, or
// an unsupported PDU type) per spec §7's "Configuration"/"Malformed input"
// error classes.
func (a *Agent) handleMessage(data []byte) ([]byte, bool) {
	req, err := decodeRequest(data)
	if err != nil {
		log.Debugf("snmpagent: dropping malformed datagram: %v", err)
		return nil, false
	}
	if req.community != a.cfg.CommunityRead {
		return nil, false
	}

	proj := a.currentProjection()
	if proj == nil {
		return nil, false
	}

	var out []respVarBind
	switch req.pduTag {
	case ber.TagGetRequest:
		out = dispatchGet(proj, req.varbinds)
	case ber.TagGetNextRequest:
		out = dispatchGetNext(proj, req.varbinds)
	case ber.TagGetBulkRequest:
		out = dispatchGetBulk(proj, req.varbinds, int(req.param1), int(req.param2))
	default:
		log.Debugf("snmpagent: unsupported pdu tag 0x%x", req.pduTag)
		return nil, false
	}

	return encodeResponse(req.version, req.community, req.requestID, out), true
}

func dispatchGet(proj *mib.Projection, oids []string) []respVarBind {
	out := make([]respVarBind, 0, len(oids))
	for _, oid := range oids {
		if v, ok := proj.Get(oid); ok {
			out = append(out, respVarBind{oid: oid, value: v, hasValue: true})
		} else {
			out = append(out, respVarBind{oid: oid, exception: ber.TagNoSuchInstance})
		}
	}
	return out
}

func dispatchGetNext(proj *mib.Projection, oids []string) []respVarBind {
	out := make([]respVarBind, 0, len(oids))
	for _, oid := range oids {
		if nextOID, v, ok := proj.Next(oid); ok {
			out = append(out, respVarBind{oid: nextOID, value: v, hasValue: true})
		} else {
			out = append(out, respVarBind{oid: oid, exception: ber.TagEndOfMibView})
		}
	}
	return out
}

func dispatchGetBulk(proj *mib.Projection, oids []string, nonRepeaters, maxRepetitions int) []respVarBind {
	if nonRepeaters < 0 {
		nonRepeaters = 0
	}
	if nonRepeaters > len(oids) {
		nonRepeaters = len(oids)
	}
	if maxRepetitions < 0 {
		maxRepetitions = 0
	}

	var out []respVarBind
	for i := 0; i < nonRepeaters; i++ {
		oid := oids[i]
		if nextOID, v, ok := proj.Next(oid); ok {
			out = append(out, respVarBind{oid: nextOID, value: v, hasValue: true})
		} else {
			out = append(out, respVarBind{oid: oid, exception: ber.TagEndOfMibView})
		}
	}

	for i := nonRepeaters; i < len(oids); i++ {
		cur := oids[i]
		for r := 0; r < maxRepetitions; r++ {
			nextOID, v, ok := proj.Next(cur)
			if !ok {
				out = append(out, respVarBind{oid: cur, exception: ber.TagEndOfMibView})
				break
			}
			out = append(out, respVarBind{oid: nextOID, value: v, hasValue: true})
			cur = nextOID
		}
	}
	return out
}

// decodeRequest parses the outer SNMP message: SEQUENCE { version INTEGER,
// community OCTET STRING, pdu }.
func decodeRequest(data []byte) (*request, error) {
	outer, _, err := ber.DecodeTLV(data)
	if err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	if outer.Tag != ber.TagSequence {
		return nil, fmt.Errorf("message: expected sequence, got tag 0x%x", outer.Tag)
	}
	content := outer.Content

	verElem, content, err := ber.DecodeTLV(content)
	if err != nil {
		return nil, fmt.Errorf("decode version: %w", err)
	}
	version, err := ber.DecodeInteger(verElem.Content)
	if err != nil {
		return nil, fmt.Errorf("decode version: %w", err)
	}

	commElem, content, err := ber.DecodeTLV(content)
	if err != nil {
		return nil, fmt.Errorf("decode community: %w", err)
	}

	pduElem, _, err := ber.DecodeTLV(content)
	if err != nil {
		return nil, fmt.Errorf("decode pdu: %w", err)
	}

	req := &request{version: version, community: string(commElem.Content), pduTag: pduElem.Tag}
	if err := decodePDU(pduElem.Content, req); err != nil {
		return nil, fmt.Errorf("decode pdu body: %w", err)
	}
	return req, nil
}

func decodePDU(content []byte, req *request) error {
	idElem, content, err := ber.DecodeTLV(content)
	if err != nil {
		return err
	}
	req.requestID, err = ber.DecodeInteger(idElem.Content)
	if err != nil {
		return err
	}

	p1Elem, content, err := ber.DecodeTLV(content)
	if err != nil {
		return err
	}
	req.param1, err = ber.DecodeInteger(p1Elem.Content)
	if err != nil {
		return err
	}

	p2Elem, content, err := ber.DecodeTLV(content)
	if err != nil {
		return err
	}
	req.param2, err = ber.DecodeInteger(p2Elem.Content)
	if err != nil {
		return err
	}

	vblElem, _, err := ber.DecodeTLV(content)
	if err != nil {
		return err
	}

	remaining := vblElem.Content
	for len(remaining) > 0 {
		vbElem, rest, err := ber.DecodeTLV(remaining)
		if err != nil {
			return err
		}
		oidElem, _, err := ber.DecodeTLV(vbElem.Content)
		if err != nil {
			return err
		}
		oid, err := ber.DecodeOID(oidElem.Content)
		if err != nil {
			return err
		}
		req.varbinds = append(req.varbinds, oid)
		remaining = rest
	}
	return nil
}

func encodeValue(v mib.Value) []byte {
	switch v.Kind {
	case mib.KindInteger:
		return ber.EncodeInteger(v.Int)
	case mib.KindCounter64:
		return ber.EncodeUnsignedApp(ber.TagCounter64, v.Counter)
	case mib.KindTimeTicks:
		return ber.EncodeUnsignedApp(ber.TagTimeTicks, v.Counter)
	default:
		return ber.EncodeOctetString(v.Str)
	}
}

func encodeResponse(version int64, community string, requestID int64, varbinds []respVarBind) []byte {
	vbSeqs := make([][]byte, 0, len(varbinds))
	for _, vb := range varbinds {
		oidBytes, err := ber.EncodeOID(vb.oid)
		if err != nil {
			continue
		}
		var valueBytes []byte
		if vb.hasValue {
			valueBytes = encodeValue(vb.value)
		} else {
			valueBytes = ber.EncodeTLV(vb.exception, nil)
		}
		vbSeqs = append(vbSeqs, ber.EncodeSequence(ber.TagSequence, oidBytes, valueBytes))
	}
	varBindList := ber.EncodeSequence(ber.TagSequence, vbSeqs...)

	pdu := ber.EncodeSequence(ber.TagGetResponse,
		ber.EncodeInteger(requestID),
		ber.EncodeInteger(0),
		ber.EncodeInteger(0),
		varBindList,
	)

	return ber.EncodeSequence(ber.TagSequence,
		ber.EncodeInteger(version),
		ber.EncodeOctetString(community),
		pdu,
	)
}
