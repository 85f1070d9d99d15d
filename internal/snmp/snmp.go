package snmp

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/zerodha/snmp-lama/internal/table"
	"github.com/zerodha/snmp-lama/pkg/models"
	"golang.org/x/exp/slog"
)

// Fetcher walks one OID subtree and returns it as a RawSample.
type Fetcher interface {
	Walk(ctx context.Context, root string) (models.RawSample, error)
}

// TransportError is returned when a walk fails on the network, on
// authentication or on timeout.
type TransportError struct {
	Root   string
	Target string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("snmp walk %s on %s: %v", e.Root, e.Target, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type Opts struct {
	Target         string
	Port           uint16
	Community      string
	Version        string
	Timeout        time.Duration
	Retries        int
	MaxRepetitions uint32
}

// Manager walks a single SNMP agent. Every walk opens its own session so
// walks may run concurrently.
type Manager struct {
	lo      *slog.Logger
	opts    Opts
	version gosnmp.SnmpVersion
}

// NewManager returns a new SNMP manager.
func NewManager(lo *slog.Logger, opts Opts) (*Manager, error) {
	var v gosnmp.SnmpVersion
	switch opts.Version {
	case "1":
		v = gosnmp.Version1
	case "2c", "":
		v = gosnmp.Version2c
	default:
		return nil, fmt.Errorf("unsupported snmp version %q", opts.Version)
	}
	if opts.Target == "" {
		return nil, fmt.Errorf("snmp target is required")
	}
	if opts.Port == 0 {
		opts.Port = 161
	}

	return &Manager{
		lo:      lo.With("target", opts.Target),
		opts:    opts,
		version: v,
	}, nil
}

func (m *Manager) session(ctx context.Context) *gosnmp.GoSNMP {
	return &gosnmp.GoSNMP{
		Context:        ctx,
		Target:         m.opts.Target,
		Port:           m.opts.Port,
		Community:      m.opts.Community,
		Version:        m.version,
		Timeout:        m.opts.Timeout,
		Retries:        m.opts.Retries,
		MaxRepetitions: m.opts.MaxRepetitions,
		MaxOids:        gosnmp.MaxOids,
	}
}

// Walk retrieves every value under root. v1 agents are walked with
// GETNEXT, v2c agents with GETBULK.
func (m *Manager) Walk(ctx context.Context, root string) (models.RawSample, error) {
	var (
		start = time.Now()
		sess  = m.session(ctx)
		out   = models.RawSample{}
	)

	if err := sess.Connect(); err != nil {
		return nil, &TransportError{Root: root, Target: m.opts.Target, Err: err}
	}
	defer sess.Conn.Close()

	walkFn := func(pdu gosnmp.SnmpPDU) error {
		v, ok := pduString(pdu)
		if !ok {
			m.lo.Debug("skipping varbind", "oid", pdu.Name, "type", pdu.Type.String())
			return nil
		}
		out[table.Normalize(pdu.Name)] = v
		return nil
	}

	var err error
	if m.version == gosnmp.Version1 {
		err = sess.Walk(root, walkFn)
	} else {
		err = sess.BulkWalk(root, walkFn)
	}
	if err != nil {
		return nil, &TransportError{Root: root, Target: m.opts.Target, Err: err}
	}

	m.lo.Debug("walked subtree", "root", root, "oids", len(out), "duration", time.Since(start))
	return out, nil
}

// Ping fetches sysObjectID to check the agent is reachable and the
// community is accepted.
func (m *Manager) Ping(ctx context.Context) error {
	const sysObjectID = "1.3.6.1.2.1.1.2.0"

	sess := m.session(ctx)
	if err := sess.Connect(); err != nil {
		return &TransportError{Root: sysObjectID, Target: m.opts.Target, Err: err}
	}
	defer sess.Conn.Close()

	pkt, err := sess.Get([]string{sysObjectID})
	if err != nil {
		return &TransportError{Root: sysObjectID, Target: m.opts.Target, Err: err}
	}
	if pkt.Error != gosnmp.NoError {
		return &TransportError{Root: sysObjectID, Target: m.opts.Target, Err: fmt.Errorf("agent returned %s", pkt.Error)}
	}
	return nil
}

// pduString renders a varbind as text. Exception values (noSuchObject,
// endOfMibView, null) report false.
func pduString(pdu gosnmp.SnmpPDU) (string, bool) {
	switch pdu.Type {
	case gosnmp.OctetString, gosnmp.BitString:
		b, ok := pdu.Value.([]byte)
		if !ok {
			return fmt.Sprint(pdu.Value), true
		}
		return string(b), true
	case gosnmp.ObjectIdentifier, gosnmp.IPAddress:
		s, ok := pdu.Value.(string)
		if !ok {
			return fmt.Sprint(pdu.Value), true
		}
		return strings.TrimPrefix(s, "."), true
	case gosnmp.Integer, gosnmp.Counter32, gosnmp.Gauge32, gosnmp.TimeTicks,
		gosnmp.Counter64, gosnmp.Uinteger32:
		n := gosnmp.ToBigInt(pdu.Value)
		if n == nil {
			return new(big.Int).String(), true
		}
		return n.String(), true
	case gosnmp.OpaqueFloat:
		if f, ok := pdu.Value.(float32); ok {
			return strconv.FormatFloat(float64(f), 'f', -1, 32), true
		}
	case gosnmp.OpaqueDouble:
		if f, ok := pdu.Value.(float64); ok {
			return strconv.FormatFloat(f, 'f', -1, 64), true
		}
	case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.EndOfMibView, gosnmp.Null:
		return "", false
	}
	return fmt.Sprint(pdu.Value), true
}
