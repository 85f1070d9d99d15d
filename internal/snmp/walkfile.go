package snmp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zerodha/snmp-lama/internal/table"
	"github.com/zerodha/snmp-lama/pkg/models"
)

// ParseWalk reads numeric `snmpwalk -On` output, one "OID = TYPE: value"
// per line. Quoted strings are unquoted and may span lines. Hex-STRING values
// wrapped over several lines are joined with single spaces. Lines reporting
// a missing object are skipped.
func ParseWalk(r io.Reader) (models.RawSample, error) {
	var (
		out     = models.RawSample{}
		sc      = bufio.NewScanner(r)
		lastOID string
		open    bool
		hex     bool
		lineNo  int
	)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		lineNo++
		line := sc.Text()

		// Continuation of a multi-line quoted string.
		if open {
			if closesQuote(line) {
				line = line[:len(line)-1]
				open = false
			}
			out[lastOID] += "\n" + unescape(line)
			continue
		}

		if strings.TrimSpace(line) == "" {
			continue
		}
		oid, val, ok := strings.Cut(line, " = ")
		if !ok {
			// net-snmp wraps long Hex-STRING values every 16 bytes.
			if hex {
				out[lastOID] = joinHex(out[lastOID], line)
				continue
			}
			return nil, fmt.Errorf("line %d: expected \"OID = value\": %q", lineNo, line)
		}
		oid = table.Normalize(strings.TrimSpace(oid))
		hex = false

		if isException(val) {
			continue
		}
		if strings.HasPrefix(val, "Hex-STRING: ") {
			out[oid] = joinHex("", strings.TrimPrefix(val, "Hex-STRING: "))
			lastOID = oid
			hex = true
			continue
		}

		val = stripType(val)
		if strings.HasPrefix(val, `"`) {
			if len(val) >= 2 && closesQuote(val[1:]) {
				val = val[1 : len(val)-1]
			} else {
				val = val[1:]
				open = true
			}
			val = unescape(val)
		}
		out[oid] = val
		lastOID = oid
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading walk: %w", err)
	}
	if open {
		return nil, fmt.Errorf("unterminated string for %s", lastOID)
	}

	return out, nil
}

// closesQuote reports whether s ends with a quote that is not escaped by an
// odd run of backslashes.
func closesQuote(s string) bool {
	if !strings.HasSuffix(s, `"`) {
		return false
	}
	n := 0
	for i := len(s) - 2; i >= 0 && s[i] == '\\'; i-- {
		n++
	}
	return n%2 == 0
}

var unescaper = strings.NewReplacer(`\\`, `\`, `\"`, `"`)

func unescape(s string) string {
	return unescaper.Replace(s)
}

func joinHex(prev, line string) string {
	return strings.Join(strings.Fields(prev+" "+line), " ")
}

// stripType drops the "TYPE: " prefix net-snmp prints before values.
func stripType(val string) string {
	typ, rest, ok := strings.Cut(val, ": ")
	if !ok || strings.ContainsAny(typ, ` "`) {
		return val
	}
	switch typ {
	case "Timeticks":
		// (12345) 0:02:03.45
		if strings.HasPrefix(rest, "(") {
			if end := strings.Index(rest, ")"); end > 0 {
				return rest[1:end]
			}
		}
	case "INTEGER", "Gauge32", "Counter32", "Counter64", "UInteger32":
		// Enumerations print as up(1), UNITS as "1024 kB".
		if open := strings.Index(rest, "("); open >= 0 && strings.HasSuffix(rest, ")") {
			return rest[open+1 : len(rest)-1]
		}
		if f := strings.Fields(rest); len(f) > 0 {
			return f[0]
		}
	}
	return rest
}

func isException(val string) bool {
	return strings.HasPrefix(val, "No Such Object") ||
		strings.HasPrefix(val, "No Such Instance") ||
		strings.HasPrefix(val, "No more variables")
}

// FileFetcher serves walks from a saved snmpwalk dump of the whole agent.
type FileFetcher struct {
	Target string
	sample models.RawSample
}

// NewFileFetcher parses the dump at path.
func NewFileFetcher(path string) (*FileFetcher, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := ParseWalk(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &FileFetcher{Target: path, sample: s}, nil
}

// NewSampleFetcher serves walks from an in-memory sample.
func NewSampleFetcher(target string, s models.RawSample) *FileFetcher {
	return &FileFetcher{Target: target, sample: s}
}

// Walk returns the subset of the dump under root.
func (f *FileFetcher) Walk(ctx context.Context, root string) (models.RawSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, &TransportError{Root: root, Target: f.Target, Err: err}
	}

	root = table.Normalize(root)
	out := models.RawSample{}
	for k, v := range f.sample {
		k = table.Normalize(k)
		if k == root || strings.HasPrefix(k, root+".") {
			out[k] = v
		}
	}
	return out, nil
}
