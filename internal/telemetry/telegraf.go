// Package telemetry ships watch measurements to Telegraf.
package telemetry

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/7c/procwatch/internal/watch"
)

// DefaultMeasurement prefixes every emitted measurement name.
const DefaultMeasurement = "procwatch"

// TelegrafEmitter sends watch measurements to Telegraf via UDP in InfluxDB
// line protocol. Writes are fire-and-forget.
type TelegrafEmitter struct {
	conn        *net.UDPConn
	measurement string
	hostname    string
	now         func() time.Time
}

// NewTelegrafEmitter dials addr ("host:port").
func NewTelegrafEmitter(addr, measurement string) (*TelegrafEmitter, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("telegraf resolve %q: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("telegraf dial: %w", err)
	}
	if measurement == "" {
		measurement = DefaultMeasurement
	}
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	return &TelegrafEmitter{
		conn:        conn,
		measurement: measurement,
		hostname:    hostname,
		now:         time.Now,
	}, nil
}

// EmitTick sends one system line per tick.
func (e *TelegrafEmitter) EmitTick(s watch.TickStats) {
	if e == nil || e.conn == nil {
		return
	}
	e.write(fmt.Sprintf("%s_system,host=%s mem=%f,cpu=%f,watched=%di,evicted=%di,dropped=%di %d",
		e.measurement,
		escapeTag(e.hostname),
		s.SystemMem, s.SystemCPU, s.Watched, s.Evicted, s.Dropped,
		e.now().UnixNano(),
	))
}

// EmitEviction sends one line per evicted process.
func (e *TelegrafEmitter) EmitEviction(ev watch.Event) {
	if e == nil || e.conn == nil {
		return
	}
	p := ev.Process
	killed := ev.TerminateErr == ""
	e.write(fmt.Sprintf("%s_eviction,host=%s,pid=%d,user=%s,reason=%s pid=%di,mem=%f,cpu=%f,rss=%di,system_mem=%f,system_cpu=%f,killed=%t %d",
		e.measurement,
		escapeTag(e.hostname),
		p.PID,
		escapeTag(orUnknown(p.User)),
		escapeTag(strings.Join(ev.Reasons, "+")),
		p.PID, p.Mem, p.CPU, p.RSS, ev.SystemMem, ev.SystemCPU, killed,
		ev.Time.UnixNano(),
	))
}

func (e *TelegrafEmitter) write(line string) {
	e.conn.Write([]byte(line + "\n"))
}

// Close closes the UDP connection.
func (e *TelegrafEmitter) Close() {
	if e != nil && e.conn != nil {
		e.conn.Close()
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// escapeTag escapes special characters in InfluxDB line protocol tag values.
func escapeTag(s string) string {
	s = strings.ReplaceAll(s, " ", "\\ ")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, "=", "\\=")
	return s
}
