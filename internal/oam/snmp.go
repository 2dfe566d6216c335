package oam

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
)

const (
	oidSysUpTime0 = "1.3.6.1.2.1.1.3.0"
	oidSysName0   = "1.3.6.1.2.1.1.5.0"
)

// System is what a reachable tower controller reports about itself.
type System struct {
	SysName string
	Uptime  time.Duration
}

// SNMPConfig configures the SNMPv2c GET client.
type SNMPConfig struct {
	Community string
	Port      uint16
	Timeout   time.Duration
	Retries   int
}

// SNMPClient issues SNMPv2c GETs against tower management addresses.
type SNMPClient struct {
	cfg SNMPConfig
}

func NewSNMPClient(cfg SNMPConfig) *SNMPClient {
	if strings.TrimSpace(cfg.Community) == "" {
		cfg.Community = "public"
	}
	if cfg.Port == 0 {
		cfg.Port = 161
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &SNMPClient{cfg: cfg}
}

// GetSystem reads sysUpTime and sysName. Any response counts as reachable;
// missing values are left zero.
func (c *SNMPClient) GetSystem(ctx context.Context, address string) (System, error) {
	if c == nil {
		return System{}, errors.New("snmp client is nil")
	}

	s := &gosnmp.GoSNMP{
		Target:    address,
		Port:      c.cfg.Port,
		Community: c.cfg.Community,
		Version:   gosnmp.Version2c,
		Timeout:   c.cfg.Timeout,
		Retries:   c.cfg.Retries,
		Context:   ctx,
	}
	if err := s.Connect(); err != nil {
		return System{}, err
	}
	defer s.Conn.Close()

	pkt, err := s.Get([]string{oidSysUpTime0, oidSysName0})
	if err != nil {
		return System{}, err
	}

	var out System
	for _, v := range pkt.Variables {
		switch v.Name {
		case oidSysName0, "." + oidSysName0:
			out.SysName = pduString(v)
		case oidSysUpTime0, "." + oidSysUpTime0:
			out.Uptime = pduTicks(v)
		}
	}
	return out, nil
}

func pduString(pdu gosnmp.SnmpPDU) string {
	switch v := pdu.Value.(type) {
	case string:
		return strings.TrimSpace(v)
	case []byte:
		return strings.TrimSpace(string(v))
	default:
		return ""
	}
}

// pduTicks converts TimeTicks (hundredths of a second).
func pduTicks(pdu gosnmp.SnmpPDU) time.Duration {
	if pdu.Type != gosnmp.TimeTicks {
		return 0
	}
	n := gosnmp.ToBigInt(pdu.Value)
	if !n.IsInt64() {
		return 0
	}
	return time.Duration(n.Int64()) * 10 * time.Millisecond
}
