// Copyright 2025 Acnodal Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package etherinfo exposes per-interface information (hardware
// address, IPv4/IPv6 addresses) as a read-only record backed by
// on-demand netlink queries. The hardware address is queried once and
// cached; address lists are re-queried on every access so each read
// reflects current kernel state.
package etherinfo

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-kit/log"

	"etherinfo.io/internal/nlquery"
	v1 "etherinfo.io/pkg/apis/v1"
)

var (
	// ErrNoData is returned when a record (or its querier) is absent.
	ErrNoData = errors.New("No data available")

	// ErrAttrNotFound is returned by Attr for unrecognized attribute
	// names.
	ErrAttrNotFound = errors.New("no such attribute")

	// ErrReadOnly is returned by every attempt to set a member value.
	ErrReadOnly = errors.New("etherinfo member values are read-only")
)

// Attribute names recognized by Attr.
const (
	AttrDevice        = "device"
	AttrMACAddress    = "mac_address"
	AttrIPv4Address   = "ipv4_address"
	AttrIPv4Netmask   = "ipv4_netmask"
	AttrIPv4Broadcast = "ipv4_broadcast"
)

// Querier answers netlink queries for one interface. nlquery.Session
// is the production implementation; tests substitute their own.
type Querier interface {
	// LinkInfo returns the interface's hardware address, which may
	// be empty.
	LinkInfo(device string) (net.HardwareAddr, error)
	// Addresses returns the interface's address list for family, in
	// kernel order.
	Addresses(device string, family v1.Family) ([]v1.IPAddress, error)
	// Close releases the underlying netlink session.
	Close() error
}

// EtherInfo holds information about one network interface. The device
// name is fixed at construction; everything else is fetched from the
// kernel on demand. An EtherInfo is not safe for concurrent use.
type EtherInfo struct {
	device  string
	querier Querier
	logger  log.Logger

	// hwAddr caches the link query result. hwKnown records that the
	// query succeeded, so an interface without a link-layer address
	// isn't re-queried on every read. A failed query leaves hwKnown
	// false and a later read retries.
	hwAddr  string
	hwKnown bool

	closed bool
}

// Option configures an EtherInfo at construction.
type Option func(*EtherInfo)

// WithQuerier makes the record use q instead of opening its own
// netlink session.
func WithQuerier(q Querier) Option {
	return func(e *EtherInfo) {
		e.querier = q
	}
}

// WithLogger sets the logger handed to the record's netlink session.
func WithLogger(logger log.Logger) Option {
	return func(e *EtherInfo) {
		e.logger = logger
	}
}

// New returns a record for the named interface. The device name can
// never change afterwards. New panics if device is empty.
func New(device string, opts ...Option) *EtherInfo {
	if device == "" {
		panic("etherinfo: empty device name")
	}

	e := &EtherInfo{
		device: device,
		logger: log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.querier == nil {
		e.querier = nlquery.NewSession(e.logger)
	}
	return e
}

// ok reports whether this record can answer queries. It tolerates nil
// receivers so that misuse surfaces as ErrNoData instead of a panic.
func (e *EtherInfo) ok() bool {
	return e != nil && e.querier != nil
}

// Attr resolves an attribute by name. Recognized names are device,
// mac_address, ipv4_address, ipv4_netmask, and ipv4_broadcast; any
// other name fails with ErrAttrNotFound. An absent value is returned
// as nil (or 0 for ipv4_netmask). The ipv4_* attributes preserve the
// legacy single-address model: they report the last entry of the
// kernel's IPv4 address list.
func (e *EtherInfo) Attr(name string) (interface{}, error) {
	if e == nil {
		return nil, ErrNoData
	}

	switch name {
	case AttrDevice:
		if e.device == "" {
			return nil, nil
		}
		return e.device, nil

	case AttrMACAddress:
		mac, err := e.MACAddress()
		if err != nil {
			return nil, err
		}
		if mac == "" {
			return nil, nil
		}
		return mac, nil

	case AttrIPv4Address:
		addr, err := e.lastIPv4()
		if err != nil {
			return nil, err
		}
		if addr == nil || addr.Local == "" {
			return nil, nil
		}
		return addr.Local, nil

	case AttrIPv4Netmask:
		prefixLen, err := e.IPv4Netmask()
		if err != nil {
			return nil, err
		}
		return prefixLen, nil

	case AttrIPv4Broadcast:
		addr, err := e.lastIPv4()
		if err != nil {
			return nil, err
		}
		if addr == nil || addr.Broadcast == "" {
			return nil, nil
		}
		return addr.Broadcast, nil
	}

	return nil, fmt.Errorf("%s: %w", name, ErrAttrNotFound)
}

// Set rejects every attempt to modify a member value: the record is a
// read-only projection of kernel state.
func (e *EtherInfo) Set(name string, value interface{}) error {
	if e == nil {
		return ErrNoData
	}
	return ErrReadOnly
}

// Device returns the interface name the record was constructed with.
func (e *EtherInfo) Device() (string, error) {
	if e == nil {
		return "", ErrNoData
	}
	return e.device, nil
}

// MACAddress returns the interface's hardware address, querying the
// kernel at most once per record. An interface without a link-layer
// address yields "" with no error; that absence is cached too. A
// failed query is not cached, so a later read retries.
func (e *EtherInfo) MACAddress() (string, error) {
	if !e.ok() {
		return "", ErrNoData
	}
	if e.hwKnown {
		return e.hwAddr, nil
	}

	mac, err := e.querier.LinkInfo(e.device)
	if err != nil {
		return "", err
	}
	if len(mac) > 0 {
		e.hwAddr = mac.String()
	}
	e.hwKnown = true

	return e.hwAddr, nil
}

// IPv4Address returns the interface's current IPv4 address under the
// legacy single-address model, or "" if it has none.
func (e *EtherInfo) IPv4Address() (string, error) {
	addr, err := e.lastIPv4()
	if err != nil || addr == nil {
		return "", err
	}
	return addr.Local, nil
}

// IPv4Netmask returns the prefix length of the interface's current
// IPv4 address under the legacy single-address model, or 0 if it has
// none.
func (e *EtherInfo) IPv4Netmask() (int, error) {
	addr, err := e.lastIPv4()
	if err != nil || addr == nil {
		return 0, err
	}
	return addr.PrefixLen, nil
}

// IPv4Broadcast returns the broadcast address of the interface's
// current IPv4 address under the legacy single-address model, or ""
// if it has none.
func (e *EtherInfo) IPv4Broadcast() (string, error) {
	addr, err := e.lastIPv4()
	if err != nil || addr == nil {
		return "", err
	}
	return addr.Broadcast, nil
}

// GetIPv4Addresses returns all of the interface's configured IPv4
// addresses in kernel order. Nothing is cached; every call queries
// the kernel.
func (e *EtherInfo) GetIPv4Addresses() ([]v1.IPAddress, error) {
	if !e.ok() {
		return nil, ErrNoData
	}
	return e.querier.Addresses(e.device, v1.FamilyIPv4)
}

// GetIPv6Addresses returns all of the interface's configured IPv6
// addresses in kernel order. Nothing is cached; every call queries
// the kernel.
func (e *EtherInfo) GetIPv6Addresses() ([]v1.IPAddress, error) {
	if !e.ok() {
		return nil, ErrNoData
	}
	return e.querier.Addresses(e.device, v1.FamilyIPv6)
}

// lastIPv4 re-queries the IPv4 address list and returns a view of the
// entry the legacy single-address model would have kept. The old
// model overwrote a single stored address on every netlink update, so
// the last entry in the list is the one a legacy caller would have
// seen. Returns nil if the interface has no IPv4 address.
func (e *EtherInfo) lastIPv4() (*v1.IPAddress, error) {
	addrs, err := e.GetIPv4Addresses()
	if err != nil {
		return nil, err
	}
	return lastAddress(addrs), nil
}

// lastAddress returns a pointer into the caller's slice, not a copy.
func lastAddress(addrs []v1.IPAddress) *v1.IPAddress {
	if len(addrs) == 0 {
		return nil
	}
	return &addrs[len(addrs)-1]
}

// Summary renders the record as a human-readable multi-line string:
// the device header, the MAC address if the interface has one, then
// every IPv4 and IPv6 address in kernel order.
func (e *EtherInfo) Summary() (string, error) {
	if !e.ok() {
		return "", ErrNoData
	}

	mac, err := e.MACAddress()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Device %s:\n", e.device)
	if mac != "" {
		fmt.Fprintf(&b, "\tMAC address: %s\n", mac)
	}

	ipv4addrs, err := e.GetIPv4Addresses()
	if err != nil {
		return "", err
	}
	for _, addr := range ipv4addrs {
		fmt.Fprintf(&b, "\tIPv4 address: %s", addr.CIDR())
		if addr.Broadcast != "" {
			fmt.Fprintf(&b, "  Broadcast: %s", addr.Broadcast)
		}
		b.WriteString("\n")
	}

	ipv6addrs, err := e.GetIPv6Addresses()
	if err != nil {
		return "", err
	}
	for _, addr := range ipv6addrs {
		fmt.Fprintf(&b, "\tIPv6 address: [%s] %s\n", addr.Scope, addr.CIDR())
	}

	return b.String(), nil
}

// String implements fmt.Stringer. It returns the Summary, or "" if
// the underlying queries fail.
func (e *EtherInfo) String() string {
	s, err := e.Summary()
	if err != nil {
		return ""
	}
	return s
}

// Close releases the record's netlink session. It is safe to call
// even if no query ever ran; calling it again is a no-op.
func (e *EtherInfo) Close() error {
	if e == nil {
		return ErrNoData
	}
	if e.closed || e.querier == nil {
		return nil
	}
	e.closed = true
	return e.querier.Close()
}
