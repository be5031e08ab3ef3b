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

// Package nlquery queries the kernel's link and address tables over
// netlink. A Session wraps one netlink socket; the socket is opened
// on the first query so that constructing a Session can't fail and a
// Session that's never used costs nothing.
package nlquery

import (
	"errors"
	"fmt"
	"net"

	"github.com/apparentlymart/go-cidr/cidr"
	"github.com/go-kit/log"
	"github.com/vishvananda/netlink"

	v1 "etherinfo.io/pkg/apis/v1"
)

// ErrClosed is returned by queries on a Session that has been closed.
var ErrClosed = errors.New("netlink session is closed")

// Session owns a single netlink socket and answers link and address
// queries for named interfaces. A Session is not safe for concurrent
// use; callers that share one across goroutines must serialize.
type Session struct {
	logger log.Logger
	handle *netlink.Handle
	closed bool
}

// NewSession returns a Session that will open its netlink socket on
// first use. The logger may be nil.
func NewSession(logger log.Logger) *Session {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Session{logger: logger}
}

// ensureHandle opens the netlink socket if this Session doesn't have
// one yet.
func (s *Session) ensureHandle() (*netlink.Handle, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.handle == nil {
		handle, err := netlink.NewHandle()
		if err != nil {
			recordSessionError()
			return nil, fmt.Errorf("opening netlink session: %w", err)
		}
		recordSessionOpened()
		s.handle = handle
	}
	return s.handle, nil
}

// LinkInfo returns the hardware (MAC) address of the named
// interface. An interface without a link-layer address yields an
// empty HardwareAddr and a nil error; only kernel/socket failures are
// errors.
func (s *Session) LinkInfo(device string) (net.HardwareAddr, error) {
	handle, err := s.ensureHandle()
	if err != nil {
		return nil, err
	}

	recordQuery(kindLink)
	link, err := handle.LinkByName(device)
	if err != nil {
		recordQueryError(kindLink)
		return nil, fmt.Errorf("link info for %s: %w", device, err)
	}

	s.logger.Log("op", "linkInfo", "device", device, "mac", link.Attrs().HardwareAddr)
	return link.Attrs().HardwareAddr, nil
}

// Addresses returns the kernel's address list for the named interface
// and family, in the order the kernel reports it. The list may be
// empty. Each call re-queries the kernel.
func (s *Session) Addresses(device string, family v1.Family) ([]v1.IPAddress, error) {
	handle, err := s.ensureHandle()
	if err != nil {
		return nil, err
	}

	kind := family.String()
	recordQuery(kind)
	link, err := handle.LinkByName(device)
	if err != nil {
		recordQueryError(kind)
		return nil, fmt.Errorf("%s addresses for %s: %w", family, device, err)
	}
	addrs, err := handle.AddrList(link, int(family))
	if err != nil {
		recordQueryError(kind)
		return nil, fmt.Errorf("%s addresses for %s: %w", family, device, err)
	}

	records := make([]v1.IPAddress, 0, len(addrs))
	for _, addr := range addrs {
		records = append(records, convertAddr(addr, family))
	}

	s.logger.Log("op", "addresses", "device", device, "family", family, "count", len(records))
	return records, nil
}

// Close releases the netlink socket. It is safe to call on a Session
// that never ran a query, and calling it more than once is a no-op.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.handle != nil {
		s.handle.Delete()
		s.handle = nil
	}
	return nil
}

// convertAddr maps one kernel address entry onto an IPAddress record.
func convertAddr(addr netlink.Addr, family v1.Family) v1.IPAddress {
	prefixLen, _ := addr.IPNet.Mask.Size()
	record := v1.IPAddress{
		Local:     addr.IPNet.IP.String(),
		PrefixLen: prefixLen,
	}

	switch family {
	case v1.FamilyIPv4:
		record.Broadcast = broadcast(addr)
	case v1.FamilyIPv6:
		record.Scope = v1.ScopeName(addr.Scope)
	}

	return record
}

// broadcast returns the broadcast address of an IPv4 entry. The
// kernel doesn't always report IFA_BROADCAST so we fall back to
// deriving it from the prefix. /31 and /32 networks have no broadcast
// address (RFC 3021).
func broadcast(addr netlink.Addr) string {
	if addr.Broadcast != nil {
		return addr.Broadcast.String()
	}

	prefixLen, bits := addr.IPNet.Mask.Size()
	if bits != 32 || prefixLen >= 31 {
		return ""
	}

	network := net.IPNet{IP: addr.IPNet.IP.Mask(addr.IPNet.Mask), Mask: addr.IPNet.Mask}
	_, last := cidr.AddressRange(&network)
	return last.String()
}
