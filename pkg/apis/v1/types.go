// Copyright 2025 Acnodal Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package v1

import (
	"fmt"
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

const (
	// MetricsNamespace is the Prometheus metrics namespace for
	// etherinfo.
	MetricsNamespace string = "etherinfo"
)

// Family selects which kernel address table a query reads. The
// values are the AF_* address family constants that netlink itself
// uses.
type Family int

const (
	FamilyIPv4 Family = unix.AF_INET
	FamilyIPv6 Family = unix.AF_INET6
)

// String returns "IPv4", "IPv6", or "unknown".
func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "IPv4"
	case FamilyIPv6:
		return "IPv6"
	}
	return "unknown"
}

// IPAddress is one address entry from the kernel's address table for
// an interface. Local and PrefixLen are always set. Broadcast is set
// only for IPv4 entries that have a broadcast address, and Scope only
// for IPv6 entries. Values are read-only snapshots; the kernel's
// tables may change after a query returns.
type IPAddress struct {
	Local     string `json:"local"`
	PrefixLen int    `json:"prefixlen"`
	Broadcast string `json:"broadcast,omitempty"`
	Scope     string `json:"scope,omitempty"`
}

// CIDR returns the address in "local/prefixlen" notation.
func (a IPAddress) CIDR() string {
	return fmt.Sprintf("%s/%d", a.Local, a.PrefixLen)
}

// Netmask returns the netmask that corresponds to PrefixLen, sized
// for the address family of Local. The return value will be nil if
// Local doesn't parse as an IP address.
func (a IPAddress) Netmask() net.IPMask {
	ip := net.ParseIP(a.Local)
	if ip == nil {
		return nil
	}

	if ip.To4() != nil {
		return net.CIDRMask(a.PrefixLen, 32)
	}
	return net.CIDRMask(a.PrefixLen, 128)
}

// ScopeName translates a kernel RT_SCOPE_* value into the name that
// libnl (and therefore the "ip" command) would print for it. Unknown
// scope values are printed numerically.
func ScopeName(scope int) string {
	switch scope {
	case unix.RT_SCOPE_UNIVERSE:
		return "global"
	case unix.RT_SCOPE_SITE:
		return "site"
	case unix.RT_SCOPE_LINK:
		return "link"
	case unix.RT_SCOPE_HOST:
		return "host"
	case unix.RT_SCOPE_NOWHERE:
		return "nowhere"
	}
	return strconv.Itoa(scope)
}
