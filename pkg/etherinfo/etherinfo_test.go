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

package etherinfo_test

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "etherinfo.io/pkg/apis/v1"
	"etherinfo.io/pkg/etherinfo"
)

// mockQuerier is a canned-answer Querier that counts its calls so
// tests can verify the record's caching behavior.
type mockQuerier struct {
	mac     net.HardwareAddr
	linkErr error
	v4      []v1.IPAddress
	v4Err   error
	v6      []v1.IPAddress

	linkCalls  int
	v4Calls    int
	v6Calls    int
	closeCalls int
}

func (m *mockQuerier) LinkInfo(device string) (net.HardwareAddr, error) {
	m.linkCalls++
	return m.mac, m.linkErr
}

func (m *mockQuerier) Addresses(device string, family v1.Family) ([]v1.IPAddress, error) {
	switch family {
	case v1.FamilyIPv4:
		m.v4Calls++
		return m.v4, m.v4Err
	case v1.FamilyIPv6:
		m.v6Calls++
		return m.v6, nil
	}
	return nil, nil
}

func (m *mockQuerier) Close() error {
	m.closeCalls++
	return nil
}

func mustMAC(t *testing.T, s string) net.HardwareAddr {
	mac, err := net.ParseMAC(s)
	require.NoError(t, err)
	return mac
}

func TestDeviceBeforeAnyQuery(t *testing.T) {
	mock := &mockQuerier{}
	e := etherinfo.New("eth0", etherinfo.WithQuerier(mock))

	device, err := e.Device()
	assert.NoError(t, err)
	assert.Equal(t, "eth0", device)

	got, err := e.Attr(etherinfo.AttrDevice)
	assert.NoError(t, err)
	assert.Equal(t, "eth0", got)

	// reading the device name never touches netlink
	assert.Equal(t, 0, mock.linkCalls)
	assert.Equal(t, 0, mock.v4Calls)
	assert.Equal(t, 0, mock.v6Calls)
}

func TestNewPanicsOnEmptyDevice(t *testing.T) {
	assert.Panics(t, func() { etherinfo.New("") })
}

func TestSetAlwaysFails(t *testing.T) {
	mock := &mockQuerier{v4: []v1.IPAddress{{Local: "10.0.0.5", PrefixLen: 24}}}
	e := etherinfo.New("eth0", etherinfo.WithQuerier(mock))

	for _, name := range []string{
		etherinfo.AttrDevice,
		etherinfo.AttrMACAddress,
		etherinfo.AttrIPv4Address,
		"bogus_field",
	} {
		err := e.Set(name, "anything")
		assert.ErrorIs(t, err, etherinfo.ErrReadOnly, "setting %q", name)
	}

	// the record is unchanged
	device, err := e.Device()
	assert.NoError(t, err)
	assert.Equal(t, "eth0", device)
}

func TestLastAddressSelection(t *testing.T) {
	mock := &mockQuerier{v4: []v1.IPAddress{
		{Local: "10.0.0.5", PrefixLen: 24, Broadcast: "10.0.0.255"},
		{Local: "172.16.0.9", PrefixLen: 16, Broadcast: "172.16.255.255"},
		{Local: "192.168.1.2", PrefixLen: 28, Broadcast: "192.168.1.15"},
	}}
	e := etherinfo.New("eth0", etherinfo.WithQuerier(mock))

	addr, err := e.Attr(etherinfo.AttrIPv4Address)
	assert.NoError(t, err)
	assert.Equal(t, "192.168.1.2", addr)

	mask, err := e.Attr(etherinfo.AttrIPv4Netmask)
	assert.NoError(t, err)
	assert.Equal(t, 28, mask)

	bcast, err := e.Attr(etherinfo.AttrIPv4Broadcast)
	assert.NoError(t, err)
	assert.Equal(t, "192.168.1.15", bcast)
}

func TestLastAddressWithoutBroadcast(t *testing.T) {
	mock := &mockQuerier{v4: []v1.IPAddress{
		{Local: "10.0.0.5", PrefixLen: 24, Broadcast: "10.0.0.255"},
		{Local: "10.1.2.0", PrefixLen: 31},
	}}
	e := etherinfo.New("eth0", etherinfo.WithQuerier(mock))

	bcast, err := e.Attr(etherinfo.AttrIPv4Broadcast)
	assert.NoError(t, err)
	assert.Nil(t, bcast)
}

func TestEmptyAddressList(t *testing.T) {
	mock := &mockQuerier{}
	e := etherinfo.New("eth0", etherinfo.WithQuerier(mock))

	addr, err := e.Attr(etherinfo.AttrIPv4Address)
	assert.NoError(t, err)
	assert.Nil(t, addr)

	mask, err := e.Attr(etherinfo.AttrIPv4Netmask)
	assert.NoError(t, err)
	assert.Equal(t, 0, mask)

	bcast, err := e.Attr(etherinfo.AttrIPv4Broadcast)
	assert.NoError(t, err)
	assert.Nil(t, bcast)
}

func TestMACAddressIsCached(t *testing.T) {
	mock := &mockQuerier{mac: mustMAC(t, "00:11:22:33:44:55")}
	e := etherinfo.New("eth0", etherinfo.WithQuerier(mock))

	mac, err := e.MACAddress()
	assert.NoError(t, err)
	assert.Equal(t, "00:11:22:33:44:55", mac)

	mac, err = e.MACAddress()
	assert.NoError(t, err)
	assert.Equal(t, "00:11:22:33:44:55", mac)

	got, err := e.Attr(etherinfo.AttrMACAddress)
	assert.NoError(t, err)
	assert.Equal(t, "00:11:22:33:44:55", got)

	assert.Equal(t, 1, mock.linkCalls)
}

func TestMACAddressCachesAbsence(t *testing.T) {
	// a successful link query that reports no hardware address is
	// cached just like a real one: the record never re-queries
	mock := &mockQuerier{}
	e := etherinfo.New("tun0", etherinfo.WithQuerier(mock))

	mac, err := e.MACAddress()
	assert.NoError(t, err)
	assert.Equal(t, "", mac)

	got, err := e.Attr(etherinfo.AttrMACAddress)
	assert.NoError(t, err)
	assert.Nil(t, got)

	assert.Equal(t, 1, mock.linkCalls)
}

func TestMACAddressRetriesAfterError(t *testing.T) {
	// a failed query is not cached, so a later read retries
	mock := &mockQuerier{linkErr: errors.New("netlink receive: EINTR")}
	e := etherinfo.New("eth0", etherinfo.WithQuerier(mock))

	_, err := e.MACAddress()
	assert.Error(t, err)

	mock.linkErr = nil
	mock.mac = mustMAC(t, "00:11:22:33:44:55")

	mac, err := e.MACAddress()
	assert.NoError(t, err)
	assert.Equal(t, "00:11:22:33:44:55", mac)
	assert.Equal(t, 2, mock.linkCalls)
}

func TestAddressListsAreNotCached(t *testing.T) {
	mock := &mockQuerier{
		v4: []v1.IPAddress{{Local: "10.0.0.5", PrefixLen: 24}},
		v6: []v1.IPAddress{{Local: "fe80::1", PrefixLen: 64, Scope: "link"}},
	}
	e := etherinfo.New("eth0", etherinfo.WithQuerier(mock))

	for i := 0; i < 3; i++ {
		_, err := e.GetIPv4Addresses()
		assert.NoError(t, err)
		_, err = e.GetIPv6Addresses()
		assert.NoError(t, err)
	}
	assert.Equal(t, 3, mock.v4Calls)
	assert.Equal(t, 3, mock.v6Calls)

	// each read reflects current kernel state
	mock.v4 = []v1.IPAddress{{Local: "10.9.9.9", PrefixLen: 8}}
	addr, err := e.IPv4Address()
	assert.NoError(t, err)
	assert.Equal(t, "10.9.9.9", addr)
}

func TestSummaryRendering(t *testing.T) {
	mock := &mockQuerier{
		mac: mustMAC(t, "00:11:22:33:44:55"),
		v4:  []v1.IPAddress{{Local: "10.0.0.5", PrefixLen: 24, Broadcast: "10.0.0.255"}},
		v6:  []v1.IPAddress{{Local: "fe80::1", PrefixLen: 64, Scope: "link"}},
	}
	e := etherinfo.New("eth0", etherinfo.WithQuerier(mock))

	s, err := e.Summary()
	assert.NoError(t, err)
	assert.Equal(t,
		"Device eth0:\n\tMAC address: 00:11:22:33:44:55\n\tIPv4 address: 10.0.0.5/24  Broadcast: 10.0.0.255\n\tIPv6 address: [link] fe80::1/64\n",
		s)

	assert.Equal(t, s, e.String())
}

func TestSummaryWithoutMACOrBroadcast(t *testing.T) {
	mock := &mockQuerier{
		v4: []v1.IPAddress{
			{Local: "10.1.2.0", PrefixLen: 31},
			{Local: "10.1.3.1", PrefixLen: 24, Broadcast: "10.1.3.255"},
		},
	}
	e := etherinfo.New("tun0", etherinfo.WithQuerier(mock))

	s, err := e.Summary()
	assert.NoError(t, err)
	assert.Equal(t,
		"Device tun0:\n\tIPv4 address: 10.1.2.0/31\n\tIPv4 address: 10.1.3.1/24  Broadcast: 10.1.3.255\n",
		s)
}

func TestNilRecord(t *testing.T) {
	var e *etherinfo.EtherInfo

	_, err := e.Attr(etherinfo.AttrDevice)
	assert.ErrorIs(t, err, etherinfo.ErrNoData)
	assert.EqualError(t, err, "No data available")

	_, err = e.Device()
	assert.ErrorIs(t, err, etherinfo.ErrNoData)

	_, err = e.MACAddress()
	assert.ErrorIs(t, err, etherinfo.ErrNoData)

	_, err = e.GetIPv4Addresses()
	assert.ErrorIs(t, err, etherinfo.ErrNoData)

	_, err = e.GetIPv6Addresses()
	assert.ErrorIs(t, err, etherinfo.ErrNoData)

	_, err = e.Summary()
	assert.ErrorIs(t, err, etherinfo.ErrNoData)
	assert.Equal(t, "", e.String())

	assert.ErrorIs(t, e.Set("device", "eth1"), etherinfo.ErrNoData)
	assert.ErrorIs(t, e.Close(), etherinfo.ErrNoData)
}

func TestUnknownAttribute(t *testing.T) {
	e := etherinfo.New("eth0", etherinfo.WithQuerier(&mockQuerier{}))

	_, err := e.Attr("bogus_field")
	assert.ErrorIs(t, err, etherinfo.ErrAttrNotFound)
	assert.Contains(t, err.Error(), "bogus_field")
}

func TestQueryErrorPropagates(t *testing.T) {
	queryErr := errors.New("netlink: no such device")
	mock := &mockQuerier{v4Err: queryErr}
	e := etherinfo.New("eth9", etherinfo.WithQuerier(mock))

	_, err := e.Attr(etherinfo.AttrIPv4Address)
	assert.ErrorIs(t, err, queryErr)

	_, err = e.GetIPv4Addresses()
	assert.ErrorIs(t, err, queryErr)

	_, err = e.Summary()
	assert.ErrorIs(t, err, queryErr)
}

func TestCloseOnce(t *testing.T) {
	mock := &mockQuerier{}
	e := etherinfo.New("eth0", etherinfo.WithQuerier(mock))

	assert.NoError(t, e.Close())
	assert.NoError(t, e.Close())
	assert.Equal(t, 1, mock.closeCalls)
}
