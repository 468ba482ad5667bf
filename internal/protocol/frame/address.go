package frame

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"net"
	"net/netip"
	"strconv"

	"github.com/danmuck/framewire/internal/protocol"
	"github.com/danmuck/framewire/internal/protocol/tlv"
)

// Family is an IANA Address Family Number (RFC 3232).
type Family uint16

const (
	FamilyIPv4        Family = 1
	FamilyIPv6        Family = 2
	FamilyNSAP        Family = 3
	FamilyHDLC        Family = 4
	FamilyBBN1822     Family = 5
	FamilyIEEE802     Family = 6
	FamilyE163        Family = 7
	FamilyE164        Family = 8
	FamilyF69         Family = 9
	FamilyX121        Family = 10
	FamilyIPX         Family = 11
	FamilyAppleTalk   Family = 12
	FamilyDECnet      Family = 13
	FamilyBanyanVines Family = 14
	FamilyE164NSAP    Family = 15
	FamilyDNS         Family = 16
)

var familyNames = map[Family]string{
	FamilyIPv4:        "ipv4",
	FamilyIPv6:        "ipv6",
	FamilyNSAP:        "nsap",
	FamilyHDLC:        "hdlc",
	FamilyBBN1822:     "bbn1822",
	FamilyIEEE802:     "ieee802",
	FamilyE163:        "e163",
	FamilyE164:        "e164",
	FamilyF69:         "f69",
	FamilyX121:        "x121",
	FamilyIPX:         "ipx",
	FamilyAppleTalk:   "appletalk",
	FamilyDECnet:      "decnet",
	FamilyBanyanVines: "banyan-vines",
	FamilyE164NSAP:    "e164-nsap",
	FamilyDNS:         "dns",
}

// fixed address byte counts; families not listed are variable length.
var familyLengths = map[Family][]int{
	FamilyIPv4:    {4},
	FamilyIPv6:    {16},
	FamilyIEEE802: {6, 8},
}

func (f Family) Known() bool {
	_, ok := familyNames[f]
	return ok
}

func (f Family) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return "family(" + strconv.Itoa(int(f)) + ")"
}

// Address is a family tagged address. Only the byte count is checked against
// the family; the bytes are not interpreted.
type Address struct {
	family Family
	addr   []byte
}

func NewAddress(family Family, addr []byte) (*Address, error) {
	f := &Address{family: family, addr: bytes.Clone(addr)}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// NewIPAddress picks IPv4 or IPv6 from ip. IPv4-mapped IPv6 addresses are
// carried as IPv4.
func NewIPAddress(ip netip.Addr) (*Address, error) {
	if !ip.IsValid() {
		return nil, fmt.Errorf("%w: invalid ip address", protocol.ErrMalformed)
	}
	ip = ip.Unmap()
	if ip.Is4() {
		b := ip.As4()
		return NewAddress(FamilyIPv4, b[:])
	}
	b := ip.As16()
	return NewAddress(FamilyIPv6, b[:])
}

func NewMACAddress(hw net.HardwareAddr) (*Address, error) {
	return NewAddress(FamilyIEEE802, hw)
}

func (f *Address) Type() Type { return TypeAddress }

func (f *Address) Len() int { return 2 + len(f.addr) }

func (f *Address) Family() Family { return f.family }

// Known reports whether the family is a recognized IANA number.
func (f *Address) Known() bool { return f.family.Known() }

func (f *Address) Bytes() []byte { return bytes.Clone(f.addr) }

// IP returns the address as netip.Addr for the IPv4 and IPv6 families.
func (f *Address) IP() (netip.Addr, bool) {
	switch f.family {
	case FamilyIPv4, FamilyIPv6:
		return netip.AddrFromSlice(f.addr)
	default:
		return netip.Addr{}, false
	}
}

func (f *Address) Validate() error {
	return checkAddressLen(f.family, len(f.addr))
}

func (f *Address) AppendValue(dst []byte) []byte {
	var fam [2]byte
	_ = tlv.PutU16(fam[:], 0, uint16(f.family))
	dst = append(dst, fam[:]...)
	return append(dst, f.addr...)
}

func (f *Address) String() string {
	var text string
	switch f.family {
	case FamilyIPv4, FamilyIPv6:
		if ip, ok := f.IP(); ok {
			text = ip.String()
		}
	case FamilyIEEE802:
		text = net.HardwareAddr(f.addr).String()
	case FamilyDNS:
		text = strconv.Quote(string(f.addr))
	}
	if text == "" {
		text = hex.EncodeToString(f.addr)
	}
	return fmt.Sprintf("address(%s %s)", f.family, text)
}

func (*Address) sealed() {}

func validateAddress(v []byte) error {
	if len(v) <= 2 {
		return fmt.Errorf("%w: address value of %d bytes has no address", protocol.ErrMalformed, len(v))
	}
	fam, err := tlv.GetU16(v, 0)
	if err != nil {
		return err
	}
	return checkAddressLen(Family(fam), len(v)-2)
}

func checkAddressLen(family Family, n int) error {
	if n == 0 {
		return fmt.Errorf("%w: empty %s address", protocol.ErrMalformed, family)
	}
	if uint64(n)+2 > uint64(^uint32(0)) {
		return fmt.Errorf("%w: %s address of %d bytes too large", protocol.ErrMalformed, family, n)
	}
	want, fixed := familyLengths[family]
	if !fixed {
		return nil
	}
	for _, w := range want {
		if n == w {
			return nil
		}
	}
	return fmt.Errorf("%w: %s address is %d bytes, want %v", protocol.ErrMalformed, family, n, want)
}
