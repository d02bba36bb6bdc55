package transport

import (
	"fmt"
	"strconv"
	"strings"
)

// Filter selects ports by USB identity. A zero field matches any value.
type Filter struct {
	VendorID  uint16
	ProductID uint16
}

// Any reports whether the filter matches every port.
func (f Filter) Any() bool {
	return f.VendorID == 0 && f.ProductID == 0
}

// Matches reports whether info satisfies the filter. Non-USB ports only match an empty filter.
func (f Filter) Matches(info PortInfo) bool {
	if f.Any() {
		return true
	}
	if !info.USB {
		return false
	}
	if f.VendorID != 0 && info.VendorID != f.VendorID {
		return false
	}
	if f.ProductID != 0 && info.ProductID != f.ProductID {
		return false
	}
	return true
}

func (f Filter) String() string {
	if f.Any() {
		return "any"
	}
	return fmt.Sprintf("%04X:%04X", f.VendorID, f.ProductID)
}

// FilterPorts returns the ports matching f, preserving order.
func FilterPorts(ports []PortInfo, f Filter) []PortInfo {
	var out []PortInfo
	for _, p := range ports {
		if f.Matches(p) {
			out = append(out, p)
		}
	}
	return out
}

// ParseFilter parses a filter specification.
// Supported formats:
//   - "" or "any" -> matches every port
//   - "0483:5740" -> vendor and product (hex, optional 0x prefix)
//   - "0483" -> vendor only
func ParseFilter(spec string) (Filter, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.EqualFold(spec, "any") {
		return Filter{}, nil
	}

	vendor, product, hasProduct := strings.Cut(spec, ":")
	vid, err := parseUSBID(vendor)
	if err != nil {
		return Filter{}, fmt.Errorf("invalid vendor id %q: %w", vendor, err)
	}
	f := Filter{VendorID: vid}
	if hasProduct {
		pid, err := parseUSBID(product)
		if err != nil {
			return Filter{}, fmt.Errorf("invalid product id %q: %w", product, err)
		}
		f.ProductID = pid
	}
	return f, nil
}

// parseUSBID parses a 16-bit hex identifier as reported by USB enumeration.
func parseUSBID(s string) (uint16, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return 0, fmt.Errorf("empty identifier")
	}
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}
