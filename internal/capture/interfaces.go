package capture

import (
	"fmt"
	"net"

	"github.com/google/gopacket/pcap"
)

// libpcap interface flag bits (PCAP_IF_*).
const (
	pcapIfLoopback = 0x00000001
	pcapIfUp       = 0x00000002
)

// Interface describes one capturable network interface.
type Interface struct {
	Name        string
	Description string
	Addresses   []string
	Loopback    bool
	Up          bool
}

// Interfaces enumerates the interfaces available for capture. Pure query, no
// side effects.
func Interfaces() ([]Interface, error) {
	devs, err := pcap.FindAllDevs()
	if err != nil {
		return nil, fmt.Errorf("enumerate interfaces: %w", err)
	}

	out := make([]Interface, 0, len(devs))
	for _, dev := range devs {
		iface := Interface{
			Name:        dev.Name,
			Description: dev.Description,
			Loopback:    dev.Flags&pcapIfLoopback != 0,
			Up:          dev.Flags&pcapIfUp != 0,
		}
		for _, addr := range dev.Addresses {
			if addr.IP != nil {
				iface.Addresses = append(iface.Addresses, addr.IP.String())
			}
		}
		out = append(out, iface)
	}
	return out, nil
}

// ValidateInterface checks that the named interface exists and is up.
func ValidateInterface(name string) error {
	ifaces, err := net.Interfaces()
	if err != nil {
		return fmt.Errorf("enumerate interfaces: %w", err)
	}
	for _, iface := range ifaces {
		if iface.Name == name {
			if iface.Flags&net.FlagUp == 0 {
				return fmt.Errorf("interface %s is down", name)
			}
			return nil
		}
	}
	return fmt.Errorf("interface %s not found", name)
}
