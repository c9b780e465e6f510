package repeat

import "net"

// Pseudo-devices that are never valid replay targets.
var excludedInterfaces = map[string]bool{
	"any":     true,
	"nflog":   true,
	"nfqueue": true,
	"lo":      true,
}

// ListInterfaces enumerates the usable network interfaces. Loopback and
// pseudo-devices are excluded; the first entry serves as the default replay
// target.
func ListInterfaces() ([]NetworkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	nics := make([]NetworkInterface, 0, len(ifaces))
	for _, iface := range ifaces {
		if excludedInterfaces[iface.Name] || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		nic := NetworkInterface{Name: iface.Name}
		if addrs, err := iface.Addrs(); err == nil {
			for _, addr := range addrs {
				nic.Addresses = append(nic.Addresses, addr.String())
			}
		}
		nics = append(nics, nic)
	}
	return nics, nil
}
