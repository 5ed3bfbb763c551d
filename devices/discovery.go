package devices

import (
	"fmt"
	"io"
	"log"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
)

const (
	googlecastService = "_googlecast._tcp"
	// CapabilityVideoOut is the bitmask for video output capability (bit 0)
	CapabilityVideoOut = 1
	// mDNS query timeout per request
	castQueryTimeout = 750 * time.Millisecond
)

// CastDevice is one cast device seen on the network. UUID is already
// normalized, Name is the friendly name from the TXT record.
type CastDevice struct {
	Name        string
	UUID        string
	Model       string
	Addr        string
	Port        int
	IsAudioOnly bool
}

// scanDevices is swapped out in tests.
var scanDevices = discoverCastDevices

// Discover runs one mdns discovery round and returns everything found,
// sorted by name.
func Discover(timeout time.Duration) []CastDevice {
	return scanDevices(timeout)
}

func deviceFromMDNSEntry(entry *mdns.ServiceEntry) (CastDevice, bool) {
	if entry == nil || entry.AddrV4 == nil {
		return CastDevice{}, false
	}
	if !strings.Contains(entry.Name, "_googlecast") {
		return CastDevice{}, false
	}

	dev := CastDevice{
		Name: entry.Name,
		Addr: entry.AddrV4.String(),
		Port: entry.Port,
	}
	for _, txt := range entry.InfoFields {
		if after, ok := strings.CutPrefix(txt, "fn="); ok {
			dev.Name = after
			continue
		}
		if after, ok := strings.CutPrefix(txt, "id="); ok {
			dev.UUID = NormalizeUUID(after)
			continue
		}
		if after, ok := strings.CutPrefix(txt, "md="); ok {
			dev.Model = after
			continue
		}
		if after, ok := strings.CutPrefix(txt, "ca="); ok {
			dev.IsAudioOnly = isCastAudioOnly(after)
		}
	}
	if idx := strings.Index(dev.Name, "._googlecast"); idx > 0 {
		dev.Name = dev.Name[:idx]
	}
	return dev, true
}

// discoverCastDevices runs one mdns query round on every active network
// interface and returns the merged results.
func discoverCastDevices(timeout time.Duration) []CastDevice {
	if timeout <= 0 {
		timeout = castQueryTimeout
	}

	var foundMu sync.Mutex
	found := make(map[string]CastDevice)

	entriesCh := make(chan *mdns.ServiceEntry, 256)
	doneCh := make(chan struct{})
	go func() {
		defer close(doneCh)
		for entry := range entriesCh {
			dev, ok := deviceFromMDNSEntry(entry)
			if !ok {
				continue
			}
			foundMu.Lock()
			found[fmt.Sprintf("%s:%d", dev.Addr, dev.Port)] = dev
			foundMu.Unlock()
		}
	}()

	queryIface := func(iface *net.Interface) {
		params := mdns.DefaultParams(googlecastService)
		params.Entries = entriesCh
		params.Timeout = timeout
		params.DisableIPv6 = true
		params.WantUnicastResponse = true
		params.Logger = log.New(io.Discard, "", 0)
		params.Interface = iface
		_ = mdns.Query(params)
	}

	interfaces := getActiveNetworkInterfaces()
	if len(interfaces) > 0 {
		var wg sync.WaitGroup
		for _, iface := range interfaces {
			wg.Add(1)
			go func(iface net.Interface) {
				defer wg.Done()
				queryIface(&iface)
			}(iface)
		}
		wg.Wait()
	} else {
		queryIface(nil)
	}

	close(entriesCh)
	<-doneCh

	devs := make([]CastDevice, 0, len(found))
	for _, dev := range found {
		devs = append(devs, dev)
	}
	sort.Slice(devs, func(i, j int) bool { return devs[i].Name < devs[j].Name })
	return devs
}

// getActiveNetworkInterfaces returns all network interfaces that are up,
// multicast-capable, not loopback, and have an IPv4 address. Querying
// every candidate interface covers systems with multiple adapters (VPN,
// Hyper-V, Docker) where the OS default is not the one the device sits on.
func getActiveNetworkInterfaces() []net.Interface {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	var active []net.Interface
	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 ||
			iface.Flags&net.FlagLoopback != 0 ||
			iface.Flags&net.FlagMulticast == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		hasIPv4 := false
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok {
				if ipnet.IP.To4() != nil && !ipnet.IP.IsLoopback() {
					hasIPv4 = true
					break
				}
			}
		}

		if hasIPv4 {
			active = append(active, iface)
		}
	}

	return active
}

// HostPortIsAlive checks if a device at the given address is reachable
// via TCP connection. Returns true if the connection succeeds within 2
// seconds.
func HostPortIsAlive(address string) bool {
	conn, err := net.DialTimeout("tcp", address, 2*time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// isCastAudioOnly checks the "ca" capability TXT field. Bit 0 set means
// the device has video out, devices without it are audio only.
func isCastAudioOnly(caField string) bool {
	ca, err := strconv.Atoi(caField)
	if err != nil {
		return false
	}
	return (ca & CapabilityVideoOut) == 0
}
