package devices

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"go2tv.app/castpilot/castprotocol"
)

// connectClient is swapped out in tests.
var connectClient = func(dev CastDevice) (*castprotocol.CastClient, error) {
	client := castprotocol.NewCastClient()
	client.SetDeviceInfo(dev.Name, dev.UUID)
	if err := client.Start(dev.Addr, dev.Port); err != nil {
		return nil, errors.Wrap(err, "connectClient error")
	}
	return client, nil
}

// FindOptions selects the device to attach to. Empty fields are
// ignored. Host wins over UUID, UUID over Name, and with no selectors
// at all the first discovered device is taken.
type FindOptions struct {
	Host string
	UUID string
	Name string

	// RetryWait is the pause between discovery rounds while the device
	// has not shown up yet. Zero means a single round.
	RetryWait time.Duration
}

// Find looks for the selected device and returns a started client for
// it. A nil client with nil error means nothing matched, callers treat
// that as the device simply being off.
func Find(ctx context.Context, opts FindOptions) (*castprotocol.CastClient, error) {
	if opts.Host != "" {
		return FindByHost(opts.Host)
	}

	for {
		if dev, ok := matchDevice(scanDevices(castQueryTimeout), opts); ok {
			return connectClient(dev)
		}
		if opts.RetryWait <= 0 {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, nil
		case <-time.After(opts.RetryWait):
		}
	}
}

// FindByHost connects straight to the given host, skipping discovery.
// The host may carry an explicit port, otherwise the default cast port
// is used.
func FindByHost(host string) (*castprotocol.CastClient, error) {
	addr, port := splitHostPort(host)
	if !HostPortIsAlive(fmt.Sprintf("%s:%d", addr, port)) {
		return nil, nil
	}
	return connectClient(CastDevice{Name: addr, Addr: addr, Port: port})
}

// FindByUUID returns a started client for the device with the given id.
func FindByUUID(ctx context.Context, uuid string, retryWait time.Duration) (*castprotocol.CastClient, error) {
	return Find(ctx, FindOptions{UUID: uuid, RetryWait: retryWait})
}

// FindByName returns a started client for the device with the given
// friendly name. The comparison ignores case.
func FindByName(ctx context.Context, name string, retryWait time.Duration) (*castprotocol.CastClient, error) {
	return Find(ctx, FindOptions{Name: name, RetryWait: retryWait})
}

// FindFirst returns a started client for whichever device shows up
// first on the network.
func FindFirst(ctx context.Context, retryWait time.Duration) (*castprotocol.CastClient, error) {
	return Find(ctx, FindOptions{RetryWait: retryWait})
}

// matchDevice picks a device per the FindOptions precedence. A uuid
// miss still falls through to the name, only a fully unselected call
// falls back to the first device.
func matchDevice(devs []CastDevice, opts FindOptions) (CastDevice, bool) {
	if opts.UUID != "" {
		want := NormalizeUUID(opts.UUID)
		for _, dev := range devs {
			if dev.UUID == want {
				return dev, true
			}
		}
	}
	if opts.Name != "" {
		for _, dev := range devs {
			if strings.EqualFold(dev.Name, opts.Name) {
				return dev, true
			}
		}
	}
	if opts.UUID == "" && opts.Name == "" && len(devs) > 0 {
		return devs[0], true
	}
	return CastDevice{}, false
}

// NormalizeUUID lowercases a device id and strips dashes so ids from
// flags, config and mdns TXT records compare equal.
func NormalizeUUID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	return strings.ReplaceAll(id, "-", "")
}

func splitHostPort(host string) (string, int) {
	if h, p, err := net.SplitHostPort(host); err == nil {
		if port, err := strconv.Atoi(p); err == nil {
			return h, port
		}
	}
	return host, castprotocol.DefaultPort
}
