// Package discover sweeps the local IPv4 networks for hosts answering on the ssh port.
package discover

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/moyoez/devconf/share"
	"github.com/moyoez/devconf/tool"
	"github.com/moyoez/devconf/types"
)

const (
	DefaultDialTimeout = 400 * time.Millisecond
	DefaultConcurrency = 32
	DefaultRate        = 200 // probes per second
)

// ProbeFunc reports whether something answers at addr (host:port).
type ProbeFunc func(ctx context.Context, addr string) bool

// Scanner finds candidate devices. Zero fields take the defaults.
type Scanner struct {
	Port        int
	Concurrency int
	Rate        float64
	Kind        types.DeviceKind
	Probe       ProbeFunc
}

var (
	// networkIPsCache caches generated network IPs to avoid repeated generation
	networkIPsCacheMu  sync.RWMutex
	networkIPsCache    []string
	networkIPsCacheKey string
)

func dialProbe(ctx context.Context, addr string) bool {
	var d net.Dialer
	ctx, cancel := context.WithTimeout(ctx, DefaultDialTimeout)
	defer cancel()
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Scan probes every address on the local networks and records the ones that answer.
func (s Scanner) Scan(ctx context.Context) ([]types.DeviceStatus, error) {
	targets, err := getCachedNetworkIPs()
	if err != nil {
		return nil, err
	}
	selfIPs := tool.GetLocalIPv4Set()
	filtered := targets[:0]
	for _, ip := range targets {
		if _, isSelf := selfIPs[ip]; !isSelf {
			filtered = append(filtered, ip)
		}
	}
	return s.ScanTargets(ctx, filtered), nil
}

// ScanTargets probes the given hosts and stores every responder in share.
func (s Scanner) ScanTargets(ctx context.Context, hosts []string) []types.DeviceStatus {
	port := s.Port
	if port <= 0 {
		port = types.DefaultSSHPort
	}
	workers := s.Concurrency
	if workers <= 0 {
		workers = DefaultConcurrency
	}
	perSecond := s.Rate
	if perSecond <= 0 {
		perSecond = DefaultRate
	}
	probe := s.Probe
	if probe == nil {
		probe = dialProbe
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), workers)
	tool.DefaultLogger.Debugf("Scanning %d addresses on port %d", len(hosts), port)

	var (
		mu    sync.Mutex
		found []types.DeviceStatus
		wg    sync.WaitGroup
		jobs  = make(chan string)
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for host := range jobs {
				if limiter.Wait(ctx) != nil {
					continue
				}
				if !probe(ctx, net.JoinHostPort(host, strconv.Itoa(port))) {
					continue
				}
				status := types.DeviceStatus{Host: host, Reachable: true, Kind: s.Kind, LastSeen: time.Now()}
				if prev, ok := share.GetDeviceStatus(host); ok {
					status.Connected = prev.Connected
					status.Hostname = prev.Hostname
					if prev.Kind != "" {
						status.Kind = prev.Kind
					}
				}
				share.SetDeviceStatus(status)
				mu.Lock()
				found = append(found, status)
				mu.Unlock()
			}
		}()
	}
feed:
	for _, h := range hosts {
		select {
		case jobs <- h:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	tool.DefaultLogger.Infof("Scan finished: %d of %d addresses answered", len(found), len(hosts))
	return found
}
