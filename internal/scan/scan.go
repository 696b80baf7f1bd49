package scan

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Candidate is a host with SSH open, a likely target for an agent install.
type Candidate struct {
	IP           string `json:"ip"`
	Port         int    `json:"port"`
	MAC          string `json:"mac"`
	Manufacturer string `json:"manufacturer"`
	Banner       string `json:"banner,omitempty"`
}

// Raspberry Pi OUIs, the usual robot base platform.
var defaultMACPrefixes = []string{
	"28:CD:C1", "2C:CF:67", "B8:27:EB", "D8:3A:DD", "DC:A6:32", "E4:5F:01", "3A:35:41",
}

func getMACPrefixes() []string {
	env := os.Getenv("ROBOT_MAC_PREFIXES")
	if env == "" {
		return defaultMACPrefixes
	}
	return append(defaultMACPrefixes, strings.Split(env, ",")...)
}

func getARPTable() map[string]string {
	arpTable := make(map[string]string)

	// Linux /proc/net/arp first
	data, err := os.ReadFile("/proc/net/arp")
	if err == nil {
		lines := strings.Split(string(data), "\n")
		for i, line := range lines {
			if i == 0 {
				continue
			}
			fields := strings.Fields(line)
			if len(fields) >= 4 {
				ip := fields[0]
				mac := fields[3]
				if mac != "00:00:00:00:00:00" {
					arpTable[ip] = mac
				}
			}
		}
		return arpTable
	}

	// Fallback to arp command (macOS/BSD)
	cmd := exec.Command("arp", "-an")
	output, err := cmd.Output()
	if err != nil {
		log.Warn().Err(err).Msg("arp command failed")
		return arpTable
	}

	for _, line := range strings.Split(string(output), "\n") {
		// Format: ? (192.168.1.1) at 00:11:22:33:44:55 on en0 ...
		if strings.Contains(line, "(") && strings.Contains(line, ") at ") {
			parts := strings.Fields(line)
			if len(parts) >= 4 {
				ip := strings.Trim(parts[1], "()")
				macStr := parts[3]
				if hw, err := net.ParseMAC(macStr); err == nil {
					arpTable[ip] = hw.String()
				} else {
					arpTable[ip] = macStr
				}
			}
		}
	}

	return arpTable
}

func isRobotPlatform(mac string) bool {
	mac = strings.ToUpper(mac)
	for _, prefix := range getMACPrefixes() {
		cleanPrefix := strings.ReplaceAll(strings.ToUpper(prefix), ":", "")
		cleanMAC := strings.ReplaceAll(mac, ":", "")
		if strings.HasPrefix(cleanMAC, cleanPrefix) {
			return true
		}
	}
	return false
}

// ScanSubnet scans the local /24 subnets for devices with port 22 open.
// SCAN_SUBNETS adds manual ranges ("192.168.1.0/24,10.0.0.0/24"). onFound,
// when non-nil, is called as each candidate turns up.
func ScanSubnet(onFound func(Candidate)) ([]Candidate, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}

	var subnets []net.IP
	seen := make(map[string]bool)

	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipv4 := ipnet.IP.To4(); ipv4 != nil {
				base := net.IPv4(ipv4[0], ipv4[1], ipv4[2], 0)
				if !seen[base.String()] {
					subnets = append(subnets, base)
					seen[base.String()] = true
					log.Info().Stringer("subnet", base).Msg("found local subnet")
				}
			}
		}
	}

	if env := os.Getenv("SCAN_SUBNETS"); env != "" {
		for _, s := range strings.Split(env, ",") {
			s = strings.TrimSpace(s)
			ip, _, err := net.ParseCIDR(s)
			if err != nil {
				ip = net.ParseIP(s)
				if ip == nil {
					log.Warn().Str("subnet", s).Msg("invalid manual subnet")
					continue
				}
			}
			ipv4 := ip.To4()
			if ipv4 == nil {
				continue
			}
			base := net.IPv4(ipv4[0], ipv4[1], ipv4[2], 0)
			if !seen[base.String()] {
				subnets = append(subnets, base)
				seen[base.String()] = true
				log.Info().Stringer("subnet", base).Msg("added manual subnet")
			}
		}
	}

	if len(subnets) == 0 {
		return nil, fmt.Errorf("no local IP found")
	}

	candidates := []Candidate{}
	var mu sync.Mutex
	var wg sync.WaitGroup

	// Bounded to avoid file descriptor exhaustion.
	sem := make(chan struct{}, 100)

	arpTable := getARPTable()
	var arpMu sync.Mutex

	for _, baseIP := range subnets {
		for i := 1; i < 255; i++ {
			// baseIP is 16 bytes (IPv4-mapped), bytes 12-15 hold the address
			ip := net.IPv4(baseIP[12], baseIP[13], baseIP[14], byte(i))

			wg.Add(1)
			go func(targetIP string) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				address := fmt.Sprintf("%s:22", targetIP)
				conn, err := net.DialTimeout("tcp", address, 2*time.Second)
				if err != nil {
					return
				}
				banner := ""
				conn.SetReadDeadline(time.Now().Add(1 * time.Second))
				buf := make([]byte, 256)
				if n, _ := conn.Read(buf); n > 0 {
					banner = strings.TrimSpace(string(buf[:n]))
				}
				conn.Close()

				c := Candidate{IP: targetIP, Port: 22, Banner: banner}

				arpMu.Lock()
				mac, ok := arpTable[targetIP]
				if !ok {
					// The host may have just appeared, refresh once.
					arpTable = getARPTable()
					mac = arpTable[targetIP]
				}
				arpMu.Unlock()

				if mac != "" {
					c.MAC = mac
					if isRobotPlatform(mac) {
						c.Manufacturer = "Raspberry Pi"
					}
				}
				if c.Manufacturer == "" && c.Banner != "" {
					lowerBanner := strings.ToLower(c.Banner)
					if strings.Contains(lowerBanner, "raspbian") || strings.Contains(lowerBanner, "ubuntu") {
						c.Manufacturer = "Raspberry Pi"
					}
				}

				mu.Lock()
				candidates = append(candidates, c)
				mu.Unlock()
				log.Info().Str("ip", targetIP).Str("banner", banner).Msg("found candidate")

				if onFound != nil {
					onFound(c)
				}
			}(ip.String())
		}
	}

	wg.Wait()

	log.Info().Int("candidates", len(candidates)).Msg("scan complete")
	return candidates, nil
}
