package task

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"taskgate/internal/types"

	"golang.org/x/sys/unix"
)

// StatusSnapshot aggregates the host metrics check_status reports.
type StatusSnapshot struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	DiskPercent   float64 `json:"disk_percent"`
	UptimeSeconds uint64  `json:"uptime_seconds"`
}

// MemorySnapshot reports RAM and swap usage.
type MemorySnapshot struct {
	TotalBytes     uint64  `json:"total_bytes"`
	AvailableBytes uint64  `json:"available_bytes"`
	UsedPercent    float64 `json:"used_percent"`
	SwapTotalBytes uint64  `json:"swap_total_bytes"`
	SwapUsedBytes  uint64  `json:"swap_used_bytes"`
}

// DiskSnapshot reports usage for one mount point.
type DiskSnapshot struct {
	Path        string  `json:"path"`
	TotalBytes  uint64  `json:"total_bytes"`
	FreeBytes   uint64  `json:"free_bytes"`
	UsedBytes   uint64  `json:"used_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

// Metrics is the narrow OS shim for host metric reads.
type Metrics interface {
	Status() (StatusSnapshot, error)
	Memory() (MemorySnapshot, error)
	DiskSpace(path string) (DiskSnapshot, error)
}

// procMetrics reads metrics from /proc and syscalls.
type procMetrics struct {
	defaultMount string
	cpuSample    time.Duration
}

func newProcMetrics(defaultMount string) *procMetrics {
	return &procMetrics{
		defaultMount: defaultMount,
		cpuSample:    250 * time.Millisecond,
	}
}

func (m *procMetrics) Status() (StatusSnapshot, error) {
	cpu, err := m.cpuPercent()
	if err != nil {
		return StatusSnapshot{}, fmt.Errorf("failed to read cpu usage: %w", err)
	}

	mem, err := m.Memory()
	if err != nil {
		return StatusSnapshot{}, err
	}

	disk, err := m.DiskSpace(m.defaultMount)
	if err != nil {
		return StatusSnapshot{}, err
	}

	uptime, err := readUptime()
	if err != nil {
		return StatusSnapshot{}, fmt.Errorf("failed to read uptime: %w", err)
	}

	return StatusSnapshot{
		CPUPercent:    cpu,
		MemoryPercent: mem.UsedPercent,
		DiskPercent:   disk.UsedPercent,
		UptimeSeconds: uptime,
	}, nil
}

func (m *procMetrics) Memory() (MemorySnapshot, error) {
	fields, err := readMeminfo()
	if err != nil {
		return MemorySnapshot{}, fmt.Errorf("failed to read meminfo: %w", err)
	}

	total := fields["MemTotal"]
	avail := fields["MemAvailable"]
	swapTotal := fields["SwapTotal"]
	swapFree := fields["SwapFree"]

	if total == 0 {
		return MemorySnapshot{}, fmt.Errorf("meminfo reports zero total memory")
	}

	return MemorySnapshot{
		TotalBytes:     total,
		AvailableBytes: avail,
		UsedPercent:    float64(total-avail) / float64(total) * 100,
		SwapTotalBytes: swapTotal,
		SwapUsedBytes:  swapTotal - swapFree,
	}, nil
}

func (m *procMetrics) DiskSpace(path string) (DiskSnapshot, error) {
	if path == "" {
		path = m.defaultMount
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return DiskSnapshot{}, fmt.Errorf("%w: %s", types.ErrPathNotFound, path)
		}
		return DiskSnapshot{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return DiskSnapshot{}, fmt.Errorf("statfs %s: %w", path, err)
	}

	total := st.Blocks * uint64(st.Bsize)
	free := st.Bavail * uint64(st.Bsize)
	used := total - free

	snap := DiskSnapshot{
		Path:       path,
		TotalBytes: total,
		FreeBytes:  free,
		UsedBytes:  used,
	}
	if total > 0 {
		snap.UsedPercent = float64(used) / float64(total) * 100
	}
	return snap, nil
}

// cpuPercent samples /proc/stat twice and derives busy time.
func (m *procMetrics) cpuPercent() (float64, error) {
	idle1, total1, err := readCPUStat()
	if err != nil {
		return 0, err
	}

	time.Sleep(m.cpuSample)

	idle2, total2, err := readCPUStat()
	if err != nil {
		return 0, err
	}

	totalDelta := float64(total2 - total1)
	if totalDelta <= 0 {
		return 0, nil
	}
	idleDelta := float64(idle2 - idle1)
	return (totalDelta - idleDelta) / totalDelta * 100, nil
}

func readCPUStat() (idle, total uint64, err error) {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 5 || fields[0] != "cpu" {
			continue
		}
		for i, raw := range fields[1:] {
			v, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return 0, 0, fmt.Errorf("bad /proc/stat field %q: %w", raw, err)
			}
			total += v
			if i == 3 { // idle column
				idle = v
			}
		}
		return idle, total, nil
	}
	return 0, 0, fmt.Errorf("no cpu line in /proc/stat")
}

// readMeminfo returns meminfo fields in bytes.
func readMeminfo() (map[string]uint64, error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	fields := make(map[string]uint64)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			continue
		}
		key := strings.TrimSuffix(parts[0], ":")
		v, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			continue
		}
		fields[key] = v * 1024 // meminfo reports kB
	}
	return fields, scanner.Err()
}

func readUptime() (uint64, error) {
	data, err := os.ReadFile("/proc/uptime")
	if err != nil {
		return 0, err
	}
	parts := strings.Fields(string(data))
	if len(parts) == 0 {
		return 0, fmt.Errorf("empty /proc/uptime")
	}
	seconds, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, err
	}
	return uint64(seconds), nil
}
