// Package gpu probes the local NVIDIA GPUs. GPU engine backends fail
// obscurely on machines without a usable device; probing first turns
// that into a clear message.
package gpu

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Device describes one GPU
type Device struct {
	Index        int
	Name         string
	MemoryMB     int
	MemoryUsedMB int
	UtilPercent  int
}

// Probe queries nvidia-smi for the installed devices. A missing
// binary means no usable GPU and returns an empty list, not an error.
func Probe() ([]Device, error) {
	out, err := exec.Command("nvidia-smi",
		"--query-gpu=index,name,memory.total,memory.used,utilization.gpu",
		"--format=csv,noheader,nounits").Output()
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("nvidia-smi failed: %w", err)
		}
		return nil, nil
	}
	return ParseQuery(string(out))
}

// ParseQuery parses nvidia-smi CSV query output
func ParseQuery(out string) ([]Device, error) {
	var devices []Device
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 5 {
			return nil, fmt.Errorf("unexpected nvidia-smi line %q", line)
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		index, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("bad gpu index in %q: %w", line, err)
		}
		memTotal, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("bad memory total in %q: %w", line, err)
		}
		memUsed, err := strconv.Atoi(fields[3])
		if err != nil {
			return nil, fmt.Errorf("bad memory used in %q: %w", line, err)
		}
		util, err := strconv.Atoi(fields[4])
		if err != nil {
			return nil, fmt.Errorf("bad utilization in %q: %w", line, err)
		}

		devices = append(devices, Device{
			Index:        index,
			Name:         fields[1],
			MemoryMB:     memTotal,
			MemoryUsedMB: memUsed,
			UtilPercent:  util,
		})
	}
	return devices, nil
}

// Summary renders the devices for worker registration and listings
func Summary(devices []Device) string {
	if len(devices) == 0 {
		return "no GPU"
	}
	names := make([]string, len(devices))
	for i, d := range devices {
		names[i] = d.Name
	}
	return strings.Join(names, ", ")
}
