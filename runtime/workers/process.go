package workers

import (
	"fmt"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/process"
)

const megabyte = 1024 * 1024

// ProcessGauges samples the current process: resident memory in MB (warned at
// rssThresholdMB), CPU percent (never warned) and the goroutine count.
func ProcessGauges(rssThresholdMB int) ([]Gauge, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("cannot inspect own process: %w", err)
	}
	return []Gauge{
		{
			Name:      "rss_mb",
			Threshold: rssThresholdMB,
			Read: func() int {
				memInfo, err := p.MemoryInfo()
				if err != nil {
					return -1
				}
				return int(memInfo.RSS / megabyte)
			},
		},
		{
			Name:      "cpu_percent",
			Threshold: -1,
			Read: func() int {
				cpu, err := p.CPUPercent()
				if err != nil {
					return -1
				}
				return int(cpu)
			},
		},
		{Name: "goroutines", Read: runtime.NumGoroutine},
	}, nil
}
