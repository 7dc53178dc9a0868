package ui

import (
	"fmt"

	"github.com/shirou/gopsutil/v4/disk"

	"sc-go/internal/sc"
)

// DiskReport is the usage of the filesystem holding Path.
type DiskReport struct {
	Path        string
	Total       uint64
	Free        uint64
	Used        uint64
	UsedPercent float64
}

// DiskUsage reads the usage of the filesystem holding path.
func DiskUsage(path string) (*DiskReport, error) {
	u, err := disk.Usage(path)
	if err != nil {
		return nil, fmt.Errorf("reading disk usage of %s: %w", path, err)
	}
	return &DiskReport{
		Path:        path,
		Total:       u.Total,
		Free:        u.Free,
		Used:        u.Used,
		UsedPercent: u.UsedPercent,
	}, nil
}

// String renders e.g. "/home: 12.00 GB free of 100.00 GB (88.0% used)".
func (r *DiskReport) String() string {
	return fmt.Sprintf("%s: %s free of %s (%.1f%% used)",
		r.Path, sc.HumanSize(int64(r.Free)), sc.HumanSize(int64(r.Total)), r.UsedPercent)
}
