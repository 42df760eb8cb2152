package diskutil

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var percentToken = regexp.MustCompile(`(\d{1,3}(?:\.\d+)?)%`)

// lsblkOutput lsblk -J 的输出结构
type lsblkOutput struct {
	BlockDevices []struct {
		Name   string  `json:"name"`
		Size   string  `json:"size"`
		Model  *string `json:"model"`
		Vendor *string `json:"vendor"`
		Type   string  `json:"type"`
		Tran   *string `json:"tran"`
		HCTL   *string `json:"hctl"`
	} `json:"blockdevices"`
}

// parseLsblk 解析 lsblk 输出，只保留 type=disk 的设备
func parseLsblk(data []byte) ([]BlockDevice, error) {
	var raw lsblkOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse lsblk output: %w", err)
	}

	devices := make([]BlockDevice, 0, len(raw.BlockDevices))
	for _, d := range raw.BlockDevices {
		if d.Type != "disk" {
			continue
		}
		dev := BlockDevice{
			Name:   d.Name,
			Size:   strings.TrimSpace(d.Size),
			Model:  trimPtr(d.Model),
			Vendor: trimPtr(d.Vendor),
			Type:   d.Type,
		}
		// 位置优先用 HCTL，其次用传输类型
		if hctl := trimPtr(d.HCTL); hctl != "" {
			dev.Location = hctl
		} else {
			dev.Location = trimPtr(d.Tran)
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

// parseBadBlocks 提取 badblocks 输出中的坏块编号（每行一个整数）
func parseBadBlocks(output string) []int {
	var blocks []int
	for _, line := range strings.FieldsFunc(output, func(r rune) bool {
		return r == '\n' || r == '\r' || r == '\b'
	}) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if n, err := strconv.Atoi(line); err == nil {
			blocks = append(blocks, n)
		}
	}
	return blocks
}

// ParsePercent 从进度输出中解析百分比，如 "12.34% done, 0:05 elapsed"
func ParsePercent(line string) (int, bool) {
	m := percentToken.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	switch {
	case f < 0:
		f = 0
	case f > 100:
		f = 100
	}
	return int(f), true
}

func trimPtr(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
