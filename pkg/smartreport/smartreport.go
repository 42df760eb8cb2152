// Package smartreport 解析 smartctl 的文本报告
//
// 解析是宽容的：缺失的字段保持为空值，从不返回错误。
// 调用方只在序列号缺失时才把报告视为无法识别。
package smartreport

import (
	"regexp"
	"strconv"
	"strings"
)

// Health SMART 健康状态
type Health string

const (
	HealthGood Health = "GOOD"
	HealthBad  Health = "BAD"
)

// FailingMarkers 出现任意一个即判定为 BAD
var FailingMarkers = []string{
	"FAILING_NOW",
	"self-assessment test result: FAILED",
}

var (
	serialLabels = []string{"serial number:"}
	modelLabels  = []string{"device model:", "model number:", "product:"}
	vendorLabels = []string{"vendor:"}

	// 温度类属性行：ID# ATTRIBUTE_NAME FLAG VALUE WORST THRESH TYPE UPDATED WHEN_FAILED RAW_VALUE
	temperatureAttributes = []string{"Temperature_Celsius", "Airflow_Temperature_Cel"}
	// 标签形式的温度：SCSI "Current Drive Temperature:"，NVMe "Temperature:"
	temperatureLabels = []string{"current drive temperature:", "temperature:"}

	leadingInt = regexp.MustCompile(`-?\d+`)
)

// Report 从报告文本中提取的字段
type Report struct {
	Serial      string
	Model       string
	Vendor      string
	Temperature *int
	Health      Health
}

// HasIdentity 报告是否包含序列号
func (r *Report) HasIdentity() bool {
	return r.Serial != ""
}

// Parse 解析 smartctl -i / -a 的输出
func Parse(text string) *Report {
	r := &Report{Health: ParseHealth(text)}

	var attrTemp, labelTemp *int
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(strings.TrimRight(raw, "\r"))
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)

		if r.Serial == "" {
			r.Serial = labeledValue(line, lower, serialLabels)
		}
		if r.Model == "" {
			r.Model = labeledValue(line, lower, modelLabels)
		}
		if r.Vendor == "" {
			r.Vendor = labeledValue(line, lower, vendorLabels)
		}
		if attrTemp == nil {
			attrTemp = attributeTemperature(line)
		}
		if labelTemp == nil {
			if v := labeledValue(line, lower, temperatureLabels); v != "" {
				labelTemp = firstInt(v)
			}
		}
	}

	r.Temperature = attrTemp
	if r.Temperature == nil {
		r.Temperature = labelTemp
	}
	return r
}

// ParseHealth 根据失败标记判断健康状态
func ParseHealth(text string) Health {
	for _, marker := range FailingMarkers {
		if strings.Contains(text, marker) {
			return HealthBad
		}
	}
	return HealthGood
}

// labeledValue 行以任一标签开头时返回冒号后的值
func labeledValue(line, lower string, labels []string) string {
	for _, label := range labels {
		if strings.HasPrefix(lower, label) {
			return strings.TrimSpace(line[len(label):])
		}
	}
	return ""
}

// attributeTemperature 从 SMART 属性表的温度行读取 RAW_VALUE
func attributeTemperature(line string) *int {
	fields := strings.Fields(line)
	if len(fields) < 10 {
		return nil
	}
	for _, name := range temperatureAttributes {
		if fields[1] == name {
			return firstInt(fields[9])
		}
	}
	return nil
}

func firstInt(s string) *int {
	m := leadingInt.FindString(s)
	if m == "" {
		return nil
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &v
}
