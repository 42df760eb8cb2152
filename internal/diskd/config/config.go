package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jimyag/diskd/pkg/diskutil"
	"gopkg.in/yaml.v3"
)

// 默认值
const (
	DefaultAddress      = "0.0.0.0:7788"
	DefaultAutoInterval = 10 * time.Second
	DefaultFilesystem   = "ext4"
	DefaultSmartMode    = "short"
	DefaultBlockSize    = 4096
	DefaultMaxBlocks    = 256
)

// 坏块校验模式
const (
	ValidateModeBlock  = "block"  // 逐块调用 badblocks
	ValidateModeStream = "stream" // 一次扫描，解析进度百分比
)

type Config struct {
	// Address HTTP 监听地址
	// 可以通过环境变量 DISKD_ADDRESS 配置
	Address string

	// DataDir 数据目录，保存数据库和导入的报告
	// 可以通过环境变量 DISKD_DATA_DIR 配置
	// 默认：~/.local/share/diskd
	DataDir string

	// DBPath SQLite 数据库路径，默认 <DataDir>/diskd.db
	// 可以通过环境变量 DISKD_DB_PATH 配置
	DBPath string

	// ConfigFile 可选的 YAML 配置文件
	// 可以通过环境变量 DISKD_CONFIG 配置
	ConfigFile string

	// AutoMode 启动时是否开启自动模式，环境变量 DISKD_AUTO_ENABLED
	AutoMode bool

	// AutoInterval 自动模式轮询间隔，环境变量 DISKD_AUTO_INTERVAL
	AutoInterval time.Duration

	// Exclusion 自动模式排除规则
	Exclusion Exclusion

	// DefaultFilesystem 自动模式格式化使用的文件系统
	DefaultFilesystem string

	// DefaultSmartMode 自动模式 SMART 自检类型
	DefaultSmartMode string

	Validate Validate

	// CommandTimeout 外部命令超时，0 表示不限制
	CommandTimeout time.Duration

	// ImportDir 监听该目录中的 SMART 报告文件并自动导入，默认 <DataDir>/uploads
	ImportDir string

	// LogLevel zerolog 日志级别，环境变量 DISKD_LOG_LEVEL
	LogLevel string
}

// Exclusion 设备排除规则
type Exclusion struct {
	Devices  []string `yaml:"devices"`
	Prefixes []string `yaml:"prefixes"`
}

// Validate 坏块校验参数
type Validate struct {
	Mode      string `yaml:"mode"`
	BlockSize int    `yaml:"block_size"`
	MaxBlocks int    `yaml:"max_blocks"`
}

// fileConfig YAML 配置文件结构
type fileConfig struct {
	Address           string     `yaml:"address"`
	DataDir           string     `yaml:"data_dir"`
	DBPath            string     `yaml:"db_path"`
	AutoMode          *bool      `yaml:"auto_mode"`
	AutoInterval      string     `yaml:"auto_interval"`
	Exclusion         *Exclusion `yaml:"exclusion"`
	DefaultFilesystem string     `yaml:"default_filesystem"`
	DefaultSmartMode  string     `yaml:"default_smart_mode"`
	Validate          Validate   `yaml:"validate"`
	CommandTimeout    string     `yaml:"command_timeout"`
	ImportDir         string     `yaml:"import_dir"`
	LogLevel          string     `yaml:"log_level"`
}

// New 加载配置：默认值 < 配置文件 < 环境变量
func New() (*Config, error) {
	cfg := &Config{
		Address:      DefaultAddress,
		DataDir:      defaultDataDir(),
		AutoInterval: DefaultAutoInterval,
		Exclusion: Exclusion{
			Devices:  []string{"mmcblk0"},
			Prefixes: []string{"nvme"},
		},
		DefaultFilesystem: DefaultFilesystem,
		DefaultSmartMode:  DefaultSmartMode,
		Validate: Validate{
			Mode:      ValidateModeBlock,
			BlockSize: DefaultBlockSize,
			MaxBlocks: DefaultMaxBlocks,
		},
		LogLevel:   "info",
		ConfigFile: os.Getenv("DISKD_CONFIG"),
	}

	if cfg.ConfigFile != "" {
		if err := cfg.loadFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "diskd.db")
	}
	if cfg.ImportDir == "" {
		cfg.ImportDir = filepath.Join(cfg.DataDir, "uploads")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.Address, fc.Address)
	setString(&c.DataDir, fc.DataDir)
	setString(&c.DBPath, fc.DBPath)
	setString(&c.DefaultFilesystem, fc.DefaultFilesystem)
	setString(&c.DefaultSmartMode, fc.DefaultSmartMode)
	setString(&c.ImportDir, fc.ImportDir)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.Validate.Mode, fc.Validate.Mode)
	if fc.Validate.BlockSize > 0 {
		c.Validate.BlockSize = fc.Validate.BlockSize
	}
	if fc.Validate.MaxBlocks > 0 {
		c.Validate.MaxBlocks = fc.Validate.MaxBlocks
	}
	if fc.AutoMode != nil {
		c.AutoMode = *fc.AutoMode
	}
	// 显式给出的排除规则整体替换默认值，允许配置为空列表
	if fc.Exclusion != nil {
		c.Exclusion = *fc.Exclusion
	}
	if fc.AutoInterval != "" {
		d, err := time.ParseDuration(fc.AutoInterval)
		if err != nil {
			return fmt.Errorf("parse auto_interval: %w", err)
		}
		c.AutoInterval = d
	}
	if fc.CommandTimeout != "" {
		d, err := time.ParseDuration(fc.CommandTimeout)
		if err != nil {
			return fmt.Errorf("parse command_timeout: %w", err)
		}
		c.CommandTimeout = d
	}
	return nil
}

func (c *Config) loadEnv() error {
	setString(&c.Address, os.Getenv("DISKD_ADDRESS"))
	setString(&c.DataDir, os.Getenv("DISKD_DATA_DIR"))
	setString(&c.DBPath, os.Getenv("DISKD_DB_PATH"))
	setString(&c.LogLevel, os.Getenv("DISKD_LOG_LEVEL"))

	if v := os.Getenv("DISKD_AUTO_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse DISKD_AUTO_ENABLED: %w", err)
		}
		c.AutoMode = enabled
	}
	if v := os.Getenv("DISKD_AUTO_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse DISKD_AUTO_INTERVAL: %w", err)
		}
		c.AutoInterval = d
	}
	return nil
}

func (c *Config) validate() error {
	if c.AutoInterval <= 0 {
		return fmt.Errorf("auto interval must be positive, got %s", c.AutoInterval)
	}
	if c.Validate.Mode != ValidateModeBlock && c.Validate.Mode != ValidateModeStream {
		return fmt.Errorf("unknown validate mode %q", c.Validate.Mode)
	}
	if !diskutil.IsSupportedFilesystem(c.DefaultFilesystem) {
		return fmt.Errorf("unsupported default filesystem %q, valid values: %s",
			c.DefaultFilesystem, strings.Join(diskutil.SupportedFilesystems(), ", "))
	}
	if !diskutil.SelfTestModes[c.DefaultSmartMode] {
		return fmt.Errorf("unsupported default SMART mode %q", c.DefaultSmartMode)
	}
	if c.CommandTimeout < 0 {
		return fmt.Errorf("command timeout must not be negative")
	}
	return nil
}

// defaultDataDir 获取默认数据目录
func defaultDataDir() string {
	// 使用用户主目录下的 .local/share/diskd
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "diskd")
	}

	// 如果无法获取主目录，使用当前目录下的 data
	return filepath.Join(".", "data")
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
