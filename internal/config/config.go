// Package config 负责 agent 的 TOML 配置加载与校验
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config agent 全量配置
type Config struct {
	// Bluetooth 蓝牙栈相关
	Bluetooth BluetoothConfig `toml:"bluetooth"`

	// Capture 输入捕获相关
	Capture CaptureConfig `toml:"capture"`

	// Encoder 报文编码相关
	Encoder EncoderConfig `toml:"encoder"`

	// Audit 观测记录相关
	Audit AuditConfig `toml:"audit"`
}

type BluetoothConfig struct {
	// Adapter BlueZ 适配器 ID, 如 hci0
	Adapter string `toml:"adapter"`

	// DeviceName 对外广播的设备名
	DeviceName string `toml:"device_name"`

	// SendQueueDepth interrupt channel 发送队列深度 (可调, 不是无界)
	SendQueueDepth int `toml:"send_queue_depth"`

	// WriteRetries 瞬时写失败的有限重试次数
	WriteRetries int `toml:"write_retries"`

	// WriteBackoffMs 重试间隔(毫秒)
	WriteBackoffMs int `toml:"write_backoff_ms"`
}

// WriteBackoff 重试间隔
func (c BluetoothConfig) WriteBackoff() time.Duration {
	return time.Duration(c.WriteBackoffMs) * time.Millisecond
}

type CaptureConfig struct {
	// Devices 显式指定设备节点; 为空时自动枚举
	Devices []string `toml:"devices"`

	// EventBuffer 事件 fan-in 通道容量
	EventBuffer int `toml:"event_buffer"`
}

type EncoderConfig struct {
	// FlushIntervalMs 指针累加器冲刷周期(毫秒)
	FlushIntervalMs int `toml:"flush_interval_ms"`
}

// FlushInterval 指针累加器冲刷周期
func (c EncoderConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalMs) * time.Millisecond
}

type AuditConfig struct {
	// DBPath sqlite 库文件路径, 空字符串 = 禁用落盘
	DBPath string `toml:"db_path"`
}

// Default 缺省配置, 不依赖配置文件也能跑
func Default() *Config {
	return &Config{
		Bluetooth: BluetoothConfig{
			Adapter:        "hci0",
			DeviceName:     "EasyHID",
			SendQueueDepth: 64,
			WriteRetries:   3,
			WriteBackoffMs: 20,
		},
		Capture: CaptureConfig{
			EventBuffer: 256,
		},
		Encoder: EncoderConfig{
			FlushIntervalMs: 8,
		},
		Audit: AuditConfig{
			DBPath: "easyhid_audit.db",
		},
	}
}

// Load 读取 TOML 配置; 文件不存在时返回缺省值
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate 基本合法性检查
func (c *Config) Validate() error {
	if c.Bluetooth.Adapter == "" {
		return errors.New("bluetooth.adapter must not be empty")
	}
	if c.Bluetooth.DeviceName == "" {
		return errors.New("bluetooth.device_name must not be empty")
	}
	if c.Bluetooth.SendQueueDepth <= 0 {
		return errors.New("bluetooth.send_queue_depth must be positive")
	}
	if c.Bluetooth.WriteRetries < 0 {
		return errors.New("bluetooth.write_retries must not be negative")
	}
	if c.Capture.EventBuffer <= 0 {
		return errors.New("capture.event_buffer must be positive")
	}
	if c.Encoder.FlushIntervalMs <= 0 {
		return errors.New("encoder.flush_interval_ms must be positive")
	}
	return nil
}
