package model

import (
	"errors"
	"fmt"
)

// 会话级错误分类 (见 coordinator 的传播策略)
var (
	// ErrDeviceUnavailable: 设备缺失或不可读, 启动失败, 不重试
	ErrDeviceUnavailable = errors.New("input device unavailable")

	// ErrGrabDenied: EVIOCGRAB 被拒绝, 通常是权限问题, 不重试
	ErrGrabDenied = errors.New("exclusive grab denied")

	// ErrProfileConflict: HID profile 已被其他进程占用 (常见于 BlueZ input plugin)
	ErrProfileConflict = errors.New("bluetooth HID profile already owned")

	// ErrTransportTransient: interrupt channel 写失败, 有限重试后降级为断连
	ErrTransportTransient = errors.New("transport write failed")
)

// ProfileConflictError 保留冲突方信息, 错误消息里必须带上补救提示
type ProfileConflictError struct {
	DBusName string // e.g. org.bluez.Error.NotPermitted
	Owner    string // 占用方, 可能为空
}

func (e *ProfileConflictError) Error() string {
	if e.Owner != "" {
		return fmt.Sprintf("bluetooth HID profile already owned by %s (%s)", e.Owner, e.DBusName)
	}
	return fmt.Sprintf("bluetooth HID profile already owned (%s)", e.DBusName)
}

func (e *ProfileConflictError) Unwrap() error { return ErrProfileConflict }

// RemediationHint 面向操作者的修复指引, 原样展示, 不自动重试
const RemediationHint = "The HID Bluetooth profile is already in use (often by BlueZ's input plugin). " +
	"Run bluetoothd with the input plugin disabled, then start sharing again."
