package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"easyhid/internal/auditlog"
	"easyhid/internal/bluetooth"
	"easyhid/internal/capture"
	"easyhid/internal/config"
	"easyhid/internal/coordinator"
	"easyhid/internal/model"
	"easyhid/internal/sysutil"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	// 初始化日志
	sysutil.InitLogger()
	defer sysutil.Log.Sync()

	// EVIOCGRAB / BlueZ 管理接口需要 Root 权限
	if os.Geteuid() != 0 {
		sysutil.LogSugar.Fatal("Must run as root (required by evdev grab / BlueZ).")
	}

	sysutil.Log.Info("🛡️ EasyHID Agent Starting...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		sysutil.Log.Fatal("Config load failed", zap.Error(err))
	}

	// db_path 留空表示不落盘
	if cfg.Audit.DBPath != "" {
		if err := auditlog.InitAuditDB(cfg.Audit.DBPath); err != nil {
			sysutil.Log.Fatal("Audit DB init failed", zap.Error(err))
		}
		defer auditlog.CloseAuditDB()
	}

	// 核心模块 (依赖注入)
	capturer := capture.New(cfg.Capture)
	transport := bluetooth.New(cfg.Bluetooth)
	coord := coordinator.New(capturer, transport, cfg)

	// 启动即共享; 失败直接退出, profile 冲突时补救提示已在日志里
	if err := coord.Share(); err != nil {
		sysutil.Log.Fatal("Start sharing failed", zap.Error(err))
	}

	// 捕获操作系统信号, 优雅关闭
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case change := <-coord.Changes():
			if change.Err != nil {
				sysutil.Log.Error("Session ended with error",
					zap.String("phase", change.Phase.String()),
					zap.Error(change.Err))
			} else {
				sysutil.Log.Info("Session phase changed",
					zap.String("phase", change.Phase.String()))
			}
			// 紧急停止或设备丢失后回到 idle, 进程保留, 等操作者处理
			if change.Phase == model.PhaseIdle {
				sysutil.Log.Info("Sharing is idle. Press Ctrl+C to exit.")
			}

		case state := <-transport.States():
			sysutil.Log.Info("Transport state changed",
				zap.String("state", state.String()))

		case <-sigCh:
			sysutil.Log.Info("Shutting down...")
			coord.Stop()
			return
		}
	}
}
