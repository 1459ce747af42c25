//go:build linux

package capture

import (
	"strings"

	"github.com/pilebones/go-udev/netlink"
)

// hotplugWatcher 监听 NETLINK_KOBJECT_UEVENT, 只关心 input 子系统的 remove 事件
// 抓取中的设备被拔出时通过 onRemove 上报
type hotplugWatcher struct {
	stopCh chan struct{}
}

func startHotplug(paths map[string]bool, onRemove func(devName string)) (*hotplugWatcher, error) {
	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		return nil, err
	}

	queue := make(chan netlink.UEvent)
	errChan := make(chan error)
	quit := conn.Monitor(queue, errChan, nil)

	w := &hotplugWatcher{stopCh: make(chan struct{})}

	go func() {
		defer conn.Close()
		for {
			select {
			case <-w.stopCh:
				close(quit)
				return

			case <-errChan:
				// 底层 netlink 抖动, 继续
				continue

			case uevent := <-queue:
				if uevent.Env["SUBSYSTEM"] != "input" || uevent.Action != "remove" {
					continue
				}
				devName := uevent.Env["DEVNAME"]
				if devName == "" {
					continue
				}
				if !strings.HasPrefix(devName, "/dev") {
					devName = "/dev/" + devName
				}
				if paths[devName] {
					onRemove(devName)
				}
			}
		}
	}()

	return w, nil
}

func (w *hotplugWatcher) stop() {
	close(w.stopCh)
}
