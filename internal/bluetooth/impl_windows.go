//go:build windows

package bluetooth

import (
	"errors"

	"easyhid/internal/config"
	"easyhid/internal/hidreport"
)

// Windows 暂不支持 BlueZ transport
type windowsTransport struct {
	states chan State
}

func newTransport(cfg config.BluetoothConfig) Transport {
	return &windowsTransport{states: make(chan State)}
}

func (t *windowsTransport) Register() error {
	return errors.New("bluetooth HID transport is not supported on windows")
}

func (t *windowsTransport) Send(r hidreport.Report) {}

func (t *windowsTransport) States() <-chan State { return t.states }

func (t *windowsTransport) State() State { return StateUnregistered }

func (t *windowsTransport) Unregister() {}
