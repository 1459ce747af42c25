//go:build windows

package capture

import (
	"errors"

	"easyhid/internal/config"
	"easyhid/internal/model"
)

type winCapturer struct{}

func newCapturer(cfg config.CaptureConfig) Capturer { return &winCapturer{} }

func (c *winCapturer) Start() (<-chan model.RawInputEvent, error) {
	return nil, errors.New("capture not supported on windows")
}
func (c *winCapturer) Chord() <-chan struct{} { return nil }
func (c *winCapturer) Errors() <-chan error { return nil }
func (c *winCapturer) Devices() []model.DeviceInfo { return nil }
func (c *winCapturer) Stop() {}
