package bluetooth

import "fmt"

// HID profile UUID (Bluetooth HID, short UUID 0x1124)
const hidProfileUUID = "00001124-0000-1000-8000-00805f9b34fb"

// profile 对象在 D-Bus 上的导出路径
const profileObjectPath = "/easyhid/hid/profile"

// bootReportDescriptor boot protocol 键盘+鼠标组合描述符
// 键盘: 8 字节 (modifier + reserved + 6 槽); 鼠标: 4 字节 (buttons + dx + dy + wheel)
var bootReportDescriptor = []byte{
	// keyboard
	0x05, 0x01, // Usage Page (Generic Desktop)
	0x09, 0x06, // Usage (Keyboard)
	0xa1, 0x01, // Collection (Application)
	0x05, 0x07, //   Usage Page (Key Codes)
	0x19, 0xe0, 0x29, 0xe7, //   Usage Min/Max (modifiers)
	0x15, 0x00, 0x25, 0x01, //   Logical Min/Max (0,1)
	0x75, 0x01, 0x95, 0x08, //   Report Size 1, Count 8
	0x81, 0x02, //   Input (Data, Variable, Absolute)
	0x95, 0x01, 0x75, 0x08, //   Count 1, Size 8 (reserved)
	0x81, 0x03, //   Input (Constant)
	0x95, 0x06, 0x75, 0x08, //   Count 6, Size 8 (key slots)
	0x15, 0x00, 0x25, 0x65, //   Logical Min/Max (0,101)
	0x05, 0x07, //   Usage Page (Key Codes)
	0x19, 0x00, 0x29, 0x65, //   Usage Min/Max
	0x81, 0x00, //   Input (Data, Array)
	0xc0, // End Collection
	// mouse
	0x05, 0x01, // Usage Page (Generic Desktop)
	0x09, 0x02, // Usage (Mouse)
	0xa1, 0x01, // Collection (Application)
	0x09, 0x01, //   Usage (Pointer)
	0xa1, 0x00, //   Collection (Physical)
	0x05, 0x09, //     Usage Page (Buttons)
	0x19, 0x01, 0x29, 0x03, //     Usage Min/Max (3 buttons)
	0x15, 0x00, 0x25, 0x01, //     Logical Min/Max (0,1)
	0x95, 0x03, 0x75, 0x01, //     Count 3, Size 1
	0x81, 0x02, //     Input (Data, Variable, Absolute)
	0x95, 0x01, 0x75, 0x05, //     Count 1, Size 5 (padding)
	0x81, 0x01, //     Input (Constant)
	0x05, 0x01, //     Usage Page (Generic Desktop)
	0x09, 0x30, 0x09, 0x31, 0x09, 0x38, //     Usage X, Y, Wheel
	0x15, 0x81, 0x25, 0x7f, //     Logical Min/Max (-127,127)
	0x75, 0x08, 0x95, 0x03, //     Size 8, Count 3
	0x81, 0x06, //     Input (Data, Variable, Relative)
	0xc0, // End Collection (Physical)
	0xc0, // End Collection (Application)
}

// sdpRecord HID 服务记录 (SDP), name 对外可见
func sdpRecord(name string) string {
	descHex := ""
	for _, b := range bootReportDescriptor {
		descHex += fmt.Sprintf("%02x", b)
	}

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" ?>
<record>
  <attribute id="0x0001">
    <sequence>
      <uuid value="0x1124"/>
    </sequence>
  </attribute>
  <attribute id="0x0004">
    <sequence>
      <sequence>
        <uuid value="0x0100"/>
        <uint16 value="0x0011"/>
      </sequence>
      <sequence>
        <uuid value="0x0011"/>
      </sequence>
    </sequence>
  </attribute>
  <attribute id="0x0005">
    <sequence>
      <uuid value="0x1002"/>
    </sequence>
  </attribute>
  <attribute id="0x0009">
    <sequence>
      <sequence>
        <uuid value="0x1124"/>
        <uint16 value="0x0100"/>
      </sequence>
    </sequence>
  </attribute>
  <attribute id="0x000d">
    <sequence>
      <sequence>
        <sequence>
          <uuid value="0x0100"/>
          <uint16 value="0x0013"/>
        </sequence>
        <sequence>
          <uuid value="0x0011"/>
        </sequence>
      </sequence>
    </sequence>
  </attribute>
  <attribute id="0x0100">
    <text value="%s" name="name"/>
  </attribute>
  <attribute id="0x0101">
    <text value="Keyboard and Mouse" name="description"/>
  </attribute>
  <attribute id="0x0102">
    <text value="Linux" name="provider"/>
  </attribute>
  <attribute id="0x0201">
    <uint16 value="0x0111"/>
  </attribute>
  <attribute id="0x0202">
    <uint8 value="0xc0"/>
  </attribute>
  <attribute id="0x0203">
    <uint8 value="0x00"/>
  </attribute>
  <attribute id="0x0204">
    <boolean value="false"/>
  </attribute>
  <attribute id="0x0205">
    <boolean value="true"/>
  </attribute>
  <attribute id="0x0206">
    <sequence>
      <sequence>
        <uint8 value="0x22"/>
        <text encoding="hex" value="%s"/>
      </sequence>
    </sequence>
  </attribute>
</record>`, name, descHex)
}
