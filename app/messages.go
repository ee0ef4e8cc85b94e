package app

import "hartlink/core"

// Banner is sent with the polled method when the demo hart starts
const Banner = "\r\n\r\n\r\n **** PolarFire SoC MSS MMUART example ****\r\n\r\n\r\n"

// PolledMessage is sent by command '2'
const PolledMessage = "This message has been transmitted using polled method. \r\n"

// IntrMessage is sent by command '3'
const IntrMessage = "This message has been transmitted using external interrupt method. \r\n"

// Menu lists the demo commands of a hart
func Menu(hart core.HartID) string {
	id := core.FormatUint(uint64(hart))
	return "This program is run from u54_" + id + "\r\n" +
		"        \r\n" +
		"Type 0  Show hart " + id + " debug message\r\n" +
		"Type 1  Show this menu\r\n" +
		"Type 2  Send message using polled method\r\n" +
		"Type 3  Send message using interrupt method\r\n" +
		"Type 4  Send message using user defined tx handler\r\n"
}

// SignalMessage is sent by command '4'; target is the hart it releases
// and ch the channel that hart prints on
func SignalMessage(target core.HartID, ch core.ChannelID) string {
	return "This message has been transmitted using external interrupt method, " +
		"through the user defined tx handler.\r\n\r\nWatch UART" +
		core.FormatUint(uint64(ch)) + " to see hart" +
		core.FormatUint(uint64(target)) + " out of WFI.\r\n"
}

// RxAck is sent with the polled method from the receive interrupt
func RxAck(ch core.ChannelID, count uint32) string {
	return "UART" + core.FormatUint(uint64(ch)) + " Interrupt count = 0x" +
		core.FormatHex(count) + " \r\n\r\n"
}

// CycleReport answers command '0'
func CycleReport(hart core.HartID, delta uint64) string {
	return "hart " + core.FormatUint(uint64(hart)) + ", " +
		core.FormatUint(delta) + " delta_mcycle \r\n"
}

// ReleasedMessage is printed by a hart once it leaves its boot barrier
func ReleasedMessage(hart core.HartID) string {
	return "hart " + core.FormatUint(uint64(hart)) + " out of WFI, released by software interrupt\r\n"
}

// MonitorMessage is printed by the monitor hart after releasing the others
func MonitorMessage(monitor core.HartID, released []core.HartID) string {
	s := "hart " + core.FormatUint(uint64(monitor)) + " released harts:"
	for _, h := range released {
		s += " " + core.FormatUint(uint64(h))
	}
	return s + "\r\n"
}
