/*
Package flashstor implements a fixed layout for small non-volatile memories
(EEPROM and EEPROM emulation in flash) of microcontrollers.

The device is split into 3 regions:

	[0, headerLen)                         header (HeaderInfo)
	[headerLen, headerLen+savedBytes)      raw values, addressed by offset
	[headerLen+savedBytes, deviceLen)      string table, numStrings slots of lenStrings bytes

Typical usage:

	st := flashstor.New(dev)
	if status := st.LoadHeader(); status != flashstor.Success {
		// device is blank or corrupted, nothing else is valid
		return status.Err()
	}
	var serial [4]byte
	st.GetValue(0, serial[:])
	name, _ := st.String(0)

A Store is owned by a single goroutine. It does no locking.
*/
package flashstor
