/*
Package atomicfile writes whole files atomically.

EEPROM images are small and are always re-written in full, so
there's only one function:

	err := atomicfile.WriteFile("device.bin", data)

If WriteFile fails, the previous content of the file is intact
and no temporary file is left behind.
*/
package atomicfile
