package framecomp

import (
	"strings"
	"unsafe"
)

// safeString returns s terminated by a NUL, as the binding expects for
// C string fields.
func safeString(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}

// sliceUint32 reinterprets SPIR-V bytes as words. len(data) must be a
// multiple of 4.
func sliceUint32(data []byte) []uint32 {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}

// checkExisting returns the required names present in actual, NUL
// terminated, and how many were missing.
func checkExisting(actual, required []string) (existing []string, missing int) {
	present := make(map[string]struct{}, len(actual))
	for _, name := range actual {
		present[safeString(name)] = struct{}{}
	}
	for _, name := range required {
		name = safeString(name)
		if _, ok := present[name]; ok {
			existing = append(existing, name)
		} else {
			missing++
		}
	}
	return existing, missing
}
