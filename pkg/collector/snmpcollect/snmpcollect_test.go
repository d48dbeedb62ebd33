package snmpcollect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOSTypeFromSysDescr(t *testing.T) {
	assert.Equal(t, "Linux", osTypeFromSysDescr("Linux box 5.15.0 x86_64"))
	assert.Equal(t, "Windows", osTypeFromSysDescr("Hardware: x86 Family Windows Version 10.0"))
	assert.Equal(t, "Darwin", osTypeFromSysDescr("Darwin Kernel Version 23.0"))
	assert.Equal(t, "Cisco", osTypeFromSysDescr("Cisco IOS Software"))
	assert.Equal(t, "unknown", osTypeFromSysDescr("some obscure appliance"))
}

func TestParseUintAndFloat(t *testing.T) {
	v, ok := parseUint("1048576")
	assert.True(t, ok)
	assert.Equal(t, uint64(1048576), v)

	f, ok := parseFloat("0.42")
	assert.True(t, ok)
	assert.InDelta(t, 0.42, f, 0.0001)

	_, ok = parseUint("not-a-number")
	assert.False(t, ok)
}

func TestLastOIDComponent(t *testing.T) {
	assert.Equal(t, "7", lastOIDComponent("1.3.6.1.2.1.25.2.3.1.2.7"))
	assert.Equal(t, "oid", lastOIDComponent("oid"))
}

// TestUCDMemoryArithmetic is seed scenario 5 from spec.md §8: memTotal and
// memAvail in KB must convert to the documented byte/percent values.
func TestUCDMemoryArithmetic(t *testing.T) {
	const totalKB = 1048576
	const availKB = 524288
	totalBytes := uint64(totalKB) * 1024
	availBytes := uint64(availKB) * 1024
	usedBytes := totalBytes - availBytes

	assert.Equal(t, uint64(1073741824), totalBytes)
	assert.Equal(t, uint64(536870912), usedBytes)
	assert.InDelta(t, 50.0, float64(usedBytes)/float64(totalBytes)*100, 0.0001)
}
