package localcollect

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSSDNVMeAlwaysTrue(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("rotational classification is linux-specific")
	}
	assert.True(t, isSSD("/dev/nvme0n1"))
	assert.True(t, isSSD("/dev/nvme1n1p2"))
}

func TestIsSSDUnknownDeviceDefaultsFalse(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("rotational classification is linux-specific")
	}
	// no /sys/block/xvda entry on the test host, so this falls through to false
	assert.False(t, isSSD("/dev/xvda1"))
}

func TestReadUintParsesTrimmedContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "value")
	require.NoError(t, os.WriteFile(path, []byte("123456\n"), 0o644))

	v, err := readUint(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(123456), v)
}

func TestReadUintMissingFile(t *testing.T) {
	_, err := readUint(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestReadUintRejectsNonNumeric(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "value")
	require.NoError(t, os.WriteFile(path, []byte("not-a-number"), 0o644))

	_, err := readUint(path)
	assert.Error(t, err)
}

func TestPrimaryIPNeverEmpty(t *testing.T) {
	ip := primaryIP()
	assert.NotEmpty(t, ip)
}

func TestNewPopulatesLocalIP(t *testing.T) {
	c := New()
	assert.NotEmpty(t, c.LocalIP())
	assert.Equal(t, c.localIP, c.LocalIP())
}
