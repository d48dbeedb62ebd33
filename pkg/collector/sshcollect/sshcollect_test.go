package sshcollect

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestKey(t *testing.T) string {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)}

	path := filepath.Join(t.TempDir(), "id_rsa")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))
	return path
}

func TestParseStatFields(t *testing.T) {
	line := "cpu  100 10 200 5000 20 0 5 0 0 0"
	fields, ok := parseStatFields(line)
	assert.True(t, ok)
	assert.Equal(t, []int64{100, 10, 200, 5000, 20, 0, 5}, fields)

	_, ok = parseStatFields("cpu 1 2")
	assert.False(t, ok)
}

func TestCoreIDAndModelNameRegexes(t *testing.T) {
	cpuinfo := "processor\t: 0\ncore id\t\t: 0\nmodel name\t: Intel(R) Xeon(R) CPU\ncpu MHz\t\t: 2400.123\n" +
		"processor\t: 1\ncore id\t\t: 0\n"

	matches := coreIDRe.FindAllStringSubmatch(cpuinfo, -1)
	assert.Len(t, matches, 2)
	assert.Equal(t, "0", matches[0][1])

	m := modelNameRe.FindStringSubmatch(cpuinfo)
	assert.Equal(t, "Intel(R) Xeon(R) CPU", m[1])

	mhz := cpuMHzRe.FindStringSubmatch(cpuinfo)
	assert.Equal(t, "2400.123", mhz[1])
}

func TestProcNetDevIPv4Regex(t *testing.T) {
	out := "2: eth0    inet 192.168.1.50/24 brd 192.168.1.255 scope global eth0"
	m := procNetDevIPv4Re.FindStringSubmatch(out)
	assert.Equal(t, "192.168.1.50", m[1])
}

func TestSignerLoadsAndCachesFromKeyPath(t *testing.T) {
	c := &Collector{KeyPath: writeTestKey(t)}

	signer, err := c.signer()
	require.NoError(t, err)
	require.NotNil(t, signer)
	assert.Same(t, c.Signer, signer)

	// second call reuses the cached Signer rather than re-reading the file
	c.KeyPath = "/nonexistent"
	signer2, err := c.signer()
	require.NoError(t, err)
	assert.Equal(t, signer, signer2)
}

func TestSignerMissingKeyFile(t *testing.T) {
	c := &Collector{KeyPath: filepath.Join(t.TempDir(), "missing")}
	_, err := c.signer()
	assert.Error(t, err)
}

func TestSignerNoKeyConfigured(t *testing.T) {
	c := &Collector{}
	signer, err := c.signer()
	require.NoError(t, err)
	assert.Nil(t, signer)
}

func TestClientConfigIncludesKeyAndPasswordAuth(t *testing.T) {
	c := &Collector{Username: "user", Password: "secret", KeyPath: writeTestKey(t)}

	cfg, err := c.clientConfig()
	require.NoError(t, err)
	assert.Len(t, cfg.Auth, 2)
}

func TestClientConfigErrorsOnBadKeyPath(t *testing.T) {
	c := &Collector{KeyPath: filepath.Join(t.TempDir(), "missing")}
	_, err := c.clientConfig()
	assert.Error(t, err)
}
