package certs

import (
	"crypto/x509"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leafOf(t *testing.T, raw [][]byte) *x509.Certificate {
	t.Helper()
	require.NotEmpty(t, raw)
	leaf, err := x509.ParseCertificate(raw[0])
	require.NoError(t, err)
	return leaf
}

func TestGetOrCreateCertificate_GeneratesAndReuses(t *testing.T) {
	m := NewFileManager(t.TempDir())

	first, err := m.GetOrCreateCertificate()
	require.NoError(t, err)
	certFile, keyFile := m.Paths()
	assert.FileExists(t, certFile)
	assert.FileExists(t, keyFile)

	leaf := leafOf(t, first.Certificate)
	assert.NoError(t, leaf.VerifyHostname("localhost"))
	assert.NoError(t, leaf.VerifyHostname("127.0.0.1"))

	info, err := os.Stat(keyFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := m.GetOrCreateCertificate()
	require.NoError(t, err)
	assert.Equal(t, first.Certificate[0], second.Certificate[0], "valid pair is reused")
}

func TestGetOrCreateCertificate_RegeneratesExpired(t *testing.T) {
	dir := t.TempDir()
	m := NewFileManager(dir)
	first, err := m.GetOrCreateCertificate()
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * Validity) }
	renewed, err := m.GetOrCreateCertificate()
	require.NoError(t, err)
	assert.NotEqual(t, first.Certificate[0], renewed.Certificate[0])
}

func TestGetOrCreateCertificate_RegeneratesForNewHosts(t *testing.T) {
	dir := t.TempDir()
	_, err := NewFileManager(dir).GetOrCreateCertificate()
	require.NoError(t, err)

	cert, err := NewFileManager(dir, "ecg.local").GetOrCreateCertificate()
	require.NoError(t, err)
	assert.NoError(t, leafOf(t, cert.Certificate).VerifyHostname("ecg.local"))
}

func TestGetOrCreateCertificate_ReplacesCorruptFiles(t *testing.T) {
	m := NewFileManager(t.TempDir())
	certFile, keyFile := m.Paths()
	require.NoError(t, os.WriteFile(certFile, []byte("junk"), 0o600))
	require.NoError(t, os.WriteFile(keyFile, []byte("junk"), 0o600))

	_, err := m.GetOrCreateCertificate()
	assert.NoError(t, err)
}
