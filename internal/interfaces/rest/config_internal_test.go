package rest_interface

import (
	"crypto/x509"
	"encoding/pem"
	"net"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestServiceConfig(t *testing.T) {
	tests := []struct {
		name   string
		config ServiceConfig
		valid  bool
	}{
		{
			name:   "insecure",
			config: ServiceConfig{Port: 18010, NoTLS: true},
			valid:  true,
		},
		{
			name:   "with tls",
			config: ServiceConfig{Port: 18010, TLSLocation: "tls", ExtraIPs: []string{"10.0.0.1"}},
			valid:  true,
		},
		{
			name:   "port out of range",
			config: ServiceConfig{Port: 80, NoTLS: true},
		},
		{
			name:   "missing tls location",
			config: ServiceConfig{Port: 18010},
		},
		{
			name:   "invalid extra ip",
			config: ServiceConfig{Port: 18010, TLSLocation: "tls", ExtraIPs: []string{"localhost"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.validate()
			if tt.valid {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
		})
	}
}

func TestGenerateTLSKeyPair(t *testing.T) {
	dir := t.TempDir()
	config := ServiceConfig{
		Port:         18010,
		TLSLocation:  dir,
		ExtraIPs:     []string{"10.0.0.1"},
		ExtraDomains: []string{"utxoprep.example.com"},
	}

	err := generateTLSKeyPair(dir, config.ExtraIPs, config.ExtraDomains)
	require.NoError(t, err)

	buf, err := os.ReadFile(config.tlsCertPath())
	require.NoError(t, err)
	block, _ := pem.Decode(buf)
	require.NotNil(t, block)
	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)
	require.Contains(t, cert.DNSNames, "localhost")
	require.Contains(t, cert.DNSNames, "utxoprep.example.com")

	var found bool
	for _, ip := range cert.IPAddresses {
		if ip.Equal(net.ParseIP("10.0.0.1")) {
			found = true
		}
	}
	require.True(t, found)

	tlsConfig, err := config.tlsConfig()
	require.NoError(t, err)
	require.Len(t, tlsConfig.Certificates, 1)

	// An existing key pair is left untouched.
	err = generateTLSKeyPair(dir, nil, nil)
	require.NoError(t, err)
	newBuf, err := os.ReadFile(config.tlsCertPath())
	require.NoError(t, err)
	require.Equal(t, buf, newBuf)
}
