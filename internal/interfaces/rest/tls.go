package rest_interface

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

const (
	tlsKeyFile  = "key.pem"
	tlsCertFile = "cert.pem"

	tlsOrganization = "utxoprep autogenerated cert"
	tlsValidity     = 14 * 30 * 24 * time.Hour
)

var serialNumberLimit = new(big.Int).Lsh(big.NewInt(1), 128)

// generateTLSKeyPair creates a self-signed certificate and its RSA key in the
// given dir, unless they already exist. The certificate is valid for
// localhost plus the given extra ips and domains.
func generateTLSKeyPair(dir string, extraIPs, extraDomains []string) error {
	keyPath := filepath.Join(dir, tlsKeyFile)
	certPath := filepath.Join(dir, tlsCertFile)
	if fileExists(keyPath) && fileExists(certPath) {
		return nil
	}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return err
	}
	serialNumber, err := rand.Int(rand.Reader, serialNumberLimit)
	if err != nil {
		return err
	}

	host, _ := os.Hostname()
	dnsNames := []string{"localhost"}
	if host != "" && host != "localhost" {
		dnsNames = append(dnsNames, host)
	}
	dnsNames = append(dnsNames, extraDomains...)

	ips := []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("::1")}
	for _, ip := range extraIPs {
		parsed := net.ParseIP(ip)
		if parsed == nil {
			return fmt.Errorf("invalid ip %s", ip)
		}
		ips = append(ips, parsed)
	}

	now := time.Now()
	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{tlsOrganization},
			CommonName:   "localhost",
		},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(tlsValidity),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              dnsNames,
		IPAddresses:           ips,
	}

	certDER, err := x509.CreateCertificate(
		rand.Reader, &template, &template, &key.PublicKey, key,
	)
	if err != nil {
		return err
	}
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	if err := writePem(certPath, "CERTIFICATE", certDER, 0644); err != nil {
		return err
	}
	return writePem(keyPath, "PRIVATE KEY", keyDER, 0600)
}

func writePem(path, blockType string, buf []byte, perm os.FileMode) error {
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: buf})
	return os.WriteFile(path, data, perm)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
