package main

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/http2"
)

var (
	requestTimeout = 30 * time.Second
	colorRed       = string("\033[31m")
)

type daemonClient struct {
	baseUrl    string
	httpClient *http.Client
}

type daemonResponse struct {
	status int
	header http.Header
	body   []byte
}

func (r daemonResponse) err() error {
	payload := struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}{}
	if err := json.Unmarshal(r.body, &payload); err != nil {
		return fmt.Errorf("daemon answered with status %d", r.status)
	}
	if payload.Error != "" {
		return fmt.Errorf("%s", payload.Error)
	}
	return fmt.Errorf("%s", payload.Message)
}

func getClient() (*daemonClient, error) {
	state, err := getState()
	if err != nil {
		return nil, err
	}
	address, ok := state["server"]
	if !ok || address == "" {
		return nil, fmt.Errorf("set server with `config set server`")
	}

	transport := &http.Transport{}
	scheme := "http"

	noTLS, _ := strconv.ParseBool(state["no_tls"])
	if !noTLS {
		certPath, ok := state["tls_cert_path"]
		if !ok || certPath == "" {
			return nil, fmt.Errorf(
				"missing TLS certificate filepath. Try " +
					"'utxoprep config set tls_cert_path path/to/tls/certificate'",
			)
		}

		cert, err := os.ReadFile(certPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS certificate: %s", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(cert) {
			return nil, fmt.Errorf("failed to load TLS certificate: invalid format")
		}
		transport.TLSClientConfig = &tls.Config{
			RootCAs:    pool,
			MinVersion: tls.VersionTLS12,
		}
		if err := http2.ConfigureTransport(transport); err != nil {
			return nil, err
		}
		scheme = "https"
	}

	return &daemonClient{
		baseUrl: fmt.Sprintf("%s://%s", scheme, address),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   requestTimeout,
		},
	}, nil
}

func (c *daemonClient) get(path string, query url.Values) (*daemonResponse, error) {
	endpoint := c.baseUrl + path
	if len(query) > 0 {
		endpoint = fmt.Sprintf("%s?%s", endpoint, query.Encode())
	}

	res, err := c.httpClient.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to utxoprep daemon: %v", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	return &daemonResponse{res.StatusCode, res.Header, body}, nil
}

func (c *daemonClient) close() {
	c.httpClient.CloseIdleConnections()
}

func getState() (map[string]string, error) {
	file, err := os.ReadFile(statePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := writeState(initialState()); err != nil {
			return nil, err
		}
		return initialState(), nil
	}

	data := map[string]string{}
	if err := json.Unmarshal(file, &data); err != nil {
		return nil, fmt.Errorf("invalid state file %s: %s", statePath, err)
	}
	return data, nil
}

func setState(partialState map[string]string) error {
	state, err := getState()
	if err != nil {
		return err
	}

	for key, value := range partialState {
		state[key] = value
	}
	return writeState(state)
}

func writeState(state map[string]string) error {
	dir := filepath.Dir(statePath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		err = os.MkdirAll(dir, 0755)
		if err != nil {
			return fmt.Errorf("failed to create directory: %v", err)
		}
	}

	buf, _ := json.MarshalIndent(state, "", "  ")
	if err := os.WriteFile(statePath, buf, 0644); err != nil {
		return fmt.Errorf("writing to file: %w", err)
	}

	return nil
}

func cleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		u, err := user.Current()
		if err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

func jsonResponse(body []byte) string {
	buf := &bytes.Buffer{}
	if err := json.Indent(buf, body, "", "  "); err != nil {
		return string(body)
	}
	return buf.String()
}

func printErr(err error) {
	msg := fmt.Sprintf("%s%s", colorRed, capitalize(err.Error()))
	fmt.Fprintln(os.Stderr, msg)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	ss := strings.ToUpper(s[0:1])
	ss += s[1:]
	return ss
}

func formatVersion() string {
	return fmt.Sprintf(
		"\nVersion: %s\nCommit: %s\nDate: %s", version, commit, date,
	)
}
