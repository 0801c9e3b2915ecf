// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if cfg.Transport != "udp" || cfg.Serial.BaudRate != 9600 || cfg.PollInterval != 0 {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestLoad_OverridesOnlyGivenKeys(t *testing.T) {
	path := writeFile(t, `
transport: serial
framing: cobs
poll_interval: 5ms
serial:
  port_name: /dev/ttyUSB0
  baud_rate: 115200
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if cfg.Transport != "serial" || cfg.Framing != "cobs" || cfg.PollInterval != 5*time.Millisecond {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.Serial.PortName != "/dev/ttyUSB0" || cfg.Serial.BaudRate != 115200 {
		t.Fatalf("serial=%+v", cfg.Serial)
	}
	// Untouched nested defaults survive.
	if cfg.Serial.DataBits != 8 || cfg.Serial.Parity != "none" {
		t.Fatalf("serial defaults lost: %+v", cfg.Serial)
	}
}

func TestLoad_Rejects(t *testing.T) {
	for name, body := range map[string]string{
		"syntax":         "transport: [udp",
		"transport":      "transport: smoke-signal",
		"framing":        "framing: slip",
		"serial-no-port": "transport: serial",
	} {
		if _, err := Load(writeFile(t, body)); err == nil {
			t.Errorf("%s: accepted", name)
		}
	}
}
