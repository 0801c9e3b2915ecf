// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cli

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/comm/internal/logging"
	"code.hybscloud.com/comm/netcomm"
	"code.hybscloud.com/comm/serialcomm"
	"go.bug.st/serial"
)

// fakePort serves preloaded input and records everything written to it.
type fakePort struct {
	mu sync.Mutex
	rx bytes.Buffer
	tx bytes.Buffer
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rx.Len() == 0 {
		return 0, nil
	}
	return p.rx.Read(b)
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tx.Write(b)
}

func (p *fakePort) written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return bytes.Clone(p.tx.Bytes())
}

func (p *fakePort) Drain() error                       { return nil }
func (p *fakePort) SetReadTimeout(time.Duration) error { return nil }
func (p *fakePort) Close() error                       { return nil }

func withPort(p *fakePort) *App {
	a := NewApp()
	a.SerialOpener = func(string, *serial.Mode) (serialcomm.Port, error) { return p, nil }
	return a
}

func run(t *testing.T, a *App, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := a.Command()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, NewApp(), "", "version")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if out != "commcat version "+Version+"\n" {
		t.Fatalf("out=%q", out)
	}
}

func TestSend_SerialWritesCOBSFrame(t *testing.T) {
	port := &fakePort{}
	_, err := run(t, withPort(port), "", "send", `h\00i`, "--transport", "serial", "--port-name", "/dev/ttyFAKE")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	want := []byte{0x02, 'h', 0x02, 'i', 0x00}
	if got := port.written(); !bytes.Equal(got, want) {
		t.Fatalf("wire=% x want % x", got, want)
	}
}

func TestSend_TransparentFramingOverride(t *testing.T) {
	port := &fakePort{}
	_, err := run(t, withPort(port), "", "send", "raw",
		"--transport", "serial", "--port-name", "x", "--framing", "transparent")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got := port.written(); string(got) != "raw" {
		t.Fatalf("wire=% x", got)
	}
}

func TestListen_SerialPrintsDecodedMessages(t *testing.T) {
	port := &fakePort{}
	port.rx.Write([]byte{0x06, 'h', 'e', 'l', 'l', 'o', 0x00})
	port.rx.Write([]byte{0x02, 'a', 0x01, 0x00})
	out, err := run(t, withPort(port), "", "listen", "--count", "2", "--transport", "serial", "--port-name", "x")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if out != "hello\na\\00\n" {
		t.Fatalf("out=%q", out)
	}
}

func TestChat_SendsEachInputLine(t *testing.T) {
	port := &fakePort{}
	_, err := run(t, withPort(port), "one\n\ntwo\n", "chat", "--transport", "serial", "--port-name", "x")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	want := []byte{0x04, 'o', 'n', 'e', 0x00, 0x04, 't', 'w', 'o', 0x00}
	if got := port.written(); !bytes.Equal(got, want) {
		t.Fatalf("wire=% x want % x", got, want)
	}
}

func TestSend_UDPDatagram(t *testing.T) {
	server := netcomm.ListenUDP("127.0.0.1:0", netcomm.WithLogger(logging.Discard()),
		netcomm.WithReadTimeout(50*time.Millisecond))
	got := make(chan []byte, 1)
	server.SetBlockHandler(func(b []byte) { got <- b })
	if err := server.Connect(); err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer server.Disconnect()

	_, err := run(t, NewApp(), "", "send", "ping", "--transport", "udp", "--addr", server.LocalAddr().String())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	select {
	case b := <-got:
		if string(b) != "ping" {
			t.Fatalf("datagram=%q", b)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no datagram")
	}
}

func TestRejectsBadSettings(t *testing.T) {
	cases := [][]string{
		{"send", "x", "--transport", "carrier-pigeon"},
		{"send", "x", "--framing", "hdlc"},
		{"send", "x", "--transport", "serial"},
		{"version", "--log-level", "loud"},
	}
	for _, args := range cases {
		if _, err := run(t, NewApp(), "", args...); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}
