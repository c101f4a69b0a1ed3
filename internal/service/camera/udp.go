package camera

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"net"
	"strings"
	"time"

	"kiosk/internal/capture"
	"kiosk/internal/logger"
)

const udpReadTimeout = time.Second

var (
	jpegHeader = []byte{0xFF, 0xD8}
	jpegFooter = []byte{0xFF, 0xD9}
)

// UDPDevice reassembles JPEG frames streamed over UDP by a network camera:
// a packet starting with the JPEG SOI marker begins a frame and one ending
// with the EOI marker completes it.
type UDPDevice struct {
	conn   *net.UDPConn
	packet []byte
	frame  bytes.Buffer
}

// IsUDP reports whether device names a UDP listen address ("udp://:9000").
func IsUDP(device string) bool {
	return strings.HasPrefix(device, "udp://")
}

// UDPOpener listens on the address in device ("udp://host:port").
func UDPOpener(device string, logger *logger.Logger) capture.Opener {
	return func() (capture.Device, error) {
		addr, err := net.ResolveUDPAddr("udp", strings.TrimPrefix(device, "udp://"))
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %v", device, err)
		}

		conn, err := net.ListenUDP("udp", addr)
		if err != nil {
			return nil, fmt.Errorf("listen %s: %v", device, err)
		}

		logger.Info("📷 UDP camera listening on %s", conn.LocalAddr())
		return &UDPDevice{conn: conn, packet: make([]byte, 65535)}, nil
	}
}

// Read blocks until a full frame arrives or the read times out.
func (d *UDPDevice) Read() ([]byte, int, int, error) {
	for {
		d.conn.SetReadDeadline(time.Now().Add(udpReadTimeout))
		n, _, err := d.conn.ReadFromUDP(d.packet)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return nil, 0, 0, fmt.Errorf("%w: no frame within %s", capture.ErrTransientRead, udpReadTimeout)
			}
			return nil, 0, 0, fmt.Errorf("%w: %v", capture.ErrTransientRead, err)
		}

		data := d.packet[:n]
		if bytes.HasPrefix(data, jpegHeader) {
			d.frame.Reset()
		}
		d.frame.Write(data)

		if !bytes.HasSuffix(data, jpegFooter) {
			continue
		}

		full := make([]byte, d.frame.Len())
		copy(full, d.frame.Bytes())
		d.frame.Reset()

		cfg, err := jpeg.DecodeConfig(bytes.NewReader(full))
		if err != nil {
			return nil, 0, 0, fmt.Errorf("%w: corrupt frame: %v", capture.ErrTransientRead, err)
		}
		return full, cfg.Width, cfg.Height, nil
	}
}

func (d *UDPDevice) Close() error {
	return d.conn.Close()
}
