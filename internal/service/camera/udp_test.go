package camera

import (
	"bytes"
	"image"
	"image/jpeg"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiosk/internal/capture"
	"kiosk/internal/logger"
)

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h)), nil))
	return buf.Bytes()
}

func TestIsUDP(t *testing.T) {
	assert.True(t, IsUDP("udp://:9000"))
	assert.False(t, IsUDP("0"))
	assert.False(t, IsUDP("rtsp://camera/stream"))
}

func TestUDPDevice_ReassemblesFrames(t *testing.T) {
	dev, err := UDPOpener("udp://127.0.0.1:0", logger.Discard())()
	require.NoError(t, err)
	defer dev.Close()

	sender, err := net.DialUDP("udp", nil, dev.(*UDPDevice).conn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer sender.Close()

	img := encodeJPEG(t, 64, 48)
	half := len(img) / 2

	// a stray tail from an earlier frame must not leak into the next one
	_, err = sender.Write([]byte{0x01, 0x02})
	require.NoError(t, err)
	_, err = sender.Write(img[:half])
	require.NoError(t, err)
	_, err = sender.Write(img[half:])
	require.NoError(t, err)

	data, w, h, err := dev.Read()
	require.NoError(t, err)
	assert.Equal(t, img, data)
	assert.Equal(t, 64, w)
	assert.Equal(t, 48, h)
}

func TestUDPDevice_TimeoutIsTransient(t *testing.T) {
	dev, err := UDPOpener("udp://127.0.0.1:0", logger.Discard())()
	require.NoError(t, err)
	defer dev.Close()

	_, _, _, err = dev.Read()
	assert.ErrorIs(t, err, capture.ErrTransientRead)
}
