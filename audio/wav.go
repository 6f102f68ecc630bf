package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
	wavExtensible  = 0xFFFE
)

// Decoded holds interleaved-free per-channel samples straight from a file.
type Decoded struct {
	Channels   [][]float64
	SampleRate int
}

// Frames is the number of samples per channel.
func (d *Decoded) Frames() int {
	if len(d.Channels) == 0 {
		return 0
	}
	return len(d.Channels[0])
}

// ReadWAVFile decodes a RIFF/WAVE file. 8/16/24/32-bit PCM and 32/64-bit
// float payloads are supported.
func ReadWAVFile(path string) (*Decoded, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return DecodeWAV(b)
}

func DecodeWAV(b []byte) (*Decoded, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: not a RIFF/WAVE stream", ErrUnreadable)
	}
	var (
		format, channels, bits uint16
		rate                   uint32
		data                   []byte
		haveFmt                bool
	)
	pos := 12
	for pos+8 <= len(b) {
		id := string(b[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(b[pos+4 : pos+8]))
		body := pos + 8
		end := body + size
		if end > len(b) {
			// tolerate truncated data chunks written by streaming recorders
			end = len(b)
		}
		switch id {
		case "fmt ":
			if end-body < 16 {
				return nil, fmt.Errorf("%w: short fmt chunk", ErrUnreadable)
			}
			format = binary.LittleEndian.Uint16(b[body:])
			channels = binary.LittleEndian.Uint16(b[body+2:])
			rate = binary.LittleEndian.Uint32(b[body+4:])
			bits = binary.LittleEndian.Uint16(b[body+14:])
			if format == wavExtensible && end-body >= 26 {
				format = binary.LittleEndian.Uint16(b[body+24:])
			}
			haveFmt = true
		case "data":
			data = b[body:end]
		}
		pos = body + size + size%2
	}
	if !haveFmt {
		return nil, fmt.Errorf("%w: missing fmt chunk", ErrUnreadable)
	}
	if channels == 0 || rate == 0 {
		return nil, fmt.Errorf("%w: invalid fmt (channels=%d rate=%d)", ErrUnreadable, channels, rate)
	}

	sampleBytes := int(bits) / 8
	if sampleBytes == 0 {
		return nil, fmt.Errorf("%w: %d bits per sample", ErrUnreadable, bits)
	}
	read, err := sampleReader(format, bits)
	if err != nil {
		return nil, err
	}

	nch := int(channels)
	frames := len(data) / (sampleBytes * nch)
	out := &Decoded{Channels: make([][]float64, nch), SampleRate: int(rate)}
	for c := range out.Channels {
		out.Channels[c] = make([]float64, frames)
	}
	for i := 0; i < frames; i++ {
		for c := 0; c < nch; c++ {
			off := (i*nch + c) * sampleBytes
			out.Channels[c][i] = read(data[off : off+sampleBytes])
		}
	}
	return out, nil
}

func sampleReader(format, bits uint16) (func([]byte) float64, error) {
	switch {
	case format == wavFormatPCM && bits == 8:
		return func(p []byte) float64 { return (float64(p[0]) - 128) / 128 }, nil
	case format == wavFormatPCM && bits == 16:
		return func(p []byte) float64 { return float64(int16(binary.LittleEndian.Uint16(p))) / 32768 }, nil
	case format == wavFormatPCM && bits == 24:
		return func(p []byte) float64 {
			v := int32(p[0]) | int32(p[1])<<8 | int32(int8(p[2]))<<16
			return float64(v) / 8388608
		}, nil
	case format == wavFormatPCM && bits == 32:
		return func(p []byte) float64 { return float64(int32(binary.LittleEndian.Uint32(p))) / 2147483648 }, nil
	case format == wavFormatFloat && bits == 32:
		return func(p []byte) float64 { return float64(math.Float32frombits(binary.LittleEndian.Uint32(p))) }, nil
	case format == wavFormatFloat && bits == 64:
		return func(p []byte) float64 { return math.Float64frombits(binary.LittleEndian.Uint64(p)) }, nil
	}
	return nil, fmt.Errorf("%w: unsupported wav format %d/%d-bit", ErrUnreadable, format, bits)
}

// EncodeWAV writes mono 16-bit PCM.
func EncodeWAV(w io.Writer, samples []float64, sampleRate int) error {
	var buf bytes.Buffer
	dataLen := len(samples) * 2
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(wavFormatPCM))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	for _, s := range samples {
		binary.Write(&buf, binary.LittleEndian, toInt16(s))
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteWAVFile writes the clip to path as 16-bit PCM.
func WriteWAVFile(path string, samples []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeWAV(f, samples, sampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func toInt16(s float64) int16 {
	switch {
	case s >= 1:
		return math.MaxInt16
	case s <= -1:
		return math.MinInt16
	}
	return int16(math.Round(s * 32767))
}
