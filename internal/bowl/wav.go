package bowl

import (
	"bytes"
	"encoding/binary"
	"math"
)

const (
	wavHeaderSize    = 44
	wavBitsPerSample = 16
	wavChannels      = 1
)

// EncodeWAV packs samples in [-1, 1] as a mono 16-bit PCM RIFF file. Out-of-range samples clip.
func EncodeWAV(samples []float64, sampleRate int) []byte {
	dataSize := len(samples) * wavBitsPerSample / 8
	blockAlign := wavChannels * wavBitsPerSample / 8

	buffer := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+dataSize))
	buffer.WriteString("RIFF")
	_ = binary.Write(buffer, binary.LittleEndian, uint32(36+dataSize))
	buffer.WriteString("WAVE")
	buffer.WriteString("fmt ")
	_ = binary.Write(buffer, binary.LittleEndian, uint32(16))
	_ = binary.Write(buffer, binary.LittleEndian, uint16(1))
	_ = binary.Write(buffer, binary.LittleEndian, uint16(wavChannels))
	_ = binary.Write(buffer, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(buffer, binary.LittleEndian, uint32(sampleRate*blockAlign))
	_ = binary.Write(buffer, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(buffer, binary.LittleEndian, uint16(wavBitsPerSample))
	buffer.WriteString("data")
	_ = binary.Write(buffer, binary.LittleEndian, uint32(dataSize))

	pcm := make([]byte, 2)
	for _, sample := range samples {
		clipped := math.Max(-1, math.Min(1, sample))
		binary.LittleEndian.PutUint16(pcm, uint16(int16(math.Round(clipped*math.MaxInt16))))
		buffer.Write(pcm)
	}
	return buffer.Bytes()
}
