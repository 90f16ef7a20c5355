// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package xnml

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"math"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/s2"

	"github.com/mlnoga/starcal/internal/starerr"
)

// xmlDocument mirrors Document for XML marshaling; payloads are base64 of
// either the raw or s2-compressed little-endian double stream.
type xmlDocument struct {
	XMLName            xml.Name      `xml:"XNML"`
	Version            string        `xml:"version,attr"`
	ReferenceImage     string        `xml:"ReferenceImage"`
	TargetImage        string        `xml:"TargetImage"`
	NormalizationScale int32         `xml:"NormalizationScale"`
	ReferenceGeometry  xmlGeometry   `xml:"ReferenceGeometry"`
	CreationTime       string        `xml:"CreationTime"`
	A                  xmlMatrix     `xml:"A"`
	B                  xmlMatrix     `xml:"B"`
}

type xmlGeometry struct {
	Width  int32 `xml:"width,attr"`
	Height int32 `xml:"height,attr"`
}

type xmlMatrix struct {
	Width              int32  `xml:"width,attr"`
	Height             int32  `xml:"height,attr"`
	Channels           int32  `xml:"channels,attr"`
	Compressed         bool   `xml:"compressed,attr"`
	Codec              string `xml:"codec,attr,omitempty"`
	UncompressedLength int    `xml:"uncompressedLength,attr,omitempty"`
	Checksum           string `xml:"checksum,attr,omitempty"`
	Payload            string `xml:",chardata"`
}

// s2Codec is the name recorded in the container when compression is
// enabled.
const s2Codec = "s2"

// Marshal serializes doc to an XNML document, compressing the A and B
// payloads with S2 when doc.Compress is set.
func Marshal(doc *Document) ([]byte, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	out := xmlDocument{
		Version:            FormatVersion,
		ReferenceImage:     doc.ReferenceImage,
		TargetImage:        doc.TargetImage,
		NormalizationScale: doc.NormalizationScale,
		ReferenceGeometry:  xmlGeometry{Width: doc.ReferenceGeometry.Width, Height: doc.ReferenceGeometry.Height},
		CreationTime:       doc.CreationTime,
		A:                  encodeMatrix(doc.A, doc.Compress),
		B:                  encodeMatrix(doc.B, doc.Compress),
	}

	data, err := xml.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, starerr.Wrap(starerr.IOError, err, "xnml: marshal failed")
	}
	return append([]byte(xml.Header), data...), nil
}

// Unmarshal parses an XNML document, validating its invariants and
// decompressing A/B payloads as their container indicates.
func Unmarshal(data []byte) (*Document, error) {
	var in xmlDocument
	if err := xml.Unmarshal(data, &in); err != nil {
		return nil, starerr.Wrap(starerr.IOError, err, "xnml: parse failed")
	}

	a, err := decodeMatrix(in.A)
	if err != nil {
		return nil, err
	}
	b, err := decodeMatrix(in.B)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Version:            in.Version,
		ReferenceImage:     in.ReferenceImage,
		TargetImage:        in.TargetImage,
		NormalizationScale: in.NormalizationScale,
		ReferenceGeometry:  Geometry{Width: in.ReferenceGeometry.Width, Height: in.ReferenceGeometry.Height},
		CreationTime:       in.CreationTime,
		A:                  a,
		B:                  b,
		Compress:           in.A.Compressed,
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// WriteFile marshals doc and writes it to path.
func WriteFile(path string, doc *Document) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return starerr.Wrap(starerr.IOError, err, "xnml: write %s failed", path)
	}
	return nil
}

// ReadFile reads and parses the XNML document at path.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, starerr.Wrap(starerr.IOError, err, "xnml: read %s failed", path)
	}
	return Unmarshal(data)
}

func encodeMatrix(m Matrix, compress bool) xmlMatrix {
	raw := make([]byte, 8*len(m.Data))
	for i, v := range m.Data {
		binary.LittleEndian.PutUint64(raw[i*8:], math.Float64bits(v))
	}

	out := xmlMatrix{Width: m.Width, Height: m.Height, Channels: m.Channels}
	if !compress {
		out.Payload = base64.StdEncoding.EncodeToString(raw)
		return out
	}

	compressed := s2.Encode(nil, raw)
	out.Compressed = true
	out.Codec = s2Codec
	out.UncompressedLength = len(raw)
	out.Checksum = fmt.Sprintf("%016x", xxhash.Sum64(raw))
	out.Payload = base64.StdEncoding.EncodeToString(compressed)
	return out
}

func decodeMatrix(m xmlMatrix) (Matrix, error) {
	raw, err := base64.StdEncoding.DecodeString(m.Payload)
	if err != nil {
		return Matrix{}, starerr.Wrap(starerr.IOError, err, "xnml: invalid base64 payload")
	}

	if m.Compressed {
		decoded, err := s2.Decode(nil, raw)
		if err != nil {
			return Matrix{}, starerr.Wrap(starerr.IOError, err, "xnml: s2 decompression failed")
		}
		if len(decoded) != m.UncompressedLength {
			return Matrix{}, starerr.New(starerr.IOError, "xnml: decompressed length %d does not match declared %d", len(decoded), m.UncompressedLength)
		}
		if got := fmt.Sprintf("%016x", xxhash.Sum64(decoded)); got != m.Checksum {
			return Matrix{}, starerr.New(starerr.IOError, "xnml: checksum mismatch, got %s want %s", got, m.Checksum)
		}
		raw = decoded
	}

	if len(raw)%8 != 0 {
		return Matrix{}, starerr.New(starerr.IOError, "xnml: payload length %d is not a multiple of 8", len(raw))
	}
	samples := make([]float64, len(raw)/8)
	for i := range samples {
		samples[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}

	result := Matrix{Width: m.Width, Height: m.Height, Channels: m.Channels, Data: samples}
	if err := result.validate(); err != nil {
		return Matrix{}, err
	}
	return result, nil
}
