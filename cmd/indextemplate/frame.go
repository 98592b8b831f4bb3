// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/bureau-foundation/clustermeta/lib/indextemplate"
)

// Framed file layout:
//
//	magic    4 bytes "ITPL"
//	version  1 byte, frameVersion
//	kind     1 byte, frameTemplate or frameDiff
//	payload  binary encoding of the template or diff
//
// The payload decoders stop after the fields they know, so a file
// written by a newer encoder may carry trailing bytes; they are
// reported and ignored.
const (
	frameMagic          = "ITPL"
	frameVersion   byte = 1
	frameHeaderLen      = len(frameMagic) + 2
)

type frameKind byte

const (
	frameTemplate frameKind = 1
	frameDiff     frameKind = 2
)

func (kind frameKind) String() string {
	switch kind {
	case frameTemplate:
		return "template"
	case frameDiff:
		return "diff"
	default:
		return fmt.Sprintf("kind(%d)", byte(kind))
	}
}

var (
	errNotFramed      = errors.New("not an indextemplate binary file")
	errTruncatedFrame = errors.New("binary file header is truncated")
)

// isFramed reports whether data starts with the frame magic.
func isFramed(data []byte) bool {
	return bytes.HasPrefix(data, []byte(frameMagic))
}

// frame prepends the header for kind to payload.
func frame(kind frameKind, payload []byte) []byte {
	framed := make([]byte, 0, frameHeaderLen+len(payload))
	framed = append(framed, frameMagic...)
	framed = append(framed, frameVersion, byte(kind))
	return append(framed, payload...)
}

// unframe checks the header and returns the payload.
func unframe(data []byte, want frameKind) ([]byte, error) {
	if !isFramed(data) {
		if len(data) < len(frameMagic) && bytes.HasPrefix([]byte(frameMagic), data) {
			return nil, errTruncatedFrame
		}
		return nil, errNotFramed
	}
	if len(data) < frameHeaderLen {
		return nil, errTruncatedFrame
	}
	if version := data[len(frameMagic)]; version != frameVersion {
		return nil, fmt.Errorf("unsupported binary format version %d (this build reads version %d)", version, frameVersion)
	}
	if kind := frameKind(data[len(frameMagic)+1]); kind != want {
		return nil, fmt.Errorf("binary file holds a %s, want a %s", kind, want)
	}
	return data[frameHeaderLen:], nil
}

// decodeTemplateFrame decodes a framed template and returns the number
// of unread trailing payload bytes.
func decodeTemplateFrame(data []byte) (*indextemplate.IndexTemplate, int, error) {
	payload, err := unframe(data, frameTemplate)
	if err != nil {
		return nil, 0, err
	}
	reader := bytes.NewReader(payload)
	template, err := indextemplate.Read(reader)
	if err != nil {
		return nil, 0, err
	}
	return template, reader.Len(), nil
}

// decodeDiffFrame decodes a framed diff and returns the number of
// unread trailing payload bytes.
func decodeDiffFrame(data []byte) (*indextemplate.Diff, int, error) {
	payload, err := unframe(data, frameDiff)
	if err != nil {
		return nil, 0, err
	}
	reader := bytes.NewReader(payload)
	d, err := indextemplate.ReadDiff(reader)
	if err != nil {
		return nil, 0, err
	}
	return d, reader.Len(), nil
}
