// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/gomlx/ndgraph/pkg/support/fsutil"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// MaxFrameSize is the largest serialized graph accepted by ReadFrame.
var MaxFrameSize = 1 << 30

// WriteFrame serializes g and writes it to w prefixed by its length as a little-endian uint32.
func WriteFrame(w io.Writer, g *Graph) error {
	return WriteFrameVersion(w, g, CurrentVersion)
}

// WriteFrameVersion is like WriteFrame, but serializes g with the given version of the schema.
func WriteFrameVersion(w io.Writer, g *Graph, version uint32) error {
	buf, err := g.SerializeVersion(version)
	if err != nil {
		return err
	}
	return writeFrame(w, buf)
}

func writeFrame(w io.Writer, buf []byte) error {
	if len(buf) > MaxFrameSize {
		return errors.Errorf("graph: frame of %d bytes is larger than MaxFrameSize=%d", len(buf), MaxFrameSize)
	}
	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(buf)))
	if _, err := w.Write(prefix[:]); err != nil {
		return errors.Wrap(err, "graph: failed to write frame length")
	}
	if _, err := w.Write(buf); err != nil {
		return errors.Wrap(err, "graph: failed to write frame")
	}
	return nil
}

// ReadFrame reads one graph written by WriteFrame.
// It returns io.EOF (unwrapped) if r is at a clean end, with no partial frame.
func ReadFrame(r io.Reader) (*Graph, error) {
	v, err := ReadFrameView(r)
	if err != nil {
		return nil, err
	}
	return v.Graph()
}

// ReadFrameView reads one frame written by WriteFrame and returns a lazy View of it.
// It returns io.EOF (unwrapped) if r is at a clean end, with no partial frame.
func ReadFrameView(r io.Reader) (*View, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, errors.Wrap(err, "graph: failed to read frame length")
	}
	size := binary.LittleEndian.Uint32(prefix[:])
	if uint64(size) > uint64(MaxFrameSize) {
		return nil, errors.Errorf("graph: frame of %d bytes is larger than MaxFrameSize=%d", size, MaxFrameSize)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, errors.Wrapf(err, "graph: failed to read frame of %d bytes", size)
	}
	return OpenView(buf)
}

// SaveFile writes the graphs as consecutive frames to path, replacing it atomically.
// A "~" prefix in path is expanded to the user's home directory.
func SaveFile(path string, graphs ...*Graph) error {
	path, err := fsutil.ReplaceTildeInDir(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	for _, g := range graphs {
		if err := WriteFrame(&buf, g); err != nil {
			return errors.WithMessagef(err, "graph: saving %q", path)
		}
	}
	if err := fsutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return errors.WithMessagef(err, "graph: saving %q", path)
	}
	klog.V(1).Infof("Saved %d graph(s) to %q (%d bytes)", len(graphs), path, buf.Len())
	return nil
}

// AppendFile appends the graph as a new frame at the end of path, creating the file if needed.
func AppendFile(path string, g *Graph) error {
	path, err := fsutil.ReplaceTildeInDir(path)
	if err != nil {
		return err
	}
	buf, err := g.Serialize()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "graph: failed to open %q for append", path)
	}
	if err = writeFrame(f, buf); err != nil {
		_ = f.Close()
		return errors.WithMessagef(err, "graph: appending to %q", path)
	}
	if err = f.Close(); err != nil {
		return errors.Wrapf(err, "graph: failed to close %q", path)
	}
	return nil
}

// LoadFile reads all graphs saved in path.
func LoadFile(path string) ([]*Graph, error) {
	path, err := fsutil.ReplaceTildeInDir(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "graph: failed to open %q", path)
	}
	defer func() { _ = f.Close() }()
	r := bufio.NewReader(f)
	var graphs []*Graph
	for {
		g, err := ReadFrame(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WithMessagef(err, "graph: loading frame #%d of %q", len(graphs), path)
		}
		graphs = append(graphs, g)
	}
	return graphs, nil
}
