// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package cli

import (
	"bytes"
	"io"
	"os"
)

// IOStreams are the pipes of a command. update-pr reads its diff from In, pipelines
// and tables go to Out and logs go to Err.
type IOStreams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// NewIOStreams wires the process stdio.
func NewIOStreams() *IOStreams {
	return &IOStreams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// BufferedStreams are IOStreams recording everything a command writes.
type BufferedStreams struct {
	IOStreams
	InBuf  bytes.Buffer
	OutBuf bytes.Buffer
	ErrBuf bytes.Buffer
}

// NewBufferedStreams returns buffered streams whose In yields stdin.
func NewBufferedStreams(stdin string) *BufferedStreams {
	b := &BufferedStreams{}
	b.InBuf.WriteString(stdin)
	b.IOStreams = IOStreams{In: &b.InBuf, Out: &b.OutBuf, Err: &b.ErrBuf}
	return b
}
