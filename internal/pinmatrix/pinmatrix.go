// Package pinmatrix implements the boolean routing matrix between a
// source node's output channels and a destination node's input
// channels (§4.3).
package pinmatrix

// Matrix is a dense, row-major boolean matrix of shape
// rows (output_channels) x cols (input_channels). Enabled(i, o) means
// input channel i is routed to output channel o.
type Matrix struct {
	rows int // output channels
	cols int // input channels
	data []bool
}

// Empty returns a rows x cols matrix with every cell disabled.
func Empty(rows, cols int) *Matrix {
	if rows < 0 || cols < 0 {
		panic("pinmatrix: negative dimension")
	}
	return &Matrix{rows: rows, cols: cols, data: make([]bool, rows*cols)}
}

// Identity returns a rows x cols matrix with the diagonal enabled, up
// to min(rows, cols).
func Identity(rows, cols int) *Matrix {
	m := Empty(rows, cols)
	n := rows
	if cols < n {
		n = cols
	}
	for i := 0; i < n; i++ {
		m.Set(i, i, true)
	}
	return m
}

// Full returns a rows x cols matrix with every cell enabled.
func Full(rows, cols int) *Matrix {
	m := Empty(rows, cols)
	for i := range m.data {
		m.data[i] = true
	}
	return m
}

// Rows returns the output-channel count.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the input-channel count.
func (m *Matrix) Cols() int { return m.cols }

func (m *Matrix) index(inputChannel, outputChannel int) int {
	return outputChannel*m.cols + inputChannel
}

// Enabled reports whether inputChannel is routed to outputChannel.
func (m *Matrix) Enabled(inputChannel, outputChannel int) bool {
	return m.data[m.index(inputChannel, outputChannel)]
}

// Get is an alias of Enabled matching the storage's (row, col) shape:
// row = outputChannel, col = inputChannel.
func (m *Matrix) Get(outputChannel, inputChannel int) bool {
	return m.data[outputChannel*m.cols+inputChannel]
}

// Set enables or disables the connection from inputChannel to
// outputChannel.
func (m *Matrix) Set(inputChannel, outputChannel int, enabled bool) {
	m.data[m.index(inputChannel, outputChannel)] = enabled
}

// Connection is one enabled cell, enumerated by ChannelConnections.
type Connection struct {
	InputChannel  int
	OutputChannel int
}

// ChannelConnections enumerates enabled (input_channel, output_channel)
// pairs in row-major order (output channel outer, input channel inner),
// matching the storage layout so the executor mixes deterministically
// (§4.3, §4.7).
func (m *Matrix) ChannelConnections() []Connection {
	var out []Connection
	for o := 0; o < m.rows; o++ {
		for i := 0; i < m.cols; i++ {
			if m.data[o*m.cols+i] {
				out = append(out, Connection{InputChannel: i, OutputChannel: o})
			}
		}
	}
	return out
}

// FromPairs reconstructs a Matrix of the given shape from a list of
// enabled connections, the inverse of ChannelConnections (§8 P8).
func FromPairs(pairs []Connection, rows, cols int) *Matrix {
	m := Empty(rows, cols)
	for _, p := range pairs {
		m.Set(p.InputChannel, p.OutputChannel, true)
	}
	return m
}

// Equal reports whether m and o have the same shape and enabled cells.
func (m *Matrix) Equal(o *Matrix) bool {
	if m.rows != o.rows || m.cols != o.cols {
		return false
	}
	for i := range m.data {
		if m.data[i] != o.data[i] {
			return false
		}
	}
	return true
}
