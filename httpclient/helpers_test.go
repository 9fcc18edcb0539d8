package httpclient

import "io"

// closeCounter is a body that records how many times it was closed.
type closeCounter struct {
	io.Reader
	closed int
}

func (c *closeCounter) Close() error {
	c.closed++
	return nil
}
