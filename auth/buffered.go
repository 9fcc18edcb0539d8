package auth

import (
	"bytes"
	"io"
	"sync"

	"github.com/kbukum/restkit/httpclient"
)

// BufferedEntity materializes an entity once and replays the same bytes
// on every write, so a body can be read for signing and still be sent
// unchanged.
type BufferedEntity struct {
	entity httpclient.Entity
	once   sync.Once
	data   []byte
	err    error
}

var _ httpclient.Entity = (*BufferedEntity)(nil)

// NewBufferedEntity wraps e.
func NewBufferedEntity(e httpclient.Entity) *BufferedEntity {
	return &BufferedEntity{entity: e}
}

// Bytes returns the materialized body.
func (b *BufferedEntity) Bytes() ([]byte, error) {
	b.once.Do(func() {
		var buf bytes.Buffer
		_, b.err = b.entity.WriteTo(&buf)
		b.data = buf.Bytes()
	})
	return b.data, b.err
}

func (b *BufferedEntity) ContentType() string {
	return b.entity.ContentType()
}

func (b *BufferedEntity) WriteTo(w io.Writer) (int64, error) {
	data, err := b.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}
