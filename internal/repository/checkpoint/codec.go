package checkpoint

import (
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"go.mongodb.org/mongo-driver/bson"
)

// Codec defines how an entry is serialized.
type Codec interface {
	Encode(w io.Writer, v any) error
	Decode(r io.Reader, v any) error
	Extension() string
}

type BSONCodec struct{}

func (BSONCodec) Encode(w io.Writer, v any) error {
	data, err := bson.Marshal(v)
	if err != nil {
		return fmt.Errorf("bson encode: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func (BSONCodec) Decode(r io.Reader, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if err := bson.Unmarshal(data, v); err != nil {
		return fmt.Errorf("bson decode: %w", err)
	}
	return nil
}

func (BSONCodec) Extension() string {
	return ".bson"
}

// LZ4Codec frames another codec's output in an lz4 stream.
type LZ4Codec struct {
	Inner Codec
}

func (c LZ4Codec) Encode(w io.Writer, v any) error {
	zw := lz4.NewWriter(w)
	if err := c.Inner.Encode(zw, v); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("lz4 close: %w", err)
	}
	return nil
}

func (c LZ4Codec) Decode(r io.Reader, v any) error {
	return c.Inner.Decode(lz4.NewReader(r), v)
}

func (c LZ4Codec) Extension() string {
	return c.Inner.Extension() + ".lz4"
}

func NewCodec(compress bool) Codec {
	if compress {
		return LZ4Codec{Inner: BSONCodec{}}
	}
	return BSONCodec{}
}
