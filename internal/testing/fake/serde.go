package fake

import (
	"encoding/json"
	"io"

	"go.dedis.ch/ballot/serde"
)

const (
	// GoodFormat is the format of a context that succeeds.
	GoodFormat = serde.Format("FakeGood")

	// BadFormat is the format of a context that fails.
	BadFormat = serde.Format("FakeBad")
)

var fakeFormatValue = []byte("fake format")

// GetFakeFormatValue returns the value produced by the fake format engine.
func GetFakeFormatValue() []byte {
	return append([]byte{}, fakeFormatValue...)
}

// Message is a fake implementation of a message.
//
// - implements serde.Message
// - implements serde.Fingerprinter
type Message struct {
	Digest []byte
}

// Serialize implements serde.Message.
func (m Message) Serialize(serde.Context) ([]byte, error) {
	return GetFakeFormatValue(), nil
}

// Fingerprint implements serde.Fingerprinter.
func (m Message) Fingerprint(w io.Writer) error {
	_, err := w.Write(m.Digest)
	return err
}

// MessageFactory is a fake implementation of a factory.
//
// - implements serde.Factory
type MessageFactory struct {
	err error
}

// NewBadMessageFactory returns a factory that always fails.
func NewBadMessageFactory() MessageFactory {
	return MessageFactory{err: fakeErr}
}

// Deserialize implements serde.Factory.
func (f MessageFactory) Deserialize(serde.Context, []byte) (serde.Message, error) {
	return Message{}, f.err
}

// Format is a fake format engine.
//
// - implements serde.FormatEngine
type Format struct {
	Msg  serde.Message
	Call *Call
	err  error
}

// NewBadFormat returns a format engine that always fails.
func NewBadFormat() Format {
	return Format{err: fakeErr}
}

// Encode implements serde.FormatEngine.
func (f Format) Encode(ctx serde.Context, m serde.Message) ([]byte, error) {
	f.Call.Add(ctx, m)

	if f.err != nil {
		return nil, f.err
	}

	return GetFakeFormatValue(), nil
}

// Decode implements serde.FormatEngine.
func (f Format) Decode(ctx serde.Context, data []byte) (serde.Message, error) {
	f.Call.Add(ctx, data)

	return f.Msg, f.err
}

// contextEngine is a fake context engine using the JSON encoding.
//
// - implements serde.ContextEngine
type contextEngine struct {
	format serde.Format
	err    error
}

// NewContext returns a context with the good format.
func NewContext() serde.Context {
	return NewContextWithFormat(GoodFormat)
}

// NewContextWithFormat returns a context with the given format.
func NewContextWithFormat(f serde.Format) serde.Context {
	return serde.NewContext(contextEngine{format: f})
}

// NewBadContext returns a context with the bad format and a failing engine.
func NewBadContext() serde.Context {
	return serde.NewContext(contextEngine{format: BadFormat, err: fakeErr})
}

// GetFormat implements serde.ContextEngine.
func (ctx contextEngine) GetFormat() serde.Format {
	return ctx.format
}

// Marshal implements serde.ContextEngine.
func (ctx contextEngine) Marshal(m interface{}) ([]byte, error) {
	if ctx.err != nil {
		return nil, ctx.err
	}

	return json.Marshal(m)
}

// Unmarshal implements serde.ContextEngine.
func (ctx contextEngine) Unmarshal(data []byte, m interface{}) error {
	if ctx.err != nil {
		return ctx.err
	}

	return json.Unmarshal(data, m)
}
