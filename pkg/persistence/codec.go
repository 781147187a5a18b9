package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/bvweerd/wgtunnel/pkg/stateful"
)

// ErrNotObject is returned when a document does not decode to an object.
// Syntax errors are reported the same way.
var ErrNotObject = errors.New("document is not an object")

// Codec converts between stored bytes and an object.
type Codec interface {
	Name() string
	Marshal(root stateful.Object) ([]byte, error)
	Unmarshal(data []byte) (stateful.Object, error)
}

// JSONCodec stores documents as indented JSON.
type JSONCodec struct{}

// Name returns "json".
func (JSONCodec) Name() string { return "json" }

// Marshal encodes root.
func (JSONCodec) Marshal(root stateful.Object) ([]byte, error) {
	return json.MarshalIndent(root, "", "  ")
}

// Unmarshal decodes data into an object.
func (JSONCodec) Unmarshal(data []byte) (stateful.Object, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	root, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return root, nil
}

// cborEncMode and cborDecMode are shared by CBORCodec.
var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
	}
	cborEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create settings CBOR encoder mode: %v", err))
	}

	// Maps decode with string keys so the result is a stateful.Object.
	decOpts := cbor.DecOptions{
		DupMapKey:      cbor.DupMapKeyEnforcedAPF,
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}
	cborDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create settings CBOR decoder mode: %v", err))
	}
}

// CBORCodec stores documents as canonical CBOR maps.
type CBORCodec struct{}

// Name returns "cbor".
func (CBORCodec) Name() string { return "cbor" }

// Marshal encodes root.
func (CBORCodec) Marshal(root stateful.Object) ([]byte, error) {
	return cborEncMode.Marshal(root)
}

// Unmarshal decodes data into an object.
func (CBORCodec) Unmarshal(data []byte) (stateful.Object, error) {
	var v any
	if err := cborDecMode.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	root, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return root, nil
}

// CodecByName returns the codec registered under name.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "cbor":
		return CBORCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown codec: %s", name)
	}
}
