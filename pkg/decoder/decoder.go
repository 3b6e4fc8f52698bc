// Package decoder turns raw token-swap instruction data into typed events.
//
// Decoders are pluggable: each one reports whether it can handle a payload
// and produces an Event. A Registry routes payloads to the decoders of a
// program, and NewTokenSwapDecoder wires the four token-swap instructions.
//
// Example usage:
//
//	registry := decoder.NewRegistry()
//	registry.RegisterForProgram(programID, decoder.NewTokenSwapDecoder(programID))
//
//	event, err := registry.Decode(data, &programID)
package decoder

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// Event is a decoded instruction.
type Event struct {
	// Name is the instruction name, such as "Swap".
	Name string

	// Data is the decoded value, usually an instruction.Instruction.
	Data any

	// RawData is the original bytes.
	RawData []byte

	// ProgramID is the program the data was addressed to.
	ProgramID solana.PublicKey

	// Tag is the leading discriminant byte.
	Tag uint8
}

// Decoder decodes raw data into an Event.
type Decoder interface {
	// Decode decodes data. It returns an error if the data is malformed.
	Decode(data []byte) (*Event, error)

	// CanDecode checks if this decoder handles data without decoding it.
	CanDecode(data []byte) bool

	// GetName returns the name of this decoder.
	GetName() string

	// GetProgramID returns the program ID this decoder handles, or the zero
	// key if it is not tied to one program.
	GetProgramID() solana.PublicKey
}

// DecoderFunc adapts a pair of functions to the Decoder interface.
type DecoderFunc struct {
	name      string
	programID solana.PublicKey
	canDecode func([]byte) bool
	decode    func([]byte) (*Event, error)
}

// NewDecoderFunc creates a new DecoderFunc.
func NewDecoderFunc(
	name string,
	programID solana.PublicKey,
	canDecode func([]byte) bool,
	decode func([]byte) (*Event, error),
) *DecoderFunc {
	return &DecoderFunc{
		name:      name,
		programID: programID,
		canDecode: canDecode,
		decode:    decode,
	}
}

func (d *DecoderFunc) Decode(data []byte) (*Event, error) { return d.decode(data) }
func (d *DecoderFunc) CanDecode(data []byte) bool         { return d.canDecode(data) }
func (d *DecoderFunc) GetName() string                    { return d.name }
func (d *DecoderFunc) GetProgramID() solana.PublicKey     { return d.programID }

// Registry routes data to registered decoders. Decoders are tried in
// registration order.
type Registry struct {
	mu               sync.RWMutex
	keys             []string
	decoders         map[string]Decoder
	decodersByPubkey map[solana.PublicKey][]Decoder
	fallbackDecoder  Decoder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		decoders:         make(map[string]Decoder),
		decodersByPubkey: make(map[solana.PublicKey][]Decoder),
	}
}

func (r *Registry) put(key string, decoder Decoder) {
	if _, exists := r.decoders[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.decoders[key] = decoder
}

// Register registers a decoder under key. It is also indexed by its program
// ID when it has one.
func (r *Registry) Register(key string, decoder Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.put(key, decoder)
	if programID := decoder.GetProgramID(); !programID.IsZero() {
		r.decodersByPubkey[programID] = append(r.decodersByPubkey[programID], decoder)
	}
}

// RegisterForProgram registers a decoder for a specific program ID.
func (r *Registry) RegisterForProgram(programID solana.PublicKey, decoder Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.put(programID.String(), decoder)
	r.decodersByPubkey[programID] = append(r.decodersByPubkey[programID], decoder)
}

// SetFallbackDecoder sets a decoder to use when no specific decoder is found.
func (r *Registry) SetFallbackDecoder(decoder Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbackDecoder = decoder
}

// Get retrieves a decoder by key.
func (r *Registry) Get(key string) (Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	decoder, exists := r.decoders[key]
	return decoder, exists
}

// GetForProgram retrieves all decoders for a program ID.
func (r *Registry) GetForProgram(programID solana.PublicKey) []Decoder {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.decodersByPubkey[programID])
}

// candidates returns the decoders to try for programID. The caller must hold
// at least a read lock.
func (r *Registry) candidates(programID *solana.PublicKey) []Decoder {
	if programID != nil && !programID.IsZero() {
		if decoders, ok := r.decodersByPubkey[*programID]; ok {
			return slices.Clone(decoders)
		}
	}
	decoders := make([]Decoder, 0, len(r.keys))
	for _, key := range r.keys {
		decoders = append(decoders, r.decoders[key])
	}
	return decoders
}

// Decode decodes data with the first matching decoder. Decoders registered
// for programID are tried first, then all decoders, then the fallback.
func (r *Registry) Decode(data []byte, programID *solana.PublicKey) (*Event, error) {
	r.mu.RLock()
	decoders := r.candidates(programID)
	fallback := r.fallbackDecoder
	r.mu.RUnlock()

	event, err := decodeWith(decoders, data)
	if err == nil || fallback == nil {
		return event, err
	}
	if fallback.CanDecode(data) {
		return fallback.Decode(data)
	}
	return nil, err
}

// DecodeAll decodes every payload, skipping the ones no decoder accepts.
func (r *Registry) DecodeAll(dataList [][]byte, programID *solana.PublicKey) ([]*Event, error) {
	events := make([]*Event, 0, len(dataList))
	for _, data := range dataList {
		event, err := r.Decode(data, programID)
		if err != nil {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// ListDecoders returns all registered keys in registration order.
func (r *Registry) ListDecoders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.keys)
}

func decodeWith(decoders []Decoder, data []byte) (*Event, error) {
	for _, decoder := range decoders {
		if decoder.CanDecode(data) {
			return decoder.Decode(data)
		}
	}
	return nil, fmt.Errorf("no decoder found for data (length: %d)", len(data))
}

// CompositeDecoder tries multiple decoders in sequence.
type CompositeDecoder struct {
	name      string
	programID solana.PublicKey
	decoders  []Decoder
}

// NewCompositeDecoder creates a new CompositeDecoder not tied to a program.
func NewCompositeDecoder(name string, decoders ...Decoder) *CompositeDecoder {
	return &CompositeDecoder{
		name:     name,
		decoders: decoders,
	}
}

// AddDecoder appends a decoder to the composite.
func (c *CompositeDecoder) AddDecoder(decoder Decoder) {
	c.decoders = append(c.decoders, decoder)
}

func (c *CompositeDecoder) Decode(data []byte) (*Event, error) {
	for _, decoder := range c.decoders {
		if decoder.CanDecode(data) {
			return decoder.Decode(data)
		}
	}
	return nil, fmt.Errorf("no decoder in %s could handle data", c.name)
}

func (c *CompositeDecoder) CanDecode(data []byte) bool {
	for _, decoder := range c.decoders {
		if decoder.CanDecode(data) {
			return true
		}
	}
	return false
}

func (c *CompositeDecoder) GetName() string                { return c.name }
func (c *CompositeDecoder) GetProgramID() solana.PublicKey { return c.programID }
