package decoder

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-tokenswap/pkg/instruction"
	"github.com/lugondev/go-tokenswap/pkg/view"
)

// TagDecoder decodes token-swap instructions carrying one specific tag.
type TagDecoder struct {
	programID solana.PublicKey
	tag       instruction.Tag
}

// NewTagDecoder creates a decoder for a single instruction tag.
func NewTagDecoder(programID solana.PublicKey, tag instruction.Tag) *TagDecoder {
	return &TagDecoder{programID: programID, tag: tag}
}

// CanDecode checks the tag and payload length through a zero-copy view.
func (d *TagDecoder) CanDecode(data []byte) bool {
	v, err := view.NewInstructionView(data)
	return err == nil && v.Tag() == uint8(d.tag)
}

func (d *TagDecoder) Decode(data []byte) (*Event, error) {
	if len(data) == 0 || data[0] != uint8(d.tag) {
		return nil, fmt.Errorf("tag mismatch: want %s", d.tag)
	}
	ix, err := instruction.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", d.tag, err)
	}
	return &Event{
		Name:      d.tag.String(),
		Data:      ix,
		RawData:   data,
		ProgramID: d.programID,
		Tag:       uint8(d.tag),
	}, nil
}

func (d *TagDecoder) GetName() string                { return d.tag.String() }
func (d *TagDecoder) GetProgramID() solana.PublicKey { return d.programID }

// NewTokenSwapDecoder returns a decoder for all four token-swap instructions
// of programID.
func NewTokenSwapDecoder(programID solana.PublicKey) *CompositeDecoder {
	c := NewCompositeDecoder("token_swap",
		NewTagDecoder(programID, instruction.TagInitialize),
		NewTagDecoder(programID, instruction.TagSwap),
		NewTagDecoder(programID, instruction.TagDepositAllTokenTypes),
		NewTagDecoder(programID, instruction.TagWithdrawAllTokenTypes),
	)
	c.programID = programID
	return c
}
