package cmd

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// Supported encodings for instruction and record bytes.
const (
	formatHex    = "hex"
	formatBase58 = "base58"
	formatBase64 = "base64"
)

func encodeBytes(data []byte, format string) (string, error) {
	switch format {
	case formatHex:
		return hex.EncodeToString(data), nil
	case formatBase58:
		return base58.Encode(data), nil
	case formatBase64:
		return base64.StdEncoding.EncodeToString(data), nil
	default:
		return "", fmt.Errorf("unknown format %q", format)
	}
}

func decodeBytes(text, format string) ([]byte, error) {
	text = strings.TrimSpace(text)
	var (
		data []byte
		err  error
	)
	switch format {
	case formatHex:
		data, err = hex.DecodeString(strings.TrimPrefix(text, "0x"))
	case formatBase58:
		data, err = base58.Decode(text)
	case formatBase64:
		data, err = base64.StdEncoding.DecodeString(text)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid %s input: %w", format, err)
	}
	return data, nil
}
