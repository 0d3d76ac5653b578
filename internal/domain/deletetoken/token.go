// Package deletetoken packs a drive item id and its eTag into the opaque token
// carried by public delete links. The token is the only state: nothing is
// stored server side.
package deletetoken

import (
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/driveindex/internal/domain/entity"
)

const separator = "."

// Codec seals and opens byte payloads. Decode must fail with an error
// wrapping entity.ErrDecode for anything it did not produce.
type Codec interface {
	Encode(plain []byte) (string, error)
	Decode(token string) ([]byte, error)
}

// Tokens encodes and decodes delete tokens
type Tokens struct {
	codec Codec
}

// New creates Tokens over codec
func New(codec Codec) *Tokens {
	return &Tokens{codec: codec}
}

// Encode returns codec(id + "." + codec(eTag))
func (t *Tokens) Encode(id, eTag string) (string, error) {
	if id == "" || strings.Contains(id, separator) {
		return "", entity.NewValidationError("id", "is empty or contains '.'")
	}
	if eTag == "" {
		return "", entity.NewValidationError("eTag", "is required")
	}

	sealedTag, err := t.codec.Encode([]byte(eTag))
	if err != nil {
		return "", fmt.Errorf("failed to seal eTag: %w", err)
	}

	token, err := t.codec.Encode([]byte(id + separator + sealedTag))
	if err != nil {
		return "", fmt.Errorf("failed to seal token: %w", err)
	}
	return token, nil
}

// Decode recovers (id, eTag) from token. Any malformed layer yields an error
// wrapping entity.ErrDecode.
func (t *Tokens) Decode(token string) (id, eTag string, err error) {
	inner, err := t.codec.Decode(token)
	if err != nil {
		return "", "", asDecodeError(err)
	}

	parts := strings.SplitN(string(inner), separator, 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: malformed delete token", entity.ErrDecode)
	}

	tag, err := t.codec.Decode(parts[1])
	if err != nil {
		return "", "", asDecodeError(err)
	}
	if len(tag) == 0 {
		return "", "", fmt.Errorf("%w: empty eTag", entity.ErrDecode)
	}

	return parts[0], string(tag), nil
}

func asDecodeError(err error) error {
	if errors.Is(err, entity.ErrDecode) {
		return err
	}
	return fmt.Errorf("%w: %v", entity.ErrDecode, err)
}
