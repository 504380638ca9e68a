package pgm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// maxTokenLen caps a header or raster token; no valid token comes close.
const maxTokenLen = 32

var errTokenTooLong = errors.New("token too long")

// Decode reads the PGM image stored at path.
func Decode(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer f.Close()

	img, err := DecodeReader(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// DecodeReader reads a P5 or P2 image from r.
func DecodeReader(r io.Reader) (*Image, error) {
	tr := &tokenReader{r: bufio.NewReader(r)}

	magic, err := tr.headerToken("magic")
	if err != nil {
		return nil, err
	}
	variant, err := ParseVariant(magic)
	if err != nil {
		return nil, err
	}

	width, err := tr.headerInt("width")
	if err != nil {
		return nil, err
	}
	height, err := tr.headerInt("height")
	if err != nil {
		return nil, err
	}
	if err := checkDimensions(width, height); err != nil {
		return nil, err
	}
	maxValue, err := tr.headerInt("max value")
	if err != nil {
		return nil, err
	}
	// Stricter than plain PGM readers: a max value outside 1..65535 is a format error.
	if maxValue < 1 || maxValue > MaxSampleValue {
		return nil, fmt.Errorf("%w: max value %d out of range", ErrFormat, maxValue)
	}

	// Exactly one terminator byte separates the header from the raster.
	if _, err := tr.r.ReadByte(); err != nil {
		return nil, fmt.Errorf("%w: missing raster after header: %w", ErrIO, err)
	}

	img := &Image{
		Width:    width,
		Height:   height,
		MaxValue: maxValue,
		Variant:  variant,
		Pix:      make([]byte, width*height),
	}

	switch variant {
	case Binary:
		err = tr.readBinary(img.Pix)
	case ASCII:
		err = tr.readASCII(img.Pix)
	}
	if err != nil {
		return nil, err
	}
	return img, nil
}

type tokenReader struct {
	r *bufio.Reader
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// skipSeparators consumes whitespace and '#' comments running to end of line.
func (t *tokenReader) skipSeparators() error {
	for {
		b, err := t.r.ReadByte()
		if err != nil {
			return err
		}
		switch {
		case b == '#':
			if _, err := t.r.ReadString('\n'); err != nil {
				return err
			}
		case isSpace(b):
		default:
			return t.r.UnreadByte()
		}
	}
}

// token returns the next whitespace-delimited token. The delimiter is left unread.
func (t *tokenReader) token() (string, error) {
	if err := t.skipSeparators(); err != nil {
		return "", err
	}
	var buf [maxTokenLen]byte
	n := 0
	for {
		b, err := t.r.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if isSpace(b) || b == '#' {
			if err := t.r.UnreadByte(); err != nil {
				return "", err
			}
			break
		}
		if n == maxTokenLen {
			return "", errTokenTooLong
		}
		buf[n] = b
		n++
	}
	return string(buf[:n]), nil
}

func (t *tokenReader) headerToken(field string) (string, error) {
	tok, err := t.token()
	switch {
	case err == nil:
		return tok, nil
	case errors.Is(err, io.EOF), errors.Is(err, errTokenTooLong):
		return "", fmt.Errorf("%w: reading %s: %w", ErrFormat, field, err)
	default:
		return "", fmt.Errorf("%w: reading %s: %w", ErrIO, field, err)
	}
}

func (t *tokenReader) headerInt(field string) (int, error) {
	tok, err := t.headerToken(field)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not an integer", ErrFormat, field, tok)
	}
	return v, nil
}

func (t *tokenReader) readBinary(pix []byte) error {
	n, err := io.ReadFull(t.r, pix)
	if err != nil {
		return fmt.Errorf("%w: read %d of %d samples: %w", ErrIO, n, len(pix), err)
	}
	return nil
}

func (t *tokenReader) readASCII(pix []byte) error {
	for i := range pix {
		tok, err := t.token()
		if err == nil && tok == "" {
			err = io.ErrUnexpectedEOF
		}
		if err != nil {
			return fmt.Errorf("%w: sample %d of %d: %w", ErrIO, i, len(pix), err)
		}
		v, err := strconv.Atoi(tok)
		if err != nil {
			return fmt.Errorf("%w: sample %d: %q is not an integer", ErrIO, i, tok)
		}
		pix[i] = byte(v)
	}
	return nil
}
